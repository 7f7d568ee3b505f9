package oai

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vietddude/harvester/internal/core/domain"
)

// PayloadParser extracts protocol elements from a raw response body.
type PayloadParser interface {
	// ParseError returns the first <error> element, or nil when there is none.
	ParseError(body []byte) (*domain.ProtocolError, error)

	// ParseResumptionToken returns the resumption token; ok is false when the
	// element is absent or empty.
	ParseResumptionToken(body []byte) (token string, ok bool, err error)
}

// XMLParser implements PayloadParser by streaming the document.
// Elements are matched by local name so namespace prefixes do not matter.
type XMLParser struct{}

// NewXMLParser creates a parser.
func NewXMLParser() *XMLParser {
	return &XMLParser{}
}

// ParseError implements PayloadParser.
func (p *XMLParser) ParseError(body []byte) (*domain.ProtocolError, error) {
	var found *domain.ProtocolError
	err := walk(body, "error", func(start xml.StartElement, text string) bool {
		pe := &domain.ProtocolError{Text: text}
		for _, attr := range start.Attr {
			if attr.Name.Local == "code" {
				pe.Code = attr.Value
			}
		}
		found = pe
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ParseResumptionToken implements PayloadParser.
func (p *XMLParser) ParseResumptionToken(body []byte) (string, bool, error) {
	var token string
	var ok bool
	err := walk(body, "resumptionToken", func(_ xml.StartElement, text string) bool {
		token = text
		ok = token != ""
		return true
	})
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// walk calls fn with the trimmed character data of each element named local,
// until fn returns true. The whole document is validated up to that point.
func walk(body []byte, local string, fn func(xml.StartElement, string) bool) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty document", domain.ErrMalformedPayload)
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = true

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}

		start, isStart := tok.(xml.StartElement)
		if !isStart || start.Name.Local != local {
			continue
		}

		text, err := charData(dec)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		if fn(start, text) {
			return nil
		}
	}
}

// charData reads the text content of the element just opened, including the
// text of nested elements, and consumes its end tag.
func charData(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Package oai implements the OAI-PMH 2.0 request/response cycle.
//
// This package contains:
//   - Transport: the capability that ships parameters to an endpoint (HTTPTransport)
//   - PayloadParser: extraction of <error> and <resumptionToken> (XMLParser)
//   - Client: verb dispatch and classification into a domain.Outcome
package oai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/harvester/internal/core/domain"
)

// DefaultMetadataPrefix is requested when no format is configured.
const DefaultMetadataPrefix = "oai_dc"

// ListRecordsParams are the optional filters of an initial ListRecords request.
type ListRecordsParams struct {
	MetadataPrefix string
	From           string
	Until          string
	Set            string
}

// Client sends protocol requests and classifies the responses.
type Client struct {
	transport Transport
	parser    PayloadParser
	log       *slog.Logger
}

// NewClient creates a client over the given transport and parser.
func NewClient(transport Transport, parser PayloadParser) *Client {
	return &Client{
		transport: transport,
		parser:    parser,
		log:       slog.Default().With("component", "oai"),
	}
}

// Send issues one request. The returned error is non-nil only when no outcome
// could be produced: the transport failed, the payload could not be parsed, or
// the server used an error code outside the protocol.
func (c *Client) Send(ctx context.Context, verb domain.Verb, args map[string]string) (domain.Outcome, error) {
	return c.Do(ctx, domain.NewRequest(verb, args))
}

// Do sends a prepared request.
func (c *Client) Do(ctx context.Context, req domain.Request) (domain.Outcome, error) {
	if !req.Verb.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidVerb, req.Verb)
	}

	resp, err := c.transport.Send(ctx, req.Params())
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Verb, err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.TransportError{StatusCode: resp.StatusCode, Response: resp}, nil
	}

	protoErr, err := c.parser.ParseError(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", req.Verb, err)
	}
	if protoErr == nil {
		return domain.Success{Payload: resp.Body}, nil
	}

	code, err := domain.ParseErrorCode(protoErr.Code)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", req.Verb, err)
	}
	if !code.AppliesTo(req.Verb) {
		c.log.Warn("Server returned error code not defined for verb", "verb", req.Verb, "code", code)
	}

	return domain.ApplicationError{Code: code, Text: protoErr.Text, Payload: resp.Body}, nil
}

// ListRecords sends the initial ListRecords request. Empty filters are omitted.
func (c *Client) ListRecords(ctx context.Context, p ListRecordsParams) (domain.Outcome, error) {
	return c.Do(ctx, ListRecordsRequest(p))
}

// ResumeListRecords continues a ListRecords harvest from a resumption token.
func (c *Client) ResumeListRecords(ctx context.Context, token string) (domain.Outcome, error) {
	return c.Do(ctx, ResumeListRecordsRequest(token))
}

// Identify asks the repository to describe itself.
func (c *Client) Identify(ctx context.Context) (domain.Outcome, error) {
	return c.Send(ctx, domain.VerbIdentify, nil)
}

// ExtractCursor returns the resumption token of a successful payload.
// ok is false when the list is complete.
func (c *Client) ExtractCursor(payload []byte) (string, bool, error) {
	token, ok, err := c.parser.ParseResumptionToken(payload)
	if err != nil {
		return "", false, fmt.Errorf("extract resumption token: %w", err)
	}
	return token, ok, nil
}

// ListRecordsRequest builds an initial ListRecords request.
func ListRecordsRequest(p ListRecordsParams) domain.Request {
	prefix := p.MetadataPrefix
	if prefix == "" {
		prefix = DefaultMetadataPrefix
	}
	args := map[string]string{"metadataPrefix": prefix}
	if p.From != "" {
		args["from"] = p.From
	}
	if p.Until != "" {
		args["until"] = p.Until
	}
	if p.Set != "" {
		args["set"] = p.Set
	}
	return domain.NewRequest(domain.VerbListRecords, args)
}

// ResumeListRecordsRequest builds a continuation request; the token is its only argument.
func ResumeListRecordsRequest(token string) domain.Request {
	return domain.NewRequest(domain.VerbListRecords, map[string]string{"resumptionToken": token})
}

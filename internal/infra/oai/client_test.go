package oai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// recordingTransport replies with a fixed response and remembers the parameters it saw.
type recordingTransport struct {
	resp   *domain.RawResponse
	err    error
	params []map[string]string
}

func (r *recordingTransport) Send(ctx context.Context, params map[string]string) (*domain.RawResponse, error) {
	r.params = append(r.params, params)
	return r.resp, r.err
}

func okResponse(body []byte) *domain.RawResponse {
	return &domain.RawResponse{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}
}

func TestClientSend_InjectsVerb(t *testing.T) {
	tr := &recordingTransport{resp: okResponse(readFixture(t, "identify.xml"))}
	c := NewClient(tr, NewXMLParser())

	args := map[string]string{"identifier": "oai:x:1"}
	if _, err := c.Send(context.Background(), domain.VerbGetRecord, args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.params[0]["verb"] != "GetRecord" {
		t.Errorf("expected verb GetRecord, got %q", tr.params[0]["verb"])
	}
	if _, ok := args["verb"]; ok {
		t.Error("caller arguments were mutated")
	}
}

func TestClientSend_RejectsInvalidVerb(t *testing.T) {
	tr := &recordingTransport{resp: okResponse(readFixture(t, "identify.xml"))}
	c := NewClient(tr, NewXMLParser())

	_, err := c.Send(context.Background(), domain.Verb("ListEverything"), nil)
	if !errors.Is(err, domain.ErrInvalidVerb) {
		t.Fatalf("expected ErrInvalidVerb, got %v", err)
	}
	if len(tr.params) != 0 {
		t.Error("invalid verb must not reach the transport")
	}
}

func TestClientSend_TransportStatuses(t *testing.T) {
	for _, code := range []int{201, 204, 301, 400, 404, 500, 503} {
		tr := &recordingTransport{resp: &domain.RawResponse{StatusCode: code, Header: http.Header{}}}
		c := NewClient(tr, NewXMLParser())

		out, err := c.Send(context.Background(), domain.VerbIdentify, nil)
		if err != nil {
			t.Fatalf("status %d: unexpected error: %v", code, err)
		}
		te, ok := out.(domain.TransportError)
		if !ok {
			t.Fatalf("status %d: expected TransportError, got %T", code, out)
		}
		if te.StatusCode != code {
			t.Errorf("expected status %d, got %d", code, te.StatusCode)
		}
		if te.Response != tr.resp {
			t.Errorf("status %d: raw response not carried", code)
		}
	}
}

func TestClientSend_ApplicationErrors(t *testing.T) {
	tests := []struct {
		file string
		code domain.ErrorCode
	}{
		{"error_bad_resumption_token.xml", domain.ErrorBadResumptionToken},
		{"error_no_records_match.xml", domain.ErrorNoRecordsMatch},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			body := readFixture(t, tt.file)
			c := NewClient(&recordingTransport{resp: okResponse(body)}, NewXMLParser())

			out, err := c.Send(context.Background(), domain.VerbListRecords, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ae, ok := out.(domain.ApplicationError)
			if !ok {
				t.Fatalf("expected ApplicationError, got %T", out)
			}
			if ae.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, ae.Code)
			}
			if ae.Text == "" {
				t.Error("expected error text")
			}
			if string(ae.Payload) != string(body) {
				t.Error("expected original payload to be carried")
			}
		})
	}
}

func TestClientSend_UnknownErrorCode(t *testing.T) {
	c := NewClient(&recordingTransport{resp: okResponse(readFixture(t, "error_unknown_code.xml"))}, NewXMLParser())

	_, err := c.Send(context.Background(), domain.VerbListRecords, nil)
	if !errors.Is(err, domain.ErrUnknownErrorCode) {
		t.Errorf("expected ErrUnknownErrorCode, got %v", err)
	}
}

func TestClientSend_Success(t *testing.T) {
	body := readFixture(t, "list_records.xml")
	c := NewClient(&recordingTransport{resp: okResponse(body)}, NewXMLParser())

	out, err := c.Send(context.Background(), domain.VerbListRecords, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := out.(domain.Success)
	if !ok {
		t.Fatalf("expected Success, got %T", out)
	}
	if string(s.Payload) != string(body) {
		t.Error("expected payload bytes unchanged")
	}
}

func TestClientSend_MalformedBody(t *testing.T) {
	c := NewClient(&recordingTransport{resp: okResponse([]byte("<OAI-PMH><ListRecords>"))}, NewXMLParser())

	_, err := c.Send(context.Background(), domain.VerbListRecords, nil)
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestClientSend_TransportFailure(t *testing.T) {
	boom := errors.New("connection reset by peer")
	c := NewClient(&recordingTransport{err: boom}, NewXMLParser())

	_, err := c.Send(context.Background(), domain.VerbIdentify, nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected transport error to be wrapped, got %v", err)
	}
}

func TestListRecordsRequest(t *testing.T) {
	req := ListRecordsRequest(ListRecordsParams{})
	params := req.Params()
	if params["verb"] != "ListRecords" || params["metadataPrefix"] != "oai_dc" {
		t.Errorf("unexpected params: %v", params)
	}
	if len(params) != 2 {
		t.Errorf("expected only verb and metadataPrefix, got %v", params)
	}

	req = ListRecordsRequest(ListRecordsParams{
		MetadataPrefix: "arXiv",
		From:           "2020-01-01",
		Until:          "2020-12-31",
		Set:            "cs",
	})
	params = req.Params()
	allowed := map[string]bool{"verb": true, "metadataPrefix": true, "from": true, "until": true, "set": true}
	for k := range params {
		if !allowed[k] {
			t.Errorf("unexpected parameter %s", k)
		}
	}
	if params["set"] != "cs" || params["from"] != "2020-01-01" || params["until"] != "2020-12-31" {
		t.Errorf("filters not carried: %v", params)
	}
}

func TestResumeListRecordsRequest(t *testing.T) {
	params := ResumeListRecordsRequest("TOKEN").Params()
	if len(params) != 2 || params["verb"] != "ListRecords" || params["resumptionToken"] != "TOKEN" {
		t.Errorf("unexpected params: %v", params)
	}
}

func TestExtractCursor(t *testing.T) {
	c := NewClient(&recordingTransport{}, NewXMLParser())

	token, ok, err := c.ExtractCursor(readFixture(t, "list_records.xml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || token != "6053393|1001" {
		t.Errorf("expected token 6053393|1001, got %q (ok=%v)", token, ok)
	}

	_, ok, err = c.ExtractCursor(readFixture(t, "list_records_last.xml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected empty resumption token to end the list")
	}

	_, ok, err = c.ExtractCursor(readFixture(t, "identify.xml"))
	if err != nil || ok {
		t.Errorf("expected no token and no error, got ok=%v err=%v", ok, err)
	}

	if _, _, err := c.ExtractCursor([]byte("not xml at all <")); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestHTTPTransport_PostsForm(t *testing.T) {
	body := readFixture(t, "list_records.xml")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("verb") != "ListRecords" {
			t.Errorf("expected verb ListRecords, got %q", r.PostForm.Get("verb"))
		}
		if r.PostForm.Get("resumptionToken") != "abc|1" {
			t.Errorf("expected token abc|1, got %q", r.PostForm.Get("resumptionToken"))
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	c := NewClient(NewHTTPTransport(server.URL, 5*time.Second), NewXMLParser())
	out, err := c.ResumeListRecords(context.Background(), "abc|1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(domain.Success); !ok {
		t.Fatalf("expected Success, got %T", out)
	}
}

func TestHTTPTransport_ServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, 5*time.Second)
	if tr.Endpoint() != server.URL {
		t.Errorf("expected endpoint %s, got %s", server.URL, tr.Endpoint())
	}
	out, err := NewClient(tr, NewXMLParser()).ListRecords(context.Background(), ListRecordsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	te, ok := out.(domain.TransportError)
	if !ok {
		t.Fatalf("expected TransportError, got %T", out)
	}
	if te.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", te.StatusCode)
	}
	if wait, ok := te.Response.RetryAfter(); !ok || wait != 30 {
		t.Errorf("expected Retry-After 30, got %d (ok=%v)", wait, ok)
	}

	h := tr.GetHealth()
	if h.Throttled != 1 {
		t.Errorf("expected 1 throttled response, got %d", h.Throttled)
	}
	if !h.Available {
		t.Error("throttling should not mark the transport unavailable")
	}
}

package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestParseErrorCode(t *testing.T) {
	code, err := ParseErrorCode("badResumptionToken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ErrorBadResumptionToken {
		t.Errorf("expected badResumptionToken, got %s", code)
	}

	if _, err := ParseErrorCode("notARealCode"); !errors.Is(err, ErrUnknownErrorCode) {
		t.Errorf("expected ErrUnknownErrorCode, got %v", err)
	}
}

func TestErrorCodeAppliesTo(t *testing.T) {
	tests := []struct {
		code ErrorCode
		verb Verb
		want bool
	}{
		{ErrorBadArgument, VerbIdentify, true},
		{ErrorBadResumptionToken, VerbListRecords, true},
		{ErrorBadResumptionToken, VerbGetRecord, false},
		{ErrorBadVerb, VerbListRecords, false},
		{ErrorNoRecordsMatch, VerbListIdentifiers, true},
		{ErrorNoMetadataFormats, VerbListRecords, false},
	}
	for _, tt := range tests {
		if got := tt.code.AppliesTo(tt.verb); got != tt.want {
			t.Errorf("%s.AppliesTo(%s) = %v, want %v", tt.code, tt.verb, got, tt.want)
		}
	}
}

func TestVerbIsValid(t *testing.T) {
	for _, v := range AllVerbs {
		if !v.IsValid() {
			t.Errorf("expected %s to be valid", v)
		}
	}
	for _, v := range []Verb{"", "listrecords", "Harvest"} {
		if v.IsValid() {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestParseEventType(t *testing.T) {
	for _, et := range AllEventTypes {
		got, err := ParseEventType(string(et))
		if err != nil || got != et {
			t.Errorf("ParseEventType(%s) = %s, %v", et, got, err)
		}
	}
	if _, err := ParseEventType("page-stored"); err == nil {
		t.Error("expected unknown event type to be rejected")
	}
}

func TestRequestParams(t *testing.T) {
	args := map[string]string{"metadataPrefix": "oai_dc"}
	req := NewRequest(VerbListRecords, args)
	args["set"] = "mutated"

	params := req.Params()
	if params["verb"] != "ListRecords" {
		t.Errorf("expected verb injected, got %q", params["verb"])
	}
	if _, ok := params["set"]; ok {
		t.Error("request observed caller mutation")
	}
	if _, ok := req.Args["verb"]; ok {
		t.Error("Params mutated request args")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value  string
		want   int
		wantOK bool
	}{
		{"30", 30, true},
		{"0", 0, true},
		{" 5 ", 5, true},
		{"", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
		{"a timestamp or something", 0, false},
		{"9223372036", 9223372036, true},
		{"9223372037", 0, false},
		{"9300000000", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		resp := &RawResponse{StatusCode: 503, Header: h}
		got, ok := resp.RetryAfter()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("RetryAfter(%q) = (%d, %v), want (%d, %v)", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}

	var nilResp *RawResponse
	if _, ok := nilResp.RetryAfter(); ok {
		t.Error("expected nil response to have no retry-after")
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	var err error = &StorageExhaustedError{Attempted: 70, Available: 60}
	if !errors.Is(err, ErrStorageExhausted) {
		t.Error("expected StorageExhaustedError to wrap ErrStorageExhausted")
	}
	if err.Error() != "storage exhausted: attempted 70 bytes, 60 available" {
		t.Errorf("unexpected message: %s", err)
	}

	if !errors.Is(&UnhandledStatusError{StatusCode: 404}, ErrUnhandledStatus) {
		t.Error("expected UnhandledStatusError to wrap ErrUnhandledStatus")
	}
	if !errors.Is(&UnhandledApplicationError{Code: ErrorBadArgument}, ErrUnhandledApplication) {
		t.Error("expected UnhandledApplicationError to wrap ErrUnhandledApplication")
	}
}

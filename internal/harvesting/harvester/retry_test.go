package harvester

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		out    domain.Outcome
		action Action
		wait   time.Duration
		target error
	}{
		{"success", domain.Success{Payload: []byte("x")}, ActionStore, 0, nil},
		{"503 retry-after", domain.TransportError{StatusCode: 503, Response: status(503, "30")}, ActionWait, 30 * time.Second, nil},
		{"503 padded", domain.TransportError{StatusCode: 503, Response: status(503, " 7 ")}, ActionWait, 7 * time.Second, nil},
		{"503 no header", domain.TransportError{StatusCode: 503, Response: status(503, "")}, ActionTerminate, 0, domain.ErrUnhandledStatus},
		{"503 nil response", domain.TransportError{StatusCode: 503}, ActionTerminate, 0, domain.ErrUnhandledStatus},
		{"503 fractional", domain.TransportError{StatusCode: 503, Response: status(503, "1.5")}, ActionTerminate, 0, domain.ErrUnhandledStatus},
		{"503 overflowing wait", domain.TransportError{StatusCode: 503, Response: status(503, "9300000000")}, ActionTerminate, 0, domain.ErrUnhandledStatus},
		{"503 largest wait", domain.TransportError{StatusCode: 503, Response: status(503, "9223372036")}, ActionWait, 9223372036 * time.Second, nil},
		{"502", domain.TransportError{StatusCode: http.StatusBadGateway}, ActionTerminate, 0, domain.ErrUnhandledStatus},
		{"app error", domain.ApplicationError{Code: domain.ErrorNoRecordsMatch}, ActionTerminate, 0, domain.ErrUnhandledApplication},
		{"nil outcome", nil, ActionTerminate, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.out)
			if d.Action != tt.action {
				t.Fatalf("expected %s, got %s", tt.action, d.Action)
			}
			if d.Wait != tt.wait {
				t.Errorf("expected wait %s, got %s", tt.wait, d.Wait)
			}
			if tt.target != nil && !errors.Is(d.Err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, d.Err)
			}
			if tt.action == ActionTerminate && d.Err == nil {
				t.Error("terminate decision must carry an error")
			}
		})
	}
}

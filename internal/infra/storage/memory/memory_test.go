package memory

import (
	"errors"
	"testing"

	"github.com/vietddude/harvester/internal/core/domain"
)

func TestMemoryStorage_CapacityAccounting(t *testing.T) {
	m := NewMemoryStorage(100)

	seq, err := m.Store(make([]byte, 40))
	if err != nil || seq != 1 {
		t.Fatalf("expected seq 1, got %d (err=%v)", seq, err)
	}

	if ok, _ := m.HasSpace(make([]byte, 60)); !ok {
		t.Error("expected 60 bytes to fit")
	}

	_, err = m.Store(make([]byte, 70))
	var exhausted *domain.StorageExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected StorageExhaustedError, got %v", err)
	}
	if exhausted.Attempted != 70 || exhausted.Available != 60 {
		t.Errorf("unexpected error fields: %+v", exhausted)
	}
	if m.StoreCount() != 1 {
		t.Errorf("failed store must not be counted, got %d", m.StoreCount())
	}

	seq, err = m.Store(make([]byte, 60))
	if err != nil || seq != 2 {
		t.Fatalf("expected seq 2, got %d (err=%v)", seq, err)
	}
	if avail, _ := m.AvailableCapacity(); avail != 0 {
		t.Errorf("expected no capacity left, got %d", avail)
	}
}

func TestMemoryStorage_ResumptionLog(t *testing.T) {
	m := NewMemoryStorage(10)
	_ = m.LogResumption("a|1", true)
	_ = m.LogResumption("", false)

	tokens := m.Tokens()
	if len(tokens) != 2 || tokens[0] != "a|1" || tokens[1] != "<none>" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
	if m.LogCount() != 2 {
		t.Errorf("expected 2 entries, got %d", m.LogCount())
	}
}

func TestMemoryStorage_FailWith(t *testing.T) {
	m := NewMemoryStorage(10)
	boom := errors.New("disk on fire")
	m.FailWith(boom)

	if _, err := m.Store([]byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	m.FailWith(nil)
	if _, err := m.Store([]byte("x")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

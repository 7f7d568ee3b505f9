package memory

import (
	"sync"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// MemoryStorage is a bounded in-memory Storage. Stored payloads consume
// capacity until the storage is reset.
type MemoryStorage struct {
	mu       sync.RWMutex
	capacity int64
	used     int64
	parts    [][]byte
	tokens   []string
	failing  error
}

var _ storage.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a storage that accepts up to capacity bytes.
func NewMemoryStorage(capacity int64) *MemoryStorage {
	return &MemoryStorage{capacity: capacity}
}

// FailWith makes every subsequent Store and LogResumption return err.
// A nil err restores normal behaviour.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = err
}

func (m *MemoryStorage) AvailableCapacity() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available(), nil
}

func (m *MemoryStorage) HasSpace(payload []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(payload)) <= m.available(), nil
}

func (m *MemoryStorage) Store(payload []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing != nil {
		return 0, m.failing
	}
	available := m.available()
	if int64(len(payload)) > available {
		return 0, &domain.StorageExhaustedError{
			Attempted: int64(len(payload)),
			Available: available,
		}
	}

	m.parts = append(m.parts, append([]byte(nil), payload...))
	m.used += int64(len(payload))
	return len(m.parts), nil
}

func (m *MemoryStorage) LogResumption(token string, ok bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing != nil {
		return m.failing
	}
	if !ok {
		token = storage.NoTokenSentinel
	}
	m.tokens = append(m.tokens, token)
	return nil
}

// StoreCount returns the number of payloads stored.
func (m *MemoryStorage) StoreCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.parts)
}

// LogCount returns the number of resumption log entries.
func (m *MemoryStorage) LogCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// Tokens returns a copy of the resumption log.
func (m *MemoryStorage) Tokens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tokens...)
}

// Part returns the payload stored under seq, starting at 1.
func (m *MemoryStorage) Part(seq int) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if seq < 1 || seq > len(m.parts) {
		return nil, false
	}
	return m.parts[seq-1], true
}

func (m *MemoryStorage) available() int64 {
	if a := m.capacity - m.used; a > 0 {
		return a
	}
	return 0
}

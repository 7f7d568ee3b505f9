package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/vietddude/harvester/internal/core/domain"
)

// DefaultCapacityFraction keeps 15% of the filesystem free.
const DefaultCapacityFraction = 0.85

var partPattern = regexp.MustCompile(`^part_(\d{4,})$`)

// MeasureFunc reports the free bytes of the filesystem holding path.
type MeasureFunc func(path string) (int64, error)

// Option configures a LocalStorage.
type Option func(*LocalStorage)

// WithCapacityFraction sets the share of measured free space that may be used.
func WithCapacityFraction(f float64) Option {
	return func(s *LocalStorage) {
		s.fraction = f
	}
}

// WithMeasure replaces the free-space measurement.
func WithMeasure(m MeasureFunc) Option {
	return func(s *LocalStorage) {
		s.measure = m
	}
}

// LocalStorage writes payloads as numbered part files in one directory.
type LocalStorage struct {
	dir      string
	measure  MeasureFunc
	fraction float64
	log      *slog.Logger

	mu   sync.Mutex
	last int // highest sequence number on disk
}

// NewLocalStorage opens dir, creating it if needed, and resumes numbering
// after the highest existing part file.
func NewLocalStorage(dir string, opts ...Option) (*LocalStorage, error) {
	s := &LocalStorage{
		dir:      dir,
		measure:  FreeBytes,
		fraction: DefaultCapacityFraction,
		log:      slog.Default().With("component", "storage", "dir", dir),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fraction <= 0 || s.fraction > 1 {
		return nil, fmt.Errorf("capacity fraction must be in (0, 1], got %v", s.fraction)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	parts, err := ScanParts(dir)
	if err != nil {
		return nil, err
	}
	if len(parts) > 0 {
		s.last = parts[len(parts)-1]
	}
	s.log.Debug("Recovered part numbering", "existing", len(parts), "next", s.last+1)

	return s, nil
}

// Dir returns the storage directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// NextSequence returns the number the next stored payload will receive.
func (s *LocalStorage) NextSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last + 1
}

// Parts lists the part numbers currently in the directory.
func (s *LocalStorage) Parts() ([]int, error) {
	return ScanParts(s.dir)
}

// AvailableCapacity implements Storage.
func (s *LocalStorage) AvailableCapacity() (int64, error) {
	free, err := s.measure(s.dir)
	if err != nil {
		return 0, fmt.Errorf("measure free space: %w", err)
	}
	if free < 0 {
		free = 0
	}
	return int64(math.Floor(float64(free) * s.fraction)), nil
}

// HasSpace implements Storage.
func (s *LocalStorage) HasSpace(payload []byte) (bool, error) {
	available, err := s.AvailableCapacity()
	if err != nil {
		return false, err
	}
	return int64(len(payload)) <= available, nil
}

// Store implements Storage. The payload is written to a temporary file and
// renamed into place, so a part file is either complete or absent.
func (s *LocalStorage) Store(payload []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, err := s.AvailableCapacity()
	if err != nil {
		return 0, err
	}
	if int64(len(payload)) > available {
		return 0, &domain.StorageExhaustedError{
			Attempted: int64(len(payload)),
			Available: available,
		}
	}

	seq := s.last + 1
	name := PartName(seq)
	if err := writeAtomic(filepath.Join(s.dir, name), payload); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", name, err)
	}
	s.last = seq

	return seq, nil
}

// LogResumption implements Storage.
func (s *LocalStorage) LogResumption(token string, ok bool) error {
	line := token
	if !ok {
		line = NoTokenSentinel
	}

	f, err := os.OpenFile(filepath.Join(s.dir, ResumptionLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open resumption log: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append resumption log: %w", err)
	}
	return f.Close()
}

// ScanParts returns the sequence numbers of the part files in dir, ascending.
func ScanParts(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list storage dir: %w", err)
	}

	var parts []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	slices.Sort(parts)
	return parts, nil
}

func writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// LastResumption returns the final entry of the resumption log in dir.
// ok is false when the log is empty, missing or ends with NoTokenSentinel.
func LastResumption(dir string) (token string, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, ResumptionLogName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read resumption log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	last := lines[len(lines)-1]
	if last == "" || last == NoTokenSentinel {
		return "", false, nil
	}
	return last, true, nil
}

// Package runlog records fill runs as JSON lines for later inspection.
// Every generation run is recorded with its provider, parse outcome, and
// timing so failed fills can be replayed and debugged.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillform/quill/internal/providers"
)

// Record is one completed (or failed) fill run.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Request
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`

	// Response
	RawOutput string `json:"raw_output,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	// Parse outcome
	Instructions int `json:"instructions"`
	Dropped      int `json:"dropped"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides parse context for recording a run.
type RecordOptions struct {
	Prompt       string
	Instructions int
	Dropped      int
	Err          error
}

// FromResult builds a Record from a generation result. A nil result still
// produces a record so failed runs are kept too.
func FromResult(result *providers.GenerateResult, opts RecordOptions) *Record {
	rec := &Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Prompt:       opts.Prompt,
		Instructions: opts.Instructions,
		Dropped:      opts.Dropped,
		Success:      opts.Err == nil,
	}
	if opts.Err != nil {
		rec.Error = opts.Err.Error()
	}
	if result != nil {
		if result.RequestID != "" {
			rec.ID = result.RequestID
		}
		rec.LatencyMs = int(result.Duration.Milliseconds())
		rec.Provider = result.Provider
		rec.Model = result.ModelUsed
		rec.RawOutput = result.RawOutput
		rec.Truncated = result.Truncated
	}
	return rec
}

// Store appends and reads run records in a single JSONL file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the store's file path.
func (s *Store) Path() string { return s.path }

// Append writes one record as a JSON line.
func (s *Store) Append(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create run log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// List returns records newest first. A positive limit caps the count.
// A missing file is an empty log, not an error. Unparseable lines are
// skipped so one corrupt write cannot hide the rest of the history.
func (s *Store) List(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	// Raw output lines can be megabytes.
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}

	// Newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get retrieves a single record by id. Returns nil when not found.
func (s *Store) Get(id string) (*Record, error) {
	records, err := s.List(0)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}

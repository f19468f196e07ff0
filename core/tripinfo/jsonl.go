package tripinfo

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// JSONLStore stores records in a JSONL file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONLStore creates the file at path if needed.
func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(rec)
}

func (s *JSONLStore) Query(ctx context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return scanRecords(ctx, f, q, nil)
}

func (s *JSONLStore) Close() error { return nil }

// scanRecords decodes JSON lines from r, skipping malformed ones, and appends
// the matches to res.
func scanRecords(ctx context.Context, r io.Reader, q Query, res []Record) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if q.Match(rec) {
			res = append(res, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

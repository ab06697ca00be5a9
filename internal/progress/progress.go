// Package progress persists finished segment translations keyed by a hash of
// their source, so an interrupted run can resume where it stopped.
package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/valpere/chaptran/internal/atomicfile"
)

// Record is the on-disk progress file.
type Record struct {
	// Translated maps a source hash to its translated body.
	Translated map[string]string `json:"translated"`
	// ChunkParts is the piece count of the last chunked translation.
	ChunkParts int `json:"chunk_parts,omitempty"`
	// Models maps a source hash to the model that translated it.
	Models map[string]string `json:"models,omitempty"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{Translated: map[string]string{}}
}

// Hash returns the hex SHA-256 of text. No normalization is applied, so
// case and whitespace changes produce a different key.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the stored translation for hash.
func (r *Record) Lookup(hash string) (string, bool) {
	body, ok := r.Translated[hash]
	return body, ok
}

// Put records a finished segment.
func (r *Record) Put(hash, body, model string) {
	if r.Translated == nil {
		r.Translated = map[string]string{}
	}
	r.Translated[hash] = body
	if model == "" {
		return
	}
	if r.Models == nil {
		r.Models = map[string]string{}
	}
	r.Models[hash] = model
}

// Load reads the record at path. A missing file yields an empty record.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	rec := NewRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parse progress %s: %w", path, err)
	}
	if rec.Translated == nil {
		rec.Translated = map[string]string{}
	}
	return rec, nil
}

// Save writes rec to path atomically.
func Save(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

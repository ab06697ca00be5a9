package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceEntry is one request/response snapshot.
type TraceEntry struct {
	ID           string        `json:"id"`
	Time         time.Time     `json:"time"`
	Backend      string        `json:"backend"`
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt"`
	Input        string        `json:"input"`
	Output       string        `json:"output,omitempty"`
	Accepted     bool          `json:"accepted"`
	Error        string        `json:"error,omitempty"`
	Latency      time.Duration `json:"latency_ns"`
}

// Tracer appends TraceEntry values as JSON lines. It is safe for concurrent
// use. A write failure is dropped: tracing never changes the outcome of a
// translation.
type Tracer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

func NewTracer(w io.Writer) *Tracer {
	t := &Tracer{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// OpenTrace creates dir if needed and starts a new trace file in it.
func OpenTrace(dir string) (*Tracer, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create trace dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("trace-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("open trace file: %w", err)
	}
	return NewTracer(f), name, nil
}

func (t *Tracer) Record(e TraceEntry) {
	if t == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(e)
}

func (t *Tracer) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

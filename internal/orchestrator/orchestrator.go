// Package orchestrator translates one document against an ordered list of
// models. Each model first gets the whole document; on failure the document
// is split into progressively smaller pieces, and a model is abandoned for
// the next one when even a small piece fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/chaptran/internal/splitter"
)

const (
	DefaultMaxChunkSize = 16000
	DefaultMinChunkSize = 2000
	// DefaultGiveUpSize: a failing piece shorter than this is blamed on the
	// model rather than on the size.
	DefaultGiveUpSize = 4000
)

var (
	ErrAllModelsExhausted = errors.New("all models exhausted")
	ErrNoModels           = errors.New("no models given")
)

// PieceTranslator makes a single translation attempt.
// *translator.Translator implements it.
type PieceTranslator interface {
	TranslateOnce(ctx context.Context, model, systemPrompt, piece string) (string, error)
}

// Config tunes the chunking plan. Zero values select the defaults.
type Config struct {
	MaxChunkSize int
	MinChunkSize int
	GiveUpSize   int
	Logger       *slog.Logger
}

// Result is a successful translation.
type Result struct {
	Body  string
	Model string
	// Pieces is how many requests made up the translation; 1 for a
	// whole-document success.
	Pieces int
}

// ExhaustedError reports that no model produced an acceptable translation.
type ExhaustedError struct {
	Models []string
	Last   error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s (tried %s)", ErrAllModelsExhausted, strings.Join(e.Models, ", "))
	if e.Last != nil {
		msg += ": last error: " + e.Last.Error()
	}
	return msg
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllModelsExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

type Orchestrator struct {
	tr     PieceTranslator
	cfg    Config
	logger *slog.Logger
}

func New(tr PieceTranslator, cfg Config) *Orchestrator {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.GiveUpSize <= 0 {
		cfg.GiveUpSize = DefaultGiveUpSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{tr: tr, cfg: cfg, logger: logger}
}

// Translate returns the translation of document by the first model in models
// that succeeds. Pieces are sent one at a time, in document order. The only
// errors are ErrNoModels, a context error, and *ExhaustedError.
func (o *Orchestrator) Translate(ctx context.Context, models []string, prompt, document string) (*Result, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	var last error
	for i, model := range models {
		hasNext := i < len(models)-1
		log := o.logger.With("model", model)

		log.Info("translating whole document", "bytes", len(document))
		body, err := o.tr.TranslateOnce(ctx, model, prompt, document)
		if err == nil {
			log.Info("document translated", "pieces", 1)
			return &Result{Body: body, Model: model, Pieces: 1}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("whole-document attempt failed", "error", err)
		last = err

		res, err := o.translateChunked(ctx, log, model, prompt, document, hasNext)
		if res != nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			last = err
		}
	}

	return nil, &ExhaustedError{Models: append([]string(nil), models...), Last: last}
}

// translateChunked runs the halving plan for one model. It returns a nil
// result with the last failure when the model is exhausted or abandoned.
func (o *Orchestrator) translateChunked(ctx context.Context, log *slog.Logger, model, prompt, document string, hasNext bool) (*Result, error) {
	var last error
	size := min(len(document)/2, o.cfg.MaxChunkSize)

	for size >= o.cfg.MinChunkSize {
		if size >= len(document) {
			size /= 2
			continue
		}

		pieces := splitter.SmartSplitWithStructure(document, size)
		log.Info("chunked pass", "chunk_size", size, "pieces", len(pieces))

		translated, failedAt, err := o.translatePieces(ctx, model, prompt, pieces)
		if err == nil {
			log.Info("document translated", "pieces", len(pieces), "chunk_size", size)
			return &Result{Body: merge(document, translated), Model: model, Pieces: len(pieces)}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		last = err

		failed := pieces[failedAt]
		if len(failed) < o.cfg.GiveUpSize && hasNext {
			log.Warn("abandoning model", "piece", failedAt+1, "piece_bytes", len(failed), "error", err)
			return nil, last
		}
		log.Warn("piece failed, halving chunk size", "piece", failedAt+1, "of", len(pieces), "piece_bytes", len(failed), "error", err)
		size /= 2
	}

	log.Warn("model exhausted", "min_chunk_size", o.cfg.MinChunkSize)
	return nil, last
}

// translatePieces translates pieces in order and stops at the first failure,
// returning its index.
func (o *Orchestrator) translatePieces(ctx context.Context, model, prompt string, pieces []string) ([]string, int, error) {
	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, i, err
		}
		body, err := o.tr.TranslateOnce(ctx, model, prompt, p)
		if err != nil {
			return nil, i, err
		}
		out = append(out, body)
	}
	return out, 0, nil
}

// merge joins the content of the translated pieces inside the wrapper of the
// source document. A translated piece without a body region contributes its
// whole text.
func merge(document string, translated []string) string {
	prefix, _, suffix := splitter.ExtractStructure(document)
	bodies := make([]string, len(translated))
	for i, t := range translated {
		_, body, _ := splitter.ExtractStructure(t)
		bodies[i] = strings.TrimSpace(body)
	}
	return prefix + strings.Join(bodies, "\n") + suffix
}

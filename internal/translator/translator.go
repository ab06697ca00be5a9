// Package translator sends one markup piece to one model and decides whether
// the answer is usable. It never retries; the orchestrator owns that.
package translator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/chaptran/internal/postprocess"
	"github.com/valpere/chaptran/internal/validator"
)

// Options configures a Translator. Zero values select defaults.
type Options struct {
	Validator *validator.Validator
	// Limiter paces requests to the endpoint. Nil means unlimited.
	Limiter *rate.Limiter
	Tracer  *Tracer
	Logger  *slog.Logger
}

type Translator struct {
	client    Client
	validator *validator.Validator
	limiter   *rate.Limiter
	tracer    *Tracer
	logger    *slog.Logger
}

func New(client Client, opts Options) *Translator {
	t := &Translator{
		client:    client,
		validator: opts.Validator,
		limiter:   opts.Limiter,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
	}
	if t.validator == nil {
		t.validator = validator.New(validator.Config{})
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Backend names the underlying client.
func (t *Translator) Backend() string {
	return t.client.Name()
}

// TranslateOnce makes exactly one call for piece and returns the cleaned,
// validated output. Every failure is an *Error tagged with model, except a
// cancelled ctx, which is returned as is.
//
// ctx is checked before the call is sent. Once sent, the call is detached
// from ctx cancellation and runs until it answers or the client times out.
func (t *Translator) TranslateOnce(ctx context.Context, model, systemPrompt, piece string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &Error{Kind: KindTransport, Model: model, Reason: "rate limiter", Cause: err}
		}
	}

	start := time.Now()
	raw, err := t.client.Complete(context.WithoutCancel(ctx), Request{Model: model, SystemPrompt: systemPrompt, Text: piece})
	entry := TraceEntry{
		Time:         start,
		Backend:      t.client.Name(),
		Model:        model,
		SystemPrompt: systemPrompt,
		Input:        piece,
		Output:       raw,
		Latency:      time.Since(start),
	}

	if err != nil {
		var terr *Error
		if !errors.As(err, &terr) {
			terr = transportError("request failed", err)
		}
		terr.Model = model
		entry.Error = terr.Error()
		t.tracer.Record(entry)
		t.logger.Debug("translation call failed", "model", model, "kind", terr.Kind.String(), "error", terr)
		return "", terr
	}

	out := postprocess.Clean(raw)
	if ok, reason := t.validator.Validate(piece, out); !ok {
		terr := &Error{Kind: KindRejected, Model: model, Reason: reason}
		entry.Error = terr.Error()
		t.tracer.Record(entry)
		t.logger.Debug("translation rejected", "model", model, "reason", reason, "input_bytes", len(piece), "output_bytes", len(out))
		return "", terr
	}

	entry.Accepted = true
	t.tracer.Record(entry)
	t.logger.Debug("translation accepted", "model", model, "input_bytes", len(piece), "output_bytes", len(out), "latency", entry.Latency)
	return out, nil
}

/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/chaptran/internal"
	"github.com/valpere/chaptran/internal/epub"
	"github.com/valpere/chaptran/internal/postprocess"
	"github.com/valpere/chaptran/internal/progress"
	"github.com/valpere/chaptran/internal/splitter"
	"github.com/valpere/chaptran/internal/store"
)

// ErrInterrupted is returned when a run stops early on a signal.
var ErrInterrupted = errors.New("interrupted")

var translateCmd = &cobra.Command{
	Use:   "translate FILE...",
	Short: "Translate EPUB books chapter by chapter",
	Long: `Translate every chapter of one or more EPUB books.

Each chapter is sent whole first. When a model rejects it or returns unusable
output, the chapter is split at paragraph boundaries into smaller and smaller
pieces; when even a small piece fails, the next model in --models is tried.

Finished chapters are recorded in a progress file (<book>.progress.json by
default) so an interrupted run resumes where it stopped. The first chapter that
no model can translate stops the book; progress made so far is kept.

Inline [Translator's note: ...] annotations are turned into numbered footnotes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) > 1 {
			if viper.GetString("progress") != "" || viper.GetString("output") != "" {
				return fmt.Errorf("--progress and --output apply to a single book")
			}
			if viper.GetInt("chapter") > 0 {
				return fmt.Errorf("--chapter applies to a single book")
			}
		}

		lang := viper.GetString("lang")
		eng, err := newEngine(ctx, lang)
		if err != nil {
			return err
		}
		defer eng.Close()

		memory, err := openMemory()
		if err != nil {
			return err
		}
		if memory != nil {
			defer memory.Close()
		}

		// Books are independent: a failing book does not stop the others.
		var g errgroup.Group
		g.SetLimit(max(1, viper.GetInt("jobs")))
		for _, input := range args {
			opts := bookOptions{
				Input:    input,
				Output:   viper.GetString("output"),
				Progress: viper.GetString("progress"),
				Chapter:  viper.GetInt("chapter"),
				MinWords: viper.GetInt("min-words"),
			}
			g.Go(func() error {
				err := translateBook(ctx, eng, memory, opts)
				if err != nil && len(args) > 1 {
					slog.Error("book failed", "book", opts.Input, "error", err)
				}
				return err
			})
		}
		return g.Wait()
	},
}

type bookOptions struct {
	Input    string
	Output   string
	Progress string
	Chapter  int
	MinWords int
}

func (o *bookOptions) defaults(lang string) {
	stem := strings.TrimSuffix(o.Input, filepath.Ext(o.Input))
	if o.Output == "" {
		o.Output = epub.OutputPath(o.Input, lang)
	}
	if o.Progress == "" {
		o.Progress = stem + ".progress.json"
	}
	if o.MinWords < 0 {
		o.MinWords = 0
	}
}

// bookStats is the per-book summary printed at the end.
type bookStats struct {
	Translated int
	Resumed    int
	Cached     int
	Footnotes  int
}

// translateBook runs one book. ctx cancellation stops it at the next request
// boundary; a request already sent runs to completion and a finished chapter
// is still saved.
func translateBook(ctx context.Context, eng *engine, memory *store.Store, opts bookOptions) (err error) {
	opts.defaults(eng.lang)
	log := slog.Default().With("book", filepath.Base(opts.Input))

	book, err := epub.Open(opts.Input)
	if err != nil {
		return fmt.Errorf("failed to open book: %w", err)
	}

	var chapters []epub.Chapter
	if opts.Chapter > 0 {
		ch, err := book.Chapter(opts.Chapter, opts.MinWords)
		if err != nil {
			return err
		}
		chapters = []epub.Chapter{ch}
	} else {
		chapters = book.Chapters(opts.MinWords)
	}
	if len(chapters) == 0 {
		return fmt.Errorf("%s: no chapters with at least %d words", opts.Input, opts.MinWords)
	}
	log.Info("book opened", "title", book.Title, "language", book.Language, "chapters", len(chapters))

	rec, err := progress.Load(opts.Progress)
	if err != nil {
		return err
	}

	// Bookkeeping writes must land even after an interrupt.
	dbCtx := context.WithoutCancel(ctx)

	job := internal.NewJob(opts.Input, opts.Output, eng.lang, eng.style, eng.backend, eng.models)
	var stats bookStats
	if memory != nil {
		if err := memory.StartRun(ctx, job); err != nil {
			log.Warn("failed to record run", "error", err)
		}
		defer func() {
			if ferr := memory.FinishRun(dbCtx, job.ID, stats.Translated+stats.Resumed+stats.Cached, err); ferr != nil {
				log.Warn("failed to record run result", "error", ferr)
			}
		}()
	}

	start := time.Now()
	for i, ch := range chapters {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w after %d of %d chapters", opts.Input, ErrInterrupted, i, len(chapters))
		}
		clog := log.With("chapter", ch.Path, "n", fmt.Sprintf("%d/%d", i+1, len(chapters)))
		seg := splitter.NewSegment(ch.Path, ch.Content)

		if body, ok := rec.Lookup(seg.Hash); ok {
			clog.Info("already translated, skipping")
			if err := book.SetContent(ch.Path, body); err != nil {
				return err
			}
			stats.Resumed++
			continue
		}

		if memory != nil {
			entry, found, err := memory.Lookup(dbCtx, seg.Hash, eng.lang, eng.style)
			if err != nil {
				clog.Warn("translation memory lookup failed", "error", err)
			}
			if found {
				clog.Info("using translation memory", "model", entry.Model)
				rec.Put(seg.Hash, entry.Translated, entry.Model)
				if err := progress.Save(opts.Progress, rec); err != nil {
					return err
				}
				if err := book.SetContent(ch.Path, entry.Translated); err != nil {
					return err
				}
				stats.Cached++
				continue
			}
		}

		res, err := eng.orch.Translate(ctx, eng.models, eng.prompt, seg.Source())
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("%s: %w after %d of %d chapters", opts.Input, ErrInterrupted, i, len(chapters))
		}
		if err != nil {
			return fmt.Errorf("%s: chapter %s: %w", opts.Input, ch.Path, err)
		}

		body, notes := postprocess.ConvertNotes(res.Body, 1)
		body = postprocess.AppendFootnotes(body, notes)
		stats.Footnotes += len(notes)

		rec.Put(seg.Hash, body, res.Model)
		rec.ChunkParts = res.Pieces
		if err := progress.Save(opts.Progress, rec); err != nil {
			return err
		}
		if memory != nil {
			if err := memory.Remember(dbCtx, seg.Hash, eng.lang, eng.style, body, res.Model); err != nil {
				clog.Warn("failed to update translation memory", "error", err)
			}
		}
		if err := book.SetContent(ch.Path, body); err != nil {
			return err
		}
		stats.Translated++
		clog.Info("chapter translated", "model", res.Model, "pieces", res.Pieces, "footnotes", len(notes))
	}

	book.SetLanguage(eng.lang)
	if err := book.Write(opts.Output); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}

	fmt.Printf("Translated %s -> %s in %s\n", opts.Input, opts.Output, time.Since(start).Round(time.Second))
	fmt.Printf("Chapters: %d translated, %d resumed, %d from memory; footnotes: %d\n",
		stats.Translated, stats.Resumed, stats.Cached, stats.Footnotes)
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	addEngineFlags(f)
	f.StringP("output", "o", "", "Output EPUB (default <book>.<lang>.epub)")
	f.StringP("progress", "w", "", "Progress file (default <book>.progress.json)")
	f.Int("chapter", 0, "Translate only this chapter (1-based, counting chapters above --min-words)")
	f.Int("jobs", 1, "Books translated concurrently")
	f.String("db", defaultDBPath, "Database path for translation memory")
	f.Bool("no-cache", false, "Disable translation memory cache")
}

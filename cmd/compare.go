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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/chaptran/internal/atomicfile"
	"github.com/valpere/chaptran/internal/epub"
	"github.com/valpere/chaptran/internal/markdown"
	"github.com/valpere/chaptran/internal/postprocess"
)

const reportWordLimit = 1000

var compareCmd = &cobra.Command{
	Use:   "compare FILE",
	Short: "Translate one chapter with each model and write a markdown report",
	Long: `Translate a single chapter once per model, each model on its own with no
fallback, and write a markdown report with the elapsed time, the outcome and a
plain-text excerpt of every translation, fastest first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]
		chapter := viper.GetInt("chapter")

		eng, err := newEngine(ctx, viper.GetString("lang"))
		if err != nil {
			return err
		}
		defer eng.Close()

		book, err := epub.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open book: %w", err)
		}
		ch, err := book.Chapter(chapter, viper.GetInt("min-words"))
		if err != nil {
			return err
		}

		original, err := plainText(ch.Content)
		if err != nil {
			return err
		}

		var results []modelResult
		for _, model := range eng.models {
			if ctx.Err() != nil {
				return ErrInterrupted
			}
			slog.Info("comparing model", "model", model, "chapter", ch.Path)

			start := time.Now()
			res, err := eng.orch.Translate(ctx, []string{model}, eng.prompt, ch.Content)
			if err != nil && ctx.Err() != nil {
				return ErrInterrupted
			}
			r := modelResult{Model: model, Elapsed: time.Since(start)}
			if err != nil {
				r.Err = err
				slog.Warn("model failed", "model", model, "error", err)
			} else {
				body, notes := postprocess.ConvertNotes(res.Body, 1)
				text, perr := plainText(postprocess.AppendFootnotes(body, notes))
				if perr != nil {
					r.Err = perr
				} else {
					r.Text = text
					r.Pieces = res.Pieces
				}
			}
			results = append(results, r)
		}

		report := viper.GetString("report")
		if report == "" {
			stem := strings.TrimSuffix(input, filepath.Ext(input))
			report = fmt.Sprintf("%s.ch%d.compare.md", stem, chapter)
		}
		var buf bytes.Buffer
		if err := writeReport(&buf, ch.Number, original, results); err != nil {
			return err
		}
		out := buf.Bytes()
		if strings.EqualFold(filepath.Ext(report), ".html") {
			out = markdown.Page(fmt.Sprintf("Model comparison, chapter %d", ch.Number), out)
		}
		if err := atomicfile.WriteFile(report, out, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", report)
		return nil
	},
}

type modelResult struct {
	Model   string
	Elapsed time.Duration
	Pieces  int
	Text    string
	Err     error
}

func (r modelResult) status() string {
	if r.Err != nil {
		return "failed"
	}
	return "success"
}

// writeReport renders the comparison, fastest model first.
func writeReport(w io.Writer, chapter int, original string, results []modelResult) error {
	sorted := append([]modelResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Elapsed < sorted[j].Elapsed })

	var b strings.Builder
	fmt.Fprintf(&b, "# Model comparison, chapter %d\n\n", chapter)
	fmt.Fprintf(&b, "## Original (truncated)\n\n```\n%s\n```\n\n", truncateWords(original, reportWordLimit))

	for _, r := range sorted {
		fmt.Fprintf(&b, "## %s (%.1fs, %s)\n\n", r.Model, r.Elapsed.Seconds(), r.status())
		if r.Err != nil {
			fmt.Fprintf(&b, "*Translation failed: %v*\n\n", r.Err)
			continue
		}
		fmt.Fprintf(&b, "```\n%s\n```\n\n", truncateWords(r.Text, reportWordLimit))
	}

	b.WriteString("## Timing summary\n\n")
	b.WriteString("| Model | Time (s) | Pieces | Status |\n")
	b.WriteString("|-------|----------|--------|--------|\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "| %s | %.1f | %d | %s |\n", r.Model, r.Elapsed.Seconds(), r.Pieces, r.status())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// truncateWords keeps the first limit words of text. A longer text is cut
// after the last sentence end that lies past half of the kept words, or
// marked with "..." when there is none.
func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	kept := strings.Join(words[:limit], " ")
	if pos := strings.LastIndexAny(kept, ".!?"); pos > len(kept)/2 {
		return kept[:pos+1]
	}
	return kept + "..."
}

func plainText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse chapter: %w", err)
	}
	doc.Find("head").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func init() {
	rootCmd.AddCommand(compareCmd)

	f := compareCmd.Flags()
	addEngineFlags(f)
	f.Int("chapter", 1, "Chapter to compare (1-based, counting chapters above --min-words)")
	f.StringP("report", "r", "", "Report file; a .html name renders the report as a web page (default <book>.ch<N>.compare.md)")
}

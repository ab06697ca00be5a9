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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/valpere/chaptran/internal/orchestrator"
	"github.com/valpere/chaptran/internal/prompt"
	"github.com/valpere/chaptran/internal/store"
	"github.com/valpere/chaptran/internal/translator"
	"github.com/valpere/chaptran/internal/validator"
)

var defaultModels = map[string][]string{
	"ollama": {"gemma3:12b", "mistral-small:24b", "qwen2.5:14b"},
	"openai": {"gpt-4o-mini"},
	"google": {"nmt"},
}

// engine is what every translating command needs: a configured orchestrator,
// the model candidates and the rendered system prompt.
type engine struct {
	backend string
	models  []string
	style   string
	lang    string
	prompt  string
	orch    *orchestrator.Orchestrator
	closers []func() error
}

func (e *engine) Close() {
	for _, c := range e.closers {
		_ = c()
	}
}

// newEngine builds the translation stack from the bound flags.
func newEngine(ctx context.Context, lang string) (*engine, error) {
	if lang == "" {
		return nil, fmt.Errorf("target language is required (--lang)")
	}

	e := &engine{
		backend: viper.GetString("backend"),
		style:   viper.GetString("prompt"),
		lang:    lang,
	}

	p, err := prompt.Render(e.style, lang)
	if err != nil {
		return nil, err
	}
	e.prompt = p

	e.models = viper.GetStringSlice("models")
	if len(e.models) == 0 {
		e.models = defaultModels[e.backend]
	}

	client, closer, err := buildClient(ctx, e.backend, lang)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}

	opts := translator.Options{Logger: slog.Default()}
	vcfg := validator.Config{}
	if viper.GetBool("check-language") {
		vcfg.TargetLang = lang
		vcfg.SourceLang = viper.GetString("source-lang")
	}
	opts.Validator = validator.New(vcfg)

	if rps := viper.GetFloat64("rps"); rps > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	if viper.GetBool("debug") {
		tracer, name, err := translator.OpenTrace(viper.GetString("trace-dir"))
		if err != nil {
			e.Close()
			return nil, err
		}
		slog.Info("writing request trace", "file", name)
		opts.Tracer = tracer
		e.closers = append(e.closers, tracer.Close)
	}

	e.orch = orchestrator.New(translator.New(client, opts), orchestrator.Config{Logger: slog.Default()})
	return e, nil
}

// buildClient constructs the backend named by --backend.
func buildClient(ctx context.Context, backend, lang string) (translator.Client, func() error, error) {
	timeout := viper.GetDuration("timeout")
	url := viper.GetString("url")

	switch backend {
	case "ollama", "":
		return translator.NewOllamaClient(url, timeout), nil, nil
	case "openai":
		return translator.NewOpenAIClient(url, viper.GetString("api-key"), timeout), nil, nil
	case "google":
		c, err := translator.NewGoogleClient(ctx, lang, viper.GetString("credentials"))
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (ollama, openai or google)", backend)
	}
}

// openMemory opens the translation memory unless --no-cache is set. It
// returns nil without error when the memory is disabled.
func openMemory() (*store.Store, error) {
	if viper.GetBool("no-cache") {
		return nil, nil
	}
	path := viper.GetString("db")
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

const defaultDBPath = "./data/chaptran.db"

// addEngineFlags registers the flags shared by translate and compare.
func addEngineFlags(c *pflag.FlagSet) {
	c.StringP("lang", "l", "", "Target language code, e.g. fr, de or pt-BR (required)")
	c.StringSliceP("models", "m", nil, "Model candidates in order of preference (comma-separated)")
	c.StringP("prompt", "p", prompt.DefaultStyle, "Prompt style (see \"chaptran prompts\")")
	c.StringP("url", "u", translator.DefaultOllamaURL, "Endpoint base URL")
	c.String("backend", "ollama", "Backend: ollama, openai or google")
	c.String("api-key", "", "API key for the openai backend")
	c.String("credentials", "", "Google Cloud credentials file for the google backend")
	c.Int("min-words", 200, "Skip spine documents with fewer words")
	c.Float64("rps", 0, "Maximum requests per second (0 = unlimited)")
	c.Duration("timeout", translator.DefaultTimeout, "Per-request timeout")
	c.Bool("check-language", false, "Reject output not detected as the target language")
	c.String("source-lang", "", "Source language code; narrows --check-language detection to source and target")
}

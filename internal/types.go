package internal

import (
	"time"

	"github.com/google/uuid"
)

// Job describes one book translation run.
type Job struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	TargetLang string    `json:"target_lang"`
	Style      string    `json:"style"`
	Backend    string    `json:"backend"`
	Models     []string  `json:"models"`
	StartedAt  time.Time `json:"started_at"`
}

func NewJob(inputFile, outputFile, targetLang, style, backend string, models []string) Job {
	return Job{
		ID:         uuid.NewString(),
		InputFile:  inputFile,
		OutputFile: outputFile,
		TargetLang: targetLang,
		Style:      style,
		Backend:    backend,
		Models:     append([]string(nil), models...),
		StartedAt:  time.Now(),
	}
}

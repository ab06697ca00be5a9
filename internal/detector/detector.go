// Package detector wraps lingua-go language detection.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detector identifies the language of a text. Building one loads language
// models into memory; reuse the instance.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all languages lingua knows.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()
	return &Detector{detector: detector}
}

// NewForCodes builds a detector restricted to the given ISO 639-1 codes,
// which is faster and more accurate when the candidates are known. Unknown
// codes are ignored; with fewer than two usable codes it falls back to New.
func NewForCodes(codes ...string) *Detector {
	var isoCodes []lingua.IsoCode639_1
	for _, c := range codes {
		code := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(c)))
		if code != lingua.UnknownIsoCode639_1 {
			isoCodes = append(isoCodes, code)
		}
	}
	if len(isoCodes) < 2 {
		return New()
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromIsoCodes639_1(isoCodes...).
		Build()
	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Package validator judges whether a model's output is a structurally and
// semantically plausible translation of the piece it was given.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/chaptran/internal/detector"
)

const (
	// DefaultMinLength is the minimum rune count of a raw candidate.
	DefaultMinLength = 10
	// DefaultMinTextLength is the minimum rune count of the candidate's
	// visible text once markup is stripped.
	DefaultMinTextLength = 20

	// minDetectionLength is the minimum rune count required to attempt
	// language detection. Shorter texts produce unreliable results.
	minDetectionLength = 20
)

// Rejection reasons. A reason may carry a detail after a colon.
const (
	ReasonTooShort            = "too short"
	ReasonStructureMismatch   = "structural mismatch at start"
	ReasonParagraphsLost      = "paragraph structure lost"
	ReasonInsufficientContent = "insufficient content after parsing"
	ReasonInvalidStructure    = "invalid structure"
	ReasonWrongLanguage       = "wrong language"
)

var (
	leadingTagRe = regexp.MustCompile(`^<([?!]?[A-Za-z][A-Za-z0-9:_.-]*)`)
	paragraphRe  = regexp.MustCompile(`(?i)<p[\s>/]`)
)

// Config tunes a Validator. Zero values select the defaults.
type Config struct {
	MinLength     int
	MinTextLength int

	// TargetLang, when set to an ISO 639-1 code, adds a final check that the
	// candidate's text is written in that language.
	TargetLang string
	// SourceLang narrows detection to the source and target languages.
	SourceLang string
}

// Validator applies the acceptance rules in order; the first failing rule
// decides the reason.
type Validator struct {
	minLength     int
	minTextLength int
	targetLang    string
	det           *detector.Detector
}

// New creates a Validator. The language detector is only built when
// cfg.TargetLang is set, since it is expensive to construct.
func New(cfg Config) *Validator {
	v := &Validator{
		minLength:     cfg.MinLength,
		minTextLength: cfg.MinTextLength,
		targetLang:    strings.ToLower(strings.TrimSpace(cfg.TargetLang)),
	}
	if v.minLength <= 0 {
		v.minLength = DefaultMinLength
	}
	if v.minTextLength <= 0 {
		v.minTextLength = DefaultMinTextLength
	}
	switch {
	case v.targetLang != "" && cfg.SourceLang != "":
		v.det = detector.NewForCodes(v.targetLang, cfg.SourceLang)
	case v.targetLang != "":
		v.det = detector.New()
	}
	return v
}

// Validate reports whether candidate is an acceptable translation of source.
// When it is not, reason explains why.
func (v *Validator) Validate(source, candidate string) (accepted bool, reason string) {
	out := strings.TrimSpace(candidate)
	if utf8.RuneCountInString(out) < v.minLength {
		return false, ReasonTooShort
	}

	if m := leadingTagRe.FindStringSubmatch(strings.TrimLeftFunc(source, unicode.IsSpace)); m != nil {
		got := leadingTagRe.FindStringSubmatch(out)
		if got == nil || got[1] != m[1] {
			return false, fmt.Sprintf("%s: expected <%s", ReasonStructureMismatch, m[1])
		}
	}

	if paragraphRe.MatchString(source) && !paragraphRe.MatchString(out) {
		return false, ReasonParagraphsLost
	}

	text, err := plainText(out)
	if err != nil {
		return false, fmt.Sprintf("%s: %v", ReasonInvalidStructure, err)
	}
	if utf8.RuneCountInString(text) < v.minTextLength {
		return false, ReasonInsufficientContent
	}

	if v.det != nil && utf8.RuneCountInString(text) >= minDetectionLength {
		if detected, ok := v.det.DetectISO(text); ok && !strings.EqualFold(detected, v.targetLang) {
			return false, fmt.Sprintf("%s: expected %s but detected %s", ReasonWrongLanguage, v.targetLang, detected)
		}
	}

	return true, ""
}

// plainText parses markup and returns its visible body text, trimmed. The
// head is dropped: spine documents repeat the chapter title there, which
// would let an empty body pass.
func plainText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	doc.Find("head").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

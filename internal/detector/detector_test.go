package detector

import (
	"testing"
)

func TestDetector_DetectISO(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantCode string
		wantOK   bool
	}{
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
		{
			name:   "whitespace only",
			text:   "  \n\t ",
			wantOK: false,
		},
		{
			name:     "english text",
			text:     "The old priest walked slowly through the prison courtyard, followed by the visitor from Paris.",
			wantCode: "en",
			wantOK:   true,
		},
		{
			name:     "french text",
			text:     "Il faut savoir que le curé de Verrières, vieillard de quatre-vingts ans, avait le droit de visiter la prison.",
			wantCode: "fr",
			wantOK:   true,
		},
		{
			name:     "german text",
			text:     "Der alte Pfarrer ging langsam durch den Hof des Gefängnisses, gefolgt von dem Besucher aus Paris.",
			wantCode: "de",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := d.DetectISO(tt.text)
			if ok != tt.wantOK {
				t.Errorf("DetectISO(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && code != tt.wantCode {
				t.Errorf("DetectISO(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestNewForCodes(t *testing.T) {
	d := NewForCodes("en", "FR", "xx")

	code, ok := d.DetectISO("Le curé invita à dîner M. Appert, qui prétendit avoir des lettres à écrire.")
	if !ok || code != "fr" {
		t.Errorf("expected fr, got %q (ok=%v)", code, ok)
	}
}

func TestNewForCodes_FallsBackWithTooFewCodes(t *testing.T) {
	d := NewForCodes("en")
	if d == nil || d.detector == nil {
		t.Fatal("expected a usable detector")
	}
}

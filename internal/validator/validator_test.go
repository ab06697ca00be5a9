package validator

import (
	"strings"
	"testing"
)

func TestValidate_Accepts(t *testing.T) {
	v := New(Config{})

	ok, reason := v.Validate("<p>This is the original text.</p>", "<p>Ceci est le texte original, traduit avec soin.</p>")
	if !ok {
		t.Errorf("expected acceptance, got reason %q", reason)
	}
	if reason != "" {
		t.Errorf("expected empty reason, got %q", reason)
	}
}

func TestValidate_AcceptsSurroundingWhitespace(t *testing.T) {
	v := New(Config{})

	ok, reason := v.Validate("  <p>This is the original text.</p>", "\n\n<p>Ceci est le texte original, traduit avec soin.</p>\n")
	if !ok {
		t.Errorf("expected acceptance, got reason %q", reason)
	}
}

func TestValidate_Rejects(t *testing.T) {
	v := New(Config{})

	tests := []struct {
		name       string
		source     string
		candidate  string
		wantReason string
	}{
		{
			name:       "empty",
			source:     "<p>Original text</p>",
			candidate:  "",
			wantReason: ReasonTooShort,
		},
		{
			name:       "whitespace only",
			source:     "<p>Original text</p>",
			candidate:  "     \n   ",
			wantReason: ReasonTooShort,
		},
		{
			name:       "very short",
			source:     "<p>This is a longer original text with multiple words.</p>",
			candidate:  "Short",
			wantReason: ReasonTooShort,
		},
		{
			name:       "opening tag stripped",
			source:     "<p>This text has paragraph tags.</p>",
			candidate:  "This text does not have paragraph tags at all.",
			wantReason: ReasonStructureMismatch,
		},
		{
			name:       "different opening tag",
			source:     `<?xml version="1.0" encoding="utf-8"?><html><body><p>Texte original du chapitre.</p></body></html>`,
			candidate:  `<html><body><p>Original text of the chapter, translated.</p></body></html>`,
			wantReason: ReasonStructureMismatch,
		},
		{
			name:       "paragraphs lost",
			source:     "<div><p>Premier paragraphe.</p><p>Second paragraphe.</p></div>",
			candidate:  "<div>First paragraph. Second paragraph, now merged into one block.</div>",
			wantReason: ReasonParagraphsLost,
		},
		{
			name:       "valid markup without text",
			source:     "<p>This is substantial original content with many words.</p>",
			candidate:  "<p></p><p>   </p><p></p>",
			wantReason: ReasonInsufficientContent,
		},
		{
			name:       "head text does not count",
			source:     "<html><head><title>Chapitre</title></head><body><p>Texte.</p></body></html>",
			candidate:  "<html><head><title>A rather long chapter title here</title></head><body><p>Text.</p></body></html>",
			wantReason: ReasonInsufficientContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := v.Validate(tt.source, tt.candidate)
			if ok {
				t.Fatalf("expected rejection")
			}
			if !strings.HasPrefix(reason, tt.wantReason) {
				t.Errorf("reason = %q, want prefix %q", reason, tt.wantReason)
			}
		})
	}
}

func TestValidate_InnerSpacesCountAsText(t *testing.T) {
	v := New(Config{})

	// 21 runes of text, 11 of them non-space.
	ok, reason := v.Validate("<p>Un deux trois.</p>", "<p>a b c d e f g h i j k</p>")
	if !ok {
		t.Errorf("expected acceptance, got %q", reason)
	}

	ok, reason = v.Validate("<p>Un deux trois.</p>", "<p>  a b c d e f g h i j  </p>")
	if ok || reason != ReasonInsufficientContent {
		t.Errorf("expected %q for 19 runes after trimming, got ok=%v reason=%q", ReasonInsufficientContent, ok, reason)
	}
}

func TestValidate_PlainSourceNeedsNoTag(t *testing.T) {
	v := New(Config{})

	ok, reason := v.Validate("Plain text source without any markup.", "Texte brut sans aucun balisage, traduit.")
	if !ok {
		t.Errorf("expected acceptance, got %q", reason)
	}
}

func TestValidate_CustomFloors(t *testing.T) {
	v := New(Config{MinLength: 100})

	ok, reason := v.Validate("<p>Source text.</p>", "<p>A perfectly fine translation.</p>")
	if ok || reason != ReasonTooShort {
		t.Errorf("expected %q with a raised floor, got ok=%v reason=%q", ReasonTooShort, ok, reason)
	}
}

func TestValidate_TargetLanguage(t *testing.T) {
	v := New(Config{TargetLang: "en"})

	source := "<p>Il faut savoir que le curé de Verrières avait le droit de visiter la prison.</p>"

	ok, reason := v.Validate(source, "<p>It must be known that the priest of Verrières had the right to visit the prison at any hour.</p>")
	if !ok {
		t.Errorf("expected English output to pass, got %q", reason)
	}

	ok, reason = v.Validate(source, "<p>Il faut savoir que le curé de Verrières avait le droit de visiter la prison à toute heure.</p>")
	if ok {
		t.Fatal("expected untranslated French output to be rejected")
	}
	if !strings.HasPrefix(reason, ReasonWrongLanguage) {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidate_TargetLanguageWithSource(t *testing.T) {
	v := New(Config{TargetLang: "en", SourceLang: "fr"})

	source := "<p>Le vieux curé traversa lentement la cour de la prison.</p>"

	if ok, reason := v.Validate(source, "<p>The old priest walked slowly across the prison courtyard.</p>"); !ok {
		t.Errorf("expected English output to pass, got %q", reason)
	}
	if ok, _ := v.Validate(source, "<p>Le vieux curé traversa lentement la cour de la prison.</p>"); ok {
		t.Error("expected untranslated output to be rejected")
	}
}

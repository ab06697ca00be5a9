package postprocess

import (
	"fmt"
	"regexp"
	"strings"
)

// noteRe matches an inline annotation. The marker literal is case-sensitive;
// "[translator's note: ...]" is left alone. Both the straight and the
// typographic apostrophe are accepted because prompts use either.
var noteRe = regexp.MustCompile(`\[Translator['’]s note:\s*(.*?)\]`)

// Footnote is one annotation moved out of the running text.
type Footnote struct {
	Number int
	// Marker is the superscript reference left in the text.
	Marker string
	// HTML is the footnote paragraph carrying the anchor the marker points to.
	HTML string
}

// ConvertNotes replaces every annotation in body, left to right, with a
// numbered superscript reference starting at start, and returns the
// rewritten body together with the footnotes in the same order. A body with
// no annotations is returned unchanged with a nil slice.
func ConvertNotes(body string, start int) (string, []Footnote) {
	var notes []Footnote
	n := start
	out := noteRe.ReplaceAllStringFunc(body, func(match string) string {
		content := noteRe.FindStringSubmatch(match)[1]
		fn := Footnote{
			Number: n,
			Marker: fmt.Sprintf(`<sup><a href="#note%d" id="refnote%d">%d</a></sup>`, n, n, n),
			HTML:   fmt.Sprintf(`<p id="note%d"><sup><a href="#refnote%d">%d</a></sup> %s</p>`, n, n, n, content),
		}
		notes = append(notes, fn)
		n++
		return fn.Marker
	})
	if len(notes) == 0 {
		return body, nil
	}
	return out, notes
}

var bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)

// AppendFootnotes inserts the footnote paragraphs before the last closing
// body tag of doc, or appends them when doc has none.
func AppendFootnotes(doc string, notes []Footnote) string {
	if len(notes) == 0 {
		return doc
	}
	var b strings.Builder
	for _, fn := range notes {
		b.WriteString(fn.HTML)
		b.WriteString("\n")
	}
	block := b.String()

	locs := bodyCloseRe.FindAllStringIndex(doc, -1)
	if len(locs) == 0 {
		return doc + block
	}
	at := locs[len(locs)-1][0]
	return doc[:at] + block + doc[at:]
}

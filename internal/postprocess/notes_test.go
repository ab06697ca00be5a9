package postprocess

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertNotes_NoMarkers(t *testing.T) {
	in := "<p>Nothing to see here [not a note].</p>"

	out, notes := ConvertNotes(in, 1)

	assert.Equal(t, in, out)
	assert.Empty(t, notes)
}

func TestConvertNotes_Single(t *testing.T) {
	in := "<p>He wore a kosovorotka [Translator's note: a traditional Russian shirt] to dinner.</p>"

	out, notes := ConvertNotes(in, 1)

	require.Len(t, notes, 1)
	assert.Equal(t,
		`<p>He wore a kosovorotka <sup><a href="#note1" id="refnote1">1</a></sup> to dinner.</p>`,
		out)
	assert.Equal(t, 1, notes[0].Number)
	assert.Equal(t,
		`<p id="note1"><sup><a href="#refnote1">1</a></sup> a traditional Russian shirt</p>`,
		notes[0].HTML)
	assert.NotContains(t, out, "Translator's note")
}

func TestConvertNotes_SequentialFromStart(t *testing.T) {
	in := "<p>A [Translator's note: one] B [Translator's note: two] C [Translator’s note: three]</p>"

	out, notes := ConvertNotes(in, 7)

	require.Len(t, notes, 3)
	for i, want := range []string{"one", "two", "three"} {
		n := 7 + i
		assert.Equal(t, n, notes[i].Number)
		assert.Contains(t, notes[i].HTML, fmt.Sprintf(`id="note%d"`, n))
		assert.Contains(t, notes[i].HTML, want)
		assert.Contains(t, out, notes[i].Marker)
	}
	assert.Less(t, strings.Index(out, "#note7"), strings.Index(out, "#note8"))
	assert.Less(t, strings.Index(out, "#note8"), strings.Index(out, "#note9"))
}

func TestConvertNotes_IndependentCalls(t *testing.T) {
	first, a := ConvertNotes("<p>x [Translator's note: a] y [Translator's note: b]</p>", 1)
	second, b := ConvertNotes("<p>z [Translator's note: c]</p>", 1+len(a))

	require.Len(t, a, 2)
	require.Len(t, b, 1)
	assert.Equal(t, 3, b[0].Number)
	assert.NotContains(t, first, "note3")
	assert.NotContains(t, second, `"#note1"`)
	assert.NotContains(t, second, `"#note2"`)
}

func TestConvertNotes_CaseSensitiveMarker(t *testing.T) {
	in := "<p>x [translator's note: lower] y [TRANSLATOR'S NOTE: upper]</p>"

	out, notes := ConvertNotes(in, 1)

	assert.Equal(t, in, out)
	assert.Empty(t, notes)
}

func TestConvertNotes_ContentKeptVerbatim(t *testing.T) {
	_, notes := ConvertNotes("<p>x [Translator's note:   <em>sic</em>, as in the source]</p>", 1)

	require.Len(t, notes, 1)
	assert.True(t, strings.HasSuffix(notes[0].HTML, "</sup> <em>sic</em>, as in the source</p>"), notes[0].HTML)
}

func TestAppendFootnotes(t *testing.T) {
	_, notes := ConvertNotes("[Translator's note: a][Translator's note: b]", 1)
	require.Len(t, notes, 2)

	t.Run("before closing body", func(t *testing.T) {
		doc := "<html><body><p>x</p></body></html>"
		got := AppendFootnotes(doc, notes)
		assert.Equal(t, "<html><body><p>x</p>"+notes[0].HTML+"\n"+notes[1].HTML+"\n</body></html>", got)
	})

	t.Run("no body boundary", func(t *testing.T) {
		got := AppendFootnotes("<p>x</p>", notes)
		assert.Equal(t, "<p>x</p>"+notes[0].HTML+"\n"+notes[1].HTML+"\n", got)
	})

	t.Run("no notes", func(t *testing.T) {
		doc := "<html><body><p>x</p></body></html>"
		assert.Equal(t, doc, AppendFootnotes(doc, nil))
	})
}

package splitter_test

import (
	"testing"

	"github.com/valpere/chaptran/internal/progress"
	"github.com/valpere/chaptran/internal/splitter"
)

func TestNewSegment(t *testing.T) {
	doc := `<?xml version="1.0"?><html><head><title>T</title></head><body class="c"><p>One</p></body></html>`

	seg := splitter.NewSegment("ch1.xhtml", doc)

	if seg.Body != "<p>One</p>" {
		t.Errorf("Body = %q", seg.Body)
	}
	if seg.Hash != progress.Hash("<p>One</p>") {
		t.Errorf("Hash = %q, want hash of body", seg.Hash)
	}
	if seg.Source() != doc {
		t.Errorf("Source() does not round-trip:\n%s", seg.Source())
	}
	if got := seg.Document("<p>Un</p>"); got != `<?xml version="1.0"?><html><head><title>T</title></head><body class="c"><p>Un</p></body></html>` {
		t.Errorf("Document() = %q", got)
	}
}

func TestNewSegment_HashIgnoresWrapper(t *testing.T) {
	a := splitter.NewSegment("a", "<html><head><title>A</title></head><body><p>Same</p></body></html>")
	b := splitter.NewSegment("b", "<html><head><title>B</title></head><body><p>Same</p></body></html>")

	if a.Hash != b.Hash {
		t.Error("segments with the same body should share a hash")
	}
}

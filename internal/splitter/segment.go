package splitter

import "github.com/valpere/chaptran/internal/progress"

// Segment is one translatable document with its wrapper split off. Hash keys
// the body in the progress record, so it does not depend on the segment's
// position or on its wrapper.
type Segment struct {
	ID     string
	Hash   string
	Prefix string
	Body   string
	Suffix string
}

// NewSegment splits doc into wrapper and body and hashes the body.
func NewSegment(id, doc string) Segment {
	prefix, body, suffix := ExtractStructure(doc)
	return Segment{
		ID:     id,
		Hash:   progress.Hash(body),
		Prefix: prefix,
		Body:   body,
		Suffix: suffix,
	}
}

// Document reassembles the segment with body in place of its content.
func (s Segment) Document(body string) string {
	return s.Prefix + body + s.Suffix
}

// Source returns the original document.
func (s Segment) Source() string {
	return s.Document(s.Body)
}

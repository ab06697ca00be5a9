// Package splitter separates the structural wrapper of an XHTML document
// (declaration, head, body open tag and their closing counterparts) from its
// content, and cuts that content into size-bounded pieces at block element
// boundaries so that every piece can be translated on its own.
//
// Sizes are measured in bytes. Cuts always land on a UTF-8 boundary.
package splitter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultWindow is how far (in bytes) on either side of the target size
	// SmartSplit looks for a block boundary.
	DefaultWindow = 500
)

// blockClosers are the closing delimiters a cut may follow, most preferred
// first. XHTML element names are lower case, so only that spelling is matched.
var blockClosers = []string{
	"</p>",
	"</h1>", "</h2>", "</h3>", "</h4>", "</h5>", "</h6>",
	"</section>",
	"</blockquote>",
	"</div>",
	"</li>", "</ul>", "</ol>",
	"</table>",
	"</pre>",
}

var (
	bodyOpenRe  = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
)

// ExtractStructure splits doc into the wrapper before the content region
// (everything up to and including the <body> open tag), the content itself
// and the wrapper after it (the matching </body> and everything that
// follows). When doc has no such region, prefix and suffix are empty and
// body is doc unchanged. It never fails.
func ExtractStructure(doc string) (prefix, body, suffix string) {
	open := bodyOpenRe.FindStringIndex(doc)
	if open == nil {
		return "", doc, ""
	}
	closes := bodyCloseRe.FindAllStringIndex(doc[open[1]:], -1)
	if len(closes) == 0 {
		return "", doc, ""
	}
	closeAt := open[1] + closes[len(closes)-1][0]
	return doc[:open[1]], doc[open[1]:closeAt], doc[closeAt:]
}

// SmartSplit cuts body into pieces of roughly targetSize bytes. Each cut is
// placed right after the block closing tag whose end is nearest to the
// target offset within ±DefaultWindow bytes. Without one, the cut follows a
// closing tag, or failing that whitespace outside any tag. Whitespace at a
// cut is trimmed, nothing else is dropped. If body already fits, it is returned as the only
// piece.
func SmartSplit(body string, targetSize int) []string {
	return SmartSplitWindow(body, targetSize, DefaultWindow)
}

// SmartSplitWindow is SmartSplit with an explicit search window.
func SmartSplitWindow(body string, targetSize, window int) []string {
	if targetSize <= 0 || len(body) <= targetSize {
		return []string{body}
	}
	if window < 0 {
		window = 0
	}

	var pieces []string
	remaining := body

	for len(remaining) > targetSize {
		cut := findCut(remaining, targetSize, window)
		if piece := strings.TrimRightFunc(remaining[:cut], unicode.IsSpace); piece != "" {
			pieces = append(pieces, piece)
		}
		remaining = strings.TrimLeftFunc(remaining[cut:], unicode.IsSpace)
	}

	if remaining != "" {
		pieces = append(pieces, remaining)
	}
	if len(pieces) == 0 {
		return []string{body}
	}
	return pieces
}

// SmartSplitWithStructure extracts the wrapper of doc once, splits only the
// content, and re-wraps every piece with that same wrapper. Each returned
// piece is a complete document.
func SmartSplitWithStructure(doc string, targetSize int) []string {
	prefix, body, suffix := ExtractStructure(doc)
	parts := SmartSplit(body, targetSize)
	wrapped := make([]string, len(parts))
	for i, p := range parts {
		wrapped[i] = prefix + p + suffix
	}
	return wrapped
}

// findCut returns the byte offset at which to cut text. The result is always
// in (0, len(text)].
func findCut(text string, target, window int) int {
	lo := target - window
	if lo < 1 {
		lo = 1
	}
	hi := target + window
	if hi > len(text) {
		hi = len(text)
	}

	best, bestDist := -1, 0
	for _, closer := range blockClosers {
		start := lo - len(closer)
		if start < 0 {
			start = 0
		}
		region := text[start:hi]
		for off := 0; off < len(region); {
			i := strings.Index(region[off:], closer)
			if i < 0 {
				break
			}
			end := start + off + i + len(closer)
			if end >= lo {
				if d := abs(end - target); best < 0 || d < bestDist {
					best, bestDist = end, d
				}
			}
			off += i + 1
		}
	}
	if best > 0 {
		return best
	}

	if c := fallbackCut(text, lo, hi, target); c > 0 {
		return c
	}

	cut := target
	if cut > len(text) {
		cut = len(text)
	}
	for cut > 1 && cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// fallbackCut looks in text[lo:hi] for the offset nearest to target that
// follows a closing tag, and failing that for whitespace outside any tag.
// It returns -1 when there is neither.
func fallbackCut(text string, lo, hi, target int) int {
	tagStart := strings.LastIndexByte(text[:lo], '<')
	inTag := tagStart > strings.LastIndexByte(text[:lo], '>')
	if !inTag {
		tagStart = -1
	}

	closeCut, closeDist := -1, 0
	spaceCut, spaceDist := -1, 0
	for i := lo; i < hi; i++ {
		switch c := text[i]; {
		case c == '<':
			tagStart, inTag = i, true
		case c == '>' && inTag:
			inTag = false
			if tagStart >= 0 && tagStart+1 < len(text) && text[tagStart+1] == '/' {
				if d := abs(i + 1 - target); closeCut < 0 || d < closeDist {
					closeCut, closeDist = i+1, d
				}
			}
		case !inTag && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			if d := abs(i - target); spaceCut < 0 || d < spaceDist {
				spaceCut, spaceDist = i, d
			}
		}
	}
	if closeCut > 0 {
		return closeCut
	}
	return spaceCut
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

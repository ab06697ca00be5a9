// Package epub reads the chapter documents of an EPUB in reading order and
// writes the book back with some of them replaced.
package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"

	"github.com/valpere/chaptran/internal/atomicfile"
)

const (
	mimetypeName = "mimetype"
	mimetype     = "application/epub+zip"
	containerXML = "META-INF/container.xml"

	// DefaultMinWords is the word count below which a document is treated as
	// front or back matter rather than a chapter.
	DefaultMinWords = 200
)

var (
	ErrNotEPUB         = errors.New("not an EPUB archive")
	ErrChapterNotFound = errors.New("chapter not found")
)

type entry struct {
	name   string
	method uint16
	data   []byte
}

// Book is an EPUB held in memory.
type Book struct {
	entries []*entry
	index   map[string]*entry
	opfPath string
	spine   []string

	Title    string
	Language string
}

// Chapter is a spine document. Number is its 1-based position among the
// chapters returned by Chapters.
type Chapter struct {
	Number  int
	Path    string
	Content string
	Words   int
}

func Open(name string) (*Book, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// Parse reads an EPUB from memory.
func Parse(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEPUB, err)
	}

	b := &Book{index: make(map[string]*entry, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		e := &entry{name: f.Name, method: f.Method, data: content}
		b.entries = append(b.entries, e)
		b.index[f.Name] = e
	}

	if err := b.parseContainer(); err != nil {
		return nil, err
	}
	if err := b.parseOPF(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) parseContainer() error {
	c, ok := b.index[containerXML]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrNotEPUB, containerXML)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(c.data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", containerXML, err)
	}
	rootfile := xmlquery.FindOne(doc, "//*[local-name()='rootfile']")
	if rootfile == nil || rootfile.SelectAttr("full-path") == "" {
		return fmt.Errorf("%w: no rootfile in %s", ErrNotEPUB, containerXML)
	}
	b.opfPath = rootfile.SelectAttr("full-path")
	return nil
}

func (b *Book) parseOPF() error {
	opf, ok := b.index[b.opfPath]
	if !ok {
		return fmt.Errorf("%w: package document %s missing", ErrNotEPUB, b.opfPath)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(opf.data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", b.opfPath, err)
	}

	if n := xmlquery.FindOne(doc, "//*[local-name()='metadata']/*[local-name()='title']"); n != nil {
		b.Title = strings.TrimSpace(n.InnerText())
	}
	if n := xmlquery.FindOne(doc, "//*[local-name()='metadata']/*[local-name()='language']"); n != nil {
		b.Language = strings.TrimSpace(n.InnerText())
	}

	base := path.Dir(b.opfPath)
	type item struct{ href, mediaType string }
	manifest := map[string]item{}
	for _, n := range xmlquery.Find(doc, "//*[local-name()='manifest']/*[local-name()='item']") {
		href, err := url.PathUnescape(n.SelectAttr("href"))
		if err != nil {
			href = n.SelectAttr("href")
		}
		manifest[n.SelectAttr("id")] = item{href: path.Join(base, href), mediaType: n.SelectAttr("media-type")}
	}

	for _, n := range xmlquery.Find(doc, "//*[local-name()='spine']/*[local-name()='itemref']") {
		it, ok := manifest[n.SelectAttr("idref")]
		if !ok || !isDocument(it.mediaType) {
			continue
		}
		if _, ok := b.index[it.href]; ok {
			b.spine = append(b.spine, it.href)
		}
	}
	return nil
}

func isDocument(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

// Documents returns every spine document in reading order, unnumbered.
func (b *Book) Documents() []Chapter {
	out := make([]Chapter, 0, len(b.spine))
	for _, p := range b.spine {
		content := string(b.index[p].data)
		out = append(out, Chapter{Path: p, Content: content, Words: WordCount(content)})
	}
	return out
}

// Chapters returns the spine documents with at least minWords words,
// numbered from 1.
func (b *Book) Chapters(minWords int) []Chapter {
	var out []Chapter
	for _, ch := range b.Documents() {
		if ch.Words < minWords {
			continue
		}
		ch.Number = len(out) + 1
		out = append(out, ch)
	}
	return out
}

// Chapter returns the chapter numbered n among Chapters(minWords).
func (b *Book) Chapter(n, minWords int) (Chapter, error) {
	chs := b.Chapters(minWords)
	if n < 1 || n > len(chs) {
		return Chapter{}, fmt.Errorf("%w: %d (book has %d)", ErrChapterNotFound, n, len(chs))
	}
	return chs[n-1], nil
}

// SetContent replaces the content of the document at name.
func (b *Book) SetContent(name, content string) error {
	e, ok := b.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChapterNotFound, name)
	}
	e.data = []byte(content)
	return nil
}

var languageRe = regexp.MustCompile(`(<dc:language[^>]*>)[^<]*(</dc:language>)`)

// SetLanguage rewrites the dc:language entry of the package document.
func (b *Book) SetLanguage(lang string) {
	opf := b.index[b.opfPath]
	opf.data = languageRe.ReplaceAll(opf.data, []byte("${1}"+lang+"${2}"))
	b.Language = lang
}

// Write stores the book at name, replacing any existing file atomically. The
// mimetype entry is written first and uncompressed.
func (b *Book) Write(name string) error {
	return atomicfile.Write(name, 0o644, b.writeTo)
}

func (b *Book) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeName, Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := mw.Write([]byte(mimetype)); err != nil {
		return err
	}

	for _, e := range b.entries {
		if e.name == mimetypeName {
			continue
		}
		method := e.method
		if method != zip.Store {
			method = zip.Deflate
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		if err != nil {
			return fmt.Errorf("write %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}

// WordCount counts the words of the visible text of an XHTML document. Each
// text node is counted on its own so adjacent blocks do not run together.
func WordCount(markup string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return 0
	}
	doc.Find("head").Remove()

	words := 0
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				words += len(strings.Fields(c.Text()))
				return
			}
			walk(c)
		})
	}
	walk(doc.Selection)
	return words
}

// OutputPath derives "<dir>/<stem>.<lang>.epub" from the input path.
func OutputPath(input, lang string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "." + lang + ".epub"
}

// Package markdown renders comparison reports to standalone HTML pages.
package markdown

import (
	"bytes"
	"html"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders CommonMark with tables and fenced code to an HTML fragment.
func ToHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return markdown.Render(p.Parse(md), renderer)
}

// Page wraps the rendered markdown in a complete UTF-8 HTML document.
func Page(title string, md []byte) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>body{max-width:50em;margin:auto;font-family:serif}pre{white-space:pre-wrap}table{border-collapse:collapse}td,th{border:1px solid #999;padding:.2em .6em}</style>\n</head>\n<body>\n")
	b.Write(ToHTML(md))
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

package document

import (
	"bytes"
	"regexp"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParser is initialized once and reused. The parser
// configuration never changes and a goldmark Parser is safe to share;
// per-call state lives in the reader.
var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

var (
	todoRe         = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.*)$`)
	manualPrefixRe = regexp.MustCompile(`(?i)^\[manual\]`)
	manualMarkRe   = regexp.MustCompile(`(?i)[*_]\(manual\)[*_]`)
)

// Parse builds a Document from raw body text. Parsing is tolerant:
// unknown sections are carried through untouched, malformed checklist
// or table lines are skipped, and the zero-value result for an empty
// body is a document with only a description.
//
// Section boundaries come from the goldmark AST rather than a line
// scan so that heading-looking text inside fenced code blocks is not
// mistaken for a section break.
func Parse(src string) *Document {
	b := []byte(src)
	root := getMarkdownParser().Parser().Parse(text.NewReader(b))

	type bound struct {
		lineStart int // offset of the first byte of the heading line
		lineEnd   int // offset just past the heading line's newline
		name      string
	}
	var bounds []bound
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		lineStart := bytes.LastIndexByte(b[:seg.Start], '\n') + 1
		lineEnd := seg.Stop
		if i := bytes.IndexByte(b[seg.Stop:], '\n'); i >= 0 {
			lineEnd = seg.Stop + i + 1
		} else {
			lineEnd = len(b)
		}
		bounds = append(bounds, bound{lineStart: lineStart, lineEnd: lineEnd, name: string(bytes.TrimSpace(b[seg.Start:seg.Stop]))})
	}

	d := &Document{}
	if len(bounds) == 0 {
		d.description = src
		return d
	}
	d.description = src[:bounds[0].lineStart]

	for i, bd := range bounds {
		end := len(src)
		if i+1 < len(bounds) {
			end = bounds[i+1].lineStart
		}
		heading := trimLineEnd(src[bd.lineStart:bd.lineEnd])
		s := &section{
			kind:    kindForName(bd.name),
			name:    bd.name,
			heading: heading,
			raw:     src[bd.lineEnd:end],
		}
		switch s.kind {
		case KindTodos:
			s.todos = parseTodos(s.raw)
		case KindHistory:
			s.history = parseHistory(s.raw)
		case KindNotes:
			s.notes = parseNotes(s.raw)
		}
		d.sections = append(d.sections, s)
	}
	return d
}

func trimLineEnd(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func parseTodos(raw string) []TodoItem {
	var items []TodoItem
	for _, line := range splitLines(raw) {
		m := todoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		body := m[2]
		items = append(items, TodoItem{
			Text:    body,
			Checked: m[1] != " ",
			Manual:  manualPrefixRe.MatchString(body) || manualMarkRe.MatchString(body),
		})
	}
	return items
}

func splitLines(raw string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			lines = append(lines, trimLineEnd(raw[start:i+1]))
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	return lines
}

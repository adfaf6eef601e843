// Package richtext holds the lesson body rules: the allow-list sanitizer every
// write goes through, plain-text extraction for search, and the editor
// commands the admin UI applies to a lesson body.
package richtext

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Strong:     true,
	atom.B:          true,
	atom.Em:         true,
	atom.I:          true,
	atom.U:          true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.Span:       true,
	atom.Div:        true,
	atom.A:          true,
	atom.Img:        true,
}

// Elements whose body is dropped along with the tag.
var droppedWithContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Textarea: true,
	atom.Title:    true,
}

var voidTags = map[atom.Atom]bool{
	atom.Br:  true,
	atom.Img: true,
}

// Sanitize rewrites untrusted HTML down to the lesson allow-list. Unknown tags are
// removed but their text is kept, attributes other than class/href/src/alt are
// dropped, and every open element is closed.
func Sanitize(in string) string {
	z := html.NewTokenizer(strings.NewReader(in))
	var b strings.Builder
	var open []atom.Atom
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			for i := len(open) - 1; i >= 0; i-- {
				writeEnd(&b, open[i])
			}
			return b.String()

		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if droppedWithContent[tok.DataAtom] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			writeStart(&b, tok)
			if voidTags[tok.DataAtom] {
				continue
			}
			if tt == html.SelfClosingTagToken {
				writeEnd(&b, tok.DataAtom)
				continue
			}
			open = append(open, tok.DataAtom)

		case html.EndTagToken:
			tok := z.Token()
			if droppedWithContent[tok.DataAtom] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] || voidTags[tok.DataAtom] {
				continue
			}
			idx := -1
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == tok.DataAtom {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				writeEnd(&b, open[i])
			}
			open = open[:idx]
		}
	}
}

func writeStart(b *strings.Builder, tok html.Token) {
	b.WriteByte('<')
	b.WriteString(tok.DataAtom.String())
	for _, attr := range filterAttrs(tok) {
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attr.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
}

func writeEnd(b *strings.Builder, a atom.Atom) {
	b.WriteString("</")
	b.WriteString(a.String())
	b.WriteByte('>')
}

func filterAttrs(tok html.Token) []html.Attribute {
	var out []html.Attribute
	hasHref := false
	for _, attr := range tok.Attr {
		if attr.Namespace != "" {
			continue
		}
		key := strings.ToLower(attr.Key)
		switch {
		case key == "class":
			out = append(out, html.Attribute{Key: key, Val: strings.Join(strings.Fields(attr.Val), " ")})
		case key == "href" && tok.DataAtom == atom.A:
			if safeURL(attr.Val, "http", "https", "mailto") {
				out = append(out, html.Attribute{Key: key, Val: strings.TrimSpace(attr.Val)})
				hasHref = true
			}
		case key == "src" && tok.DataAtom == atom.Img:
			if safeURL(attr.Val, "http", "https") {
				out = append(out, html.Attribute{Key: key, Val: strings.TrimSpace(attr.Val)})
			}
		case key == "alt" && tok.DataAtom == atom.Img:
			out = append(out, html.Attribute{Key: key, Val: attr.Val})
		}
	}
	if hasHref {
		out = append(out, html.Attribute{Key: "rel", Val: "nofollow noopener noreferrer"})
	}
	return out
}

func safeURL(raw string, schemes ...string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	for _, s := range schemes {
		if scheme == s {
			return true
		}
	}
	return false
}

// PlainText returns the visible text of an HTML fragment with runs of
// whitespace collapsed. Script and style bodies are not part of the result.
func PlainText(in string) string {
	z := html.NewTokenizer(strings.NewReader(in))
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			tok := z.Token()
			if droppedWithContent[tok.DataAtom] {
				skipDepth++
			} else {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			tok := z.Token()
			if droppedWithContent[tok.DataAtom] && skipDepth > 0 {
				skipDepth--
			} else {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

package dispatch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockEnds are the elements after which a line break is emitted.
var blockEnds = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true,
}

// hidden elements contribute no text.
var hidden = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Title: true,
}

// ExtractText converts the rich-text editor's HTML to the plain text sent to
// recipients. Markup is dropped, entities are decoded, paragraphs and <br>
// become newlines. Input without markup is returned trimmed.
func ExtractText(doc string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(doc))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				skip++
			case a == atom.Br:
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				if skip > 0 {
					skip--
				}
			case blockEnds[a]:
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			// formatting whitespace between tags
			if strings.TrimSpace(text) == "" && strings.ContainsAny(text, "\r\n") {
				continue
			}
			b.WriteString(text)
		}
	}
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

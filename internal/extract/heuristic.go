package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Document is the title and body text recovered from an HTML page.
type Document struct {
	Title string
	Text  string
}

// FromHTML pulls readable text out of an HTML page without scoring: the first
// <main>, else <article>, else <body> is walked, keeping headings, paragraphs,
// list items and preformatted blocks while dropping navigation, scripts and
// cookie banners. It is the fallback when readability finds no content node.
func FromHTML(input []byte) Document {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil || root == nil {
		return Document{}
	}

	doc := Document{Title: strings.TrimSpace(titleOf(root))}
	content := firstElement(root, "main")
	if content == nil {
		content = firstElement(root, "article")
	}
	if content == nil {
		content = firstElement(root, "body")
	}
	if content == nil {
		return doc
	}
	var b strings.Builder
	walkText(&b, content, false)
	doc.Text = normalizeWhitespace(b.String())
	return doc
}

func titleOf(n *html.Node) string {
	head := firstElement(n, "head")
	if head == nil {
		return ""
	}
	t := firstElement(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

// firstElement is a depth-first search for the first element named tag.
func firstElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "footer": true, "aside": true, "iframe": true,
	"svg": true, "form": true, "button": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "blockquote": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
}

func walkText(b *strings.Builder, n *html.Node, inPre bool) {
	var name string
	if n.Type == html.ElementNode {
		if isBoilerplate(n) {
			return
		}
		name = strings.ToLower(n.Data)
		if skippedElements[name] {
			return
		}
		switch {
		case name == "pre" || name == "code":
			inPre = true
		case name == "br" || name == "hr" || name == "li":
			b.WriteString("\n")
		case name == "td" || name == "th":
			b.WriteString(" ")
		case blockElements[name]:
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ").Replace(data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(b, c, inPre)
	}

	switch {
	case name == "":
	case isHeading(name), name == "p":
		b.WriteString("\n\n")
	case name == "li" || name == "pre" || name == "code" || blockElements[name]:
		b.WriteString("\n")
	}
}

func isHeading(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

var boilerplateMarkers = []string{"cookie", "consent", "gdpr", "newsletter-signup"}

// isBoilerplate matches consent banners and similar overlays by their
// id, class, role, aria-label or data-* attributes.
func isBoilerplate(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && key != "role" && key != "aria-label" && !strings.HasPrefix(key, "data-") {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, m := range boilerplateMarkers {
			if strings.Contains(val, m) {
				return true
			}
		}
	}
	return false
}

// normalizeWhitespace collapses runs of spaces inside lines and keeps at
// most one blank line between paragraphs.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

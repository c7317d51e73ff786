package extract

import (
	"strings"
	"testing"
)

func BenchmarkFromHTML(b *testing.B) {
	for _, size := range []struct {
		name         string
		paras, items int
	}{
		{"small", 1, 0},
		{"medium", 50, 60},
		{"large", 200, 200},
	} {
		page := makePage(size.paras, size.items)
		b.Run(size.name, func(b *testing.B) {
			b.SetBytes(int64(len(page)))
			for i := 0; i < b.N; i++ {
				_ = FromHTML(page)
			}
		})
	}
}

func BenchmarkReadableText(b *testing.B) {
	page := string(makePage(50, 60))
	b.SetBytes(int64(len(page)))
	for i := 0; i < b.N; i++ {
		_ = readableText(page, "bench.html")
	}
}

func BenchmarkDecodeHTML_Latin1(b *testing.B) {
	page := []byte(`<html><head><meta charset="iso-8859-1"></head><body><p>caf` + "\xe9" + `</p></body></html>`)
	for i := 0; i < b.N; i++ {
		_ = decodeHTML(page, "text/html")
	}
}

// makePage builds a page with a cookie banner, paras paragraphs and a list of
// items entries.
func makePage(paras, items int) []byte {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>demo</title></head><body><div class="cookie-consent">Accept</div><main>`)
	for i := 0; i < paras; i++ {
		sb.WriteString("<h2>Heading</h2><p>")
		sb.WriteString(sampleText)
		sb.WriteString("</p>")
	}
	if items > 0 {
		sb.WriteString("<ul>")
		for i := 0; i < items; i++ {
			sb.WriteString("<li>")
			sb.WriteString(sampleText)
			sb.WriteString("</li>")
		}
		sb.WriteString("</ul>")
	}
	sb.WriteString("</main></body></html>")
	return []byte(sb.String())
}

const sampleText = "The committee met on Thursday to review the quarterly figures and agreed to publish the minutes next week."

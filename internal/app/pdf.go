package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`) // [text](url)

// writeSummaryPDF renders a summary to an A4 PDF. The model usually answers
// in light Markdown, so headings, bullets and [text](url) links get basic
// treatment; everything else is wrapped paragraph text. The core fonts only
// cover cp1252, so text is translated and unmappable runes degrade.
func writeSummaryPDF(title, summary, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("nosy", true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	if t := strings.TrimSpace(title); t != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 8, tr(t), "", "L", false)
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "", 11)
	}

	scanner := bufio.NewScanner(strings.NewReader(summary))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			pdf.Ln(4)
			continue
		}
		if strings.HasPrefix(s, "#") {
			level := len(s) - len(strings.TrimLeft(s, "#"))
			text := strings.TrimSpace(s[level:])
			if text == "" {
				continue
			}
			size := 14.0
			if level >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 7, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		if rest, ok := bullet(s); ok {
			pdf.Write(5, tr("- "))
			s = rest
		}
		writeLinks(pdf, tr, s)
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan summary: %w", err)
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pdf directory: %w", err)
		}
	}
	return pdf.OutputFileAndClose(outPath)
}

func bullet(s string) (string, bool) {
	for _, p := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):]), true
		}
	}
	return s, false
}

func writeLinks(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	pos := 0
	for _, m := range linkRe.FindAllStringSubmatchIndex(s, -1) {
		// m: [fullStart, fullEnd, textStart, textEnd, urlStart, urlEnd]
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		text, url := s[m[2]:m[3]], s[m[4]:m[5]]
		if strings.HasPrefix(url, "#") {
			pdf.Write(5, tr(text))
		} else {
			pdf.WriteLinkString(5, tr(text), url)
		}
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
}

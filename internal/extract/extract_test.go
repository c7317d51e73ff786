package extract

import (
	"strings"
	"testing"
)

func TestFromHTML_MainBeatsArticleAndBody(t *testing.T) {
	page := `<!doctype html>
<html>
<head><title> Release notes </title></head>
<body>
  <nav>Home | Docs</nav>
  <article><p>Teaser from the sidebar article.</p></article>
  <main>
    <h1>Version 2.0</h1>
    <p>Transcripts are now joined per segment.</p>
  </main>
  <footer>Copyright</footer>
</body>
</html>`
	doc := FromHTML([]byte(page))
	if doc.Title != "Release notes" {
		t.Fatalf("title = %q", doc.Title)
	}
	if doc.Text != "Version 2.0\n\nTranscripts are now joined per segment." {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestFromHTML_ArticleThenBody(t *testing.T) {
	withArticle := FromHTML([]byte(`<body><div>outside</div><article><p>inside</p></article></body>`))
	if withArticle.Text != "inside" {
		t.Fatalf("article not preferred: %q", withArticle.Text)
	}
	bodyOnly := FromHTML([]byte(`<body><h2>Agenda</h2><ul><li>budget</li><li>hiring</li></ul></body>`))
	for _, want := range []string{"Agenda", "budget", "hiring"} {
		if !strings.Contains(bodyOnly.Text, want) {
			t.Fatalf("body text %q missing %q", bodyOnly.Text, want)
		}
	}
}

func TestFromHTML_DropsConsentBannersAndScripts(t *testing.T) {
	page := `<main>
  <div id="cookie-banner">We use cookies to improve your experience.</div>
  <section role="dialog" aria-label="Privacy consent"><button>Accept all</button></section>
  <div data-testid="gdpr-overlay">Manage preferences</div>
  <script>track()</script>
  <p>The council approved the new bike lanes.</p>
</main>`
	doc := FromHTML([]byte(page))
	if doc.Text != "The council approved the new bike lanes." {
		t.Fatalf("boilerplate leaked: %q", doc.Text)
	}
}

func TestFromHTML_KeepsPreformattedText(t *testing.T) {
	doc := FromHTML([]byte("<main><p>Run:</p><pre>make   build\nmake test</pre></main>"))
	if !strings.Contains(doc.Text, "make build\nmake test") {
		t.Fatalf("pre block lines lost: %q", doc.Text)
	}
}

func TestFromHTML_EmptyAndBroken(t *testing.T) {
	if doc := FromHTML(nil); doc.Text != "" || doc.Title != "" {
		t.Fatalf("nil input produced %+v", doc)
	}
	if doc := FromHTML([]byte("<main><nav>only nav</nav></main>")); doc.Text != "" {
		t.Fatalf("nav-only page produced %q", doc.Text)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"\n\n  lead", "lead"},
		{"a   b\t c", "a b c"},
		{"one\n\n\n\ntwo", "one\n\ntwo"},
		{"one\n \t \ntwo\n\n", "one\n\ntwo"},
		{"x\ny", "x\ny"},
	}
	for _, c := range cases {
		if got := normalizeWhitespace(c.in); got != c.want {
			t.Fatalf("normalizeWhitespace(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/nosy/internal/command"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/filetype"
)

type fakeRunner struct {
	calls   []*command.Command
	respond func(name string, c *command.Command) (command.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, c *command.Command) (command.Result, error) {
	f.calls = append(f.calls, c)
	if f.respond == nil {
		return command.Result{}, nil
	}
	return f.respond(filepath.Base(c.Name), c)
}

func (f *fakeRunner) ran(name string) bool {
	for _, c := range f.calls {
		if filepath.Base(c.Name) == name {
			return true
		}
	}
	return false
}

// fakePath replaces PATH with a directory holding stub executables.
func fakePath(t *testing.T, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func readExt(t *testing.T, path string) string {
	t.Helper()
	if filepath.Base(path) != ExtractedFilename {
		t.Fatalf("output not at staging name: %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ext: %v", err)
	}
	return string(b)
}

func TestNew_Dispatch(t *testing.T) {
	if _, err := New(filetype.PlainText, Options{}); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("plain: want ErrNoBackend, got %v", err)
	}
	if _, err := New(filetype.Unsupported, Options{}); !errors.Is(err, errs.ErrClassificationUnsupported) {
		t.Fatalf("unsupported: want ErrClassificationUnsupported, got %v", err)
	}
	if _, err := New(filetype.Whisper, Options{}); !errors.Is(err, errs.ErrExtractorUnavailable) {
		t.Fatalf("whisper without model: want ErrExtractorUnavailable, got %v", err)
	}
	for _, k := range []filetype.Kind{filetype.HTMLNative, filetype.PDFNative, filetype.Pandoc} {
		if e, err := New(k, Options{}); err != nil || e == nil {
			t.Fatalf("%s: got %v, %v", k, e, err)
		}
	}
	e, err := New(filetype.Whisper, Options{WhisperModelPath: "/models/ggml-base.bin"})
	if err != nil {
		t.Fatalf("whisper: %v", err)
	}
	if w := e.(*Whisper); w.ModelPath != "/models/ggml-base.bin" || w.Runner == nil {
		t.Fatalf("unexpected whisper backend: %+v", w)
	}
}

const articlePage = `<!DOCTYPE html>
<html><head><title>Field Notes</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Field Notes</h1>
<p>The river rose three feet overnight and the lower meadow is now a shallow lake that reflects the whole sky back at the hills.</p>
<p>Herons arrived at dawn, standing in the new water with great patience, while the swallows worked the air above them in long loops.</p>
<p>By noon the level had started to fall again, leaving a line of reeds and driftwood that marks how far the flood reached this year.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestHTML_ExtractsArticleText(t *testing.T) {
	in := writeInput(t, "page.html", []byte(articlePage))
	wd := t.TempDir()
	out, err := HTML{}.Extract(context.Background(), Request{ContentPath: in, WorkDir: wd})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	text := readExt(t, out)
	if !strings.Contains(text, "Herons arrived at dawn") {
		t.Fatalf("missing article text: %q", text)
	}
	if text != strings.TrimSpace(text) {
		t.Fatalf("output not trimmed")
	}
}

func TestHTML_DecodesDeclaredCharset(t *testing.T) {
	page := []byte(`<html><head><meta charset="iso-8859-1"><title>Menu</title></head><body><main><p>Caf` + "\xe9" + ` au lait is served every morning from seven until the last guest leaves the terrace.</p></main></body></html>`)
	in := writeInput(t, "menu.html", page)
	out, err := HTML{}.Extract(context.Background(), Request{ContentPath: in, WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text := readExt(t, out); !strings.Contains(text, "Café au lait") {
		t.Fatalf("charset not decoded: %q", text)
	}
}

func TestHTML_EmptyPageFails(t *testing.T) {
	in := writeInput(t, "empty.html", []byte("<html><head></head><body><script>var x=1;</script></body></html>"))
	wd := t.TempDir()
	_, err := HTML{}.Extract(context.Background(), Request{ContentPath: in, WorkDir: wd})
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Fatalf("want ErrExtractionFailed, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(wd, ExtractedFilename)); !os.IsNotExist(statErr) {
		t.Fatalf("ext should not be written on failure")
	}
}

func samplePDF(t *testing.T, text string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 14)
	doc.Cell(40, 10, text)
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

func TestPDF_ExtractsTextLayer(t *testing.T) {
	in := writeInput(t, "raw", samplePDF(t, "Hello PDF world"))
	out, err := PDF{}.Extract(context.Background(), Request{ContentPath: in, WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text := readExt(t, out); !strings.Contains(text, "Hello") {
		t.Fatalf("missing page text: %q", text)
	}
}

func TestPDF_GarbageFails(t *testing.T) {
	in := writeInput(t, "broken.pdf", []byte("%PDF-1.4\nthis is not really a pdf\n"))
	_, err := PDF{}.Extract(context.Background(), Request{ContentPath: in, WorkDir: t.TempDir()})
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Fatalf("want ErrExtractionFailed, got %v", err)
	}
}

func TestPandoc_UnavailableDoesNotSpawn(t *testing.T) {
	fakePath(t)
	r := &fakeRunner{}
	_, err := (&Pandoc{Runner: r}).Extract(context.Background(), Request{
		ContentPath: "report.docx", Extension: filetype.NewExtension("docx"), WorkDir: t.TempDir(),
	})
	if !errors.Is(err, errs.ErrExtractorUnavailable) {
		t.Fatalf("want ErrExtractorUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "https://pandoc.org/installing.html") {
		t.Fatalf("missing install hint: %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("pandoc must not be spawned, got %d calls", len(r.calls))
	}
}

func TestPandoc_RunsWithFormatHint(t *testing.T) {
	fakePath(t, "pandoc")
	r := &fakeRunner{respond: func(string, *command.Command) (command.Result, error) {
		return command.Result{Stdout: []byte("\n# Quarterly report\n\nRevenue grew.\n")}, nil
	}}
	wd := t.TempDir()
	out, err := (&Pandoc{Runner: r}).Extract(context.Background(), Request{
		ContentPath: "/in/report.docx", Extension: filetype.NewExtension("docx"), WorkDir: wd,
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := readExt(t, out); got != "# Quarterly report\n\nRevenue grew." {
		t.Fatalf("unexpected text %q", got)
	}
	args := strings.Join(r.calls[0].Args, " ")
	if args != "--from=docx --to plain --wrap=none --markdown-headings=atx /in/report.docx" {
		t.Fatalf("unexpected args %q", args)
	}
}

func TestPandoc_NonZeroExitCarriesStderr(t *testing.T) {
	fakePath(t, "pandoc")
	r := &fakeRunner{respond: func(string, *command.Command) (command.Result, error) {
		return command.Result{Stderr: []byte("Unknown input format\n"), ExitCode: 21}, nil
	}}
	_, err := (&Pandoc{Runner: r}).Extract(context.Background(), Request{ContentPath: "x.odt", WorkDir: t.TempDir()})
	if !errors.Is(err, errs.ErrExtractionFailed) || !strings.Contains(err.Error(), "pandoc failed: Unknown input format") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestPandoc_EmptyAndInvalidOutput(t *testing.T) {
	fakePath(t, "pandoc")
	for _, stdout := range [][]byte{[]byte(" \n\t"), {0xff, 0xfe, 'a'}} {
		r := &fakeRunner{respond: func(string, *command.Command) (command.Result, error) {
			return command.Result{Stdout: stdout}, nil
		}}
		_, err := (&Pandoc{Runner: r}).Extract(context.Background(), Request{ContentPath: "x.rtf", WorkDir: t.TempDir()})
		if !errors.Is(err, errs.ErrExtractionFailed) {
			t.Fatalf("stdout %q: want ErrExtractionFailed, got %v", stdout, err)
		}
	}
}

func TestPandocInputFormat(t *testing.T) {
	cases := []struct {
		ext, mime, want string
	}{
		{"docx", "", "docx"},
		{"md", "text/plain", "markdown"},
		{"htm", "", "html"},
		{"latex", "", "latex"},
		{"", "text/rtf", "rtf"},
		{"", "application/epub+zip", "epub"},
		{"xyz", "text/html", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := pandocInputFormat(filetype.NewExtension(c.ext), filetype.NewMime(c.mime)); got != c.want {
			t.Fatalf("ext=%q mime=%q: got %q want %q", c.ext, c.mime, got, c.want)
		}
	}
}

func f32le(samples ...float32) []byte {
	b := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(s))
	}
	return b
}

func modelFile(t *testing.T) string {
	t.Helper()
	return writeInput(t, "ggml-tiny.en.bin", []byte("not really a model"))
}

func argAfter(c *command.Command, flag string) string {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}

func TestWhisper_TranscribesDecodedAudio(t *testing.T) {
	fakePath(t, "ffmpeg", "whisper-cli")
	pcm := []float32{0.12345679, -1e-05, 0.5}
	for i := 0; i < WhisperSampleRate/10; i++ {
		pcm = append(pcm, float32(math.Sin(float64(i)/8)))
	}
	var wavPath string
	var wavBytes []byte
	r := &fakeRunner{respond: func(name string, c *command.Command) (command.Result, error) {
		switch name {
		case "ffmpeg":
			return command.Result{Stdout: f32le(pcm...)}, nil
		case "whisper-cli":
			wavPath = argAfter(c, "-f")
			b, err := os.ReadFile(wavPath)
			if err != nil {
				return command.Result{}, err
			}
			wavBytes = b
			return command.Result{Stdout: []byte("\n Hello there.\n\n General Kenobi.\n")}, nil
		}
		return command.Result{ExitCode: 127}, nil
	}}
	wd := t.TempDir()
	model := modelFile(t)
	out, err := (&Whisper{ModelPath: model, Runner: r}).Extract(context.Background(), Request{ContentPath: "notes.mp3", WorkDir: wd})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := readExt(t, out); got != "Hello there.\nGeneral Kenobi." {
		t.Fatalf("unexpected transcript %q", got)
	}
	if len(r.calls) != 2 {
		t.Fatalf("want 2 subprocess calls, got %d", len(r.calls))
	}
	if args := strings.Join(r.calls[1].Args, " "); !strings.Contains(args, "-m "+model) || !strings.Contains(args, "-l auto") {
		t.Fatalf("unexpected whisper args %q", args)
	}

	entries, err := os.ReadDir(wd)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != ExtractedFilename {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("workdir should hold only %s, got %v", ExtractedFilename, names)
	}
	if strings.HasPrefix(wavPath, wd) {
		t.Fatalf("audio staged inside workdir: %s", wavPath)
	}
	if _, err := os.Stat(wavPath); !os.IsNotExist(err) {
		t.Fatalf("temp audio not removed: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(wavBytes))
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		t.Fatalf("read wav header: %v", err)
	}
	if dec.SampleRate != WhisperSampleRate || dec.NumChans != 1 || dec.BitDepth != 32 || dec.WavAudioFormat != 3 {
		t.Fatalf("unexpected wav format: rate=%d chans=%d bits=%d fmt=%d", dec.SampleRate, dec.NumChans, dec.BitDepth, dec.WavAudioFormat)
	}
	const header = 44
	if got := binary.LittleEndian.Uint32(wavBytes[header-4 : header]); int(got) != 4*len(pcm) {
		t.Fatalf("data chunk size = %d, want %d", got, 4*len(pcm))
	}
	if got := decodeF32LE(wavBytes[header:]); len(got) != len(pcm) || got[0] != pcm[0] || got[1] != pcm[1] || got[2] != pcm[2] {
		t.Fatalf("samples not preserved as float32: %v", got[:3])
	}
}

func TestWhisper_EmptyAudioFailsBeforeInference(t *testing.T) {
	fakePath(t, "ffmpeg", "whisper-cli")
	r := &fakeRunner{respond: func(string, *command.Command) (command.Result, error) {
		return command.Result{Stdout: []byte{1, 2}}, nil
	}}
	_, err := (&Whisper{ModelPath: modelFile(t), Runner: r}).Extract(context.Background(), Request{ContentPath: "silence.wav", WorkDir: t.TempDir()})
	if !errors.Is(err, errs.ErrExtractionFailed) || !strings.Contains(err.Error(), "decoded audio is empty") {
		t.Fatalf("unexpected err: %v", err)
	}
	if r.ran("whisper-cli") {
		t.Fatalf("whisper-cli must not run on empty audio")
	}
}

func TestWhisper_InvalidModelDoesNotSpawn(t *testing.T) {
	fakePath(t, "ffmpeg", "whisper-cli")
	r := &fakeRunner{}
	_, err := (&Whisper{ModelPath: filepath.Join(t.TempDir(), "missing.bin"), Runner: r}).Extract(context.Background(), Request{ContentPath: "a.mp3", WorkDir: t.TempDir()})
	if !errors.Is(err, errs.ErrExtractorUnavailable) {
		t.Fatalf("want ErrExtractorUnavailable, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("no subprocess expected, got %d", len(r.calls))
	}
}

func TestWriteText_Rules(t *testing.T) {
	wd := t.TempDir()
	if _, err := writeText(wd, "test", "   \n"); !errors.Is(err, errs.ErrExtractionFailed) {
		t.Fatalf("empty: want ErrExtractionFailed, got %v", err)
	}
	if _, err := writeText(wd, "test", "ok\xff"); !errors.Is(err, errs.ErrExtractionFailed) {
		t.Fatalf("invalid utf8: want ErrExtractionFailed, got %v", err)
	}
	out, err := writeText(wd, "test", "  cafe\u0301  ")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readExt(t, out); got != "caf\u00e9" {
		t.Fatalf("want NFC-normalized trimmed text, got %q", got)
	}
}

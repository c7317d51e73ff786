package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/cache"
	"github.com/hyperifyio/nosy/internal/command"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/extract"
	"github.com/hyperifyio/nosy/internal/fetch"
	"github.com/hyperifyio/nosy/internal/filetype"
	"github.com/hyperifyio/nosy/internal/llm"
	"github.com/hyperifyio/nosy/internal/progress"
	"github.com/hyperifyio/nosy/internal/scheme"
	"github.com/hyperifyio/nosy/internal/summarize"
	"github.com/hyperifyio/nosy/internal/validate"
)

// App runs one input through fetch, classify and extract, then either
// copies the text out or summarizes it.
type App struct {
	cfg        Config
	progress   progress.Sink
	workDir    *WorkDir
	httpClient *http.Client
	httpCache  *cache.HTTPCache
	llmCache   *cache.LLMCache
	ai         llm.Client
	// runner executes external extractor tools; nil means the real one.
	runner command.Runner
}

// New prepares an App for cfg. Cache invalidation runs here so a failed
// run still leaves the cache trimmed.
func New(ctx context.Context, cfg Config, sink progress.Sink) (*App, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeSummarize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	a := &App{
		cfg:        cfg,
		progress:   progress.Or(sink),
		workDir:    NewWorkDir(cfg.WorkDir),
		httpClient: newHTTPClient(cfg.HTTPTimeout, !cfg.InsecureTLS),
	}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.Purge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			}
			log.Debug().Int("removed", n).Dur("max_age", cfg.CacheMaxAge).Msg("cache purged")
		}
		a.httpCache = &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, cache.HTTPSubdir), StrictPerms: cfg.CacheStrictPerms}
		a.llmCache = &cache.LLMCache{Dir: filepath.Join(cfg.CacheDir, cache.LLMSubdir), StrictPerms: cfg.CacheStrictPerms}
	}

	if cfg.Mode == ModeSummarize {
		preset, err := llm.LookupProvider(cfg.Provider)
		if err != nil {
			return nil, err
		}
		provider := llm.NewOpenAIProvider(preset.Resolve(cfg.LLMBaseURL, cfg.LLMAPIKey), a.httpClient)
		a.ai = provider
		a.preflight(ctx, provider)
	}
	return a, nil
}

// preflight lists models as a connectivity check. It never fails the run;
// the summarize stage reports real errors.
func (a *App) preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	for _, m := range models.Models {
		if m.ID == a.cfg.LLMModel {
			return
		}
	}
	if len(models.Models) > 0 {
		log.Warn().Str("model", a.cfg.LLMModel).Int("available", len(models.Models)).Msg("model not listed by the provider")
	}
}

// WorkDir exposes the staging directory, which may not exist yet.
func (a *App) WorkDir() *WorkDir { return a.workDir }

// Run executes the pipeline once. The first failure aborts the run and is
// returned wrapped in an *errs.StageError.
func (a *App) Run(ctx context.Context) error {
	src, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	log.Debug().Str("path", src).Msg("raw content path")

	class, err := a.classify(src)
	if err != nil {
		return err
	}

	text, err := a.extract(ctx, src, class)
	if err != nil {
		return err
	}
	log.Debug().Str("path", text).Msg("extracted content path")

	if a.cfg.Mode == ModeExtract {
		if err := copyOut(text, a.cfg.OutputPath); err != nil {
			return errs.Wrap(errs.StageOutput, err)
		}
		log.Info().Str("out", a.cfg.OutputPath).Msg("wrote extracted text")
		return nil
	}
	return a.summarize(ctx, text)
}

// acquire turns the input into a local path, fetching remote inputs into
// <workdir>/raw. Local inputs never create the workdir.
func (a *App) acquire(ctx context.Context) (string, error) {
	in := a.cfg.Input
	sch := scheme.Detect(in)
	log.Debug().Str("input", in).Str("scheme", sch.String()).Msg("detected scheme")

	switch sch {
	case scheme.File:
		p := scheme.LocalPath(in)
		st, err := os.Stat(p)
		if err != nil {
			return "", errs.Wrap(errs.StageFetch, errs.Join(errs.ErrFetchFailed, fmt.Sprintf("input %q", p), err))
		}
		if st.IsDir() {
			return "", errs.Wrap(errs.StageFetch, errs.Join(errs.ErrFetchFailed, fmt.Sprintf("input %q is a directory", p), nil))
		}
		return p, nil
	case scheme.HTTP:
		f, err := a.fetcher()
		if err != nil {
			return "", errs.Wrap(errs.StageFetch, err)
		}
		dir, err := a.workDir.Ensure()
		if err != nil {
			return "", errs.Wrap(errs.StageFetch, err)
		}
		p, err := f.Fetch(ctx, in, dir, a.progress)
		if err != nil {
			return "", errs.Wrap(errs.StageFetch, err)
		}
		a.progress.Update("Fetching completed.")
		return p, nil
	default:
		return "", errs.Wrap(errs.StageScheme, errs.Join(errs.ErrSchemeUnsupported, fmt.Sprintf("cannot handle input %q", in), nil))
	}
}

func (a *App) fetcher() (fetch.Fetcher, error) {
	mode, err := fetch.ParseMode(a.cfg.HTTPFetchMode)
	if err != nil {
		return nil, err
	}
	if mode == fetch.ModeHeadless {
		return &fetch.Headless{UserAgent: a.cfg.UserAgent, Timeout: a.cfg.HTTPTimeout}, nil
	}
	return &fetch.Client{
		HTTPClient:        a.httpClient,
		UserAgent:         a.cfg.UserAgent,
		PerRequestTimeout: a.cfg.HTTPTimeout,
		Cache:             a.httpCache,
	}, nil
}

func (a *App) classify(src string) (filetype.Classification, error) {
	var forced *filetype.Kind
	if strings.TrimSpace(a.cfg.ExtKind) != "" {
		k, err := filetype.ParseKind(a.cfg.ExtKind)
		if err != nil {
			return filetype.Classification{}, errs.Wrap(errs.StageClassify, errs.Join(errs.ErrClassificationUnsupported, "forced kind", err))
		}
		forced = &k
	}
	c, err := filetype.Classify(src, forced)
	if err != nil {
		return c, errs.Wrap(errs.StageClassify, err)
	}
	if c.Kind == filetype.Unsupported {
		return c, errs.Wrap(errs.StageClassify, c.Unsupported())
	}
	log.Info().Str("kind", c.Kind.String()).Str("ext", c.Extension.String()).Str("mime", c.Mime.String()).Msg("selected extractor")
	return c, nil
}

// extract runs the backend for c and returns the text path. Plain text is
// used where it lies.
func (a *App) extract(ctx context.Context, src string, c filetype.Classification) (string, error) {
	if c.Kind == filetype.PlainText {
		return src, nil
	}
	opts := extract.Options{WhisperLanguage: a.cfg.WhisperLanguage, Runner: a.runner}
	if c.Kind == filetype.Whisper {
		p, err := validate.WhisperModelPathFromEnv()
		if err != nil {
			return "", errs.Wrap(errs.StageExtract, err)
		}
		opts.WhisperModelPath = p
	}
	ex, err := extract.New(c.Kind, opts)
	if err != nil {
		return "", errs.Wrap(errs.StageExtract, err)
	}
	dir, err := a.workDir.Ensure()
	if err != nil {
		return "", errs.Wrap(errs.StageExtract, err)
	}
	out, err := ex.Extract(ctx, extract.Request{
		ContentPath: src,
		Extension:   c.Extension,
		Mime:        c.Mime,
		WorkDir:     dir,
		Progress:    a.progress,
	})
	if err != nil {
		return "", errs.Wrap(errs.StageExtract, err)
	}
	a.progress.Update("Extraction completed.")
	return out, nil
}

func (a *App) summarize(ctx context.Context, textPath string) error {
	b, err := os.ReadFile(textPath)
	if err != nil {
		return errs.Wrap(errs.StageSummarize, errs.Join(errs.ErrIO, "read extracted text", err))
	}
	s := &summarize.Summarizer{
		Client:   a.ai,
		Model:    a.cfg.LLMModel,
		Cache:    a.llmCache,
		Language: a.cfg.Language,
	}
	if p := a.cfg.SystemTemplatePath; p != "" {
		if s.SystemTemplate, err = summarize.LoadTemplate(p); err != nil {
			return errs.Wrap(errs.StageSummarize, err)
		}
	}
	if p := a.cfg.UserTemplatePath; p != "" {
		if s.UserTemplate, err = summarize.LoadTemplate(p); err != nil {
			return errs.Wrap(errs.StageSummarize, err)
		}
	}

	a.progress.Update(fmt.Sprintf("Summarizing with %s...", a.cfg.LLMModel))
	summary, err := s.Summarize(ctx, string(b))
	if err != nil {
		return errs.Wrap(errs.StageSummarize, err)
	}
	log.Debug().Int("chars", len([]rune(summary))).Msg("received summary")
	a.progress.Update("Summarization completed.")

	if err := writeOut(a.cfg.OutputPath, []byte(summary)); err != nil {
		return errs.Wrap(errs.StageOutput, err)
	}
	log.Info().Str("out", a.cfg.OutputPath).Msg("wrote summary")
	if a.cfg.OutputPDFPath != "" {
		if err := writeSummaryPDF(pdfTitle(a.cfg.Input), summary, a.cfg.OutputPDFPath); err != nil {
			return errs.Wrap(errs.StageOutput, errs.Join(errs.ErrIO, "write summary pdf", err))
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote summary pdf")
	}
	return nil
}

func pdfTitle(input string) string {
	if scheme.Detect(input) == scheme.HTTP {
		return input
	}
	return filepath.Base(scheme.LocalPath(input))
}

// createOut opens path for writing, creating parent directories. An
// existing file is never overwritten.
func createOut(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Join(errs.ErrIO, "create output directory", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errs.Join(errs.ErrIO, fmt.Sprintf("output %q already exists", path), err)
		}
		return nil, errs.Join(errs.ErrIO, "create output", err)
	}
	return f, nil
}

func writeOut(path string, data []byte) error {
	f, err := createOut(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errs.Join(errs.ErrIO, "write output", err)
	}
	if err := f.Close(); err != nil {
		return errs.Join(errs.ErrIO, "close output", err)
	}
	return nil
}

// copyOut copies src to dst byte for byte.
func copyOut(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Join(errs.ErrIO, "open extracted text", err)
	}
	defer in.Close()
	out, err := createOut(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errs.Join(errs.ErrIO, "copy extracted text", err)
	}
	if err := out.Close(); err != nil {
		return errs.Join(errs.ErrIO, "close output", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/nosy/internal/app"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/filetype"
	"github.com/hyperifyio/nosy/internal/llm"
	"github.com/hyperifyio/nosy/internal/progress"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ev := log.Error().Err(err)
		if st, ok := errs.StageOf(err); ok {
			ev = ev.Str("stage", string(st))
		}
		ev.Msg("run failed")
		if zerolog.GlobalLevel() == zerolog.Disabled {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := newRunCmd("nosy <input>", app.ModeSummarize)
	root.Short = "Summarize or extract text from local files and URLs"
	root.Long = `nosy fetches an input (a local path or an http(s) URL), detects its content
type, extracts plain UTF-8 text and either writes that text out (extract) or
asks a language model for a summary (summarize, the default).`
	root.Version = app.VersionString()
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: off, error, warn, info, debug, trace")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setLogLevel(logLevel)
	}
	_ = root.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"off", "error", "warn", "info", "debug", "trace"}, cobra.ShellCompDirectiveNoFileComp))

	extract := newRunCmd("extract <input>", app.ModeExtract)
	extract.Aliases = []string{"ext"}
	extract.Short = "Extract fetched content to text for LLM consumption"

	summarize := newRunCmd("summarize <input>", app.ModeSummarize)
	summarize.Aliases = []string{"recap"}
	summarize.Short = "Summarize content using an LLM"

	root.AddCommand(extract, summarize, newCompletionCmd(root), newDownloadWhisperCmd())
	return root
}

func setLogLevel(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "", "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	default:
		return fmt.Errorf("invalid log level %q (valid: off, error, warn, info, debug, trace)", s)
	}
	return nil
}

// options collects what one pipeline command parsed from its flags.
type options struct {
	cfg        app.Config
	configPath string
	envFiles   []string
}

func newRunCmd(use string, mode app.Mode) *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:  use,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cfg.Input = args[0]
			o.cfg.Mode = mode
			cfg, err := o.resolve()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.cfg.OutputPath, "out", "o", "", "Output file path; must not exist yet")
	f.StringVarP(&o.cfg.WorkDir, "workdir", "w", "", "Working directory for temporary files (default <tmp>/nosy/<uuid>)")
	f.StringVar(&o.cfg.ExtKind, "ext-kind", "", "Force extractor kind: "+strings.Join(filetype.KindNames(), ", "))
	f.StringVar(&o.cfg.HTTPFetchMode, "http-fetch-mode", "", "How to fetch http(s) inputs: get or headless (default get)")
	f.DurationVar(&o.cfg.HTTPTimeout, "http-timeout", 0, "Timeout for each HTTP exchange (default 1m)")
	f.StringVar(&o.cfg.UserAgent, "user-agent", "", "User-Agent for fetches")
	f.BoolVar(&o.cfg.InsecureTLS, "insecure", false, "Skip TLS certificate verification")
	f.StringVar(&o.cfg.WhisperLanguage, "whisper-lang", "", "Spoken language code for audio transcription (default auto-detect)")
	f.BoolVar(&o.cfg.NoProgress, "no-progress", false, "Disable the progress spinner")
	f.StringVar(&o.cfg.CacheDir, "cache-dir", "", "Cache directory for HTTP bodies and LLM responses (disabled when empty)")
	f.DurationVar(&o.cfg.CacheMaxAge, "cache-max-age", 0, "Purge cache entries older than this before the run; 0 disables")
	f.BoolVar(&o.cfg.CacheClear, "cache-clear", false, "Clear the cache directory before the run")
	f.BoolVar(&o.cfg.CacheStrictPerms, "cache-strict-perms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	f.StringVar(&o.configPath, "config", "", "YAML or JSON config file")
	f.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.RegisterFlagCompletionFunc("ext-kind", cobra.FixedCompletions(filetype.KindNames(), cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("http-fetch-mode", cobra.FixedCompletions([]string{"get", "headless"}, cobra.ShellCompDirectiveNoFileComp))

	if mode == app.ModeSummarize {
		f.StringVar(&o.cfg.Provider, "provider", "", "LLM provider preset: "+strings.Join(llm.ProviderNames(), ", ")+" (default openai)")
		f.StringVar(&o.cfg.LLMModel, "model", "", "LLM model identifier (or LLM_MODEL)")
		f.StringVar(&o.cfg.LLMBaseURL, "llm-base-url", "", "OpenAI-compatible base URL; overrides the provider preset")
		f.StringVar(&o.cfg.LLMAPIKey, "llm-key", "", "API key; defaults to LLM_API_KEY or the provider's key variable")
		f.StringVar(&o.cfg.Language, "lang", "", "Language for the summary (default English)")
		f.StringVar(&o.cfg.SystemTemplatePath, "system-template", "", "Path to the system message template (default built-in)")
		f.StringVar(&o.cfg.UserTemplatePath, "user-template", "", "Path to the user message template (default built-in)")
		f.StringVar(&o.cfg.OutputPDFPath, "pdf-out", "", "Also render the summary to this PDF file")
		_ = cmd.RegisterFlagCompletionFunc("provider", cobra.FixedCompletions(llm.ProviderNames(), cobra.ShellCompDirectiveNoFileComp))
	}
	return cmd
}

// resolve layers flags over env over the config file, fills defaults and
// validates the result.
func (o *options) resolve() (app.Config, error) {
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := o.cfg
	app.ApplyEnvToConfig(&cfg)
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, err
		}
	}
	app.ApplyDefaults(&cfg)
	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg app.Config) error {
	sink, stop := progress.ForStderr(!cfg.NoProgress)
	defer stop()

	a, err := app.New(ctx, cfg, sink)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "completion <bash|zsh|fish|powershell>",
		Aliases:               []string{"comp"},
		Short:                 "Generate shell completion script for the specified shell",
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

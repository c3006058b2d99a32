package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofiscal/internal/app"
	"github.com/hyperifyio/gofiscal/internal/browse"
	"github.com/hyperifyio/gofiscal/internal/convert"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		url         string
		inputPath   string
		outputPath  string
		outputPDF   string
		dumpHTML    string
		configPath  string
		browserPath string
		headful     bool
		userAgent   string
		timeout     time.Duration
		dynamicWait time.Duration
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&url, "url", "", "Fiscal-receipt verification URL to resolve")
	flag.StringVar(&inputPath, "input", "", "Path to a pre-rendered HTML file (offline mode, skips the browser)")
	flag.StringVar(&outputPath, "output", app.OutputDefault, "Path to write the converted receipt JSON")
	flag.StringVar(&outputPDF, "output.pdf", "", "Optional path to write a human-readable PDF of the receipt")
	flag.StringVar(&dumpHTML, "dump.html", "", "Optional path to dump the rendered page HTML")
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.StringVar(&browserPath, "browser.path", "", "Path to the Chrome/Chromium binary (default: auto-discover)")
	flag.BoolVar(&headful, "browser.headful", false, "Run the browser with a visible window")
	flag.StringVar(&userAgent, "browser.ua", "", "Custom User-Agent for the browser session")
	flag.DurationVar(&timeout, "timeout", app.TimeoutDefault, "Overall render budget per attempt")
	flag.DurationVar(&dynamicWait, "wait.dynamic", 0, "Budget for dynamic-content waits within the render (0 uses the built-in default)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("gofiscal %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		URL:           url,
		InputPath:     inputPath,
		OutputPath:    outputPath,
		OutputPDFPath: outputPDF,
		DumpHTMLPath:  dumpHTML,
		BrowserPath:   browserPath,
		Headful:       headful,
		UserAgent:     userAgent,
		Timeout:       timeout,
		DynamicWait:   dynamicWait,
		Verbose:       verbose,
	}

	app.ApplyEnvToConfig(&cfg)

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
		if cfg.Verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// Exit code policy: 2 for pipeline failures (render timeout,
		// navigation, reconciliation), 1 for everything else.
		var nav *browse.NavigationError
		var rec *convert.ReconciliationError
		if errors.Is(err, browse.ErrRenderTimeout) || errors.As(err, &nav) || errors.As(err, &rec) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg).Run(ctx)
}

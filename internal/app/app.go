package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofiscal/internal/browse"
	"github.com/hyperifyio/gofiscal/internal/convert"
	"github.com/hyperifyio/gofiscal/internal/numfmt"
	"github.com/hyperifyio/gofiscal/internal/receipt"
	"github.com/hyperifyio/gofiscal/internal/scrape"
)

// App runs the extraction-and-conversion pipeline for one receipt.
type App struct {
	cfg Config
}

func New(cfg Config) *App {
	return &App{cfg: cfg}
}

// Diagnostics carries the non-fatal observations of one call: which
// strategy found the items, whether rendering or extraction degraded, and
// every numeric field that defaulted to zero.
type Diagnostics struct {
	// Strategy names the extraction strategy that produced the items;
	// empty when none did and a placeholder item was synthesized.
	Strategy string
	// ExtractionEmpty is set when no scalar field was found in the page.
	ExtractionEmpty bool
	// RenderDegraded is set when the browser captured best-effort
	// partial HTML; RenderNotes name the failed sub-steps.
	RenderDegraded bool
	RenderNotes    []string
	// Warnings lists numeric fields that defaulted to zero.
	Warnings []numfmt.Warning
}

// ExtractAndConvert is the single programmatic entry point: it resolves
// one verification URL into a converted, validated fiscal document within
// the given budget. Each call owns its own browser session and makes one
// deterministic attempt; there are no retries and no caching.
func ExtractAndConvert(ctx context.Context, url string, budget time.Duration, bopts browse.Options) (*convert.FiscalDocument, Diagnostics, error) {
	bopts.Timeout = budget
	rendered, err := browse.Render(ctx, url, bopts)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	diag := Diagnostics{RenderDegraded: rendered.Degraded, RenderNotes: rendered.Notes}
	return convertHTML([]byte(rendered.HTML), diag)
}

// convertHTML runs extraction, assembly, conversion and validation over
// rendered HTML. Extraction never fails; only reconciliation can.
func convertHTML(html []byte, diag Diagnostics) (*convert.FiscalDocument, Diagnostics, error) {
	res := scrape.Parse(html)
	diag.Strategy = res.Strategy
	diag.ExtractionEmpty = res.Degraded
	diag.Warnings = res.Warnings

	if res.Degraded {
		log.Warn().Msg("no scalar fields found; continuing with a degraded receipt")
	}
	for _, w := range res.Warnings {
		log.Warn().Str("input", w.Input).Msg("numeric field defaulted to zero")
	}

	src := receipt.Assemble(res.Fields, res.Items)
	log.Info().
		Str("tin", src.TIN).
		Str("shop", src.ShopName).
		Str("total", src.TotalAmount.String()).
		Int("items", len(src.Items)).
		Str("strategy", res.Strategy).
		Msg("receipt extracted")

	doc, err := convert.Convert(src)
	if err != nil {
		return nil, diag, err
	}
	return doc, diag, nil
}

// Run executes one conversion using the configured source (URL or offline
// HTML file) and writes the requested artifacts.
func (a *App) Run(ctx context.Context) error {
	doc, diag, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	if diag.RenderDegraded {
		log.Warn().Strs("steps", diag.RenderNotes).Msg("page rendered partially")
	}

	if err := writeDocumentJSON(doc, a.cfg.OutputPath); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", a.cfg.OutputPath).Str("id", doc.ID).Msg("wrote converted receipt")

	if a.cfg.OutputPDFPath != "" {
		if err := writeReceiptPDF(doc, a.cfg.OutputPDFPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote receipt PDF")
	}
	return nil
}

func (a *App) resolve(ctx context.Context) (*convert.FiscalDocument, Diagnostics, error) {
	if a.cfg.InputPath != "" {
		return a.resolveOffline()
	}

	timeout := a.cfg.Timeout
	if timeout <= 0 {
		timeout = TimeoutDefault
	}
	bopts := browse.Options{
		Headless:    !a.cfg.Headful,
		ExecPath:    a.cfg.BrowserPath,
		UserAgent:   a.cfg.UserAgent,
		DynamicWait: a.cfg.DynamicWait,
		Timeout:     timeout,
	}
	rendered, err := browse.Render(ctx, a.cfg.URL, bopts)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	if a.cfg.DumpHTMLPath != "" {
		if werr := os.WriteFile(a.cfg.DumpHTMLPath, []byte(rendered.HTML), 0o644); werr != nil {
			log.Warn().Err(werr).Str("path", a.cfg.DumpHTMLPath).Msg("could not dump rendered HTML")
		}
	}
	diag := Diagnostics{RenderDegraded: rendered.Degraded, RenderNotes: rendered.Notes}
	return convertHTML([]byte(rendered.HTML), diag)
}

// resolveOffline feeds a pre-rendered HTML file through the same
// pipeline, decoding legacy charsets on the way in.
func (a *App) resolveOffline() (*convert.FiscalDocument, Diagnostics, error) {
	f, err := os.Open(a.cfg.InputPath)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("read input: %w", err)
	}
	defer f.Close()

	res, err := scrape.ParseReader(f)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("decode input: %w", err)
	}
	diag := Diagnostics{
		Strategy:        res.Strategy,
		ExtractionEmpty: res.Degraded,
		Warnings:        res.Warnings,
	}
	src := receipt.Assemble(res.Fields, res.Items)
	doc, err := convert.Convert(src)
	if err != nil {
		return nil, diag, err
	}
	return doc, diag, nil
}

// writeDocumentJSON marshals the document the way the downstream consumer
// reads it: a single-element array.
func writeDocumentJSON(doc *convert.FiscalDocument, path string) error {
	data, err := json.MarshalIndent([]*convert.FiscalDocument{doc}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

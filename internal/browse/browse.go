// Package browse renders a receipt verification URL in a headless
// browser. The page is JavaScript-driven (Knockout bindings populate the
// fields), so a plain HTTP fetch would only see the empty template.
//
// Every Render call owns one exclusive browser session for its full
// duration; sessions are never shared or reused, so concurrent calls
// cannot bleed state into each other. The session is released on every
// exit path via deferred cancels. The caller's budget is the only
// cancellation mechanism: there is no mid-render cancel and no retry.
package browse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrRenderTimeout reports that the page did not become ready within the
// overall call budget. Fatal to the call; retrying is the caller's
// decision.
var ErrRenderTimeout = errors.New("browse: render timeout")

// NavigationError reports a network/DNS/HTTP-level failure reaching the
// URL, including rejected URL schemes. Fatal to the call.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("browse: navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Options configures one render call.
type Options struct {
	// Headless toggles the browser UI; on by default from the CLI.
	Headless bool
	// ExecPath points at a specific browser binary, e.g.
	// /usr/bin/chromium in containers. Empty means auto-discovery.
	ExecPath string
	// UserAgent overrides the default agent string.
	UserAgent string
	// Timeout bounds the whole call. Zero defers to the caller context.
	Timeout time.Duration
	// DynamicWait is the separate, shorter ceiling for dynamic-content
	// sub-steps (spinner, item rows). Defaults to 15s.
	DynamicWait time.Duration
}

const (
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultDynamicWait = 15 * time.Second
	rowWait            = 5 * time.Second
	expandAnimation    = 250 * time.Millisecond
	settleWait         = 500 * time.Millisecond
)

func (o Options) userAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return defaultUserAgent
}

func (o Options) dynamicWait() time.Duration {
	if o.DynamicWait > 0 {
		return o.DynamicWait
	}
	return defaultDynamicWait
}

// Result is the rendered page. Degraded marks best-effort HTML captured
// after one or more sub-steps (spinner wait, panel expand, row wait)
// failed; Notes say which.
type Result struct {
	HTML     string
	Degraded bool
	Notes    []string
}

// itemRowSelectors is the ordered ladder used to wait for line-item rows,
// most specific (Knockout binding) first.
var itemRowSelectors = []string{
	"tbody[data-bind*='Specifications'] tr",
	"table.invoice-table tbody tr",
	"table tbody tr",
	"tbody tr",
	"table tr",
}

// expandSpecsJS opens the collapsible line-items panel idempotently: it
// inspects the expanded state before clicking, so a panel the page opened
// by itself is never toggled shut again.
const expandSpecsJS = `(function () {
	var panel = document.querySelector('#collapse-specs');
	if (!panel) { return 'absent'; }
	if ((panel.className || '').indexOf('show') !== -1) { return 'already-open'; }
	var toggle = document.querySelector("a[href='#collapse-specs']");
	if (!toggle) { return 'no-toggle'; }
	toggle.click();
	return 'opened';
})()`

// Render loads the URL in a fresh headless browser session and returns
// the post-JavaScript HTML. Sub-step failures degrade the result instead
// of aborting; only navigation failures and the overall budget are fatal.
func Render(ctx context.Context, rawURL string, opts Options) (Result, error) {
	if err := checkScheme(rawURL); err != nil {
		return Result{}, &NavigationError{URL: rawURL, Err: err}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(rawURL)); err != nil {
		if budgetExpired(ctx) {
			return Result{}, fmt.Errorf("%w: %s", ErrRenderTimeout, rawURL)
		}
		return Result{}, &NavigationError{URL: rawURL, Err: err}
	}

	var res Result
	degrade := func(note string, err error) {
		res.Degraded = true
		res.Notes = append(res.Notes, note)
		log.Warn().Err(err).Str("url", rawURL).Str("step", note).Msg("render step failed; continuing with partial page")
	}

	// The portal shows a spinner until Knockout has applied its bindings.
	if err := runBounded(tabCtx, opts.dynamicWait(),
		chromedp.WaitNotVisible(".sk-spinner", chromedp.ByQuery)); err != nil {
		if budgetExpired(ctx) {
			return Result{}, fmt.Errorf("%w: %s", ErrRenderTimeout, rawURL)
		}
		degrade("spinner-wait", err)
	}

	var panelState string
	if err := runBounded(tabCtx, opts.dynamicWait(),
		chromedp.Evaluate(expandSpecsJS, &panelState)); err != nil {
		if budgetExpired(ctx) {
			return Result{}, fmt.Errorf("%w: %s", ErrRenderTimeout, rawURL)
		}
		degrade("expand-items-panel", err)
	} else if panelState == "opened" {
		// Let the collapse animation finish before rows are queried.
		_ = chromedp.Run(tabCtx, chromedp.Sleep(expandAnimation))
	}
	log.Debug().Str("panel", panelState).Msg("line-items panel state")

	rowsFound := false
	for _, sel := range itemRowSelectors {
		if err := runBounded(tabCtx, rowWait, chromedp.WaitReady(sel, chromedp.ByQuery)); err == nil {
			log.Debug().Str("selector", sel).Msg("item rows present")
			rowsFound = true
			break
		}
		if budgetExpired(ctx) {
			return Result{}, fmt.Errorf("%w: %s", ErrRenderTimeout, rawURL)
		}
	}
	if !rowsFound {
		degrade("item-rows-wait", nil)
	}

	// Small settle pause: bound rows can still be filling in.
	_ = chromedp.Run(tabCtx, chromedp.Sleep(settleWait))

	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &res.HTML, chromedp.ByQuery)); err != nil {
		if budgetExpired(ctx) {
			return Result{}, fmt.Errorf("%w: %s", ErrRenderTimeout, rawURL)
		}
		return Result{}, &NavigationError{URL: rawURL, Err: fmt.Errorf("read page content: %w", err)}
	}
	return res, nil
}

// runBounded executes actions against the session with a sub-step
// deadline. The derived context cancels the action only, not the session.
func runBounded(tabCtx context.Context, d time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(tabCtx, d)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// budgetExpired reports whether the overall call budget is gone, as
// opposed to a sub-step deadline.
func budgetExpired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled)
}

func checkScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	return nil
}

// allocatorOptions builds the per-call browser flags. The set follows the
// portal's needs: JavaScript stays on for the bindings, images and
// background work are disabled for speed.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(opts.userAgent()),
	)
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	return out
}

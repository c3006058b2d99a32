package app

import "time"

// Config holds runtime configuration for one conversion run.
type Config struct {
	// URL is the fiscal-receipt verification URL to resolve.
	URL string
	// InputPath feeds a pre-rendered HTML file through the pipeline
	// instead of a browser session (offline mode).
	InputPath string

	// Artifacts
	OutputPath    string
	OutputPDFPath string
	DumpHTMLPath  string

	// Browser
	BrowserPath string
	Headful     bool
	UserAgent   string

	// Budgets
	Timeout     time.Duration
	DynamicWait time.Duration

	Verbose bool
}

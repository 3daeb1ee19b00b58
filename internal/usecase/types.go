package usecase

import (
	"context"

	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/domain"
	"resume-pdf-export/internal/policy"
)

// Launcher starts one browser process per call.
type Launcher interface {
	Launch(ctx context.Context, job *domain.RenderJob) (Browser, error)
}

// Browser is a launched browser process exclusively owned by one export.
type Browser interface {
	OpenPage(ctx context.Context, opts PageOptions) (Page, error)
	// Connected reports whether the browser still answers on its control
	// connection.
	Connected() bool
	// Close asks the browser to shut down over its control connection.
	Close(ctx context.Context) error
	// Release terminates and reaps the process if it is still running and
	// removes its temporary profile. It is idempotent and safe after Close.
	Release()
}

// PageOptions configures a new tab.
type PageOptions struct {
	Viewport config.Viewport
	Policy   *policy.Policy
}

// Response is the main document response of a navigation. Status is zero when
// the browser never received one.
type Response struct {
	URL        string
	Status     int
	StatusText string
}

// Page is one tab of a Browser.
type Page interface {
	// Navigate loads url and waits until the network is substantially idle.
	Navigate(ctx context.Context, url string) (Response, error)
	// WaitVisible waits for selector to match a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// WaitAttribute waits for <body> to carry attr="value".
	WaitAttribute(ctx context.Context, attr, value string) error
	// BodySnapshot returns at most limit characters of the body markup.
	BodySnapshot(ctx context.Context, limit int) (string, error)
	PrintPDF(ctx context.Context, opts domain.PrintOptions) ([]byte, error)
}

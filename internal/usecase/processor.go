package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/domain"
	"resume-pdf-export/internal/observability"
	"resume-pdf-export/internal/policy"
	"resume-pdf-export/pkg/pdfdoc"

	"go.opentelemetry.io/otel/codes"
)

const snapshotTimeout = 5 * time.Second

// Processor turns a RenderJob into a PDFArtifact. Every call launches its own
// browser and releases it before returning; nothing is shared between calls.
type Processor struct {
	launcher Launcher
	cfg      *config.Config
	policy   *policy.Policy
	logger   *slog.Logger
}

func NewProcessor(l Launcher, cfg *config.Config, p *policy.Policy, logger *slog.Logger) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}
	if p == nil {
		p = policy.Default()
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Processor{launcher: l, cfg: cfg, policy: p, logger: logger}
}

// Process runs the export. Any returned error is an *ExportError.
//
// The browser is released on every exit path: success, a fatal export error,
// or a panic anywhere in the pipeline. Cleanup problems are logged and never
// replace the error reported to the caller.
func (p *Processor) Process(ctx context.Context, job *domain.RenderJob) (artifact *domain.PDFArtifact, err error) {
	log := p.logger.With("request_id", job.ID.String(), "task_id", job.Request.TaskID)
	ctx, span := observability.StartSpan(ctx, "export",
		observability.AttrRequestID.String(job.ID.String()),
		observability.AttrTaskID.String(job.Request.TaskID))
	defer span.End()

	m := newMachine(ctx, log)
	var browser Browser

	defer func() {
		r := recover()
		if r != nil {
			log.Error("export panicked", "panic", r, "stack", string(debug.Stack()))
			artifact = nil
			err = &ExportError{
				Kind:    KindUnexpected,
				Message: fmt.Sprintf("unexpected failure while %s", m.State()),
				Err:     fmt.Errorf("panic: %v", r),
			}
		}

		m.cleaning(r != nil)
		p.release(browser, log)
		m.finish(err)

		elapsed := time.Since(job.StartedAt)
		if err != nil {
			ee := AsExportError(err)
			err = ee
			span.RecordError(ee)
			span.SetStatus(codes.Error, ee.Message)
			span.SetAttributes(observability.AttrErrorKind.String(string(ee.Kind)))
			observability.ObserveExport("failed", string(ee.Kind), elapsed)
			log.Error("export failed",
				"kind", ee.Kind,
				"message", ee.Message,
				"type", ee.NativeType(),
				"error", ee.Err,
				"elapsed", elapsed)
			return
		}
		observability.ObserveExport("succeeded", "", elapsed)
		log.Info("export succeeded", "bytes", artifact.Size(), "pages", artifact.Pages, "elapsed", elapsed)
	}()

	log.Info("export started", "render_url", job.Request.RenderURL)

	m.enter(StateLaunching)
	browser, err = p.acquireBrowser(ctx, job)
	if err != nil {
		return nil, err
	}

	m.enter(StatePageOpening)
	page, err := p.openPage(ctx, browser)
	if err != nil {
		return nil, err
	}

	m.enter(StateNavigating)
	if err = p.navigate(ctx, page, job.Request.RenderURL, log); err != nil {
		return nil, err
	}

	m.enter(StateAwaitingMarker)
	if err = p.awaitMarker(ctx, page, log); err != nil {
		return nil, err
	}

	m.enter(StateAwaitingReadyFlag)
	p.awaitReadyFlag(ctx, page, log)

	m.enter(StateSettling)
	if err = p.settle(ctx); err != nil {
		return nil, err
	}

	m.enter(StateRendering)
	return p.renderPDF(ctx, page, job, log)
}

func (p *Processor) acquireBrowser(ctx context.Context, job *domain.RenderJob) (Browser, error) {
	b, err := p.launcher.Launch(ctx, job)
	if err != nil {
		return nil, newExportError(KindLaunch, err, "failed to launch browser")
	}
	return b, nil
}

func (p *Processor) openPage(ctx context.Context, b Browser) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PageTimeout)
	defer cancel()
	page, err := b.OpenPage(ctx, PageOptions{Viewport: p.cfg.Viewport, Policy: p.policy})
	if err != nil {
		return nil, newExportError(KindRender, err, "failed to open browser page")
	}
	return page, nil
}

// navigate is phase A: load the page until the network is substantially idle
// and check the document response.
func (p *Processor) navigate(ctx context.Context, page Page, url string, log *slog.Logger) error {
	timeout := p.cfg.Readiness.NavigationTimeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := page.Navigate(ctx, url)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newExportError(KindNavigation, err, "navigation timed out after %s", timeout)
	case err != nil:
		return newExportError(KindNavigation, err, "navigation failed")
	case resp.Status == 0:
		return newExportError(KindNavigation, nil, "no response received from render target")
	case resp.Status >= 400:
		return newExportError(KindNavigation, nil, "render target responded with HTTP %d %s", resp.Status, resp.StatusText)
	}
	log.Info("page loaded", "status", resp.Status, "url", resp.URL)
	return nil
}

// awaitMarker is phase B1. A missing marker is fatal; the body snapshot taken
// on failure goes into the error detail.
func (p *Processor) awaitMarker(ctx context.Context, page Page, log *slog.Logger) error {
	rd := p.cfg.Readiness
	waitCtx, cancel := context.WithTimeout(ctx, rd.MarkerTimeout)
	defer cancel()

	err := page.WaitVisible(waitCtx, rd.MarkerSelector)
	if err == nil {
		log.Debug("marker visible", "selector", rd.MarkerSelector)
		return nil
	}

	snapCtx, snapCancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer snapCancel()
	snapshot, snapErr := page.BodySnapshot(snapCtx, rd.SnapshotLimit)
	if snapErr != nil {
		log.Warn("body snapshot failed", "error", snapErr)
	}
	log.Error("marker element never became visible",
		"selector", rd.MarkerSelector,
		"timeout", rd.MarkerTimeout,
		"body_snapshot", snapshot)

	ee := newExportError(KindContentNotRendered, err,
		"marker %q did not become visible within %s", rd.MarkerSelector, rd.MarkerTimeout)
	ee.Detail = snapshot
	return ee
}

// awaitReadyFlag is phase B2. It never fails the export: a page that did not
// announce completion is still rendered.
func (p *Processor) awaitReadyFlag(ctx context.Context, page Page, log *slog.Logger) {
	rd := p.cfg.Readiness
	ctx, cancel := context.WithTimeout(ctx, rd.ReadyTimeout)
	defer cancel()

	if err := page.WaitAttribute(ctx, rd.ReadyAttribute, "true"); err != nil {
		observability.SoftFailure(string(KindReadyFlagTimeout))
		log.Warn("ready flag not set, rendering anyway",
			"kind", KindReadyFlagTimeout,
			"attribute", rd.ReadyAttribute,
			"timeout", rd.ReadyTimeout,
			"error", err)
		return
	}
	log.Debug("ready flag set", "attribute", rd.ReadyAttribute)
}

// settle gives trailing style, image and font work a moment to flush.
func (p *Processor) settle(ctx context.Context) error {
	d := p.cfg.Readiness.SettleDelay
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return newExportError(KindRender, ctx.Err(), "export cancelled before rendering")
	}
}

func (p *Processor) renderPDF(ctx context.Context, page Page, job *domain.RenderJob, log *slog.Logger) (*domain.PDFArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	opts := domain.DefaultPrintOptions()
	data, err := page.PrintPDF(ctx, opts)
	if err != nil {
		return nil, newExportError(KindRender, err, "PDF generation failed")
	}
	if !pdfdoc.HasMagic(data) {
		return nil, newExportError(KindRender, pdfdoc.ErrNotPDF, "browser returned %d bytes that are not a PDF", len(data))
	}

	artifact := &domain.PDFArtifact{TaskID: job.Request.TaskID, Data: data, Options: opts}
	if info, err := pdfdoc.Inspect(data); err != nil {
		log.Warn("could not inspect rendered PDF", "error", err)
	} else {
		artifact.Pages = info.Pages
	}
	return artifact, nil
}

// release closes and reaps the browser. It never returns an error: a failed
// close is a CleanupFailure, which is only logged.
func (p *Processor) release(b Browser, log *slog.Logger) {
	if b == nil {
		return
	}
	defer b.Release()

	if !b.Connected() {
		log.Warn("browser already disconnected, skipping close")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CloseTimeout)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		observability.SoftFailure(string(KindCleanup))
		log.Warn("browser close failed", "kind", KindCleanup, "error", err)
		return
	}
	log.Debug("browser closed")
}

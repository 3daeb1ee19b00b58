package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/domain"
	"resume-pdf-export/internal/observability"
	"resume-pdf-export/internal/usecase"

	"github.com/chromedp/chromedp"
)

// ChromeLauncher starts a dedicated headless Chromium for every export.
type ChromeLauncher struct {
	cfg    config.Browser
	logger *slog.Logger
}

func NewChromeLauncher(cfg config.Browser, logger *slog.Logger) *ChromeLauncher {
	if logger == nil {
		logger = observability.Discard()
	}
	return &ChromeLauncher{cfg: cfg, logger: logger}
}

func (l *ChromeLauncher) allocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if l.cfg.LaunchTimeout > 0 {
		opts = append(opts, chromedp.WSURLReadTimeout(l.cfg.LaunchTimeout))
	}
	return opts
}

// Launch resolves the executable, starts the process and waits for its
// DevTools endpoint, all within the configured launch timeout. That includes
// fetching a bundled Chromium.
func (l *ChromeLauncher) Launch(ctx context.Context, job *domain.RenderJob) (usecase.Browser, error) {
	log := l.logger.With("request_id", job.ID.String(), "task_id", job.Request.TaskID)

	launchCtx, cancel := context.WithTimeout(ctx, l.cfg.LaunchTimeout)
	defer cancel()
	started := time.Now()

	execPath, err := ResolveExecPath(launchCtx, l.cfg, log)
	if err != nil {
		return nil, err
	}

	// The process must outlive the launch deadline, so the allocator hangs off
	// a context that is only cancelled by Release.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions(execPath)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
	)

	if err := await(launchCtx, func() error { return chromedp.Run(browserCtx) }); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start %s: %w", execPath, err)
	}

	b := &chromeBrowser{
		ctx:           browserCtx,
		cancelBrowser: browserCancel,
		cancelAlloc:   allocCancel,
		log:           log,
		released:      make(chan struct{}),
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
		b.lost = c.Browser.LostConnection
		if proc := c.Browser.Process(); proc != nil {
			b.pid = proc.Pid
		}
	}
	observability.BrowserLaunched()
	go b.watchConnection()

	log.Info("browser launched", "exec_path", execPath, "pid", b.pid, "elapsed", time.Since(started))
	return b, nil
}

// chromeBrowser owns one browser process and its DevTools connection.
type chromeBrowser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	log           *slog.Logger
	pid           int

	lost        chan struct{}
	closing     atomic.Bool
	released    chan struct{}
	releaseOnce sync.Once
}

// watchConnection logs when the DevTools connection drops. It only observes;
// cleanup decisions are made from Connected.
func (b *chromeBrowser) watchConnection() {
	if b.lost == nil {
		return
	}
	select {
	case <-b.lost:
		if b.closing.Load() {
			b.log.Info("browser disconnected", "pid", b.pid)
		} else {
			b.log.Warn("browser disconnected unexpectedly", "pid", b.pid)
		}
	case <-b.released:
	}
}

func (b *chromeBrowser) Connected() bool {
	select {
	case <-b.released:
		return false
	default:
	}
	if b.lost == nil {
		return b.ctx.Err() == nil
	}
	select {
	case <-b.lost:
		return false
	default:
		return b.ctx.Err() == nil
	}
}

func (b *chromeBrowser) OpenPage(ctx context.Context, opts usecase.PageOptions) (usecase.Page, error) {
	p, err := openChromePage(ctx, b.ctx, opts, b.log)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close asks Chromium to shut down over DevTools and waits for it, up to ctx.
func (b *chromeBrowser) Close(ctx context.Context) error {
	b.closing.Store(true)
	if err := await(ctx, func() error { return chromedp.Cancel(b.ctx) }); err != nil {
		return fmt.Errorf("close browser (pid %d): %w", b.pid, err)
	}
	return nil
}

// Release kills the process if it is still running, waits for it and removes
// the temporary profile directory.
func (b *chromeBrowser) Release() {
	b.releaseOnce.Do(func() {
		b.closing.Store(true)
		b.cancelBrowser()
		b.cancelAlloc()
		close(b.released)
		observability.BrowserReleased()
		b.log.Debug("browser released", "pid", b.pid)
	})
}

// await runs fn on its own goroutine and stops waiting when ctx ends. The
// caller is responsible for cancelling whatever fn is blocked on.
func await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

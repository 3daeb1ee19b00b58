package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"resume-pdf-export/internal/policy"
	"resume-pdf-export/internal/usecase"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// chromePage is one tab with request interception and passive listeners
// installed. The tab lives as long as its browser; Release tears both down.
type chromePage struct {
	ctx    context.Context
	log    *slog.Logger
	policy *policy.Policy
	nav    *navTracker
}

func openChromePage(ctx context.Context, browserCtx context.Context, opts usecase.PageOptions, log *slog.Logger) (*chromePage, error) {
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	p := &chromePage{
		ctx:    tabCtx,
		log:    log,
		policy: opts.Policy,
		nav:    newNavTracker(),
	}
	chromedp.ListenTarget(tabCtx, p.dispatch)

	if err := await(ctx, func() error { return chromedp.Run(tabCtx) }); err != nil {
		tabCancel()
		return nil, fmt.Errorf("create tab: %w", err)
	}

	vp := opts.Viewport
	err := p.run(ctx,
		emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), vp.DeviceScale, false),
		network.Enable(),
		fetch.Enable(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		cdpruntime.Enable(),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("prepare tab: %w", err)
	}
	log.Debug("page opened", "viewport_width", vp.Width, "viewport_height", vp.Height, "device_scale", vp.DeviceScale)
	return p, nil
}

// run executes actions on the tab. They stop when either the tab or ctx ends;
// a ctx deadline is reported as the ctx error so callers can tell timeouts
// apart from protocol failures.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// dispatch routes target events to the named handlers. It runs on chromedp's
// event goroutine and must not block.
func (p *chromePage) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		p.onRequestPaused(e)
	case *cdpruntime.EventConsoleAPICalled:
		p.onConsoleAPICalled(e)
	case *cdpruntime.EventExceptionThrown:
		p.onExceptionThrown(e)
	case *network.EventResponseReceived:
		p.onResponseReceived(e)
	case *page.EventLifecycleEvent:
		p.onLifecycleEvent(e)
	}
}

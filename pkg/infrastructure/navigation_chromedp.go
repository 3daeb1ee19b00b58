package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"resume-pdf-export/internal/usecase"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Chromium fires networkAlmostIdle once no more than two connections have been
// active for 500ms.
const lifecycleNetworkAlmostIdle = "networkAlmostIdle"

// ErrNavigation wraps the error text reported by Page.navigate.
var ErrNavigation = errors.New("navigation failed")

// navTracker collects lifecycle events and main document responses per
// loader, so a navigation can wait for an event that may already have fired.
type navTracker struct {
	mu        sync.Mutex
	events    map[cdp.LoaderID]map[string]bool
	responses map[cdp.LoaderID]usecase.Response
	frames    map[cdp.LoaderID]cdp.FrameID
	changed   chan struct{}
}

func newNavTracker() *navTracker {
	return &navTracker{
		events:    make(map[cdp.LoaderID]map[string]bool),
		responses: make(map[cdp.LoaderID]usecase.Response),
		frames:    make(map[cdp.LoaderID]cdp.FrameID),
		changed:   make(chan struct{}),
	}
}

// notify wakes every waiter. Callers hold mu.
func (t *navTracker) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *navTracker) lifecycle(loader cdp.LoaderID, name string) {
	if loader == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := t.events[loader]
	if seen == nil {
		seen = make(map[string]bool)
		t.events[loader] = seen
	}
	seen[name] = true
	t.notify()
}

// documentResponse records the latest document response of a loader. After
// redirects this is the final hop.
func (t *navTracker) documentResponse(loader cdp.LoaderID, frame cdp.FrameID, url string, status int, statusText string) {
	if loader == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[loader] = usecase.Response{URL: url, Status: status, StatusText: statusText}
	t.frames[loader] = frame
	t.notify()
}

// wait blocks until the named lifecycle event fired for loader within frame,
// then returns the loader's document response (zero if none arrived).
func (t *navTracker) wait(ctx context.Context, frame cdp.FrameID, loader cdp.LoaderID, name string) (usecase.Response, error) {
	for {
		t.mu.Lock()
		done := t.events[loader][name]
		resp := t.responses[loader]
		if f, ok := t.frames[loader]; ok && frame != "" && f != frame {
			resp = usecase.Response{}
		}
		changed := t.changed
		t.mu.Unlock()

		if done {
			return resp, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return resp, ctx.Err()
		}
	}
}

// Navigate loads url in the tab and waits until the network is almost idle.
func (p *chromePage) Navigate(ctx context.Context, url string) (usecase.Response, error) {
	var resp usecase.Response
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		frameID, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("%w: %s", ErrNavigation, errorText)
		}
		if loaderID == "" {
			// Same-document navigation: no new document, nothing to wait for.
			return nil
		}
		resp, err = p.nav.wait(ctx, frameID, loaderID, lifecycleNetworkAlmostIdle)
		return err
	}))
	return resp, err
}

// WaitVisible waits until selector matches an element that is rendered and
// visible.
func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// WaitAttribute waits until <body> carries attr with the given value.
func (p *chromePage) WaitAttribute(ctx context.Context, attr, value string) error {
	sel := "body[" + attr + "=" + strconv.Quote(value) + "]"
	return p.run(ctx, chromedp.WaitReady(sel, chromedp.ByQuery))
}

// BodySnapshot returns the first limit characters of the body markup.
func (p *chromePage) BodySnapshot(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		return "", nil
	}
	var html string
	expr := fmt.Sprintf(`(document.body ? document.body.innerHTML : "").slice(0, %d)`, limit)
	if err := p.run(ctx, chromedp.Evaluate(expr, &html)); err != nil {
		return "", err
	}
	return html, nil
}

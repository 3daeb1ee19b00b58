package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"resume-pdf-export/internal/observability"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const requestDecisionTimeout = 2 * time.Second

// onRequestPaused applies the interception policy. The Fetch command is sent
// from its own goroutine: issuing it on the event goroutine would deadlock.
func (p *chromePage) onRequestPaused(ev *fetch.EventRequestPaused) {
	d := p.policy.Decide(string(ev.ResourceType), ev.Request.URL)
	observability.RequestIntercepted(string(d.Action), d.Rule)

	go func() {
		ctx, cancel := context.WithTimeout(p.ctx, requestDecisionTimeout)
		defer cancel()
		c := chromedp.FromContext(ctx)
		if c == nil || c.Target == nil {
			return
		}
		exec := cdp.WithExecutor(ctx, c.Target)

		if d.Aborted() {
			p.log.Debug("request aborted", "url", ev.Request.URL, "resource_type", ev.ResourceType, "rule", d.Rule)
			if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonAborted).Do(exec); err != nil {
				p.log.Debug("abort request failed", "url", ev.Request.URL, "error", err)
			}
			return
		}
		if err := fetch.ContinueRequest(ev.RequestID).Do(exec); err != nil {
			// A paused request that is never answered hangs the page load.
			p.log.Debug("continue request failed, aborting it", "url", ev.Request.URL, "error", err)
			_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonAborted).Do(exec)
		}
	}()
}

func (p *chromePage) onConsoleAPICalled(ev *cdpruntime.EventConsoleAPICalled) {
	var level = p.log.Info
	switch ev.Type {
	case cdpruntime.APITypeError, cdpruntime.APITypeAssert:
		level = p.log.Warn
	case cdpruntime.APITypeWarning:
	default:
		return
	}
	msg := formatConsoleArgs(ev.Args)
	if msg == "" {
		return
	}
	level("page console", "type", string(ev.Type), "message", msg)
}

func (p *chromePage) onExceptionThrown(ev *cdpruntime.EventExceptionThrown) {
	d := ev.ExceptionDetails
	if d == nil {
		return
	}
	msg := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		msg = d.Exception.Description
	}
	p.log.Warn("uncaught page exception", "message", msg, "url", d.URL, "line", d.LineNumber, "column", d.ColumnNumber)
}

func (p *chromePage) onResponseReceived(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
		return
	}
	p.nav.documentResponse(ev.LoaderID, ev.FrameID, ev.Response.URL, int(ev.Response.Status), ev.Response.StatusText)
}

func (p *chromePage) onLifecycleEvent(ev *page.EventLifecycleEvent) {
	p.nav.lifecycle(ev.LoaderID, ev.Name)
}

// formatConsoleArgs renders console arguments the way devtools prints them:
// strings unquoted, primitives as JSON, objects by description.
func formatConsoleArgs(args []*cdpruntime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if s := formatConsoleArg(a); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func formatConsoleArg(arg *cdpruntime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		raw := string(arg.Value)
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
		if raw != "null" {
			return raw
		}
	}
	switch {
	case arg.UnserializableValue != "":
		return string(arg.UnserializableValue)
	case arg.Description != "":
		return arg.Description
	case arg.ClassName != "":
		return "[" + arg.ClassName + "]"
	case arg.Type != "":
		return "[" + string(arg.Type) + "]"
	}
	return ""
}

package infrastructure

import (
	"context"
	"testing"
	"time"

	"resume-pdf-export/internal/usecase"

	"github.com/chromedp/cdproto/cdp"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatConsoleArgs(t *testing.T) {
	args := []*cdpruntime.RemoteObject{
		{Type: cdpruntime.TypeString, Value: []byte(`"font failed:"`)},
		{Type: cdpruntime.TypeNumber, Value: []byte(`404`)},
		{Type: cdpruntime.TypeBoolean, Value: []byte(`true`)},
		{Type: cdpruntime.TypeNumber, UnserializableValue: "NaN"},
		{Type: cdpruntime.TypeObject, ClassName: "Error", Description: "Error: boom\n    at main.js:1"},
		{Type: cdpruntime.TypeObject, ClassName: "Object"},
		{Type: cdpruntime.TypeUndefined},
		nil,
	}
	got := formatConsoleArgs(args)
	assert.Equal(t, "font failed: 404 true NaN Error: boom\n    at main.js:1 [Object] [undefined]", got)
	assert.Equal(t, "", formatConsoleArgs(nil))
}

func TestNavTrackerEventBeforeWait(t *testing.T) {
	tr := newNavTracker()
	tr.documentResponse("L1", "F1", "http://x/print", 200, "OK")
	tr.lifecycle("L1", "DOMContentLoaded")
	tr.lifecycle("L1", lifecycleNetworkAlmostIdle)

	resp, err := tr.wait(context.Background(), "F1", "L1", lifecycleNetworkAlmostIdle)
	require.NoError(t, err)
	assert.Equal(t, usecase.Response{URL: "http://x/print", Status: 200, StatusText: "OK"}, resp)
}

func TestNavTrackerWaitThenEvent(t *testing.T) {
	tr := newNavTracker()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		tr.lifecycle("other", lifecycleNetworkAlmostIdle)
		tr.documentResponse("L2", "F1", "http://x/missing", 404, "Not Found")
		tr.lifecycle("L2", "load")
		tr.lifecycle("L2", lifecycleNetworkAlmostIdle)
	}()

	resp, err := tr.wait(ctx, "F1", "L2", lifecycleNetworkAlmostIdle)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestNavTrackerTimeout(t *testing.T) {
	tr := newNavTracker()
	tr.lifecycle("L1", "load")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := tr.wait(ctx, "F1", "L1", lifecycleNetworkAlmostIdle)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNavTrackerIgnoresOtherFrames(t *testing.T) {
	tr := newNavTracker()
	tr.documentResponse("L1", cdp.FrameID("iframe"), "http://ads/x", 200, "OK")
	tr.lifecycle("L1", lifecycleNetworkAlmostIdle)

	resp, err := tr.wait(context.Background(), "main", "L1", lifecycleNetworkAlmostIdle)
	require.NoError(t, err)
	assert.Zero(t, resp.Status)
}

func TestNavTrackerIgnoresEmptyLoader(t *testing.T) {
	tr := newNavTracker()
	tr.lifecycle("", lifecycleNetworkAlmostIdle)
	tr.documentResponse("", "F1", "http://x", 200, "OK")
	assert.Empty(t, tr.events)
	assert.Empty(t, tr.responses)
}

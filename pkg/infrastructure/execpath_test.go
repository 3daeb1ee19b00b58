package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	return p
}

func noLookPath() (string, bool) { return "", false }

func TestResolveOverrideWins(t *testing.T) {
	override := fakeBinary(t, "my-chrome")
	r := &execResolver{
		override:   override,
		candidates: []string{fakeBinary(t, "chromium")},
		lookPath:   func() (string, bool) { return "/usr/bin/on-path", true },
	}
	p, err := r.resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, override, p)
}

func TestResolveMissingOverrideFails(t *testing.T) {
	r := &execResolver{
		override:   filepath.Join(t.TempDir(), "nope"),
		candidates: []string{fakeBinary(t, "chromium")},
	}
	_, err := r.resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestResolveCandidatesInOrder(t *testing.T) {
	dir := t.TempDir()
	second := fakeBinary(t, "google-chrome")
	r := &execResolver{
		candidates: []string{filepath.Join(dir, "missing"), dir, second},
		lookPath:   noLookPath,
	}
	p, err := r.resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, p)
}

func TestResolveFallsBackToPath(t *testing.T) {
	r := &execResolver{lookPath: func() (string, bool) { return "/usr/local/bin/chromium", true }}
	p, err := r.resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/chromium", p)
}

func TestResolveDownload(t *testing.T) {
	calls := 0
	r := &execResolver{
		allowDownload: true,
		lookPath:      noLookPath,
		download: func(context.Context) (string, error) {
			calls++
			return "/cache/rod/chromium/chrome", nil
		},
	}
	p, err := r.resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/cache/rod/chromium/chrome", p)
	assert.Equal(t, 1, calls)
}

func TestResolveNothingFound(t *testing.T) {
	r := &execResolver{lookPath: noLookPath, download: func(context.Context) (string, error) {
		t.Fatal("download must not run when disabled")
		return "", nil
	}}
	_, err := r.resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrowserNotFound)
	assert.ErrorIs(t, err, exec.ErrNotFound)

	r.allowDownload = true
	r.download = func(context.Context) (string, error) { return "", errors.New("offline") }
	_, err = r.resolve(context.Background())
	assert.ErrorIs(t, err, ErrBrowserNotFound)
	assert.Contains(t, err.Error(), "offline")
}

func TestResolveDownloadStopsAtDeadline(t *testing.T) {
	slot := make(chan struct{}, 1)
	stalled := make(chan struct{})
	defer close(stalled)

	r := &execResolver{
		allowDownload: true,
		lookPath:      noLookPath,
		download: func(ctx context.Context) (string, error) {
			return downloadBundled(ctx, slot, func() (string, error) {
				<-stalled
				return "", errors.New("unreachable mirror")
			})
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := r.resolve(ctx)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.ErrorIs(t, err, ErrBrowserNotFound)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, slot, 1, "the stalled download still holds the slot")
}

func TestDownloadWaiterStopsAtDeadline(t *testing.T) {
	slot := make(chan struct{}, 1)
	slot <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := downloadBundled(ctx, slot, func() (string, error) {
		t.Error("download must not start while another one holds the slot")
		return "", nil
	})
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDownloadFreesSlotWhenDone(t *testing.T) {
	slot := make(chan struct{}, 1)
	stalled := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := downloadBundled(ctx, slot, func() (string, error) {
		<-stalled
		return "/cache/rod/chromium/chrome", nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(stalled)
	assert.Eventually(t, func() bool { return len(slot) == 0 }, time.Second, 5*time.Millisecond)

	p, err := downloadBundled(context.Background(), slot, func() (string, error) {
		return "/cache/rod/chromium/chrome", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "/cache/rod/chromium/chrome", p)
	assert.Empty(t, slot)
}

func TestRodLoggerWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	l := rodLogger{log: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	l.Println("Download:", "https://example.com/chromium.zip")

	out := buf.String()
	assert.Contains(t, out, `"level":"DEBUG"`)
	assert.Contains(t, out, `"msg":"Download: https://example.com/chromium.zip"`)
	assert.Contains(t, out, `"component":"launcher.Browser"`)
	assert.NotContains(t, out, "[launcher.Browser]")
}

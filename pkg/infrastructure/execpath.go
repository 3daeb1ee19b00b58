package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/observability"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrBrowserNotFound is returned when no Chromium-family executable could be
// located or downloaded.
var ErrBrowserNotFound = fmt.Errorf("browser executable not found: %w", exec.ErrNotFound)

// knownExecPaths lists well-known install locations per OS, most preferred
// first.
var knownExecPaths = map[string][]string{
	"linux": {
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/headless-shell",
		"/headless-shell/headless-shell",
		"/snap/bin/chromium",
		"/opt/google/chrome/chrome",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	},
}

// downloadSlot admits one bundled-browser download at a time. It is a channel
// so that waiters give up when their launch deadline passes.
var downloadSlot = make(chan struct{}, 1)

type execResolver struct {
	override      string
	allowDownload bool
	candidates    []string
	lookPath      func() (string, bool)
	download      func(ctx context.Context) (string, error)
}

func newExecResolver(cfg config.Browser, log *slog.Logger) *execResolver {
	return &execResolver{
		override:      strings.TrimSpace(cfg.ExecPath),
		allowDownload: cfg.AllowDownload,
		candidates:    knownExecPaths[runtime.GOOS],
		lookPath:      launcher.LookPath,
		download: func(ctx context.Context) (string, error) {
			return downloadBundled(ctx, downloadSlot, func() (string, error) {
				b := launcher.NewBrowser()
				b.Context = ctx
				b.Logger = rodLogger{log: log}
				return b.Get()
			})
		},
	}
}

// ResolveExecPath finds the browser to launch: the configured override, then
// known install locations, then PATH, then a bundled Chromium fetched into the
// rod cache when downloads are allowed. The download, and the wait for another
// export's download, stop when ctx is done.
func ResolveExecPath(ctx context.Context, cfg config.Browser, log *slog.Logger) (string, error) {
	if log == nil {
		log = observability.Discard()
	}
	return newExecResolver(cfg, log).resolve(ctx)
}

// downloadBundled runs get while holding slot. The slot is freed when get
// returns, even if ctx ended first, so a stalled download never runs twice.
func downloadBundled(ctx context.Context, slot chan struct{}, get func() (string, error)) (string, error) {
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("wait for bundled chromium download: %w", ctx.Err())
	}
	var path string
	err := await(ctx, func() error {
		defer func() { <-slot }()
		p, err := get()
		path = p
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// rodLogger routes rod's download progress into the structured log.
type rodLogger struct {
	log *slog.Logger
}

func (l rodLogger) Println(vs ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(vs...)), "component", "launcher.Browser")
}

func (r *execResolver) resolve(ctx context.Context) (string, error) {
	if r.override != "" {
		if err := executable(r.override); err != nil {
			return "", fmt.Errorf("CHROME_PATH %s: %w", r.override, err)
		}
		return r.override, nil
	}
	for _, c := range r.candidates {
		if executable(c) == nil {
			return c, nil
		}
	}
	if r.lookPath != nil {
		if p, ok := r.lookPath(); ok {
			return p, nil
		}
	}
	if !r.allowDownload || r.download == nil {
		return "", fmt.Errorf("%w (tried %s and PATH; downloads disabled)", ErrBrowserNotFound, strings.Join(r.candidates, ", "))
	}
	p, err := r.download(ctx)
	if err != nil {
		return "", errors.Join(ErrBrowserNotFound, fmt.Errorf("download bundled chromium: %w", err))
	}
	return p, nil
}

func executable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && fi.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

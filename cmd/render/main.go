// Command render exports one page to a PDF file without the HTTP layer. With
// no --url or --file it serves a built-in page that follows the render-ready
// contract, which makes it a quick check that a host's browser works.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/domain"
	"resume-pdf-export/internal/fixture"
	"resume-pdf-export/internal/observability"
	"resume-pdf-export/internal/policy"
	"resume-pdf-export/internal/usecase"
	infra "resume-pdf-export/pkg/infrastructure"

	flag "github.com/spf13/pflag"
)

type renderFlags struct {
	url        string
	file       string
	variant    string
	task       string
	out        string
	chromePath string
	noDownload bool
	marker     string
	readyAttr  string
	settle     time.Duration
	policyFile string
	logLevel   string
}

func parseFlags(args []string) (*renderFlags, *flag.FlagSet, error) {
	f := &renderFlags{}
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.StringVarP(&f.url, "url", "u", "", "page to export (default: built-in fixture page)")
	fs.StringVarP(&f.file, "file", "f", "", "local HTML file to export")
	fs.StringVar(&f.variant, "fixture", string(fixture.Ready), "fixture variant: ready, no-ready-flag, no-marker, hidden-marker, live-socket")
	fs.StringVarP(&f.task, "task", "t", "dev", "task id, used for the output name")
	fs.StringVarP(&f.out, "out", "o", "", "output file (default: <task>.pdf)")
	fs.StringVar(&f.chromePath, "chrome", "", "browser executable (overrides CHROME_PATH)")
	fs.BoolVar(&f.noDownload, "no-download", false, "never download a bundled Chromium")
	fs.StringVar(&f.marker, "marker", "", "marker selector (overrides MARKER_SELECTOR)")
	fs.StringVar(&f.readyAttr, "ready-attr", "", "body ready attribute (overrides READY_ATTRIBUTE)")
	fs.DurationVar(&f.settle, "settle", 0, "settle delay before printing (overrides SETTLE_DELAY)")
	fs.StringVar(&f.policyFile, "policy", "", "interception policy YAML (overrides INTERCEPTION_POLICY_FILE)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.url != "" && f.file != "" {
		return nil, nil, errors.New("--url and --file are mutually exclusive")
	}
	if f.out == "" {
		f.out = f.task + ".pdf"
	}
	return f, fs, nil
}

// apply layers explicitly set flags over the environment configuration.
func (f *renderFlags) apply(cfg *config.Config, fs *flag.FlagSet) {
	if fs.Changed("chrome") {
		cfg.Browser.ExecPath = f.chromePath
	}
	if f.noDownload {
		cfg.Browser.AllowDownload = false
	}
	if fs.Changed("marker") {
		cfg.Readiness.MarkerSelector = f.marker
	}
	if fs.Changed("ready-attr") {
		cfg.Readiness.ReadyAttribute = f.readyAttr
	}
	if fs.Changed("settle") {
		cfg.Readiness.SettleDelay = f.settle
	}
	if fs.Changed("policy") {
		cfg.PolicyFile = f.policyFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, fs, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags.apply(cfg, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, "text")

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return err
	}

	target, stopFixture, err := flags.target(cfg)
	if err != nil {
		return err
	}
	defer stopFixture()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	processor := usecase.NewProcessor(infra.NewChromeLauncher(cfg.Browser, logger), cfg, pol, logger)
	job := domain.NewRenderJob(domain.RenderRequest{TaskID: flags.task, RenderURL: target})
	artifact, err := processor.Process(ctx, job)
	if err != nil {
		var ee *usecase.ExportError
		if errors.As(err, &ee) && ee.Detail != "" {
			fmt.Fprintf(os.Stderr, "body snapshot:\n%s\n", ee.Detail)
		}
		return err
	}

	if err := os.WriteFile(flags.out, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flags.out, err)
	}
	fmt.Printf("wrote %s (%d bytes, %d pages)\n", flags.out, artifact.Size(), artifact.Pages)
	return nil
}

// target returns the URL to export, starting the fixture server when no page
// was given. The returned func stops the server.
func (f *renderFlags) target(cfg *config.Config) (string, func(), error) {
	switch {
	case f.url != "":
		return f.url, func() {}, nil
	case f.file != "":
		abs, err := filepath.Abs(f.file)
		if err != nil {
			return "", nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", nil, err
		}
		return "file://" + filepath.ToSlash(abs), func() {}, nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("start fixture server: %w", err)
	}
	srv := &http.Server{
		Handler:           fixture.NewServer(cfg.Readiness.MarkerSelector, cfg.Readiness.ReadyAttribute).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	base := "http://" + ln.Addr().String()
	return fixture.URL(base, f.task, fixture.Variant(f.variant)), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

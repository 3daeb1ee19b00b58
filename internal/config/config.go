// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults used when the corresponding variable is unset.
const (
	DefaultPort              = "3000"
	DefaultLaunchTimeout     = 30 * time.Second
	DefaultPageOpenTimeout   = 15 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultMarkerTimeout     = 15 * time.Second
	DefaultReadyTimeout      = 10 * time.Second
	DefaultSettleDelay       = 500 * time.Millisecond
	DefaultRenderTimeout     = 30 * time.Second
	DefaultCloseTimeout      = 10 * time.Second
	DefaultMarkerSelector    = "#resume-preview"
	DefaultReadyAttribute    = "data-render-complete"
	DefaultViewportWidth     = 1440
	DefaultViewportHeight    = 900
	DefaultDeviceScale       = 2.0
	DefaultSnapshotLimit     = 500
)

// Browser controls how a per-request browser process is launched.
type Browser struct {
	ExecPath      string // CHROME_PATH
	AllowDownload bool   // BROWSER_DOWNLOAD
	LaunchTimeout time.Duration
}

// Viewport is the emulated device for every page.
type Viewport struct {
	Width       int
	Height      int
	DeviceScale float64
}

// Readiness describes the page's two-stage render-ready contract and the
// bounds applied to each wait.
type Readiness struct {
	NavigationTimeout time.Duration
	MarkerSelector    string
	MarkerTimeout     time.Duration
	ReadyAttribute    string
	ReadyTimeout      time.Duration
	SettleDelay       time.Duration
	SnapshotLimit     int
}

// Config is the full service configuration.
type Config struct {
	Port          string
	LogLevel      string
	LogFormat     string
	PolicyFile    string
	TraceStdout   bool
	PageTimeout   time.Duration
	RenderTimeout time.Duration
	CloseTimeout  time.Duration

	Browser   Browser
	Viewport  Viewport
	Readiness Readiness
}

// Default returns the configuration with every default applied.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		LogLevel:      "info",
		LogFormat:     "json",
		PageTimeout:   DefaultPageOpenTimeout,
		RenderTimeout: DefaultRenderTimeout,
		CloseTimeout:  DefaultCloseTimeout,
		Browser: Browser{
			AllowDownload: true,
			LaunchTimeout: DefaultLaunchTimeout,
		},
		Viewport: Viewport{
			Width:       DefaultViewportWidth,
			Height:      DefaultViewportHeight,
			DeviceScale: DefaultDeviceScale,
		},
		Readiness: Readiness{
			NavigationTimeout: DefaultNavigationTimeout,
			MarkerSelector:    DefaultMarkerSelector,
			MarkerTimeout:     DefaultMarkerTimeout,
			ReadyAttribute:    DefaultReadyAttribute,
			ReadyTimeout:      DefaultReadyTimeout,
			SettleDelay:       DefaultSettleDelay,
			SnapshotLimit:     DefaultSnapshotLimit,
		},
	}
}

// Load builds a Config from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	r := reader{lookup: lookup}

	r.str("PORT", &cfg.Port)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.str("LOG_FORMAT", &cfg.LogFormat)
	r.str("INTERCEPTION_POLICY_FILE", &cfg.PolicyFile)
	r.boolean("TRACE_STDOUT", &cfg.TraceStdout)
	r.duration("PAGE_OPEN_TIMEOUT", &cfg.PageTimeout)
	r.duration("RENDER_TIMEOUT", &cfg.RenderTimeout)
	r.duration("CLOSE_TIMEOUT", &cfg.CloseTimeout)

	r.str("CHROME_PATH", &cfg.Browser.ExecPath)
	r.boolean("BROWSER_DOWNLOAD", &cfg.Browser.AllowDownload)
	r.duration("LAUNCH_TIMEOUT", &cfg.Browser.LaunchTimeout)

	r.integer("VIEWPORT_WIDTH", &cfg.Viewport.Width)
	r.integer("VIEWPORT_HEIGHT", &cfg.Viewport.Height)

	r.duration("NAVIGATION_TIMEOUT", &cfg.Readiness.NavigationTimeout)
	r.str("MARKER_SELECTOR", &cfg.Readiness.MarkerSelector)
	r.duration("MARKER_TIMEOUT", &cfg.Readiness.MarkerTimeout)
	r.str("READY_ATTRIBUTE", &cfg.Readiness.ReadyAttribute)
	r.duration("READY_TIMEOUT", &cfg.Readiness.ReadyTimeout)
	r.duration("SETTLE_DELAY", &cfg.Readiness.SettleDelay)

	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	positive := map[string]time.Duration{
		"LAUNCH_TIMEOUT":     c.Browser.LaunchTimeout,
		"PAGE_OPEN_TIMEOUT":  c.PageTimeout,
		"NAVIGATION_TIMEOUT": c.Readiness.NavigationTimeout,
		"MARKER_TIMEOUT":     c.Readiness.MarkerTimeout,
		"READY_TIMEOUT":      c.Readiness.ReadyTimeout,
		"RENDER_TIMEOUT":     c.RenderTimeout,
		"CLOSE_TIMEOUT":      c.CloseTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	if c.Readiness.SettleDelay < 0 {
		return fmt.Errorf("config: SETTLE_DELAY must not be negative")
	}
	if strings.TrimSpace(c.Readiness.MarkerSelector) == "" {
		return fmt.Errorf("config: MARKER_SELECTOR must not be empty")
	}
	if strings.TrimSpace(c.Readiness.ReadyAttribute) == "" {
		return fmt.Errorf("config: READY_ATTRIBUTE must not be empty")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("config: viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}

// Addr is the fiber listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok || r.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = d
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = n
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = b
}

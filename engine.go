package svgpng

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"time"
)

// Engine launches isolated browser sessions. Implementations are
// provided for chromedp, go-rod and playwright.
type Engine interface {
	// Name identifies the engine, e.g. "chromedp".
	Name() string
	// Launch starts a browser context bound to opts.ProfileDir.
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// LaunchOptions configures a browser session.
type LaunchOptions struct {
	ProfileDir        string
	Headless          bool
	ScaleFactor       float64
	DisableJavaScript bool
	DisableGPU        bool
	NoSandbox         bool
	ChromePath        string
	AutoDownload      bool
	// Timeout bounds launching and every operation without its own timeout.
	Timeout time.Duration
}

// Session is a running browser context.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab inside a [Session].
type Page interface {
	// Goto navigates to rawURL and waits for the load event.
	Goto(ctx context.Context, rawURL string, timeout time.Duration) error
	// Evaluate calls the JavaScript function expression fn without
	// arguments and decodes its JSON result into out.
	Evaluate(ctx context.Context, fn string, out any) error
	// SetViewport resizes the visible area in CSS pixels.
	SetViewport(ctx context.Context, width, height int) error
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
}

// ScreenshotOptions configures [Page.Screenshot].
type ScreenshotOptions struct {
	OmitBackground bool
	Timeout        time.Duration
}

type engineFactory func() Engine

var engines = map[string]engineFactory{
	"chromedp":   func() Engine { return NewChromedpEngine() },
	"rod":        func() Engine { return NewRodEngine() },
	"playwright": func() Engine { return NewPlaywrightEngine() },
}

// EngineNames lists the names accepted by [EngineByName].
func EngineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EngineByName returns a new engine registered under name.
func EngineByName(name string) (Engine, error) {
	f, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("svgpng: unknown engine %q (available: %v)", name, EngineNames())
	}
	return f(), nil
}

// FileURL converts a local path into a file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("svgpng: resolving path: %w", err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if filepath.VolumeName(abs) != "" {
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}

// withTimeout derives a context from ctx bounded by d when d > 0.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// boundedCall runs fn, giving up after d or when ctx ends. On give-up
// abort is called and fn is waited for, so no goroutine outlives the call.
func boundedCall(ctx context.Context, d time.Duration, abort func(), fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	var expired <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		expired = t.C
	}

	select {
	case err := <-done:
		return err
	case <-expired:
		abort()
		<-done
		return context.DeadlineExceeded
	case <-ctx.Done():
		abort()
		<-done
		return ctx.Err()
	}
}

package svgpng

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// initialWidth and initialHeight size the viewport until the dimension
// probe resizes it.
const initialWidth, initialHeight = 800, 600

// ChromedpEngine drives Chrome over the DevTools protocol with chromedp.
type ChromedpEngine struct{}

// NewChromedpEngine returns the default engine.
func NewChromedpEngine() *ChromedpEngine {
	return &ChromedpEngine{}
}

// Name implements [Engine].
func (e *ChromedpEngine) Name() string { return "chromedp" }

// Launch implements [Engine].
func (e *ChromedpEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	execPath, err := browserPath(opts)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(opts.ProfileDir),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.DisableGPU {
		allocOpts = append(allocOpts, chromedp.Flag("disable-gpu", true))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}

	// The browser outlives ctx; it is torn down by Session.Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := startBounded(ctx, browserCtx, browserCancel, opts.Timeout); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &chromedpSession{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// startBounded performs the first Run on a chromedp context. That Run
// must not use a context with a deadline, or expiry would close the
// target, so the bound is enforced by cancelling target instead.
func startBounded(ctx, target context.Context, cancel context.CancelFunc, d time.Duration, actions ...chromedp.Action) error {
	return boundedCall(ctx, d, cancel, func() error {
		return chromedp.Run(target, actions...)
	})
}

type chromedpSession struct {
	opts          LaunchOptions
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	tabs   []context.CancelFunc
	closed bool
}

func (s *chromedpSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(initialWidth, initialHeight, s.opts.ScaleFactor, false),
	}
	if s.opts.DisableJavaScript {
		actions = append(actions, emulation.SetScriptExecutionDisabled(true))
	}
	if err := startBounded(ctx, tabCtx, tabCancel, s.opts.Timeout, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.tabs = append(s.tabs, tabCancel)
	return &chromedpPage{ctx: tabCtx, scale: s.opts.ScaleFactor, timeout: s.opts.Timeout}, nil
}

// Close shuts the browser down gracefully, then kills the process.
func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, cancel := range s.tabs {
		cancel()
	}
	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	if err != nil && err != context.Canceled {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

type chromedpPage struct {
	ctx     context.Context
	scale   float64
	timeout time.Duration
}

// run executes actions on the tab, bounded by d and by the caller's ctx.
func (p *chromedpPage) run(ctx context.Context, d time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := withTimeout(p.ctx, d)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (p *chromedpPage) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	// Navigate waits for the load event of the new document.
	return p.run(ctx, timeout, chromedp.Navigate(rawURL))
}

func (p *chromedpPage) Evaluate(ctx context.Context, fn string, out any) error {
	return p.run(ctx, p.timeout, chromedp.Evaluate("("+fn+")()", out))
}

func (p *chromedpPage) SetViewport(ctx context.Context, width, height int) error {
	return p.run(ctx, p.timeout,
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), p.scale, false),
	)
}

func (p *chromedpPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}

	var buf []byte
	actions := []chromedp.Action{}
	if opts.OmitBackground {
		actions = append(actions, setBackgroundAlpha(true))
	}
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if opts.OmitBackground {
		actions = append(actions, setBackgroundAlpha(false))
	}

	if err := p.run(ctx, timeout, actions...); err != nil {
		return nil, err
	}
	return buf, nil
}

// setBackgroundAlpha overrides the default page background with a fully
// transparent color, or clears the override. The raw params keep the
// zero alpha from being dropped as an empty field.
func setBackgroundAlpha(transparent bool) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := map[string]any{}
		if transparent {
			params["color"] = map[string]any{"r": 0, "g": 0, "b": 0, "a": 0}
		}
		return cdp.Execute(ctx, emulation.CommandSetDefaultBackgroundColorOverride, params, nil)
	})
}

package svgpng

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// RodEngine drives Chrome with go-rod.
type RodEngine struct{}

// NewRodEngine returns an engine backed by go-rod.
func NewRodEngine() *RodEngine {
	return &RodEngine{}
}

// Name implements [Engine].
func (e *RodEngine) Name() string { return "rod" }

// Launch implements [Engine].
func (e *RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	execPath, err := browserPath(opts)
	if err != nil {
		return nil, err
	}
	if execPath == "" {
		execPath = lookupBrowser()
	}

	l := launcher.New().
		UserDataDir(opts.ProfileDir).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Set("disable-dev-shm-usage").
		Set("hide-scrollbars")
	if opts.DisableGPU {
		l = l.Set("disable-gpu")
	}
	if execPath != "" {
		l = l.Bin(execPath)
	}

	var controlURL string
	err = boundedCall(ctx, opts.Timeout, l.Kill, func() error {
		var err error
		controlURL, err = l.Launch()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &rodSession{opts: opts, launcher: l, browser: browser}, nil
}

type rodSession struct {
	opts     LaunchOptions
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu     sync.Mutex
	closed bool
}

func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}

	pctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	p, err := s.browser.Context(pctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if s.opts.DisableJavaScript {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(p); err != nil {
			return nil, fmt.Errorf("disabling javascript: %w", err)
		}
	}
	pg := &rodPage{page: p.Context(context.Background()), scale: s.opts.ScaleFactor, timeout: s.opts.Timeout}
	if err := pg.SetViewport(pctx, initialWidth, initialHeight); err != nil {
		return nil, err
	}
	return pg, nil
}

func (s *rodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.browser.Close()
	s.launcher.Kill()
	if err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

type rodPage struct {
	page    *rod.Page
	scale   float64
	timeout time.Duration
}

// bind returns the page bound to ctx and limited by d.
func (p *rodPage) bind(ctx context.Context, d time.Duration) (*rod.Page, context.CancelFunc) {
	pctx, cancel := withTimeout(ctx, d)
	return p.page.Context(pctx), cancel
}

func (p *rodPage) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	if err := pg.Navigate(rawURL); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Evaluate(ctx context.Context, fn string, out any) error {
	pg, cancel := p.bind(ctx, p.timeout)
	defer cancel()

	obj, err := pg.Eval(fn)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj.Value.JSON("", "")), out)
}

func (p *rodPage) SetViewport(ctx context.Context, width, height int) error {
	pg, cancel := p.bind(ctx, p.timeout)
	defer cancel()

	return pg.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: p.scale,
	})
}

func (p *rodPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	pg, cancel := p.bind(ctx, timeout)
	defer cancel()

	if opts.OmitBackground {
		transparent := proto.EmulationSetDefaultBackgroundColorOverride{
			Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: gson.Num(0)},
		}
		if err := transparent.Call(pg); err != nil {
			return nil, err
		}
		defer (proto.EmulationSetDefaultBackgroundColorOverride{}).Call(pg) //nolint:errcheck
	}

	return pg.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

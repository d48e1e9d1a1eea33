package svgpng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine drives Chromium through a playwright persistent
// context.
type PlaywrightEngine struct{}

// NewPlaywrightEngine returns an engine backed by playwright-go.
func NewPlaywrightEngine() *PlaywrightEngine {
	return &PlaywrightEngine{}
}

// Name implements [Engine].
func (e *PlaywrightEngine) Name() string { return "playwright" }

// Launch implements [Engine].
func (e *PlaywrightEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if opts.AutoDownload && opts.ChromePath == "" {
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			return nil, fmt.Errorf("installing browsers: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	args := []string{"--disable-dev-shm-usage", "--hide-scrollbars"}
	if opts.DisableGPU {
		args = append(args, "--disable-gpu")
	}
	if opts.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	launch := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(opts.Headless),
		Args:              args,
		DeviceScaleFactor: playwright.Float(opts.ScaleFactor),
		JavaScriptEnabled: playwright.Bool(!opts.DisableJavaScript),
		// Launch is bounded by playwright itself.
		Timeout: playwright.Float(millis(opts.Timeout)),
	}
	if opts.ChromePath != "" {
		launch.ExecutablePath = playwright.String(opts.ChromePath)
	}
	browser, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, launch)
	if err != nil {
		pw.Stop() //nolint:errcheck
		return nil, fmt.Errorf("launching browser: %w", playwrightErr(err))
	}
	return &playwrightSession{opts: opts, pw: pw, browser: browser}, nil
}

type playwrightSession struct {
	opts    LaunchOptions
	pw      *playwright.Playwright
	browser playwright.BrowserContext

	mu     sync.Mutex
	closed bool
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}

	p, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	p.SetDefaultTimeout(millis(s.opts.Timeout))
	return &playwrightPage{page: p}, nil
}

func (s *playwrightSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.browser.Close()
	if stopErr := s.pw.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(millis(timeout)),
	})
	return playwrightErr(err)
}

func (p *playwrightPage) Evaluate(ctx context.Context, fn string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := p.page.Evaluate(fn)
	if err != nil {
		return playwrightErr(err)
	}
	// Round-trip through JSON so every engine decodes into out the same way.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *playwrightPage) SetViewport(ctx context.Context, width, height int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return playwrightErr(p.page.SetViewportSize(width, height))
}

func (p *playwrightPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shot := playwright.PageScreenshotOptions{
		Type:           playwright.ScreenshotTypePng,
		OmitBackground: playwright.Bool(opts.OmitBackground),
		FullPage:       playwright.Bool(false),
	}
	if opts.Timeout > 0 {
		shot.Timeout = playwright.Float(millis(opts.Timeout))
	}
	buf, err := p.page.Screenshot(shot)
	return buf, playwrightErr(err)
}

// playwrightErr maps playwright timeouts onto context.DeadlineExceeded.
func playwrightErr(err error) error {
	if err != nil && errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}

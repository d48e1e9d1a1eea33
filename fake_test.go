package svgpng

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeEngine is an in-memory Engine. Screenshots come from shots in
// order; once shots is exhausted every call returns a valid PNG.
type fakeEngine struct {
	mu sync.Mutex

	launchErr error
	gotoErr   error
	probe     probeResult
	probeErr  error
	shots     []error
	block     chan struct{} // if set, Goto waits for it to be closed

	launches    []LaunchOptions
	viewports   [][2]int
	screenshots int
	omitBg      []bool
	closed      int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{probe: probeResult{Found: true, Width: 100, Height: 50}}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.launches = append(e.launches, opts)
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	return &fakeSession{e: e}, nil
}

func (e *fakeEngine) stats() (launches, screenshots, closed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.launches), e.screenshots, e.closed
}

type fakeSession struct{ e *fakeEngine }

func (s *fakeSession) NewPage(context.Context) (Page, error) {
	return &fakePage{e: s.e}, nil
}

func (s *fakeSession) Close() error {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	s.e.closed++
	return nil
}

type fakePage struct{ e *fakeEngine }

func (p *fakePage) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	if p.e.block != nil {
		select {
		case <-p.e.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.e.gotoErr
}

func (p *fakePage) Evaluate(_ context.Context, _ string, out any) error {
	if p.e.probeErr != nil {
		return p.e.probeErr
	}
	data, err := json.Marshal(map[string]any{
		"found":  p.e.probe.Found,
		"width":  p.e.probe.Width,
		"height": p.e.probe.Height,
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *fakePage) SetViewport(_ context.Context, width, height int) error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	p.e.viewports = append(p.e.viewports, [2]int{width, height})
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, opts ScreenshotOptions) ([]byte, error) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	n := p.e.screenshots
	p.e.screenshots++
	p.e.omitBg = append(p.e.omitBg, opts.OmitBackground)
	if n < len(p.e.shots) && p.e.shots[n] != nil {
		return nil, p.e.shots[n]
	}
	return samplePNG, nil
}

var errShot = errors.New("target closed")

// fastOptions removes the capture delays.
func fastOptions(e Engine) []Option {
	return []Option{
		WithEngine(e),
		WithLogger(DiscardLogger()),
		WithSettleDelay(0),
		WithCaptureRetry(3, time.Millisecond),
	}
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="50"><rect width="100" height="50" fill="red"/></svg>`

// writeSVG writes content to name inside dir and returns its path.
func writeSVG(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

package svgpng

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// capturePolicy is the settle and retry behaviour of a capture.
type capturePolicy struct {
	settle   time.Duration
	attempts int
	delay    time.Duration
	timeout  time.Duration
}

func (c *config) capturePolicy() capturePolicy {
	return capturePolicy{
		settle:   c.settleDelay,
		attempts: c.attempts,
		delay:    c.retryDelay,
		timeout:  c.opTimeout,
	}
}

// capture waits for the page to settle, then screenshots the viewport
// into path. Failed attempts are retried; only the last error is
// returned. path is replaced atomically, so it never holds a partial
// image.
func capture(ctx context.Context, p Page, path string, transparent bool, policy capturePolicy, log Logger) ([]byte, error) {
	if err := sleepCtx(ctx, policy.settle); err != nil {
		return nil, newError(KindCapture, "capture", err)
	}

	opts := ScreenshotOptions{OmitBackground: transparent, Timeout: policy.timeout}
	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		buf, err := shoot(ctx, p, path, opts)
		if err == nil {
			return buf, nil
		}
		lastErr = err
		if attempt == policy.attempts {
			break
		}
		log.Warnf("screenshot attempt %d/%d failed: %v", attempt, policy.attempts, err)
		if err := sleepCtx(ctx, policy.delay); err != nil {
			return nil, newError(KindCapture, "capture", err)
		}
	}
	return nil, newError(KindCapture, "capture", lastErr)
}

func shoot(ctx context.Context, p Page, path string, opts ScreenshotOptions) ([]byte, error) {
	buf, err := p.Screenshot(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(buf, pngMagic) {
		return nil, errors.New("screenshot is not a PNG image")
	}
	if err := writeFileAtomic(path, buf, 0o644); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".svgpng-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

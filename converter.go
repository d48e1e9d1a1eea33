package svgpng

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Converter renders SVG files to PNG with a browser [Engine].
//
// A Converter runs one conversion at a time inside its [Workspace]; each
// conversion launches a fresh browser session and tears it down again.
type Converter struct {
	cfg config
	ws  *Workspace
}

// NewConverter creates a Converter that keeps its temporary files in ws.
// The caller owns ws and must close it.
func NewConverter(ws *Workspace, opts ...Option) *Converter {
	return &Converter{cfg: newConfig(opts), ws: ws}
}

// Engine returns the engine used for rendering.
func (c *Converter) Engine() Engine {
	return c.cfg.engine
}

// Convert validates req and renders it. It is the synchronous
// counterpart of [Worker.Run].
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(c.cfg.strict); err != nil {
		return nil, err
	}
	return c.render(ctx, req, func(State) {})
}

// render runs the render and capture stages, reporting each one to
// stage. Cleanup runs on every exit path.
func (c *Converter) render(ctx context.Context, req Request, stage func(State)) (res *Result, err error) {
	log := c.cfg.log
	var (
		sess    Session
		release func() error
	)
	defer func() {
		c.cleanup(req, sess, release)
	}()

	stage(StateRendering)
	log.Infof("[%s] converting %s -> %s (dpi=%d transparent=%t engine=%s)",
		req.ID, req.InputPath, req.OutputPath, req.DPI, req.Transparent, c.cfg.engine.Name())

	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return nil, newError(KindValidation, "read input", err)
	}
	wrapper, err := c.ws.WriteWrapper(BuildWrapper(strings.ToValidUTF8(string(data), ""), req.Transparent))
	if err != nil {
		return nil, newError(KindSystem, "write wrapper", err)
	}
	target, err := FileURL(wrapper)
	if err != nil {
		return nil, newError(KindSystem, "write wrapper", err)
	}

	release, err = c.ws.PrepareProfile()
	if err != nil {
		return nil, newError(KindRenderLaunch, "prepare profile", err)
	}

	scale := ScaleFactor(req.DPI)
	sess, err = c.cfg.engine.Launch(ctx, LaunchOptions{
		ProfileDir:        c.ws.ProfileDir,
		Headless:          true,
		ScaleFactor:       scale,
		DisableJavaScript: true,
		DisableGPU:        true,
		NoSandbox:         c.cfg.noSandbox,
		ChromePath:        c.cfg.chromePath,
		AutoDownload:      c.cfg.autoDownload,
		Timeout:           c.cfg.opTimeout,
	})
	if err != nil {
		return nil, newError(KindRenderLaunch, "launch browser", err)
	}
	page, err := sess.NewPage(ctx)
	if err != nil {
		return nil, newError(KindRenderLaunch, "open page", err)
	}
	if err := page.Goto(ctx, target, c.cfg.navTimeout); err != nil {
		return nil, newError(classify(err, KindRenderLaunch), "load page", err)
	}

	dims, err := ProbeDimensions(ctx, page)
	if err != nil {
		return nil, err
	}
	log.Debugf("[%s] svg is %gx%g, viewport %dx%d at scale %g",
		req.ID, dims.SVGWidth, dims.SVGHeight, dims.Width, dims.Height, scale)

	stage(StateCapturing)
	png, err := capture(ctx, page, req.OutputPath, req.Transparent, c.cfg.capturePolicy(), log)
	if err != nil {
		return nil, err
	}
	return &Result{Path: req.OutputPath, Dimensions: dims, Scale: scale, data: png}, nil
}

// cleanup closes the session and removes per-conversion files. Errors
// are logged and never replace the conversion outcome.
func (c *Converter) cleanup(req Request, sess Session, release func() error) {
	log := c.cfg.log
	var errs []error
	if sess != nil {
		errs = append(errs, sess.Close())
	}
	errs = append(errs, c.ws.RemoveWrapper(), c.ws.RemoveProfile())
	if release != nil {
		errs = append(errs, release())
	}
	if err := errors.Join(errs...); err != nil {
		log.Errorf("[%s] cleanup error: %v", req.ID, err)
	}
}

// --- Package-level convenience function ---

// ConvertFile renders the SVG at input into a PNG at output using a
// temporary [Workspace]. An existing output file is replaced.
// For repeated use, create a [Converter] with [NewConverter].
func ConvertFile(ctx context.Context, input, output string, dpi int, transparent bool, opts ...Option) (*Result, error) {
	ws, err := NewWorkspace("")
	if err != nil {
		return nil, err
	}
	defer ws.Close()
	return NewConverter(ws, opts...).Convert(ctx, NewRequest(input, output, dpi, transparent))
}

// Package svgpng renders SVG images to PNG files with a headless browser.
//
// The SVG is wrapped in a minimal HTML page, loaded with JavaScript and
// GPU disabled, measured, and captured with a viewport screenshot. The
// device scale factor is DPI / 96.
//
// # One-off conversions
//
//	res, err := svgpng.ConvertFile(ctx, "logo.svg", "logo.png", 300, true)
//
// # Repeated conversions
//
// A [Workspace] owns the temporary browser profile and HTML wrapper. A
// [Converter] renders inside it:
//
//	ws, err := svgpng.NewWorkspace("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
//
//	c := svgpng.NewConverter(ws, svgpng.WithNoSandbox())
//	res, err := c.Convert(ctx, svgpng.NewRequest("in.svg", "out.png", 150, false))
//
// # Engines
//
// Rendering goes through the [Engine] interface. chromedp is the default;
// go-rod and playwright are available with [WithEngine]:
//
//	c := svgpng.NewConverter(ws, svgpng.WithEngine(svgpng.NewRodEngine()))
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
//
// # Front-ends
//
// [Worker] runs a conversion off the interface goroutine and reports
// through a channel. [Controller] holds the interface-side logic:
// validation, overwrite and quit confirmation, and polling the worker
// every [PollInterval]. A front-end implements [View] and [Prompter].
package svgpng

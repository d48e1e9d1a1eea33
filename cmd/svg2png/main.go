// svg2png converts an SVG file to PNG by rendering it in headless Chrome.
//
// Usage:
//
//	svg2png [flags] <input.svg>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	svgpng "github.com/porticus-lab/go-svg-png"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	output       string
	dpi          string
	transparent  bool
	yes          bool
	engine       string
	chromePath   string
	noSandbox    bool
	autoDownload bool
	strict       bool
	workDir      string
	log          logger.Flags
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{
		dpi:         strconv.Itoa(svgpng.DefaultDPI),
		transparent: true,
		engine:      "chromedp",
		log: logger.Flags{
			Level:       "info",
			LogToStderr: true,
		},
	}

	cmd := &cobra.Command{
		Use:   "svg2png [flags] <input.svg>",
		Short: "Convert an SVG image to PNG using a headless browser",
		Long: `svg2png renders an SVG file in headless Chrome and saves a PNG screenshot
of it. The output is sized to the SVG's width/height attributes (or its
viewBox) plus 20px of padding on every side, scaled by DPI/96.`,
		Example: `  svg2png logo.svg
  svg2png --dpi 600 --transparent=false -o logo@hi.png logo.svg
  svg2png --engine rod --no-sandbox diagram.svg`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Configure(opts.log)
			return run(cmd.Context(), args[0], opts)
		},
	}
	bindFlags(cmd.Flags(), &opts)
	_ = cmd.RegisterFlagCompletionFunc("dpi", completeDPI)
	return cmd
}

func completeDPI(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return lo.Map(svgpng.DPIPresets, func(dpi int, _ int) string {
		return strconv.Itoa(dpi)
	}), cobra.ShellCompDirectiveNoFileComp
}

func bindFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.output, "output", "o", "", "Output PNG path (default: input path with .png extension)")
	flags.StringVar(&opts.dpi, "dpi", opts.dpi, fmt.Sprintf("Resolution, %d-%d (presets: %v)", svgpng.MinDPI, svgpng.MaxDPI, svgpng.DPIPresets))
	flags.BoolVar(&opts.transparent, "transparent", opts.transparent, "Keep the background transparent instead of white")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Overwrite an existing output file without asking")
	flags.StringVar(&opts.engine, "engine", opts.engine, fmt.Sprintf("Browser engine: %v", svgpng.EngineNames()))
	flags.StringVar(&opts.chromePath, "chrome-path", "", "Path to the Chrome or Chromium executable")
	flags.BoolVar(&opts.noSandbox, "no-sandbox", false, "Disable the Chrome sandbox (needed when running as root)")
	flags.BoolVar(&opts.autoDownload, "auto-download", false, "Download a browser if none is installed")
	flags.BoolVar(&opts.strict, "strict", false, "Fully parse the SVG before rendering")
	flags.StringVar(&opts.workDir, "work-dir", "", "Parent directory of the temporary workspace")

	flags.CountVarP(&opts.log.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&opts.log.Level, "log-level", opts.log.Level, "Set the default log level")
	flags.BoolVar(&opts.log.JsonLogs, "json-logs", false, "Print logs in json format to stderr")
}

func (o options) converterOptions() ([]svgpng.Option, error) {
	engine, err := svgpng.EngineByName(o.engine)
	if err != nil {
		return nil, err
	}
	opts := []svgpng.Option{svgpng.WithEngine(engine)}
	if o.chromePath != "" {
		opts = append(opts, svgpng.WithChromePath(o.chromePath))
	}
	if o.noSandbox {
		opts = append(opts, svgpng.WithNoSandbox())
	}
	if o.autoDownload {
		opts = append(opts, svgpng.WithAutoDownload())
	}
	if o.strict {
		opts = append(opts, svgpng.WithStrictValidation())
	}
	return opts, nil
}

var (
	errInterrupted = errors.New("interrupted")
	// errReported marks failures the view already showed to the user.
	errReported = errors.New("conversion failed")
)

func run(ctx context.Context, input string, o options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	convOpts, err := o.converterOptions()
	if err != nil {
		return err
	}

	ws, err := svgpng.NewWorkspace(o.workDir)
	if err != nil {
		return err
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	worker := svgpng.NewWorker(svgpng.NewConverter(ws, convOpts...))
	view := &cliView{termView: newTermView(os.Stderr), sigs: sigs}
	prompt := newTermPrompter(os.Stdin, os.Stderr, o.yes)
	ctrl := svgpng.NewController(worker, ws, view, prompt)
	view.ctrl = ctrl

	if dpi, err := strconv.Atoi(o.dpi); err == nil && !svgpng.IsPresetDPI(dpi) {
		logger.Debugf("dpi %d is not one of the presets %v", dpi, svgpng.DPIPresets)
	}

	output := o.output
	if output == "" {
		output = svgpng.SuggestOutputPath(input)
	}
	form := svgpng.Form{Input: input, Output: output, DPI: o.dpi, Transparent: o.transparent}
	if err := ctrl.Start(ctx, form); err != nil {
		done, _ := ctrl.RequestQuit()
		<-done
		switch {
		case errors.Is(err, svgpng.ErrCanceled):
			return nil
		case errors.Is(err, svgpng.ErrValidation):
			return errReported
		}
		return err
	}

	if err := ctrl.Run(ctx); err != nil {
		return err
	}
	if view.interrupted {
		return errInterrupted
	}
	return view.Err()
}

// cliView ends the session: once the conversion is over, or on a
// confirmed interrupt, it asks the controller to quit, which stops
// [svgpng.Controller.Run].
type cliView struct {
	*termView
	ctrl        *svgpng.Controller
	sigs        <-chan os.Signal
	interrupted bool
}

func (v *cliView) Tick() {
	v.termView.Tick()
	select {
	case <-v.sigs:
		if _, ok := v.ctrl.RequestQuit(); ok {
			v.interrupted = true
		}
		return
	default:
	}
	if !v.ctrl.Running() {
		v.ctrl.RequestQuit()
	}
}

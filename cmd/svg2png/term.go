package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	svgpng "github.com/porticus-lab/go-svg-png"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type styles struct {
	info    lipgloss.Style
	busy    lipgloss.Style
	success lipgloss.Style
	failed  lipgloss.Style
	dialog  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:    r.NewStyle().Foreground(lipgloss.Color("8")),
		busy:    r.NewStyle().Foreground(lipgloss.Color("12")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("9")),
		dialog: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1),
	}
}

// termView is the status line: a colored message with a spinner while
// a conversion runs. On a non-interactive stream every status is
// printed on its own line.
type termView struct {
	out         io.Writer
	interactive bool
	styles      styles

	text   string
	level  svgpng.Level
	busy   bool
	frame  int
	failed bool
}

func newTermView(f *os.File) *termView {
	return &termView{
		out:         f,
		interactive: term.IsTerminal(int(f.Fd())),
		styles:      newStyles(lipgloss.NewRenderer(f)),
	}
}

func (v *termView) SetStatus(text string, level svgpng.Level) {
	v.text, v.level = text, level
	switch level {
	case svgpng.LevelError:
		v.failed = true
	case svgpng.LevelSuccess:
		v.failed = false
	}
	if v.interactive {
		v.redraw()
		if level == svgpng.LevelSuccess || level == svgpng.LevelError {
			fmt.Fprintln(v.out)
		}
		return
	}
	fmt.Fprintln(v.out, v.style(level).Render(text))
}

func (v *termView) SetBusy(busy bool) {
	v.busy = busy
	if v.interactive && !busy {
		v.redraw()
	}
}

// Tick advances the spinner.
func (v *termView) Tick() {
	if !v.busy || !v.interactive {
		return
	}
	v.frame = (v.frame + 1) % len(spinnerFrames)
	v.redraw()
}

// Err reports whether the last conversion failed.
func (v *termView) Err() error {
	if v.failed {
		return errReported
	}
	return nil
}

func (v *termView) redraw() {
	line := strings.ReplaceAll(v.text, "\n", " ")
	if v.busy {
		line = spinnerFrames[v.frame] + " " + line
	}
	fmt.Fprintf(v.out, "\r\033[K%s", v.style(v.level).Render(line))
}

func (v *termView) style(level svgpng.Level) lipgloss.Style {
	switch level {
	case svgpng.LevelBusy:
		return v.styles.busy
	case svgpng.LevelSuccess:
		return v.styles.success
	case svgpng.LevelError:
		return v.styles.failed
	default:
		return v.styles.info
	}
}

// termPrompter asks yes/no questions on the terminal. Without a
// terminal on stdin every question is answered no, unless assumeYes.
type termPrompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
	styles      styles
}

func newTermPrompter(in *os.File, out *os.File, assumeYes bool) *termPrompter {
	return &termPrompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: term.IsTerminal(int(in.Fd())),
		assumeYes:   assumeYes,
		styles:      newStyles(lipgloss.NewRenderer(out)),
	}
}

func (p *termPrompter) ConfirmOverwrite(path string) bool {
	if p.assumeYes {
		return true
	}
	return p.ask(fmt.Sprintf("Output file %s exists. Overwrite?", path))
}

func (p *termPrompter) ConfirmQuit() bool {
	return p.ask("Conversion in progress. Are you sure you want to quit?")
}

func (p *termPrompter) ShowError(title, message string) {
	fmt.Fprintln(p.out, p.styles.dialog.Render(p.styles.failed.Bold(true).Render(title)+"\n"+message))
}

func (p *termPrompter) ask(question string) bool {
	if !p.interactive {
		return false
	}
	fmt.Fprintf(p.out, "\r\033[K%s [y/N] ", question)
	answer, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

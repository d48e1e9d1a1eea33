package svgpng

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status struct {
	text  string
	level Level
}

type fakeView struct {
	statuses []status
	busy     []bool
}

func (v *fakeView) SetStatus(text string, level Level) {
	v.statuses = append(v.statuses, status{text, level})
}

func (v *fakeView) SetBusy(busy bool) { v.busy = append(v.busy, busy) }

func (v *fakeView) last() status { return v.statuses[len(v.statuses)-1] }

type fakePrompter struct {
	overwrite bool
	quit      bool

	overwriteAsked int
	quitAsked      int
	errors         []string
}

func (p *fakePrompter) ConfirmOverwrite(string) bool {
	p.overwriteAsked++
	return p.overwrite
}

func (p *fakePrompter) ConfirmQuit() bool {
	p.quitAsked++
	return p.quit
}

func (p *fakePrompter) ShowError(_, message string) { p.errors = append(p.errors, message) }

type controllerFixture struct {
	ctrl   *Controller
	engine *fakeEngine
	ws     *Workspace
	view   *fakeView
	prompt *fakePrompter
	dir    string
	input  string
	output string
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		engine: newFakeEngine(),
		ws:     newTestWorkspace(t),
		view:   &fakeView{},
		prompt: &fakePrompter{},
		dir:    t.TempDir(),
	}
	f.input = writeSVG(t, f.dir, "in.svg", testSVG)
	f.output = filepath.Join(f.dir, "out.png")
	w := NewWorker(NewConverter(f.ws, fastOptions(f.engine)...))
	f.ctrl = NewController(w, f.ws, f.view, f.prompt)
	t.Cleanup(f.ctrl.Wait)
	return f
}

func (f *controllerFixture) form() Form {
	return Form{Input: f.input, Output: f.output, DPI: "300", Transparent: true}
}

// pollUntilIdle polls like a front-end until the conversion has ended.
func (f *controllerFixture) pollUntilIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.ctrl.Running() {
		if time.Now().After(deadline) {
			t.Fatal("conversion did not finish")
		}
		time.Sleep(time.Millisecond)
		f.ctrl.Poll()
	}
}

func TestController_Ready(t *testing.T) {
	f := newControllerFixture(t)
	assert.Equal(t, status{"Ready", LevelInfo}, f.view.last())
	assert.False(t, f.ctrl.Running())
}

func TestController_Success(t *testing.T) {
	f := newControllerFixture(t)

	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))
	assert.True(t, f.ctrl.Running())
	assert.Equal(t, status{"Initializing conversion...", LevelBusy}, f.view.last())

	f.pollUntilIdle(t)
	assert.Equal(t, status{"Successfully saved:\n" + f.output, LevelSuccess}, f.view.last())
	assert.Equal(t, []bool{true, false}, f.view.busy)
	assert.Empty(t, f.prompt.errors)
	assert.FileExists(t, f.output)
}

func TestController_ValidationError(t *testing.T) {
	f := newControllerFixture(t)
	form := f.form()
	form.DPI = "50"

	err := f.ctrl.Start(context.Background(), form)
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, f.ctrl.Running())
	assert.Empty(t, f.view.busy)
	assert.Equal(t, LevelError, f.view.last().level)
	assert.Equal(t, []string{"Validation error: DPI must be between 72 and 600"}, f.prompt.errors)
	assert.Empty(t, f.engine.launches)
}

func TestController_OverwriteDeclined(t *testing.T) {
	f := newControllerFixture(t)
	require.NoError(t, os.WriteFile(f.output, []byte("old"), 0o644))

	err := f.ctrl.Start(context.Background(), f.form())
	require.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, 1, f.prompt.overwriteAsked)
	assert.Equal(t, status{"Conversion canceled", LevelInfo}, f.view.last())
	assert.Empty(t, f.prompt.errors)
	assert.False(t, f.ctrl.Running())
}

func TestController_OverwriteAccepted(t *testing.T) {
	f := newControllerFixture(t)
	f.prompt.overwrite = true
	require.NoError(t, os.WriteFile(f.output, []byte("old"), 0o644))

	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))
	f.pollUntilIdle(t)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, samplePNG, data)
}

func TestController_ConversionError(t *testing.T) {
	f := newControllerFixture(t)
	f.engine.launchErr = assert.AnError

	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))
	f.pollUntilIdle(t)

	assert.Equal(t, LevelError, f.view.last().level)
	require.Len(t, f.prompt.errors, 1)
	assert.Contains(t, f.prompt.errors[0], "Conversion failed (render launch)")
	assert.Equal(t, []bool{true, false}, f.view.busy)
}

func TestController_StartWhileRunning(t *testing.T) {
	f := newControllerFixture(t)
	f.engine.block = make(chan struct{})

	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))
	assert.ErrorIs(t, f.ctrl.Start(context.Background(), f.form()), ErrBusy)

	close(f.engine.block)
	f.pollUntilIdle(t)
	launches, _, _ := f.engine.stats()
	assert.Equal(t, 1, launches)
}

func TestController_QuitIdle(t *testing.T) {
	f := newControllerFixture(t)

	done, ok := f.ctrl.RequestQuit()
	require.True(t, ok)
	<-done
	assert.Equal(t, 0, f.prompt.quitAsked)
	assert.NoDirExists(t, f.ws.Root)

	again, ok := f.ctrl.RequestQuit()
	assert.True(t, ok)
	assert.Equal(t, done, again)
	assert.ErrorIs(t, f.ctrl.Start(context.Background(), f.form()), ErrClosed)
}

func TestController_QuitWhileRunning(t *testing.T) {
	f := newControllerFixture(t)
	f.engine.block = make(chan struct{})
	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))

	_, ok := f.ctrl.RequestQuit()
	assert.False(t, ok, "declined quit")
	assert.Equal(t, 1, f.prompt.quitAsked)
	assert.DirExists(t, f.ws.Root)

	f.prompt.quit = true
	done, ok := f.ctrl.RequestQuit()
	require.True(t, ok)
	<-done
	assert.NoDirExists(t, f.ws.Root)

	close(f.engine.block)
	f.pollUntilIdle(t)
}

func TestController_Run(t *testing.T) {
	f := newControllerFixture(t)
	require.NoError(t, f.ctrl.Start(context.Background(), f.form()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*PollInterval)
	defer cancel()
	assert.ErrorIs(t, f.ctrl.Run(ctx), context.DeadlineExceeded)
	f.ctrl.Wait()
	f.ctrl.Poll()
	assert.False(t, f.ctrl.Running())
}

// quittingView quits once the conversion is over, like a one-shot
// command-line front-end.
type quittingView struct {
	fakeView
	ctrl  *Controller
	ticks int
}

func (v *quittingView) Tick() {
	v.ticks++
	if !v.ctrl.Running() {
		v.ctrl.RequestQuit()
	}
}

func TestController_RunUntilQuit(t *testing.T) {
	f := newControllerFixture(t)
	view := &quittingView{}
	ctrl := NewController(NewWorker(NewConverter(f.ws, fastOptions(f.engine)...)), f.ws, view, f.prompt)
	view.ctrl = ctrl
	t.Cleanup(ctrl.Wait)

	require.NoError(t, ctrl.Start(context.Background(), f.form()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Run(ctx))

	assert.GreaterOrEqual(t, view.ticks, 1)
	assert.Equal(t, status{"Successfully saved:\n" + f.output, LevelSuccess}, view.last())
	assert.FileExists(t, f.output)
	assert.NoDirExists(t, f.ws.Root)
}

package svgpng

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain collects every queued message up to and including the reset.
func drain(t *testing.T, w *Worker) []Message {
	t.Helper()
	var msgs []Message
	for {
		select {
		case m := <-w.Messages():
			msgs = append(msgs, m)
			if m.Kind == MessageReset {
				return msgs
			}
		default:
			t.Fatalf("no reset message, got %v", msgs)
			return nil
		}
	}
}

func kinds(msgs []Message) []MessageKind {
	out := make([]MessageKind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}

func newTestWorker(t *testing.T, e *fakeEngine) *Worker {
	t.Helper()
	return NewWorker(NewConverter(newTestWorkspace(t), fastOptions(e)...))
}

func TestWorker_Success(t *testing.T) {
	e := newFakeEngine()
	w := newTestWorker(t, e)
	dir := t.TempDir()
	in := writeSVG(t, dir, "in.svg", testSVG)
	out := filepath.Join(dir, "out.png")

	outcome := w.Run(context.Background(), NewRequest(in, out, 96, true))
	require.True(t, outcome.Success, outcome.Message)
	assert.Equal(t, "Successfully saved:\n"+out, outcome.Message)
	assert.NotNil(t, outcome.Result)
	assert.Equal(t, StateIdle, w.State())

	msgs := drain(t, w)
	assert.Equal(t, []MessageKind{
		MessageProgress, MessageProgress, MessageProgress, MessageSuccess, MessageReset,
	}, kinds(msgs))
	assert.Equal(t, "Validating input...", msgs[0].Text)
	assert.Equal(t, "Rendering SVG...", msgs[1].Text)
	assert.Equal(t, "Capturing PNG...", msgs[2].Text)
	assert.Equal(t, outcome.Message, msgs[3].Text)
}

func TestWorker_ValidationFailure(t *testing.T) {
	e := newFakeEngine()
	w := newTestWorker(t, e)
	dir := t.TempDir()

	outcome := w.Run(context.Background(), NewRequest(filepath.Join(dir, "missing.svg"), filepath.Join(dir, "out.png"), 96, true))
	require.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, ErrValidation)
	assert.Contains(t, outcome.Message, "Validation error: ")
	assert.Empty(t, e.launches)

	msgs := drain(t, w)
	assert.Equal(t, []MessageKind{MessageProgress, MessageError, MessageReset}, kinds(msgs))
	assert.Equal(t, outcome.Message, msgs[1].Text)
	assert.ErrorIs(t, msgs[1].Err, ErrValidation)
}

func TestWorker_CaptureFailure(t *testing.T) {
	e := newFakeEngine()
	e.shots = []error{errShot, errShot, errShot}
	w := newTestWorker(t, e)
	dir := t.TempDir()
	in := writeSVG(t, dir, "in.svg", testSVG)

	outcome := w.Run(context.Background(), NewRequest(in, filepath.Join(dir, "out.png"), 96, true))
	require.False(t, outcome.Success)
	assert.Equal(t, "Conversion failed (capture): target closed", outcome.Message)

	msgs := drain(t, w)
	assert.Equal(t, MessageError, msgs[len(msgs)-2].Kind)
	assert.Equal(t, StateIdle, w.State())
}

func TestWorker_Panic(t *testing.T) {
	e := newFakeEngine()
	w := NewWorker(NewConverter(newTestWorkspace(t), append(fastOptions(e), WithEngine(panicEngine{}))...))
	dir := t.TempDir()
	in := writeSVG(t, dir, "in.svg", testSVG)

	outcome := w.Run(context.Background(), NewRequest(in, filepath.Join(dir, "out.png"), 96, true))
	require.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, ErrSystem)
	assert.Contains(t, outcome.Message, "Conversion system error: panic: ")

	msgs := drain(t, w)
	assert.Equal(t, MessageReset, msgs[len(msgs)-1].Kind)
	assert.Equal(t, StateIdle, w.State())
}

type panicEngine struct{}

func (panicEngine) Name() string { return "panic" }

func (panicEngine) Launch(context.Context, LaunchOptions) (Session, error) {
	panic("unexpected browser state")
}

func TestWorker_Busy(t *testing.T) {
	e := newFakeEngine()
	w := newTestWorker(t, e)
	w.state.Store(int32(StateRendering))

	outcome := w.Run(context.Background(), Request{})
	assert.ErrorIs(t, outcome.Err, ErrBusy)
	assert.Equal(t, StateRendering, w.State())
	assert.Empty(t, w.Messages())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "capturing", StateCapturing.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "reset", MessageReset.String())
}

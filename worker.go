package svgpng

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// State is a stage of the conversion worker.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateRendering
	StateCapturing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRendering:
		return "rendering"
	case StateCapturing:
		return "capturing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MessageKind tags a [Message].
type MessageKind int

const (
	// MessageProgress reports the stage the worker entered.
	MessageProgress MessageKind = iota
	// MessageSuccess reports a written PNG.
	MessageSuccess
	// MessageError reports a failed conversion.
	MessageError
	// MessageReset is always the last message of a conversion.
	MessageReset
)

func (k MessageKind) String() string {
	switch k {
	case MessageProgress:
		return "progress"
	case MessageSuccess:
		return "success"
	case MessageError:
		return "error"
	case MessageReset:
		return "reset"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Message is a status update sent from the worker to the interface.
type Message struct {
	Kind MessageKind
	Text string
	// Err is set for MessageError.
	Err error
}

// Outcome is the terminal result of one [Worker.Run].
type Outcome struct {
	Success bool
	Message string
	Err     error
	Result  *Result
}

// messageBuffer bounds the queue between worker and interface. One
// conversion posts far fewer messages than this.
const messageBuffer = 32

// Worker runs conversions off the interface goroutine and reports
// progress over a channel. Only the interface side reads
// [Worker.Messages]; it must keep draining them or Run blocks once the
// queue is full.
type Worker struct {
	conv  *Converter
	msgs  chan Message
	state atomic.Int32
}

// NewWorker returns a Worker rendering with conv.
func NewWorker(conv *Converter) *Worker {
	return &Worker{
		conv: conv,
		msgs: make(chan Message, messageBuffer),
	}
}

// Messages is the receive side of the status queue.
func (w *Worker) Messages() <-chan Message {
	return w.msgs
}

// State returns the current stage.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Run performs req and blocks until it is done. Every error, including
// a panic, is turned into a [MessageError]; a [MessageReset] is always
// posted last and the worker returns to [StateIdle]. Run returns
// [ErrBusy] without any transition if a conversion is already running.
func (w *Worker) Run(ctx context.Context, req Request) (out Outcome) {
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateValidating)) {
		return Outcome{Message: ErrBusy.Error(), Err: ErrBusy}
	}

	log := w.conv.cfg.log
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[%s] critical error in conversion worker: %v\n%s", req.ID, r, debug.Stack())
			err := newError(KindSystem, "worker", fmt.Errorf("panic: %v", r))
			out = w.fail(err)
		}
		w.post(Message{Kind: MessageReset})
		w.setState(StateIdle)
	}()

	w.setState(StateValidating)
	if err := req.Validate(w.conv.cfg.strict); err != nil {
		return w.fail(err)
	}

	res, err := w.conv.render(ctx, req, w.setState)
	if err != nil {
		log.Errorf("[%s] conversion error: %v", req.ID, err)
		return w.fail(err)
	}

	w.setState(StateSucceeded)
	text := fmt.Sprintf("Successfully saved:\n%s", res.Path)
	log.Infof("[%s] wrote %s (%d bytes)", req.ID, res.Path, res.Len())
	w.post(Message{Kind: MessageSuccess, Text: text})
	return Outcome{Success: true, Message: text, Result: res}
}

func (w *Worker) fail(err error) Outcome {
	w.setState(StateFailed)
	text := FailureText(err)
	w.post(Message{Kind: MessageError, Text: text, Err: err})
	return Outcome{Message: text, Err: err}
}

// FailureText is the user-facing status for a failed conversion.
func FailureText(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("Conversion system error: %v", err)
	}
	switch e.Kind {
	case KindValidation:
		if errors.Is(err, ErrCanceled) {
			return "Conversion canceled"
		}
		return fmt.Sprintf("Validation error: %v", e.Err)
	case KindSystem:
		return fmt.Sprintf("Conversion system error: %v", e.Err)
	default:
		return fmt.Sprintf("Conversion failed (%s): %v", e.Kind, e.Err)
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	switch s {
	case StateValidating:
		w.post(Message{Kind: MessageProgress, Text: "Validating input..."})
	case StateRendering:
		w.post(Message{Kind: MessageProgress, Text: "Rendering SVG..."})
	case StateCapturing:
		w.post(Message{Kind: MessageProgress, Text: "Capturing PNG..."})
	}
}

func (w *Worker) post(m Message) {
	w.msgs <- m
}

package svgpng

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PollInterval is how often [Controller.Run] drains worker messages.
const PollInterval = 100 * time.Millisecond

// Level is the severity of a status line.
type Level int

const (
	LevelInfo Level = iota
	LevelBusy
	LevelSuccess
	LevelError
)

// View is the status area of a front-end. It is only called from the
// interface goroutine.
type View interface {
	SetStatus(text string, level Level)
	// SetBusy starts or stops the progress indicator and disables or
	// enables the convert action.
	SetBusy(busy bool)
}

// Ticker is implemented by views that animate while busy. [Controller.Run]
// calls Tick after every poll.
type Ticker interface {
	Tick()
}

// Prompter asks the user blocking questions.
type Prompter interface {
	ConfirmOverwrite(path string) bool
	ConfirmQuit() bool
	ShowError(title, message string)
}

// Controller is the presentation logic shared by front-ends. All of its
// methods must be called from a single interface goroutine; the only
// state shared with conversions is the worker's message channel.
type Controller struct {
	worker *Worker
	ws     *Workspace
	view   View
	prompt Prompter
	log    Logger

	running  bool
	quitting bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewController wires a front-end to w. ws is torn down on quit.
func NewController(w *Worker, ws *Workspace, view View, prompt Prompter) *Controller {
	c := &Controller{
		worker: w,
		ws:     ws,
		view:   view,
		prompt: prompt,
		log:    w.conv.cfg.log,
	}
	view.SetStatus("Ready", LevelInfo)
	return c
}

// Running reports whether a conversion is in flight.
func (c *Controller) Running() bool {
	return c.running
}

// Start validates f and hands the conversion to a new worker goroutine.
// Validation errors are shown immediately and no goroutine is started.
// Start is a no-op returning [ErrBusy] while a conversion is running.
func (c *Controller) Start(ctx context.Context, f Form) error {
	if c.running {
		return ErrBusy
	}
	if c.quitting {
		return ErrClosed
	}

	req, err := PrepareRequest(f, c.prompt.ConfirmOverwrite, c.worker.conv.cfg.strict)
	if err != nil {
		text := FailureText(err)
		if errors.Is(err, ErrCanceled) {
			c.view.SetStatus(text, LevelInfo)
			return err
		}
		c.log.Warnf("rejected conversion request: %v", err)
		c.view.SetStatus(text, LevelError)
		c.prompt.ShowError("Error", text)
		return err
	}

	c.running = true
	c.view.SetBusy(true)
	c.view.SetStatus("Initializing conversion...", LevelBusy)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.worker.Run(ctx, req)
	}()
	return nil
}

// Poll applies every queued worker message without blocking.
func (c *Controller) Poll() {
	for {
		select {
		case m := <-c.worker.Messages():
			c.apply(m)
		default:
			return
		}
	}
}

func (c *Controller) apply(m Message) {
	switch m.Kind {
	case MessageProgress:
		c.view.SetStatus(m.Text, LevelBusy)
	case MessageSuccess:
		c.view.SetStatus(m.Text, LevelSuccess)
	case MessageError:
		c.view.SetStatus(m.Text, LevelError)
		c.prompt.ShowError("Error", m.Text)
	case MessageReset:
		c.running = false
		c.view.SetBusy(false)
	}
}

// Run polls the worker every [PollInterval] until ctx is done or a quit
// requested through [Controller.RequestQuit] has finished tearing down
// the workspace, in which case it returns nil.
func (c *Controller) Run(ctx context.Context) error {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-t.C:
			c.Poll()
			if tk, ok := c.view.(Ticker); ok {
				tk.Tick()
			}
		}
	}
}

// RequestQuit asks for confirmation when a conversion is running. When
// quitting goes ahead the workspace is removed in the background and
// the returned channel is closed once that is done; ok is false if the
// user chose to stay. The running conversion is never interrupted.
func (c *Controller) RequestQuit() (done <-chan struct{}, ok bool) {
	if c.quitting {
		return c.done, true
	}
	if c.running && !c.prompt.ConfirmQuit() {
		return nil, false
	}
	c.quitting = true
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		if err := c.ws.Close(); err != nil {
			c.log.Errorf("shutdown error: %v", err)
		}
	}()
	return c.done, true
}

// Wait blocks until every started worker goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

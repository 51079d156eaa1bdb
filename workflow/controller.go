// Package workflow sequences uploads, instructions, and downloads against
// the agent service and keeps the local session consistent with the
// service's confirmed responses.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/amonks/fileagent/agent"
	internalstrings "github.com/amonks/fileagent/internal/strings"
	"github.com/amonks/fileagent/session"
)

const (
	// DefaultUploadMessage is shown when an upload response carries no message.
	DefaultUploadMessage = "Project uploaded successfully! You can now start editing files with natural language commands."
	// DefaultInstructionMessage is shown when an instruction response carries no message.
	DefaultInstructionMessage = "Your request has been processed successfully!"
)

// Transfer performs the remote calls. *agent.Client implements it.
type Transfer interface {
	Upload(ctx context.Context, name string, archive []byte) (agent.UploadResult, error)
	SubmitInstruction(ctx context.Context, sessionID, text string) (agent.InstructionResult, error)
	Download(ctx context.Context, sessionID string) (agent.Archive, error)
	Files(ctx context.Context, sessionID string) ([]string, error)
}

// Options configures a Controller.
type Options struct {
	// Context is the parent of every dispatched call. Defaults to Background.
	Context context.Context
	// Timeout bounds each call. Zero disables the bound.
	Timeout time.Duration
	// Logger receives transition logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Controller owns the session and the single pending operation.
//
// Start methods check their guards synchronously and run the remote call on
// a separate goroutine. At most one call is pending; a call's result is
// applied only if no Reset happened after it was dispatched.
type Controller struct {
	transfer Transfer
	ctx      context.Context
	timeout  time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	store       *session.Store
	pending     Operation
	ticket      uint64
	subscribers map[int]func(Event)
	nextSubID   int
	queue       []Event
	delivering  bool

	inflight sync.WaitGroup
}

// New creates a controller with no session.
func New(transfer Transfer, opts Options) (*Controller, error) {
	if transfer == nil {
		return nil, fmt.Errorf("transfer client is required")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", opts.Timeout)
	}
	return &Controller{
		transfer:    transfer,
		ctx:         ctx,
		timeout:     opts.Timeout,
		logger:      logger,
		store:       session.NewStore(),
		subscribers: make(map[int]func(Event)),
	}, nil
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() session.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// State returns the current state tag.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Pending returns the in-flight operation, or OpNone.
func (c *Controller) Pending() Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Subscribe registers fn for every subsequent event. Callbacks run without
// controller locks held and may call back into the controller.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Wait blocks until every dispatched call has finished and published its
// result.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// StartUpload sends archive to the service to create a session. A
// successful upload replaces any current session.
func (c *Controller) StartUpload(name string, archive []byte) error {
	c.mu.Lock()
	if c.pending != OpNone {
		pending := c.pending
		c.mu.Unlock()
		return &BusyError{Pending: pending}
	}
	if len(archive) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: select a project archive", agent.ErrValidation)
	}
	data := make([]byte, len(archive))
	copy(data, archive)
	ticket := c.beginLocked(OpUploading)
	c.mu.Unlock()
	c.flush()

	c.dispatch(OpUploading, ticket, func(ctx context.Context) (func() (Event, error), error) {
		result, err := c.transfer.Upload(ctx, name, data)
		if err != nil {
			return nil, err
		}
		return func() (Event, error) {
			message := result.Message
			if internalstrings.IsBlank(message) {
				message = DefaultUploadMessage
			}
			if err := c.store.SetFromUpload(result.SessionID, result.Files, message); err != nil {
				return Event{}, err
			}
			return Event{Notice: fmt.Sprintf("Uploaded project: %d files.", len(result.Files))}, nil
		}, nil
	})
	return nil
}

// StartInstruction submits text against the current session. Blank text is
// rejected without a network call.
func (c *Controller) StartInstruction(text string) error {
	c.mu.Lock()
	sessionID, err := c.requireIdleLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if internalstrings.IsBlank(text) {
		c.mu.Unlock()
		return fmt.Errorf("%w: instruction is required", agent.ErrValidation)
	}
	ticket := c.beginLocked(OpSubmittingInstruction)
	c.mu.Unlock()
	c.flush()

	c.dispatch(OpSubmittingInstruction, ticket, func(ctx context.Context) (func() (Event, error), error) {
		result, err := c.transfer.SubmitInstruction(ctx, sessionID, text)
		if err != nil {
			return nil, err
		}
		return func() (Event, error) {
			message := result.Message
			if internalstrings.IsBlank(message) {
				message = DefaultInstructionMessage
			}
			if err := c.store.ApplyInstructionResult(result.Files, message); err != nil {
				return Event{}, err
			}
			return Event{Notice: "Instruction applied."}, nil
		}, nil
	})
	return nil
}

// StartDownload fetches the session archive. The archive is delivered in
// the EventCompleted event; saving it is up to the subscriber.
func (c *Controller) StartDownload() error {
	c.mu.Lock()
	sessionID, err := c.requireIdleLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ticket := c.beginLocked(OpDownloading)
	c.mu.Unlock()
	c.flush()

	c.dispatch(OpDownloading, ticket, func(ctx context.Context) (func() (Event, error), error) {
		archive, err := c.transfer.Download(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return func() (Event, error) {
			return Event{
				Notice:  fmt.Sprintf("Downloaded %s (%d bytes).", archive.Filename, len(archive.Data)),
				Archive: &archive,
			}, nil
		}, nil
	})
	return nil
}

// StartRefresh re-reads the file listing of the current session.
func (c *Controller) StartRefresh() error {
	c.mu.Lock()
	sessionID, err := c.requireIdleLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ticket := c.beginLocked(OpRefreshing)
	c.mu.Unlock()
	c.flush()

	c.dispatch(OpRefreshing, ticket, func(ctx context.Context) (func() (Event, error), error) {
		files, err := c.transfer.Files(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return func() (Event, error) {
			if err := c.store.ApplyListing(files); err != nil {
				return Event{}, err
			}
			return Event{Notice: fmt.Sprintf("Listing refreshed: %d files.", len(files))}, nil
		}, nil
	})
	return nil
}

// Reset clears the session immediately. An in-flight call keeps running on
// the service, but its result is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	abandoned := c.pending
	c.store.Clear()
	c.pending = OpNone
	c.ticket++
	c.enqueueLocked(Event{Kind: EventReset, Operation: abandoned, Notice: "Session cleared."})
	c.mu.Unlock()

	if abandoned != OpNone {
		c.logger.Info("reset abandoned in-flight operation", "operation", abandoned.String())
	} else {
		c.logger.Debug("reset")
	}
	c.flush()
}

func (c *Controller) stateLocked() State {
	_, ok := c.store.Get()
	return stateFor(c.pending, ok)
}

func (c *Controller) requireIdleLocked() (string, error) {
	if c.pending != OpNone {
		return "", &BusyError{Pending: c.pending}
	}
	current, ok := c.store.Get()
	if !ok {
		return "", ErrNoSession
	}
	return current.ID, nil
}

func (c *Controller) beginLocked(op Operation) uint64 {
	c.pending = op
	c.ticket++
	c.enqueueLocked(Event{Kind: EventStarted, Operation: op})
	c.logger.Debug("dispatch", "operation", op.String(), "ticket", c.ticket)
	return c.ticket
}

// call performs the remote exchange and returns a commit function that
// mutates the store under the controller lock.
type call func(ctx context.Context) (commit func() (Event, error), err error)

func (c *Controller) dispatch(op Operation, ticket uint64, fn call) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		commit, err := c.run(op, fn)
		c.complete(op, ticket, commit, err)
	}()
}

func (c *Controller) run(op Operation, fn call) (commit func() (Event, error), err error) {
	var ctx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	defer cancel()
	defer func() {
		if recovered := recover(); recovered != nil {
			commit = nil
			err = &agent.TransportError{Op: op.String(), Err: fmt.Errorf("panic: %v", recovered)}
		}
	}()
	return fn(ctx)
}

func (c *Controller) complete(op Operation, ticket uint64, commit func() (Event, error), err error) {
	c.mu.Lock()
	if ticket != c.ticket || c.pending != op {
		c.mu.Unlock()
		c.logger.Debug("discarding stale result", "operation", op.String(), "ticket", ticket)
		return
	}
	c.pending = OpNone

	var event Event
	if err == nil {
		event, err = commit()
	}
	if err != nil {
		if agent.IsSessionNotFound(err) && (op == OpSubmittingInstruction || op == OpRefreshing) {
			c.store.Clear()
		}
		event = Event{Err: err, Notice: Describe(op, err)}
		event.Kind = EventFailed
	} else {
		event.Kind = EventCompleted
	}
	event.Operation = op
	c.enqueueLocked(event)
	state := c.stateLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("operation failed", "operation", op.String(), "state", state.String(), "error", err)
	} else {
		c.logger.Info("operation completed", "operation", op.String(), "state", state.String())
	}
	c.flush()
}

// enqueueLocked stamps event with the current state and queues it for
// delivery.
func (c *Controller) enqueueLocked(event Event) {
	event.State = c.stateLocked()
	event.Snapshot = c.store.Snapshot()
	c.queue = append(c.queue, event)
}

// flush delivers queued events in order. Only one goroutine delivers at a
// time; others leave their events for it.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.queue) > 0 {
		events := c.queue
		c.queue = nil
		subscribers := make([]func(Event), 0, len(c.subscribers))
		for id := 0; id < c.nextSubID; id++ {
			if fn, ok := c.subscribers[id]; ok {
				subscribers = append(subscribers, fn)
			}
		}
		c.mu.Unlock()
		for _, event := range events {
			for _, fn := range subscribers {
				fn(event)
			}
		}
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

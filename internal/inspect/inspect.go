// Package inspect holds the state of one mounted inspect view: the request
// log and the subscription that feeds it.
//
// The subscription delivers on its own goroutine; the Inspector turns each
// delivery into an Event on a channel, and the owner applies events one at a
// time from its own loop. All log mutation happens inside Apply, so the log
// needs no locking.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/requestlog"
	"github.com/sadopc/gomibako/internal/view"
)

var (
	ErrMissingSessionKey = errors.New("missing session key")
	ErrAlreadyStarted    = errors.New("inspector already started")
)

// Subscriber is a one-shot feed of records for a session key.
// *stream.Source implements it.
type Subscriber interface {
	OnRecord(func(record.Request))
	OnOpen(func())
	OnError(func(error))
	Open(ctx context.Context, key string) error
	Close() error
}

// State is the lifecycle state of an Inspector.
type State int

const (
	Unmounted State = iota
	Subscribing
	Streaming
	// Disconnected means the transport failed; the log is kept but no
	// further records arrive.
	Disconnected
	Closed
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Subscribing:
		return "connecting"
	case Streaming:
		return "streaming"
	case Disconnected:
		return "disconnected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind identifies what an Event carries.
type EventKind int

const (
	EventOpen EventKind = iota
	EventRecord
	EventError
)

// Event is one delivery from the subscription.
type Event struct {
	Kind   EventKind
	Record record.Request
	Err    error
}

const defaultBuffer = 64

// Inspector is the explicit state container of an inspect view.
type Inspector struct {
	sub    Subscriber
	logger *zap.Logger

	key   string
	state State
	log   *requestlog.Log
	err   error

	events   chan Event
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Inspector) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithBuffer sets how many undelivered events may queue before the
// subscription goroutine waits.
func WithBuffer(n int) Option {
	return func(i *Inspector) {
		if n >= 0 {
			i.events = make(chan Event, n)
		}
	}
}

// New creates an unmounted Inspector over sub.
func New(sub Subscriber, opts ...Option) *Inspector {
	i := &Inspector{
		sub:     sub,
		logger:  zap.NewNop(),
		log:     requestlog.New(),
		events:  make(chan Event, defaultBuffer),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start subscribes to the feed for key. It may be called once.
func (i *Inspector) Start(ctx context.Context, key string) error {
	if key == "" {
		return ErrMissingSessionKey
	}
	if i.state != Unmounted {
		return ErrAlreadyStarted
	}

	i.sub.OnOpen(func() { i.send(Event{Kind: EventOpen}) })
	i.sub.OnRecord(func(r record.Request) { i.send(Event{Kind: EventRecord, Record: r}) })
	i.sub.OnError(func(err error) { i.send(Event{Kind: EventError, Err: err}) })

	i.key = key
	i.state = Subscribing
	if err := i.sub.Open(ctx, key); err != nil {
		i.state = Closed
		i.stop()
		return fmt.Errorf("opening feed for %q: %w", key, err)
	}
	i.logger.Debug("inspector started", zap.String("key", key))
	return nil
}

// send hands an event to the owner unless the inspector has stopped.
func (i *Inspector) send(ev Event) {
	select {
	case <-i.stopped:
		return
	default:
	}
	select {
	case i.events <- ev:
	case <-i.stopped:
	}
}

// Events returns the channel the owner reads deliveries from.
func (i *Inspector) Events() <-chan Event {
	return i.events
}

// Done is closed once Stop has been called.
func (i *Inspector) Done() <-chan struct{} {
	return i.stopped
}

// Apply folds one event into the state. It reports whether the rendered
// output may have changed. Events are ignored once the inspector has
// stopped.
func (i *Inspector) Apply(ev Event) bool {
	switch i.state {
	case Unmounted, Closed:
		return false
	}

	switch ev.Kind {
	case EventOpen:
		if i.state != Subscribing {
			return false
		}
		i.state = Streaming
		return true
	case EventRecord:
		if i.state == Disconnected {
			return false
		}
		i.log.Prepend(ev.Record)
		return true
	case EventError:
		i.state = Disconnected
		i.err = ev.Err
		i.logger.Warn("feed disconnected", zap.String("key", i.key), zap.Error(ev.Err))
		return true
	}
	return false
}

// Stop closes the subscription and discards the log. Safe to call more
// than once.
func (i *Inspector) Stop() {
	if i.state == Closed {
		return
	}
	i.state = Closed
	i.stop()
	i.log = requestlog.New()
	i.logger.Debug("inspector stopped", zap.String("key", i.key))
}

func (i *Inspector) stop() {
	i.stopOnce.Do(func() {
		close(i.stopped)
		if err := i.sub.Close(); err != nil {
			i.logger.Debug("closing feed", zap.Error(err))
		}
	})
}

// State returns the lifecycle state.
func (i *Inspector) State() State { return i.state }

// Key returns the session key passed to Start.
func (i *Inspector) Key() string { return i.key }

// Err returns the transport error that disconnected the feed, if any.
func (i *Inspector) Err() error { return i.err }

// Log returns the request log.
func (i *Inspector) Log() *requestlog.Log { return i.log }

// Render renders the current log.
func (i *Inspector) Render(opts view.Options) string {
	return view.Render(i.log.Snapshot(), opts)
}

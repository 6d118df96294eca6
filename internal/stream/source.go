// Package stream opens the live request feed of a capture session and turns
// its push frames into records.
package stream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/logging"
	"github.com/sadopc/gomibako/internal/record"
)

// Transport names the wire used for the feed.
type Transport string

const (
	// TransportSSE reads the feed as text/event-stream. It is the default.
	TransportSSE Transport = "sse"
	// TransportWebSocket reads the feed as websocket text messages.
	TransportWebSocket Transport = "websocket"
)

var (
	// ErrEmptyKey is returned by Open without a session key.
	ErrEmptyKey = errors.New("session key is empty")
	// ErrAlreadyOpen is returned by a second Open on the same Source.
	ErrAlreadyOpen = errors.New("stream already opened")
	// ErrClosed is returned by Open after Close.
	ErrClosed = errors.New("stream closed")
	// ErrStreamEnded is reported when the server closes the feed.
	ErrStreamEnded = errors.New("server ended the stream")
	// ErrBadStatus is reported for a non-200 subscription response.
	ErrBadStatus = errors.New("unexpected response status")
	// ErrNotEventStream is reported when the response is not text/event-stream.
	ErrNotEventStream = errors.New("response is not an event stream")
)

// maxFrameSize bounds a single frame. The capture server keeps up to a
// million runes of body, which JSON escaping can inflate.
const maxFrameSize = 16 << 20

// Source owns one subscription to a session's request feed. Callbacks run
// on a single reader goroutine in frame arrival order.
type Source struct {
	baseURL   string
	transport Transport
	client    *http.Client
	logger    *zap.Logger

	mu     sync.Mutex
	opened bool
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool

	onRecord func(record.Request)
	onOpen   func()
	onError  func(error)
}

// Option configures a Source.
type Option func(*Source)

// WithTransport selects SSE (default) or websocket.
func WithTransport(t Transport) Option {
	return func(s *Source) {
		if t != "" {
			s.transport = t
		}
	}
}

// WithHTTPClient sets the client used for the SSE request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger used to report skipped frames.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		s.logger = logging.OrNop(l)
	}
}

// New creates a Source for the capture server at baseURL.
func New(baseURL string, opts ...Option) *Source {
	s := &Source{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: TransportSSE,
		client:    &http.Client{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EndpointURL returns the feed URL for key.
func (s *Source) EndpointURL(key string) string {
	return s.baseURL + "/g/" + url.PathEscape(key) + "/reqevents"
}

// OnRecord registers the consumer of decoded records. Register callbacks
// before Open.
func (s *Source) OnRecord(fn func(record.Request)) { s.onRecord = fn }

// OnOpen registers a callback for the transport's open signal.
func (s *Source) OnOpen(fn func()) { s.onOpen = fn }

// OnError registers a callback for transport failures. It fires at most once;
// no reconnection is attempted.
func (s *Source) OnError(fn func(error)) { s.onError = fn }

// Open starts listening on the feed for key. A Source opens once.
func (s *Source) Open(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	// Close flips closed before taking mu, so this check under mu either
	// sees it or leaves a cancel for Close to find.
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.opened = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	endpoint := s.EndpointURL(key)
	s.logger.Info("opening request feed",
		zap.String("url", endpoint), zap.String("transport", string(s.transport)))

	go s.run(ctx, endpoint, done)
	return nil
}

// Close releases the transport. It is safe to call more than once and on a
// Source that was never opened. No callback starts after Close returns.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Done is closed once the reader goroutine has exited. It is nil before Open.
func (s *Source) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Source) run(ctx context.Context, endpoint string, done chan struct{}) {
	defer close(done)

	var err error
	switch s.transport {
	case TransportWebSocket:
		err = s.readWebSocket(ctx, endpoint)
	default:
		err = s.readSSE(ctx, endpoint)
	}

	if ctx.Err() != nil || s.closed.Load() {
		return
	}
	if err == nil {
		err = ErrStreamEnded
	}
	logging.LogError(s.logger, err, "request feed stopped", zap.String("url", endpoint))
	s.emitError(err)
}

// handleFrame decodes one payload. Undecodable frames are logged and
// skipped so the feed keeps going.
func (s *Source) handleFrame(data []byte) {
	if s.closed.Load() {
		return
	}
	rec, err := record.Decode(data)
	if err != nil {
		s.logger.Warn("skipping undecodable frame", zap.Int("size", len(data)), zap.Error(err))
		return
	}
	if s.closed.Load() || s.onRecord == nil {
		return
	}
	s.onRecord(rec)
}

func (s *Source) emitOpen() {
	if s.closed.Load() || s.onOpen == nil {
		return
	}
	s.onOpen()
}

func (s *Source) emitError(err error) {
	if s.closed.Load() || s.onError == nil {
		return
	}
	s.onError(err)
}

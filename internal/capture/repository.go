// Package capture is a small capture server: it hands out session keys,
// records whatever is sent to a session and streams those requests to
// inspectors.
package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/record"
)

var (
	ErrSessionNotFound = errors.New("no gomibako found")
	ErrKeyExhausted    = errors.New("could not allocate a unique session key")
)

const (
	// DefaultHistorySize is how many requests a session replays to a new
	// subscriber.
	DefaultHistorySize = 10
	keyLength          = 10
	subscriberBuffer   = 256
)

type session struct {
	key        string
	created    time.Time
	lastActive time.Time
	history    []record.Request
	subs       map[*subscriber]struct{}
}

type subscriber struct {
	ch     chan record.Request
	closed bool
}

// Repository holds every live session. Safe for concurrent use.
type Repository struct {
	mu          sync.Mutex
	sessions    map[string]*session
	historySize int
	logger      *zap.Logger
	now         func() time.Time
	newKey      func() string
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithHistorySize sets how many recent requests each session keeps.
func WithHistorySize(n int) RepositoryOption {
	return func(r *Repository) {
		if n > 0 {
			r.historySize = n
		}
	}
}

// WithRepositoryLogger sets the logger.
func WithRepositoryLogger(l *zap.Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		sessions:    make(map[string]*session),
		historySize: DefaultHistorySize,
		logger:      zap.NewNop(),
		now:         time.Now,
		newKey:      newKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newKey derives a short lowercase key from a random UUID.
func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:keyLength]
}

// Create allocates a new session and returns its key.
func (r *Repository) Create() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range 5 {
		key := r.newKey()
		if _, taken := r.sessions[key]; taken {
			continue
		}
		now := r.now()
		r.sessions[key] = &session{
			key:        key,
			created:    now,
			lastActive: now,
			subs:       make(map[*subscriber]struct{}),
		}
		r.logger.Info("session created", zap.String("key", key))
		return key, nil
	}
	return "", ErrKeyExhausted
}

// Exists reports whether key names a live session.
func (r *Repository) Exists(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	return ok
}

// Len returns the number of live sessions.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Add records req in the session and fans it out to subscribers. A
// subscriber that has fallen a full buffer behind is disconnected rather
// than silently skipped.
func (r *Repository) Add(key string, req record.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	s.lastActive = r.now()
	s.history = append(s.history, req)
	if over := len(s.history) - r.historySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}

	for sub := range s.subs {
		select {
		case sub.ch <- req:
		default:
			r.logger.Warn("dropping slow subscriber", zap.String("key", key))
			r.dropLocked(s, sub)
		}
	}
	return nil
}

// Requests returns the retained history, oldest first.
func (r *Repository) Requests(key string) ([]record.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return append([]record.Request(nil), s.history...), nil
}

// Subscription is a live feed of one session.
type Subscription struct {
	// History is what the session held when the subscription started,
	// oldest first. Requests on C follow it without gaps or repeats.
	History []record.Request
	// C is closed when the subscription is cancelled or dropped.
	C <-chan record.Request

	cancel func()
}

// Cancel stops the subscription. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// Subscribe registers a subscriber for key.
func (r *Repository) Subscribe(key string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sub := &subscriber{ch: make(chan record.Request, subscriberBuffer)}
	s.subs[sub] = struct{}{}
	s.lastActive = r.now()

	return &Subscription{
		History: append([]record.Request(nil), s.history...),
		C:       sub.ch,
		cancel: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.dropLocked(s, sub)
		},
	}, nil
}

func (r *Repository) dropLocked(s *session, sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(s.subs, sub)
	close(sub.ch)
}

// Expire removes sessions idle since before cutoff that have no
// subscribers, and returns how many were removed.
func (r *Repository) Expire(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, s := range r.sessions {
		if len(s.subs) > 0 || !s.lastActive.Before(cutoff) {
			continue
		}
		delete(r.sessions, key)
		n++
	}
	return n
}

// RunExpiry calls Expire every interval, dropping sessions idle for longer
// than ttl, until ctx is done.
func (r *Repository) RunExpiry(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Expire(r.now().Add(-ttl)); n > 0 {
				r.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/dimfeld/httptreemux/v5"
	"github.com/unrolled/secure"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/logging"
	"github.com/sadopc/gomibako/internal/record"
)

const (
	maxBodyRead  = 3 * 1000 * 1000
	maxBodyRunes = 1000 * 1000

	defaultKeepAlive = 15 * time.Second
)

// Server serves the capture endpoints over a Repository.
type Server struct {
	repo      *Repository
	logger    *zap.Logger
	keepAlive time.Duration
	dev       bool
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeepAlive sets the interval between SSE comment pings. Zero disables
// them.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) { s.keepAlive = d }
}

// WithDevelopment relaxes the secure middleware for local use.
func WithDevelopment(dev bool) Option {
	return func(s *Server) { s.dev = dev }
}

// NewServer creates a Server for repo.
func NewServer(repo *Repository, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		logger:    zap.NewNop(),
		keepAlive: defaultKeepAlive,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	router := httptreemux.NewContextMux()
	router.NotFoundHandler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}

	router.POST("/g/-/new", s.handleNew)
	router.GET("/g/:key/inspect", s.handleInspect)
	router.GET("/g/:key/reqevents", s.handleEvents)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		router.Handle(method, "/g/:key", s.handleRecord)
	}

	recovery := negroni.NewRecovery()
	recovery.Logger = zap.NewStdLog(s.logger)
	recovery.PrintStack = false

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'self'",
		IsDevelopment:         s.dev,
	})

	n := negroni.New(recovery)
	n.Use(negroni.HandlerFunc(s.logRequest))
	n.Use(negroni.HandlerFunc(secureMiddleware.HandlerFuncWithNext))
	n.UseHandler(router)
	return n
}

func (s *Server) logRequest(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := s.now()
	next(w, r)

	status := 0
	if rw, ok := w.(negroni.ResponseWriter); ok {
		status = rw.Status()
	}
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	)
}

func sessionKey(r *http.Request) string {
	return httptreemux.ContextParams(r.Context())["key"]
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	key, err := s.repo.Create()
	if err != nil {
		logging.LogError(s.logger, err, "failed to create session")
		http.Error(w, "gomibako generation error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, key+"\n")
		return
	}
	http.Redirect(w, r, "/g/"+key+"/inspect", http.StatusFound)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	if !s.repo.Exists(key) {
		http.Error(w, ErrSessionNotFound.Error(), http.StatusNotFound)
		return
	}
	origin := requestOrigin(r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "gomibako %s\n\nSend requests to %s/g/%s\nInspect them with:\n\n  gomibako %s/g/%s/inspect\n",
		key, origin, key, origin, key)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	if !s.repo.Exists(key) {
		http.Error(w, ErrSessionNotFound.Error(), http.StatusNotFound)
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxBodyRead)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, "failed to load body", http.StatusBadRequest)
		return
	}

	req := record.Request{
		Timestamp:   s.now(),
		Method:      r.Method,
		URL:         r.URL.RequestURI(),
		Headers:     flattenHeaders(r.Header),
		Body:        truncateRunes(body, maxBodyRunes),
		BodyPresent: true,
	}
	if err := s.repo.Add(key, req); err != nil {
		// Expired between the check and the add.
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	sub, err := s.repo.Subscribe(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer sub.Cancel()

	if isWebSocketUpgrade(r) {
		s.streamWebSocket(w, r, key, sub)
		return
	}
	s.streamSSE(w, r, key, sub)
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, key string, sub *Subscription) {
	fw, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, req := range sub.History {
		fmt.Fprintf(w, "data: %s\n\n", record.Encode(req))
	}
	fw.Flush()

	var ping <-chan time.Time
	if s.keepAlive > 0 {
		t := time.NewTicker(s.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case req, ok := <-sub.C:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", record.Encode(req)); err != nil {
				s.logger.Debug("subscriber went away", zap.String("key", key), zap.Error(err))
				return
			}
			fw.Flush()
		case <-ping:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			fw.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) streamWebSocket(w http.ResponseWriter, r *http.Request, key string, sub *Subscription) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logging.LogError(s.logger, err, "websocket accept failed", zap.String("key", key))
		return
	}
	defer conn.CloseNow()

	// Inspectors never send; CloseRead handles control frames and cancels
	// ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	send := func(req record.Request) error {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, record.Encode(req))
	}

	for _, req := range sub.History {
		if err := send(req); err != nil {
			return
		}
	}
	for {
		select {
		case req, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "subscriber dropped")
				return
			}
			if err := send(req); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("websocket write failed", zap.String("key", key), zap.Error(err))
				}
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// flattenHeaders turns a header map into pairs sorted by key then value.
func flattenHeaders(h http.Header) []record.HeaderPair {
	pairs := make([]record.HeaderPair, 0, len(h))
	for k, vs := range h {
		for _, v := range vs {
			pairs = append(pairs, record.HeaderPair{Key: k, Value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key == pairs[j].Key {
			return pairs[i].Value < pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})
	return pairs
}

func truncateRunes(b []byte, n int) string {
	runes := bytes.Runes(b)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

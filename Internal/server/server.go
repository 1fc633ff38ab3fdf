// Package server exposes the engine's snapshots to the dashboard: a
// small chi API for the latest state and a WebSocket stream for pushes.
// It only ever sees immutable snapshot copies; tracker internals never
// cross this boundary.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/fazecat/flowlens/Internal/series"
)

const (
	writeTimeout  = 5 * time.Second
	subscriberBuf = 16
)

// Server fans engine snapshots out to HTTP and WebSocket consumers.
type Server struct {
	addr string
	log  *zap.SugaredLogger

	mu          sync.RWMutex
	latest      *series.Snapshot
	subscribers map[chan []byte]struct{}
}

// New builds a server listening on addr.
func New(addr string, log *zap.SugaredLogger) *Server {
	return &Server{
		addr:        addr,
		log:         log,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Publish stores a snapshot and pushes it to all connected WebSocket
// subscribers. Slow subscribers drop frames rather than block the
// engine.
func (s *Server) Publish(snap series.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Errorw("marshaling snapshot", "error", err)
		return
	}

	s.mu.Lock()
	s.latest = &snap
	for ch := range s.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
	s.mu.Unlock()
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)

	srv := &http.Server{Addr: s.addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()

	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dashboard runs on a different local port
	})
	if err != nil {
		s.log.Warnw("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := make(chan []byte, subscriberBuf)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// replay the latest snapshot so a fresh client renders immediately
	if s.latest != nil {
		if payload, err := json.Marshal(s.latest); err == nil {
			ch <- payload
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers already sent; nothing useful left to do
		_ = err
	}
}

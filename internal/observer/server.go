// Package observer streams zone events to websocket subscribers and serves
// a JSON snapshot of every zone.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/events"
)

const (
	writeTimeout    = 5 * time.Second
	pongTimeout     = 60 * time.Second
	pingInterval    = 25 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Source produces the zone snapshot served by ZonesHandler.
type Source interface {
	Zones() []ZoneState
}

type subscriber struct {
	id    uint64
	zones []string // пусто = все зоны
	out   chan []byte
}

func (s *subscriber) wants(zoneID string) bool {
	return len(s.zones) == 0 || zoneID == "" || slices.Contains(s.zones, zoneID)
}

// Server fans events out to websocket subscribers. It implements events.Sink;
// a subscriber whose queue is full misses events instead of slowing the
// publisher.
type Server struct {
	cfg    config.ObserverConfig
	source Source

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Int64

	mu   sync.RWMutex
	subs map[uint64]*subscriber

	routes map[string]http.Handler
}

var _ events.Sink = (*Server)(nil)

// NewServer creates an observer server.
func NewServer(cfg config.ObserverConfig, source Source) *Server {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	return &Server{
		cfg:    cfg,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs:   make(map[uint64]*subscriber),
		routes: make(map[string]http.Handler),
	}
}

// SetSource replaces the snapshot source. Call before Run.
func (s *Server) SetSource(src Source) { s.source = src }

// Mount adds an extra route served next to the observer endpoints.
// Call before Run.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.routes[pattern] = h
}

// Publish encodes e once and queues it for every interested subscriber.
func (s *Server) Publish(e events.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.subs) == 0 {
		return
	}

	b, err := json.Marshal(e)
	if err != nil {
		slog.Error("encoding observer event", "kind", e.Kind, "error", err)
		return
	}
	for _, sub := range s.subs {
		if !sub.wants(e.ZoneID) {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped returns how many events slow subscribers missed.
func (s *Server) Dropped() int64 { return s.dropped.Load() }

func (s *Server) add(zones []string) *subscriber {
	sub := &subscriber{
		id:    s.nextID.Add(1),
		zones: zones,
		out:   make(chan []byte, s.cfg.SendQueueSize),
	}
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub
}

func (s *Server) remove(sub *subscriber) {
	s.mu.Lock()
	delete(s.subs, sub.id)
	s.mu.Unlock()
}

// Handler returns the HTTP routes: /ws (event stream, optional repeated
// ?zone= filter) and /zones (JSON snapshot).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.WSHandler)
	mux.HandleFunc("GET /zones", s.ZonesHandler)
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}
	return mux
}

// ZonesHandler writes the current zone snapshot as JSON.
func (s *Server) ZonesHandler(rw http.ResponseWriter, _ *http.Request) {
	zones := []ZoneState{}
	if s.source != nil {
		zones = s.source.Zones()
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(zones); err != nil {
		slog.Error("encoding zone snapshot", "error", err)
	}
}

// WSHandler upgrades the request and streams events until the peer goes away.
func (s *Server) WSHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		slog.Debug("observer upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	sub := s.add(r.URL.Query()["zone"])
	defer s.remove(sub)
	slog.Info("observer connected", "id", sub.id, "remote", r.RemoteAddr, "zones", sub.zones)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: клиент ничего не шлёт, читаем только чтобы получать pong и close.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(time.Second))
			slog.Info("observer disconnected", "id", sub.id)
			return
		case b := <-sub.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				slog.Debug("observer write failed", "id", sub.id, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// Run serves the observer on cfg.Addr() until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("observer listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("observer server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down observer: %w", err)
		}
		return nil
	}
}

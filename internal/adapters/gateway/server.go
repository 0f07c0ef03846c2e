// Package gateway serves the bidirectional event stream over
// WebSocket, plus health and metrics endpoints. Every connected
// observer receives the full bus stream and may publish commands back
// onto it.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/warroomhq/warroom/internal/observability"
	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/event"
)

// Server bridges WebSocket connections onto the bus.
type Server struct {
	bus      *bus.Bus
	metrics  *observability.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

type Option func(*Server)

// WithLogger sets the gateway's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics wires connection and message instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a gateway over the given bus.
func New(b *bus.Bus, opts ...Option) *Server {
	s := &Server{
		bus: b,
		log: slog.New(slog.DiscardHandler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local coordination tool: observers connect from
			// arbitrary local origins (TUIs, electron shells).
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gateway's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.log.Info("observer connected", "remote", conn.RemoteAddr())
	s.serveConn(r.Context(), conn)
	s.log.Info("observer disconnected", "remote", conn.RemoteAddr())
}

// serveConn runs the two halves of a connection: a forwarder writing
// bus events to the socket and a receiver republishing inbound
// commands. Either half failing tears the whole connection down.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := s.bus.Subscribe()
	defer sub.Cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.forward(ctx, conn, sub)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.receive(conn)
	}()

	<-ctx.Done()
	// Closing the connection unblocks the receiver's pending read and
	// fails the forwarder's next write.
	conn.Close()
	wg.Wait()
}

func (s *Server) forward(ctx context.Context, conn *websocket.Conn, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := event.Marshal(e)
			if err != nil {
				s.log.Error("failed to marshal outbound event", "type", e.EventType(), "err", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) receive(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		e, err := event.Decode(data)
		if err != nil {
			// A message this build cannot understand is dropped, not a
			// connection failure.
			if errors.Is(err, event.ErrUnknownType) {
				s.log.Debug("ignoring unknown inbound message", "err", err)
			} else {
				s.log.Debug("dropping malformed inbound message", "err", err)
			}
			if s.metrics != nil {
				s.metrics.MessagesDropped.Inc()
			}
			continue
		}

		if s.metrics != nil {
			s.metrics.MessagesReceived.Inc()
		}
		s.bus.Publish(e)
	}
}

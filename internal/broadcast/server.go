// internal/broadcast/server.go
package broadcast

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/events"
)

// Event types pushed to websocket clients.
const (
	EventNewToken          = "new_token"
	EventTransactionUpdate = "transaction_update"
	EventSecurityAlert     = "security_alert"
	EventStatsUpdate       = "stats_update"
	EventError             = "error"
)

// WSEvent is the frame sent to websocket clients.
type WSEvent struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWSEvent stamps an event frame with the current time.
func NewWSEvent(eventType string, data any) WSEvent {
	return WSEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// StatsProvider supplies the payload for stats_update frames.
type StatsProvider func() any

// Server pushes pipeline events to websocket clients. New clients get a
// stats frame immediately; afterwards they receive broadcasts plus a
// periodic stats refresh.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	hub      *hub
	bus      *events.Bus
	stats    StatsProvider
	interval time.Duration
	logger   *zap.Logger

	httpServer *http.Server
	subs       []events.Subscription
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewServer builds a websocket server bound to addr. The bus and stats
// provider are optional.
func NewServer(addr string, bus *events.Bus, stats StatsProvider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:     addr,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		hub:      newHub(),
		bus:      bus,
		stats:    stats,
		interval: 5 * time.Second,
		logger:   logger.Named("broadcast"),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleClient)
	return mux
}

// Start subscribes to the event bus and begins accepting clients.
func (s *Server) Start() error {
	if s.httpServer != nil {
		return fmt.Errorf("broadcast server already started")
	}

	s.subscribeBus()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.statsLoop(ctx)

	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	go func() {
		s.logger.Info("websocket server listening", zap.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("websocket server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down and detaches from the event bus.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.httpServer = nil
	return err
}

// Broadcast pushes one frame to every connected client.
func (s *Server) Broadcast(event WSEvent) {
	s.hub.Broadcast(event)
}

// Clients reports the number of connected clients.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(32)
	defer s.hub.Unsubscribe(sub)
	s.logger.Info("client connected", zap.Int("clients", s.hub.Clients()))

	if s.stats != nil {
		if err := conn.WriteJSON(NewWSEvent(EventStatsUpdate, s.stats())); err != nil {
			return
		}
	}

	// Inbound frames are drained so pings keep the connection alive;
	// clients have nothing to say to us yet. The read loop also notices
	// disconnects.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return
		case event, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (s *Server) statsLoop(ctx context.Context) {
	defer close(s.done)
	if s.stats == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.Broadcast(NewWSEvent(EventStatsUpdate, s.stats()))
		}
	}
}

// subscribeBus maps pipeline events onto client frames.
func (s *Server) subscribeBus() {
	if s.bus == nil {
		return
	}
	forward := func(frameType string) events.Handler {
		return events.HandlerFunc(func(_ context.Context, e events.Event) error {
			s.hub.Broadcast(NewWSEvent(frameType, e))
			return nil
		})
	}
	s.subs = append(s.subs,
		s.bus.Subscribe(events.OpportunityDetected, forward(EventNewToken)),
		s.bus.Subscribe(events.TransactionSubmitted, forward(EventTransactionUpdate)),
		s.bus.Subscribe(events.TransactionCompleted, forward(EventTransactionUpdate)),
		s.bus.Subscribe(events.TransactionFailed, forward(EventSecurityAlert)),
	)
}

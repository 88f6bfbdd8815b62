package notify

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"PersonalQT/internal/store"
	applogger "PersonalQT/pkg/logger"

	"github.com/gorilla/websocket"
)

// Source hands out change subscriptions; *store.Store implements it.
type Source interface {
	Subscribe() (<-chan store.Change, func(), error)
}

const (
	EventReady  = "ready"
	EventChange = "change"
)

// Event is one frame sent to a websocket client.
type Event struct {
	Type   string        `json:"type"`
	Change *store.Change `json:"change,omitempty"`
}

// Option configures Streamer.
type Option func(*Streamer)

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(s *Streamer) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithWriteWait bounds a single frame write.
func WithWriteWait(d time.Duration) Option {
	return func(s *Streamer) {
		if d > 0 {
			s.writeWait = d
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Streamer) { s.upgrader.CheckOrigin = fn }
}

// WithLogger sets the streamer logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Streamer) {
		if l != nil {
			s.log = l
		}
	}
}

// Streamer pushes store changes to websocket clients, one subscription per
// connection.
type Streamer struct {
	src          Source
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeWait    time.Duration
	active       atomic.Int64
	log          *applogger.Logger
}

// New creates a Streamer reading from src.
func New(src Source, opts ...Option) *Streamer {
	s := &Streamer{
		src: src,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: 30 * time.Second,
		writeWait:    10 * time.Second,
		log:          applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("notify")
	return s
}

// Active returns the number of open connections.
func (s *Streamer) Active() int {
	return int(s.active.Load())
}

// Serve upgrades the request and streams changes until the client leaves,
// the request context ends, or the store is closed.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request) error {
	changes, cancel, err := s.src.Subscribe()
	if err != nil {
		return fmt.Errorf("notify subscribe: %w", err)
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		return fmt.Errorf("notify upgrade: %w", err)
	}
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)
	s.log.Debug("client connected", applogger.String("remote", r.RemoteAddr))

	if err := s.write(conn, Event{Type: EventReady}); err != nil {
		return err
	}

	// read loop: drains control frames and notices the client leaving
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-gone:
			s.log.Debug("client disconnected", applogger.String("remote", r.RemoteAddr))
			return nil
		case ch, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "store closed"),
					time.Now().Add(s.writeWait))
				return nil
			}
			if err := s.write(conn, Event{Type: EventChange, Change: &ch}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				return fmt.Errorf("notify ping: %w", err)
			}
		}
	}
}

func (s *Streamer) write(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return fmt.Errorf("notify write: %w", err)
	}
	return nil
}

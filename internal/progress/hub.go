// Package progress pushes pipeline stage events to websocket subscribers.
package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Event reports the outcome of one stage for one project
type Event struct {
	ProjectID uuid.UUID `json:"project_id"`
	Stage     string    `json:"stage"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher receives stage events
type Publisher interface {
	Publish(Event)
}

// Nop drops every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(Event) {}

const (
	sendBuffer   = 32
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

type subscriber struct {
	projectID uuid.UUID
	send      chan Event
}

// Hub fans events out to websocket subscribers of a project
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

var _ Publisher = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Publish delivers e to the subscribers of its project. Slow subscribers
// miss events rather than block the pipeline.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.projectID != e.ProjectID {
			continue
		}
		select {
		case s.send <- e:
		default:
			h.log.Debug("dropping progress event for slow subscriber", zap.String("project_id", e.ProjectID.String()))
		}
	}
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Serve upgrades the request and streams the project's events until the
// client disconnects
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return eris.Wrap(err, "upgrade websocket")
	}
	defer conn.Close()

	sub := &subscriber{projectID: projectID, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	// The read loop only notices the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-r.Context().Done():
			return nil
		case e := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return eris.Wrap(err, "write progress event")
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return eris.Wrap(err, "send ping")
			}
		}
	}
}

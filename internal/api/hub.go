package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/impact-portal/internal/models"
)

const (
	hubSendBuffer = 32
	hubWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedMessage is a frame on the live feed socket
type FeedMessage struct {
	Type  string                `json:"type"`
	Data  string                `json:"data,omitempty"`
	Event *models.ReactionEvent `json:"event,omitempty"`
}

type hubClient struct {
	id     string
	viewer string
	send   chan []byte
}

// Hub fans reaction events out to the feed sockets of the viewer who made
// them. Overlays are per viewer, so other viewers never see them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*hubClient
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*hubClient)}
}

// Publish implements feed.Publisher. Slow clients drop events rather than
// block the toggling request.
func (h *Hub) Publish(viewer string, event models.ReactionEvent) {
	data, err := json.Marshal(FeedMessage{Type: event.Type, Event: &event})
	if err != nil {
		slog.Error("failed to marshal feed event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.viewer != viewer {
			continue
		}
		select {
		case c.send <- data:
		default:
			slog.Debug("feed client lagging, event dropped", "client_id", c.id)
		}
	}
}

// Clients returns the number of connected sockets
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(viewer string) *hubClient {
	c := &hubClient{id: uuid.NewString(), viewer: viewer, send: make(chan []byte, hubSendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

func (s *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	viewer := SessionFromContext(r.Context()).ViewerKey()
	client := s.hub.register(viewer)
	defer s.hub.unregister(client)

	slog.Info("feed websocket connected", "client_id", client.id, "viewer", viewer)

	if err := sendFeedMessage(conn, FeedMessage{Type: "connected", Data: client.id}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Hub -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-client.send:
				conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					slog.Debug("failed to send feed message", "error", err)
					return
				}
			}
		}
	}()

	// WebSocket reads only detect the close; clients have nothing to say
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	<-ctx.Done()
	conn.Close()
	wg.Wait()
	slog.Info("feed websocket disconnected", "client_id", client.id)
}

func sendFeedMessage(conn *websocket.Conn, msg FeedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal feed message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send feed message", "error", err)
		return err
	}
	return nil
}

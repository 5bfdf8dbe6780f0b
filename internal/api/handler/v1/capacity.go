package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/config"
	"github.com/vietanh2810/rally-api/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type capacityClient struct {
	conn *websocket.Conn
	send chan []byte
}

// CapacityHub pushes registered-count changes to every open websocket so
// event pages can refresh their remaining spots.
type CapacityHub struct {
	upgrader websocket.Upgrader

	clients      map[*capacityClient]struct{}
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *capacityClient
	unregister   chan *capacityClient
	done         chan struct{}
}

func NewCapacityHub(conf *config.APIConfig) *CapacityHub {
	return &CapacityHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(conf.AllowedCORSDomains(), origin)
			},
		},
		clients:    make(map[*capacityClient]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *capacityClient),
		unregister: make(chan *capacityClient),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every subscriber.
func (h *CapacityHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.clientsMutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMutex.Unlock()
			return
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = struct{}{}
			h.clientsMutex.Unlock()
		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMutex.Unlock()
		case message := <-h.broadcast:
			h.clientsMutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow reader: drop it rather than stall everyone else.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

func (h *CapacityHub) Subscribers() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// PublishCapacity never blocks the checkout that triggered it.
func (h *CapacityHub) PublishCapacity(event domain.Event) {
	message, err := json.Marshal(response.NewCapacityUpdate(event))
	if err != nil {
		zap.L().Error("failed to encode capacity update", zap.Uint("event_id", event.ID), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		zap.L().Warn("capacity update dropped, hub is busy", zap.Uint("event_id", event.ID))
	}
}

// HandleWebSocket godoc
// @Summary      Subscribe to capacity updates
// @Description  Pushes {eventId, registeredCount, capacity, full} whenever a registration is recorded.
// @Tags         events
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      400  {string}  string
// @Failure      403  {string}  string
// @Router       /capacity/ws [get]
func (h *CapacityHub) HandleWebSocket(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &capacityClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *capacityClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; subscribers never send data.
func (c *capacityClient) readPump(h *CapacityHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("capacity subscriber closed", zap.Error(err))
			}
			return
		}
	}
}

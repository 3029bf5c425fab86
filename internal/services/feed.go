package services

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// FeedHub pushes automation execution summaries to connected dashboard
// clients over websocket, so the activity feed updates without polling.
type FeedHub struct {
	mu         sync.RWMutex
	clients    map[*feedClient]bool
	broadcast  chan ExecutionSummary
	register   chan *feedClient
	unregister chan *feedClient
	logger     *logrus.Logger
}

type feedClient struct {
	hub    *FeedHub
	conn   *websocket.Conn
	userID uint
	send   chan ExecutionSummary
}

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewFeedHub(logger *logrus.Logger) *FeedHub {
	if logger == nil {
		logger = logrus.New()
	}
	return &FeedHub{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan ExecutionSummary, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		logger:     logger,
	}
}

// Run processes register/unregister/broadcast traffic. Call in a goroutine.
func (h *FeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case summary := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				// tenant isolation: only the owning user sees the event
				if client.userID != summary.UserID {
					continue
				}
				select {
				case client.send <- summary:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyExecution implements ExecutionNotifier. Never blocks the engine; a
// saturated feed drops the oldest-first by skipping.
func (h *FeedHub) NotifyExecution(summary ExecutionSummary) {
	select {
	case h.broadcast <- summary:
	default:
	}
}

// HandleWebSocket upgrades the request. Auth middleware ran before, so the
// tenant user id is on the context.
func (h *FeedHub) HandleWebSocket(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("feed: upgrade failed: %v", err)
		return
	}
	client := &feedClient{
		hub:    h,
		conn:   conn,
		userID: c.GetUint("user_id"),
		send:   make(chan ExecutionSummary, 64),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// feed is one-way; discard anything the client sends
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case summary, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(summary); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount reports connected clients for the stats endpoint. Safe to call
// from request handlers while Run mutates the set.
func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

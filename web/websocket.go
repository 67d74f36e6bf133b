package web

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"quidditch-service/services"
)

// WSMessage WebSocket消息结构
type WSMessage struct {
	Type      string      `json:"type"`
	MatchID   string      `json:"match_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// Client WebSocket客户端
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	matchIDs map[string]bool // 比赛ID过滤器，空表示接收全部
}

// Hub WebSocket Hub
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client registered. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.shouldReceive(message) {
					continue
				}

				select {
				case client.send <- h.marshalMessage(message):
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast 广播引擎通知（实现 services.Broadcaster 接口）
func (h *Hub) Broadcast(notification *services.Notification) {
	h.broadcast <- &WSMessage{
		Type:      notification.Type,
		MatchID:   notification.MatchID,
		Data:      notification.Data,
		Timestamp: notification.Timestamp,
	}
}

// marshalMessage 序列化消息
func (h *Hub) marshalMessage(message *WSMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return []byte("{}")
	}
	return data
}

// shouldReceive 检查客户端是否应该接收消息
func (c *Client) shouldReceive(message *WSMessage) bool {
	// 没有设置过滤器时接收所有消息
	if len(c.matchIDs) == 0 {
		return true
	}
	if message.MatchID == "" {
		return false
	}
	return c.matchIDs[message.MatchID]
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage 处理客户端发送的订阅指令
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type     string   `json:"type"`
		MatchIDs []string `json:"match_ids"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Failed to unmarshal client message: %v", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.matchIDs = make(map[string]bool)
		for _, matchID := range msg.MatchIDs {
			c.matchIDs[matchID] = true
		}
		log.Printf("Client subscribed to matches: %v", msg.MatchIDs)

	case "unsubscribe":
		c.matchIDs = make(map[string]bool)
		log.Println("Client unsubscribed")
	}
}

package mediasession

import (
	"context"
	"sync"
	"time"

	"Musio/core/player"
	"Musio/logger"
	"Musio/metrics"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

const (
	MsgTypeNowPlaying MessageType = "now_playing" // 当前播放信息（服务端 -> 客户端）
	MsgTypeAction     MessageType = "action"      // 传输控制（客户端 -> 服务端）
	MsgTypePing       MessageType = "ping"        // 心跳
	MsgTypePong       MessageType = "pong"        // 心跳响应
	MsgTypeError      MessageType = "error"       // 错误消息
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 16
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type       MessageType        `json:"type"`
	SessionID  string             `json:"sessionId,omitempty"`
	Action     string             `json:"action,omitempty"`
	NowPlaying *player.NowPlaying `json:"nowPlaying,omitempty"`
	Error      string             `json:"error,omitempty"`
	Timestamp  int64              `json:"timestamp"`
}

// Client is one connected media-session surface.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	session   *player.Session
	sessionID string
	ready     chan struct{} // closed once the hub has registered the client
}

// Hub fans NowPlaying updates out to the clients of each player session.
// It implements player.Publisher.
type Hub struct {
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan player.NowPlaying

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan player.NowPlaying, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			close(client.ready)
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClientLocked(client)
			h.mu.Unlock()
		case np := <-h.broadcast:
			h.deliver(np)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues np for delivery. It never blocks; updates are dropped when the hub is saturated.
func (h *Hub) Publish(np player.NowPlaying) {
	select {
	case h.broadcast <- np:
	default:
		metrics.MediaSessionDropped.Inc()
	}
}

// ClientCount returns the number of clients attached to a session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Attach binds an upgraded connection to session and starts its pumps.
// The current NowPlaying is sent immediately.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn, session *player.Session) {
	c := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		session:   session,
		sessionID: session.ID(),
		ready:     make(chan struct{}),
	}

	np := session.State().NowPlaying()
	if data, err := encode(&WSMessage{Type: MsgTypeNowPlaying, SessionID: c.sessionID, NowPlaying: &np}); err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	<-c.ready

	go c.WritePump()
	go c.ReadPump(ctx)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.sessionID] == nil {
		h.sessions[c.sessionID] = make(map[*Client]bool)
	}
	h.sessions[c.sessionID][c] = true
	metrics.TrackMediaSessionClient(true)
	logger.Info("media session client registered", logger.String("session", c.sessionID))
}

// removeClientLocked 移除客户端（需要持有锁）
func (h *Hub) removeClientLocked(c *Client) {
	clients, ok := h.sessions[c.sessionID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
	metrics.TrackMediaSessionClient(false)
	logger.Info("media session client unregistered", logger.String("session", c.sessionID))
}

func (h *Hub) deliver(np player.NowPlaying) {
	data, err := encode(&WSMessage{Type: MsgTypeNowPlaying, SessionID: np.SessionID, NowPlaying: &np})
	if err != nil {
		logger.Warn("failed to encode now playing", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[np.SessionID] {
		select {
		case c.send <- data:
		default:
			// 发送缓冲区满，移除客户端
			metrics.MediaSessionDropped.Inc()
			h.removeClientLocked(c)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for c := range clients {
			h.removeClientLocked(c)
		}
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("session", c.sessionID))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply(&WSMessage{Type: MsgTypeError, Error: "invalid message format"})
			continue
		}

		switch msg.Type {
		case MsgTypePing:
			c.reply(&WSMessage{Type: MsgTypePong})
		case MsgTypeAction:
			// The resulting change reaches every client through Publish.
			if !player.Dispatch(c.session, msg.Action) {
				c.reply(&WSMessage{Type: MsgTypeError, Error: "unsupported action: " + msg.Action})
			}
		default:
			c.reply(&WSMessage{Type: MsgTypeError, Error: "unsupported message type: " + string(msg.Type)})
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends msg to this client only. Dropped when the buffer is full.
func (c *Client) reply(msg *WSMessage) {
	msg.SessionID = c.sessionID
	data, err := encode(msg)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.sessions[c.sessionID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func encode(msg *WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UnixMilli()
	return json.Marshal(msg)
}

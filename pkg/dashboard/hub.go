package dashboard

import (
	"sync"
	"time"

	"DPSGDDev/pkg/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// sendBuffer 每个客户端待发送数据点的缓冲，满了就丢弃新点
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
)

// client 一个websocket连接
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan metrics.Point
}

// Hub 把训练过程中的每个新数据点推送给所有已连接的客户端，实现 metrics.Sink
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*client
	logger  logrus.FieldLogger
}

// NewHub 创建没有客户端的Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		logger:  logger,
	}
}

// Plot 广播一个数据点，不阻塞训练循环
func (h *Hub) Plot(x, y float64, name, win string) {
	p := metrics.Point{Window: win, Name: name, X: x, Y: y}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- p:
		default:
			h.logger.WithField("client", id).Debug("客户端发送缓冲已满，丢弃数据点")
		}
	}
}

// Clients 当前连接的客户端数量
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serve 注册连接并阻塞到客户端断开
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan metrics.Point, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.WithField("client", c.id).Info("仪表盘客户端已连接")

	go h.writeLoop(c)

	// 客户端不会发送数据，读循环只用来发现断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c.id)
	h.logger.WithField("client", c.id).Info("仪表盘客户端已断开")
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for p := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(p); err != nil {
			h.logger.WithError(err).WithField("client", c.id).Warn("推送数据点失败")
			h.remove(c.id)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

// remove 注销客户端并关闭它的发送队列，可重复调用
func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

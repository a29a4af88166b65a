// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Corphon/ShortsArchitect/internal/studio"
	"github.com/Corphon/ShortsArchitect/internal/utils"
)

const (
	sendQueueSize       = 64
	writeWait           = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultPingInterval = 54 * time.Second
	cleanupInterval     = 30 * time.Second

	activeSessionsGauge = "studio_sessions_active"
)

var (
	errClientClosed  = errors.New("websocket client closed")
	errSendQueueFull = errors.New("websocket send queue full")
)

// WebSocketConnection 定义 WebSocket 连接的接口
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient 表示一个工作室连接
type WebSocketClient struct {
	conn      WebSocketConnection
	sessionID string
	session   *studio.Session
	send      chan []byte
	done      chan struct{}
	closed    int32 // 原子操作标志，0=开启，1=关闭
	lastPing  int64 // 最后一次活跃时间（UnixNano）
	createdAt time.Time
}

func newWebSocketClient(conn WebSocketConnection) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		conn:      conn,
		sessionID: uuid.New().String(),
		send:      make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后活跃时间
func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

// LastPing 最后活跃时间
func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&client.lastPing))
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.LastPing()) > timeout
}

// SendMessage 序列化并放入发送队列，队列满时丢弃并返回错误
func (client *WebSocketClient) SendMessage(message interface{}) error {
	if client.IsClosed() {
		return errClientClosed
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case <-client.done:
		return errClientClosed
	case client.send <- msgBytes:
		return nil
	default:
		utils.GetLogger().Warn("工作室消息队列已满，消息被丢弃", map[string]interface{}{
			"session_id": client.sessionID,
		})
		return errSendQueueFull
	}
}

// WebSocketConnWrapper 包装真实的 websocket.Conn 以实现接口
type WebSocketConnWrapper struct {
	*websocket.Conn
}

// WebSocketManager 管理所有工作室连接
type WebSocketManager struct {
	mutex   sync.RWMutex
	clients map[string]*WebSocketClient // sessionID -> client

	upgrader     websocket.Upgrader
	pongWait     time.Duration
	pingInterval time.Duration

	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager(metrics *utils.APIMetrics) *WebSocketManager {
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}
	m := &WebSocketManager{
		clients:      make(map[string]*WebSocketClient),
		pongWait:     defaultPongWait,
		pingInterval: defaultPingInterval,
		metrics:      metrics,
		logger:       utils.GetLogger(),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return m
}

// SetAllowedOrigins 限制允许建立连接的来源，包含 "*" 时不限制
func (manager *WebSocketManager) SetAllowedOrigins(origins []string) {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			manager.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
			return
		}
		allowed[strings.TrimRight(origin, "/")] = true
	}

	manager.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// 非浏览器客户端不带 Origin
		return origin == "" || allowed[strings.TrimRight(origin, "/")]
	}
}

// register 注册新客户端
func (manager *WebSocketManager) register(client *WebSocketClient) {
	manager.mutex.Lock()
	manager.clients[client.sessionID] = client
	manager.mutex.Unlock()

	manager.metrics.Collector().IncGauge(activeSessionsGauge)
	manager.logger.Info("工作室客户端已连接", map[string]interface{}{"session_id": client.sessionID})
}

// unregister 注销客户端并关闭连接
func (manager *WebSocketManager) unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	_, exists := manager.clients[client.sessionID]
	delete(manager.clients, client.sessionID)
	manager.mutex.Unlock()

	client.Close()
	if exists {
		manager.metrics.Collector().DecGauge(activeSessionsGauge)
		manager.logger.Info("工作室客户端已断开", map[string]interface{}{"session_id": client.sessionID})
	}
}

// Run 定期清理超时连接，ctx 结束时关闭所有连接
func (manager *WebSocketManager) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			manager.Shutdown()
			return
		case <-ticker.C:
			manager.cleanupExpiredConnections()
		}
	}
}

// cleanupExpiredConnections 清理过期和已关闭的连接
func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.RLock()
	expired := make([]*WebSocketClient, 0)
	for _, client := range manager.clients {
		if client.IsClosed() || client.IsExpired(manager.pongWait) {
			expired = append(expired, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range expired {
		manager.unregister(client)
	}
}

// Shutdown 关闭所有连接
func (manager *WebSocketManager) Shutdown() {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.clients))
	for _, client := range manager.clients {
		clients = append(clients, client)
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		manager.unregister(client)
	}
	manager.logger.Info("工作室连接管理器已关闭", nil)
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	sessions := make([]map[string]interface{}, 0, len(manager.clients))
	for _, client := range manager.clients {
		if client.IsClosed() {
			continue
		}
		info := map[string]interface{}{
			"session_id":   client.sessionID,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    client.LastPing().Format(time.RFC3339),
		}
		if client.session != nil {
			info["state"] = client.session.State().String()
		}
		sessions = append(sessions, info)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i]["connected_at"].(string) < sessions[j]["connected_at"].(string)
	})

	return map[string]interface{}{
		"total_connections": len(sessions),
		"sessions":          sessions,
	}
}

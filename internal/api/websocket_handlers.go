// internal/api/websocket_handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/studio"
	"github.com/Corphon/ShortsArchitect/internal/utils"
)

// 客户端消息类型
const (
	msgEdit   = "edit"
	msgReset  = "reset"
	msgSubmit = "submit"
	msgCopy   = "copy"
	msgPing   = "ping"
)

type clientMessage struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

type connectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

type stateMessage struct {
	Type     string          `json:"type"`
	Snapshot studio.Snapshot `json:"snapshot"`
}

// newStateMessage 发往客户端前屏蔽错误信息中的凭证
func newStateMessage(snap studio.Snapshot) stateMessage {
	snap.Error = sanitizeErrorMessage(snap.Error)
	return stateMessage{Type: "state", Snapshot: snap}
}

type clipboardMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorMessage struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// socketClipboard 由浏览器执行实际的剪贴板写入
type socketClipboard struct {
	client *WebSocketClient
}

func (sc socketClipboard) WriteText(_ context.Context, text string) error {
	return sc.client.SendMessage(clipboardMessage{Type: "clipboard", Text: text})
}

// ServeStudio 为每个连接创建独立的工作室会话
func (manager *WebSocketManager) ServeStudio(c *gin.Context, gen studio.Generator) {
	conn, err := manager.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		manager.logger.Warn("工作室 WebSocket 升级失败", map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
		return
	}

	client := newWebSocketClient(&WebSocketConnWrapper{conn})
	session := studio.NewSession(gen, socketClipboard{client: client})
	client.session = session
	session.OnChange(func(snap studio.Snapshot) {
		_ = client.SendMessage(newStateMessage(snap))
	})

	manager.register(client)
	defer func() {
		session.Close()
		manager.unregister(client)
	}()

	go manager.writePump(client)

	_ = client.SendMessage(connectedMessage{
		Type:      "connected",
		SessionID: client.sessionID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	_ = client.SendMessage(newStateMessage(session.Snapshot()))

	// 连接关闭后进行中的提交仍然完成
	ctx := context.WithoutCancel(c.Request.Context())
	manager.readPump(ctx, client)
}

// readPump 读取客户端消息直到连接断开
func (manager *WebSocketManager) readPump(ctx context.Context, client *WebSocketClient) {
	client.conn.SetReadDeadline(time.Now().Add(manager.pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(manager.pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !client.IsClosed() {
				manager.logger.Warn("工作室 WebSocket 读取错误", map[string]interface{}{
					"session_id": client.sessionID,
					"error":      err.Error(),
				})
			}
			return
		}

		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(manager.pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			manager.sendError(client, ErrorInvalidMessage, "Message must be a JSON object")
			continue
		}
		manager.handleMessage(ctx, client, msg)
	}
}

// writePump 唯一的写协程，负责消息与心跳
func (manager *WebSocketManager) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(manager.pingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				manager.logger.Warn("工作室 WebSocket 写入失败", map[string]interface{}{
					"session_id": client.sessionID,
					"error":      err.Error(),
				})
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 分发客户端消息
func (manager *WebSocketManager) handleMessage(ctx context.Context, client *WebSocketClient, msg clientMessage) {
	session := client.session

	switch msg.Type {
	case msgEdit:
		if err := session.EditBrief(msg.Field, msg.Value); err != nil {
			manager.sendError(client, ErrorUnknownBriefField, err.Error())
		}

	case msgReset:
		session.ResetBrief()

	case msgSubmit:
		// 提交期间继续读取消息，重复提交由会话拒绝
		go manager.submit(ctx, client)

	case msgCopy:
		if err := session.CopyPackage(ctx); err != nil {
			manager.sendError(client, ErrorCopyFailed, studio.NoticeCopyFailed)
		}

	case msgPing:
		_ = client.SendMessage(pongMessage{Type: "pong", Timestamp: time.Now().Unix()})

	default:
		manager.sendError(client, ErrorUnknownMessageType, "Unknown message type: "+msg.Type)
	}
}

func (manager *WebSocketManager) submit(ctx context.Context, client *WebSocketClient) {
	err := client.session.Submit(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, studio.ErrSubmissionInFlight):
		manager.sendError(client, ErrorSubmissionInFlight, "A submission is already in progress")
		return
	}

	errType := "unknown"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		errType = string(appErr.Type)
	}
	manager.metrics.RecordError(errType, "studio")

	fields := map[string]interface{}{
		"session_id": client.sessionID,
		"error_type": errType,
		"error":      sanitizeErrorMessage(err.Error()),
	}
	if apperrors.IsValidationError(err) {
		manager.logger.Warn("工作室简报校验失败", fields)
		return
	}
	manager.logger.Error("工作室蓝图生成失败", fields)
	utils.CaptureError(nil, err, map[string]string{
		"component":  "studio",
		"error_type": errType,
		"error_code": errorCodeFor(err),
		"session_id": client.sessionID,
	})
}

// sendError 发送错误消息
func (manager *WebSocketManager) sendError(client *WebSocketClient, code, message string) {
	_ = client.SendMessage(errorMessage{
		Type:      "error",
		Code:      code,
		Error:     sanitizeErrorMessage(message),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

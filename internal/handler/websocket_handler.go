// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"altimeter-service/internal/service"
	"altimeter-service/internal/utils"
	"altimeter-service/internal/va500"
)

// WebSocketHandler manages WebSocket connections for real-time streaming of
// readings and session events
type WebSocketHandler struct {
	upgrader         websocket.Upgrader
	connections      *ConnectionManager
	altimeterService *service.AltimeterService
	logger           *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(altimeterService *service.AltimeterService, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:         upgrader,
		connections:      NewConnectionManager(),
		altimeterService: altimeterService,
		logger:           utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/readings", h.HandleReadingConnection)
	router.GET("/events", h.HandleEventConnection)
}

// HandleReadingConnection streams decoded range readings to the client
func (h *WebSocketHandler) HandleReadingConnection(c *gin.Context) {
	client := h.acceptClient(c, "readings")
	if client == nil {
		return
	}

	// Send the latest reading so the client starts with a value
	h.sendMessage(client, &WebSocketMessage{
		Type:      EventTypeReading,
		Data:      h.altimeterService.LatestReading(),
		Timestamp: time.Now(),
	})
}

// HandleEventConnection streams session state events to the client
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	client := h.acceptClient(c, "events")
	if client == nil {
		return
	}

	status := h.altimeterService.Status()
	h.sendMessage(client, &WebSocketMessage{
		Type:      EventTypeState,
		Data:      status,
		Timestamp: time.Now(),
	})
}

// acceptClient upgrades the connection and starts the client pumps
func (h *WebSocketHandler) acceptClient(c *gin.Context, clientType string) *Client {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return nil
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        clientType,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("stream", clientType),
		zap.String("remote_addr", client.RemoteAddr),
	)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)

	return client
}

// BroadcastReading pushes a reading to all reading-stream clients
func (h *WebSocketHandler) BroadcastReading(reading va500.Reading) {
	h.broadcast("readings", &WebSocketMessage{
		Type:      EventTypeReading,
		Data:      reading,
		Timestamp: time.Now(),
	})
}

// BroadcastEvent pushes a session event to all event-stream clients
func (h *WebSocketHandler) BroadcastEvent(eventType string, data map[string]interface{}) {
	h.broadcast("events", &WebSocketMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (h *WebSocketHandler) broadcast(clientType string, message *WebSocketMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	for _, client := range h.connections.GetClientsByType(clientType) {
		select {
		case client.Send <- payload:
		default:
			// Client is slow, skip
		}
	}
}

func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- payload:
	default:
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	client.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Error("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
	}
}

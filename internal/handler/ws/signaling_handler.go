package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

const (
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// SignalingMessage types
const (
	SignalTypeOffer  = "offer"
	SignalTypeAnswer = "answer"
	SignalTypeICE    = "ice_candidate"
	SignalTypeJoin   = "join"
	SignalTypeLeave  = "leave"
)

// SignalingMessage represents a WebRTC signaling message exchanged between
// the two call participants
type SignalingMessage struct {
	Type      string                 `json:"type"`
	CallID    uuid.UUID              `json:"call_id"`
	SenderID  uuid.UUID              `json:"sender_id,omitempty"`
	TargetID  uuid.UUID              `json:"target_id,omitempty"`
	SDP       string                 `json:"sdp,omitempty"`
	Candidate map[string]interface{} `json:"candidate,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	// Origin identifies the hub instance that first relayed the message,
	// so an instance does not re-broadcast its own Pub/Sub echo
	Origin string `json:"origin,omitempty"`
}

// SignalingStore mirrors session descriptions so a participant who connects
// late can still pick up the pending offer or answer
type SignalingStore interface {
	Save(ctx context.Context, callID uuid.UUID, field string, payload []byte) error
	Get(ctx context.Context, callID uuid.UUID, field string) ([]byte, error)
}

// SignalingHub manages signaling connections grouped per call
type SignalingHub struct {
	calls map[uuid.UUID]map[*SignalingClient]bool

	subscriptionCancels map[uuid.UUID]context.CancelFunc

	redisClient *redis.Client
	store       SignalingStore

	mu sync.RWMutex

	register   chan *SignalingClient
	unregister chan *SignalingClient
	broadcast  chan *SignalingMessage

	maxConnections int
	semaphore      chan struct{}

	instanceID string
}

// SignalingClient represents one participant's WebSocket connection
type SignalingClient struct {
	hub    *SignalingHub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	callID uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
}

var signalingUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		for _, allowed := range allowedWSOrigins() {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

func allowedWSOrigins() []string {
	origins := []string{"http://localhost:3000", "http://localhost:8080"}
	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			origins = append(origins, strings.TrimSpace(origin))
		}
	}
	return origins
}

// NewSignalingHub creates a new signaling hub
func NewSignalingHub(redisClient *redis.Client, store SignalingStore) *SignalingHub {
	maxConns := 1000
	if val := os.Getenv("WS_MAX_SIGNALING_CONNECTIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			maxConns = n
		}
	}

	hub := &SignalingHub{
		calls:               make(map[uuid.UUID]map[*SignalingClient]bool),
		subscriptionCancels: make(map[uuid.UUID]context.CancelFunc),
		redisClient:         redisClient,
		store:               store,
		register:            make(chan *SignalingClient),
		unregister:          make(chan *SignalingClient),
		broadcast:           make(chan *SignalingMessage, 256),
		maxConnections:      maxConns,
		semaphore:           make(chan struct{}, maxConns),
		instanceID:          uuid.NewString(),
	}

	go hub.run()

	return hub
}

func (h *SignalingHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.calls[client.callID] == nil {
				h.calls[client.callID] = make(map[*SignalingClient]bool)

				ctx, cancel := context.WithCancel(context.Background())
				h.subscriptionCancels[client.callID] = cancel

				go h.subscribeToCall(ctx, client.callID)
			}
			h.calls[client.callID][client] = true
			h.mu.Unlock()

			go h.replayPending(client)

			h.broadcast <- &SignalingMessage{
				Type:      SignalTypeJoin,
				CallID:    client.callID,
				SenderID:  client.userID,
				Timestamp: time.Now(),
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.calls[client.callID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					client.cancel()

					h.broadcast <- &SignalingMessage{
						Type:      SignalTypeLeave,
						CallID:    client.callID,
						SenderID:  client.userID,
						Timestamp: time.Now(),
					}

					if len(clients) == 0 {
						if cancel, ok := h.subscriptionCancels[client.callID]; ok {
							cancel()
							delete(h.subscriptionCancels, client.callID)
						}
						delete(h.calls, client.callID)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.calls[message.CallID]; ok {
				messageJSON, _ := json.Marshal(message)

				if message.TargetID != uuid.Nil {
					for client := range clients {
						if client.userID == message.TargetID {
							select {
							case client.send <- messageJSON:
							default:
								close(client.send)
								delete(clients, client)
							}
							break
						}
					}
				} else {
					for client := range clients {
						if client.userID != message.SenderID {
							select {
							case client.send <- messageJSON:
							default:
								close(client.send)
								delete(clients, client)
							}
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToCall relays messages published by other instances for a call
func (h *SignalingHub) subscribeToCall(ctx context.Context, callID uuid.UUID) {
	channel := fmt.Sprintf("call:%s", callID)

	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("Failed to subscribe to Redis channel",
			zap.String("call_id", callID.String()),
			zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			var signalMsg SignalingMessage
			if err := json.Unmarshal([]byte(msg.Payload), &signalMsg); err != nil {
				logger.Warn("Failed to unmarshal Redis message",
					zap.String("call_id", callID.String()),
					zap.Error(err))
				continue
			}

			h.relayRemote(&signalMsg)
		}
	}
}

// relayRemote forwards a message received over Pub/Sub to local clients.
// Messages this instance published come back on the same channel; those
// already went out locally and are dropped.
func (h *SignalingHub) relayRemote(msg *SignalingMessage) bool {
	if msg.Origin == h.instanceID {
		return false
	}
	h.broadcast <- msg
	return true
}

// publish hands a locally-originated message to other hub instances
// serving the same call
func (h *SignalingHub) publish(ctx context.Context, callID uuid.UUID, raw []byte) {
	if h.redisClient == nil {
		return
	}
	channel := fmt.Sprintf("call:%s", callID)
	if err := h.redisClient.Publish(ctx, channel, raw).Err(); err != nil {
		logger.Warn("Failed to publish signaling message",
			zap.String("call_id", callID.String()),
			zap.Error(err))
	}
}

// replayPending delivers any mirrored offer or answer to a participant who
// connected after it was sent
func (h *SignalingHub) replayPending(client *SignalingClient) {
	if h.store == nil {
		return
	}

	for _, field := range []string{SignalTypeOffer, SignalTypeAnswer} {
		payload, err := h.store.Get(client.ctx, client.callID, field)
		if err != nil {
			logger.Warn("Failed to load mirrored signaling",
				zap.String("call_id", client.callID.String()),
				zap.String("field", field),
				zap.Error(err))
			continue
		}
		if payload == nil {
			continue
		}
		var msg SignalingMessage
		if err := json.Unmarshal(payload, &msg); err != nil || msg.SenderID == client.userID {
			continue
		}
		select {
		case client.send <- payload:
		case <-client.ctx.Done():
			return
		}
	}
}

// mirror persists session descriptions and candidates so the sweeper can
// reclaim them later and late joiners can read them back
func (h *SignalingHub) mirror(ctx context.Context, msg *SignalingMessage, raw []byte) {
	if h.store == nil {
		return
	}

	var field string
	switch msg.Type {
	case SignalTypeOffer, SignalTypeAnswer:
		field = msg.Type
	case SignalTypeICE:
		field = fmt.Sprintf("ice:%s", msg.SenderID)
	default:
		return
	}

	if err := h.store.Save(ctx, msg.CallID, field, raw); err != nil {
		logger.Warn("Failed to mirror signaling message",
			zap.String("call_id", msg.CallID.String()),
			zap.String("field", field),
			zap.Error(err))
	}
}

// ServeWS handles WebSocket upgrade requests for signaling
// GET /v1/calls/ws/signaling?call_id=<uuid>
func (h *SignalingHub) ServeWS(c *gin.Context) {
	select {
	case h.semaphore <- struct{}{}:
		defer func() {
			<-h.semaphore
		}()
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	callIDStr := c.Query("call_id")
	if callIDStr == "" {
		c.JSON(400, gin.H{"error": "call_id required"})
		return
	}

	callID, err := uuid.Parse(callIDStr)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid call_id"})
		return
	}

	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(500, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := signalingUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed",
			zap.String("call_id", callID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &SignalingClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		callID: callID,
		ctx:    ctx,
		cancel: cancel,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection
func (c *SignalingClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("call_id", c.callID.String()),
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			break
		}

		var msg SignalingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("Invalid message format from WebSocket",
				zap.String("call_id", c.callID.String()),
				zap.String("user_id", c.userID.String()),
				zap.Error(err))
			continue
		}

		// Sender identity comes from the authenticated connection, never
		// from the payload
		msg.SenderID = c.userID
		msg.CallID = c.callID
		msg.Timestamp = time.Now()
		msg.Origin = c.hub.instanceID

		raw, _ := json.Marshal(&msg)
		c.hub.mirror(c.ctx, &msg, raw)
		c.hub.publish(c.ctx, c.callID, raw)

		c.hub.broadcast <- &msg
	}
}

// writePump writes messages to the WebSocket connection
func (c *SignalingClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

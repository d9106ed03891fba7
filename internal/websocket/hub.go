package websocket

import (
	"context"
	"encoding/json"
	"log"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisChannel carries cross-instance fan-out: every instance subscribes
// and delivers to the target user's local connections.
const redisChannel = "cluster_events"

// IngestionEvent is pushed to a document owner's open connections as their
// upload moves through the pipeline.
type IngestionEvent struct {
	DocumentId uuid.UUID `json:"document_id"`
	Status     string    `json:"status"` // "ingesting", "ready", "failed"
	ChunkCount int       `json:"chunk_count,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type outbound struct {
	userID uuid.UUID
	data   []byte
}

type Hub struct {
	// UserID -> open connections (multi-device). Owned by the Run
	// goroutine: registration, delivery and channel close all happen
	// there, so a client's Send channel is closed exactly once and never
	// written to afterwards.
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound

	// Redis connection for cross-instance fan-out. Nil in single-instance
	// deployments; delivery then stays local.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 64),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.drop(client)

		case out := <-h.outbound:
			// Deliver from a snapshot: drop mutates the live slice.
			clients := append([]*Client(nil), h.clients[out.userID]...)
			for _, client := range clients {
				select {
				case client.Send <- out.data:
				default:
					h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": out.userID})
					h.drop(client)
				}
			}
		}
	}
}

// drop removes the client and closes its Send channel. Only callable from
// the Run goroutine; a client already removed is a no-op, so a slow-consumer
// drop racing the readPump's unregister cannot close twice.
func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Send delivers an ingestion event to every open connection of one user,
// locally and via Redis for connections held by other instances.
func (h *Hub) Send(userID uuid.UUID, event IngestionEvent) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "ingestion",
		"data": event,
	})

	h.outbound <- outbound{userID: userID, data: data}

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_user_id": userID.String(),
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), redisChannel, payload)
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		h.outbound <- outbound{userID: uid, data: payload.Message}
	}
}

package generation

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis channel carrying job events to every API instance
const eventsChannel = "generation:events"

var (
	wsConnectionsGauge   = expvar.NewInt("generation_ws_connections")
	wsEventsSentTotal    = expvar.NewInt("generation_ws_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("generation_ws_events_dropped_total")
)

// JobEvent is pushed to the job owner over WebSocket on every status change
type JobEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	Status       Status    `json:"status"`
	ResultURL    string    `json:"result_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type jobEventMessage struct {
	UserID           string   `json:"user_id"`
	Event            JobEvent `json:"event"`
	SenderInstanceID string   `json:"sender_instance_id"`
}

// Connection represents a WebSocket connection
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// EventPublisher is how the pipeline reports job progress to clients
type EventPublisher interface {
	PublishJobEvent(userID uuid.UUID, event JobEvent)
}

// Hub tracks WebSocket connections and fans job events out to their owners.
// Events travel through Redis Pub/Sub so any instance can deliver them, no
// matter which process ran the job or holds the socket.
type Hub struct {
	// Local connections (this server instance only)
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates a hub. redisClient may be nil, which keeps delivery local
// to this process.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  uuid.NewString(),
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, eventsChannel)
		go h.runRedisSubscriber()
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("user_id", conn.UserID.String()).Msg("Generation WS connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.UserID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("user_id", conn.UserID.String()).Msg("Generation WS disconnected")
		}
	}
}

// Stop shuts the hub down
func (h *Hub) Stop() {
	if h.pubsub != nil {
		h.pubsub.Close()
	}
	h.cancel()
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// PublishJobEvent delivers an event to every socket the owner has, on this
// instance directly and on the others through Redis.
func (h *Hub) PublishJobEvent(userID uuid.UUID, event JobEvent) {
	h.deliverLocal(userID, event)

	if h.redis == nil {
		return
	}

	payload, err := json.Marshal(jobEventMessage{
		UserID:           userID.String(),
		Event:            event,
		SenderInstanceID: h.instanceID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal job event")
		return
	}

	if err := h.redis.Publish(h.ctx, eventsChannel, payload).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to publish job event")
	}
}

// runRedisSubscriber listens for job events from other instances
func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event jobEventMessage
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if event.SenderInstanceID == h.instanceID {
				continue
			}
			userID, err := uuid.Parse(event.UserID)
			if err != nil {
				continue
			}
			h.deliverLocal(userID, event.Event)
		}
	}
}

// deliverLocal sends event to the owner's clients connected to THIS server
func (h *Hub) deliverLocal(userID uuid.UUID, event JobEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	for conn := range conns {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			// Buffer full
			wsEventsDroppedTotal.Add(1)
		}
	}
}

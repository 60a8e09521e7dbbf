package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Conn wraps a websocket connection with a write mutex so the room
// forwarder and handler acks never interleave frames.
type Conn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func NewConn(c *websocket.Conn) *Conn { return &Conn{c: c} }

func (w *Conn) WriteText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// WritePing sends a control ping; viewers answer with a pong that refreshes
// their read deadline.
func (w *Conn) WritePing() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.PingMessage, nil)
}

func (w *Conn) Close() error { return w.c.Close() }

// Hub fans room traffic out to local websocket subscribers. Publishing
// always goes through Redis so every instance (including this one) sees the
// same per-room ordering; the hub subscribes to a room's channels while it
// has at least one local viewer.
type Hub struct {
	rdb *redis.Client
	log *logrus.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	subs   map[*Conn]struct{}
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewHub(rdb *redis.Client, log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{rdb: rdb, log: log, rooms: map[string]*room{}}
}

// Join subscribes a connection to a room, starting the Redis forwarder on
// the first local subscriber.
func (h *Hub) Join(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		r = &room{
			subs:   map[*Conn]struct{}{},
			pubsub: h.rdb.Subscribe(ctx, CaptionChannel(roomID), StatusChannel(roomID)),
			cancel: cancel,
		}
		h.rooms[roomID] = r
		go h.forward(ctx, roomID, r)
	}
	r.subs[conn] = struct{}{}
}

// Leave removes a connection; the last one out tears down the Redis
// subscription.
func (h *Hub) Leave(roomID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(r.subs, conn)
	if len(r.subs) == 0 {
		r.cancel()
		_ = r.pubsub.Close()
		delete(h.rooms, roomID)
	}
}

// RoomCount returns the number of rooms with local subscribers.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) forward(ctx context.Context, roomID string, r *room) {
	for {
		m, err := r.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.log.WithError(err).WithField("room_id", roomID).Warn("room pubsub receive failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		h.mu.Lock()
		conns := make([]*Conn, 0, len(r.subs))
		for c := range r.subs {
			conns = append(conns, c)
		}
		h.mu.Unlock()

		for _, c := range conns {
			if werr := c.WriteText([]byte(m.Payload)); werr != nil {
				// reader loop will notice the dead socket and Leave
				h.log.WithError(werr).WithField("room_id", roomID).Debug("drop write to dead conn")
			}
		}
	}
}

// Publish sends a pre-encoded payload to a room channel.
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	return h.rdb.Publish(ctx, channel, payload).Err()
}

// PublishTranscription encodes and publishes a transcription event for a room.
func (h *Hub) PublishTranscription(ctx context.Context, roomID string, ev Event) error {
	b, err := EncodeTranscription(roomID, ev)
	if err != nil {
		return err
	}
	return h.Publish(ctx, CaptionChannel(roomID), b)
}

// PublishStatus encodes and publishes a status change for a room.
func (h *Hub) PublishStatus(ctx context.Context, roomID, status string) error {
	b, err := EncodeStatus(roomID, status)
	if err != nil {
		return err
	}
	return h.Publish(ctx, StatusChannel(roomID), b)
}

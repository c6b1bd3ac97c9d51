package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"smartdraft/models"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const (
	subscriberBuffer  = 10
	keepAliveInterval = 30 * time.Second
)

// NotificationHub fans coordinator notifications out to SSE and WebSocket subscribers
type NotificationHub struct {
	subscribers map[string]chan models.Notification
	mu          sync.RWMutex
	keepAlive   time.Duration
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		subscribers: make(map[string]chan models.Notification),
		keepAlive:   keepAliveInterval,
	}
}

// Subscribe registers a subscriber. The returned func unregisters it and closes the channel.
func (h *NotificationHub) Subscribe() (string, <-chan models.Notification, func()) {
	id := uuid.New().String()
	ch := make(chan models.Notification, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	return id, ch, cancel
}

// Subscribers reports how many subscribers are connected
func (h *NotificationHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Notify sends n to every subscriber. Subscribers with a full buffer miss it.
func (h *NotificationHub) Notify(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	utils.Log.Debug("Broadcasting notification: type=%s to %d subscribers", n.Type, len(h.subscribers))

	for id, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", id)
		}
	}
}

// HandleSSE streams notifications as Server-Sent Events until the client goes away
func (h *NotificationHub) HandleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	id, messages, cancel := h.Subscribe()
	utils.Log.Info("SSE subscriber connected: %s", id)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			utils.Log.Info("SSE subscriber disconnected: %s", id)
		}()

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case n, ok := <-messages:
				if !ok {
					return
				}
				if err := writeEvent(w, n); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		utils.Log.Error("Failed to encode notification: %v", err)
		return nil
	}
	if _, err := w.WriteString("event: " + n.Type + "\ndata: " + string(data) + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

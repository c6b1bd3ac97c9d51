package api

import (
	"context"
	"sync"

	"smartdraft/models"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// BusHandler carries envelopes over a WebSocket. Every text frame is one envelope
// and is dispatched on its own goroutine; replies echo the envelope id.
type BusHandler struct {
	dispatcher Dispatcher
	hub        *NotificationHub // optional
	origins    []string
}

// NewBusHandler accepts upgrades only from origins. An empty list allows any origin.
func NewBusHandler(dispatcher Dispatcher, hub *NotificationHub, origins []string) *BusHandler {
	return &BusHandler{dispatcher: dispatcher, hub: hub, origins: origins}
}

// RequireUpgrade rejects plain HTTP requests to the bus endpoint
func (h *BusHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the WebSocket endpoint
func (h *BusHandler) Handler() fiber.Handler {
	return websocket.New(h.serve, websocket.Config{Origins: h.origins})
}

func (h *BusHandler) serve(conn *websocket.Conn) {
	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	write := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(v); err != nil {
			utils.Log.Debug("WebSocket write failed: %v", err)
		}
	}

	if h.hub != nil {
		id, notifications, unsubscribe := h.hub.Subscribe()
		defer unsubscribe()
		utils.Log.Info("WebSocket subscriber connected: %s", id)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range notifications {
				write(n)
			}
		}()
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			utils.Log.Debug("WebSocket closed: %v", err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		wg.Add(1)
		go func(frame []byte) {
			defer wg.Done()
			write(h.handleFrame(frame))
		}(data)
	}
}

func (h *BusHandler) handleFrame(frame []byte) models.Reply {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return models.Reply{ID: env.ID, Success: false, Error: err.Error()}
	}
	return h.dispatcher.Dispatch(context.Background(), env)
}

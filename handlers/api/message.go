package api

import (
	"context"
	"encoding/json"
	"mime"

	"smartdraft/models"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
)

// Dispatcher answers one envelope. The coordinator implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, env models.Envelope) models.Reply
}

// MessageHandler exposes the coordinator over plain HTTP
type MessageHandler struct {
	dispatcher Dispatcher
}

func NewMessageHandler(dispatcher Dispatcher) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher}
}

// HandleMessage answers 200 with a Reply for JSON posts; failures travel in the reply body.
// Other content types get 415 and are never dispatched.
func (h *MessageHandler) HandleMessage(c *fiber.Ctx) error {
	if !isJSON(c.Get(fiber.HeaderContentType)) {
		return utils.NewAppError(fiber.StatusUnsupportedMediaType, utils.KindValidation,
			"Content-Type must be application/json", nil)
	}

	env, err := decodeEnvelope(c.Body())
	if err != nil {
		utils.Log.Warn("Rejected malformed message: %v", err)
		return c.JSON(models.Reply{ID: env.ID, Success: false, Error: err.Error()})
	}

	reply := h.dispatcher.Dispatch(c.UserContext(), env)
	return c.JSON(reply)
}

func decodeEnvelope(body []byte) (models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, utils.ValidationError("Invalid message", err)
	}
	return env, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == fiber.MIMEApplicationJSON
}

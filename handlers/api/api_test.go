package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"smartdraft/models"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(_ context.Context, env models.Envelope) models.Reply {
	if env.Action != models.ActionGetStats {
		return models.Reply{ID: env.ID, Success: false, Error: "Unknown action"}
	}
	return models.Reply{ID: env.ID, Success: true, Data: &models.StatsSummary{EmailsGenerated: 3}}
}

func TestHubFansOut(t *testing.T) {
	hub := NewNotificationHub()
	_, a, cancelA := hub.Subscribe()
	_, b, cancelB := hub.Subscribe()
	defer cancelB()
	assert.Equal(t, 2, hub.Subscribers())

	hub.Notify(models.Notification{Type: "draft_generated"})

	na := <-a
	nb := <-b
	assert.Equal(t, "draft_generated", na.Type)
	assert.NotEmpty(t, na.ID)
	assert.Equal(t, na.ID, nb.ID)

	cancelA()
	cancelA()
	assert.Equal(t, 1, hub.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewNotificationHub()
	_, ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Notify(models.Notification{Type: "draft_generated"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, writeEvent(w, models.Notification{ID: "n1", Type: "draft_generated", Data: map[string]string{"subject": "Hi"}}))
	assert.Equal(t,
		"event: draft_generated\ndata: {\"id\":\"n1\",\"type\":\"draft_generated\",\"data\":{\"subject\":\"Hi\"}}\n\n",
		buf.String())
}

func TestBusFrames(t *testing.T) {
	bus := NewBusHandler(echoDispatcher{}, nil, nil)

	reply := bus.handleFrame([]byte(`{"id":"7","action":"getStats"}`))
	assert.True(t, reply.Success)
	assert.Equal(t, "7", reply.ID)

	reply = bus.handleFrame([]byte(`{"id":"8","action":"nope"}`))
	assert.False(t, reply.Success)
	assert.Equal(t, "8", reply.ID)

	reply = bus.handleFrame([]byte(`{oops`))
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "Invalid message")
}

func TestBusRequiresUpgrade(t *testing.T) {
	bus := NewBusHandler(echoDispatcher{}, nil, nil)
	app := fiber.New()
	app.Get("/ws", bus.RequireUpgrade, bus.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHandleMessage(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Code).JSON(fiber.Map{"error": appErr.Message})
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Post("/api/message", NewMessageHandler(echoDispatcher{}).HandleMessage)

	send := func(body string) models.Reply {
		req := httptest.NewRequest("POST", "/api/message", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var reply models.Reply
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
		return reply
	}

	reply := send(`{"id":"a","action":"getStats"}`)
	assert.True(t, reply.Success)
	assert.Equal(t, float64(3), reply.Data.(map[string]interface{})["emailsGenerated"])

	reply = send(`[]`)
	assert.False(t, reply.Success)

	for _, contentType := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		req := httptest.NewRequest("POST", "/api/message", strings.NewReader(`{"id":"b","action":"getStats"}`))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode, contentType)
	}

	req := httptest.NewRequest("POST", "/api/message", strings.NewReader(`{"id":"c","action":"getStats"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetTranslations(t *testing.T) {
	app := fiber.New()
	app.Get("/api/i18n/:lang", NewI18nHandler().GetTranslations)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/i18n/fr", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var translations map[string]string
	require.NoError(t, json.Unmarshal(body, &translations))
	assert.Equal(t, "Settings saved successfully!", translations["settings_saved"])
	assert.Len(t, translations, len(clientMessages))
}

func TestListDraftsStripsSubjectMarkup(t *testing.T) {
	store, err := storage.Open("bolt", t.TempDir())
	require.NoError(t, err)
	repo, err := storage.NewRepository(store, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.AppendDraft(&models.GeneratedDraft{Subject: "<b>Lunch</b> plans<script>alert(1)</script>", Body: "Hi", Recipient: "Bob"})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/drafts", NewDraftHandler(repo).ListDrafts)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/drafts", nil))
	require.NoError(t, err)
	var listed struct {
		Drafts []models.GeneratedDraft `json:"drafts"`
		Total  int                     `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "Lunch plans", listed.Drafts[0].Subject)

	stored, err := repo.Drafts()
	require.NoError(t, err)
	assert.Contains(t, stored[0].Subject, "<b>")
}

package api

import (
	"errors"

	"smartdraft/settings"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// SettingsHandler is the JSON side of the settings surface
type SettingsHandler struct {
	service *settings.Service
}

func NewSettingsHandler(service *settings.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

type settingsRequest struct {
	APIKey   string `json:"openaiApiKey"`
	Name     string `json:"name"`
	Resume   string `json:"resume"`
	AutoSave bool   `json:"autoSave"`
}

type testRequest struct {
	APIKey string `json:"openaiApiKey"`
}

// GetSettings returns the stored key and profile
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	view, err := h.service.Load()
	if err != nil {
		return localizedError(c, err)
	}
	return c.JSON(view)
}

// PutSettings saves the form. With autoSave set, key validation is skipped and a missing name saves nothing.
func (h *SettingsHandler) PutSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationError("Invalid settings data", err)
	}

	if req.AutoSave {
		saved, err := h.service.AutoSave(req.APIKey, req.Name, req.Resume)
		if err != nil {
			return localizedError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "saved": saved})
	}

	view, err := h.service.Save(req.APIKey, req.Name, req.Resume)
	if err != nil {
		return localizedError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  utils.T(localizerFrom(c), "settings_saved"),
		"settings": view,
	})
}

// TestConnection probes the completion API with the given or stored key
func (h *SettingsHandler) TestConnection(c *fiber.Ctx) error {
	var req testRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.ValidationError("Invalid settings data", err)
		}
	}
	return c.JSON(h.service.TestConnection(c.UserContext(), req.APIKey, localizerFrom(c)))
}

// localizedError answers with the translated message of an AppError whose message is an i18n ID
func localizedError(c *fiber.Ctx, err error) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	utils.Log.WithField("kind", appErr.Kind).Warn("Settings request failed: %v", err)
	return c.Status(appErr.Code).JSON(fiber.Map{
		"success": false,
		"error":   utils.T(localizerFrom(c), appErr.Message),
	})
}

func localizerFrom(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.GetLocalizer("en")
}

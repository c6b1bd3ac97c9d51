package web

import (
	"errors"

	"smartdraft/middleware"
	"smartdraft/models"
	"smartdraft/settings"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// StatsSource supplies the usage summary shown next to the form
type StatsSource interface {
	GetStats() (*models.StatsSummary, error)
}

type SettingsHandler struct {
	service *settings.Service
	stats   StatsSource
}

func NewSettingsHandler(service *settings.Service, stats StatsSource) *SettingsHandler {
	return &SettingsHandler{service: service, stats: stats}
}

// ShowSettings renders the settings page
func (h *SettingsHandler) ShowSettings(c *fiber.Ctx) error {
	view, err := h.service.Load()
	if err != nil {
		utils.Log.Error("Failed to load settings: %v", err)
		return h.render(c, fiber.StatusInternalServerError, &settings.View{}, fiber.Map{
			"Error": utils.T(localizer(c), "settings_error_load"),
		})
	}
	return h.render(c, fiber.StatusOK, view, nil)
}

// SaveSettings handles the form post
func (h *SettingsHandler) SaveSettings(c *fiber.Ctx) error {
	apiKey := c.FormValue("openaiApiKey")
	name := c.FormValue("name")
	resume := c.FormValue("resume")

	if lang := c.FormValue("language"); lang != "" {
		lang = utils.MatchLanguage(lang)
		c.Cookie(&fiber.Cookie{
			Name:  "lang",
			Value: lang,
			Path:  "/",
		})
		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)
	}

	view, err := h.service.Save(apiKey, name, resume)
	if err != nil {
		submitted := &settings.View{
			APIKey:  apiKey,
			Profile: &models.UserProfile{Name: name, Resume: resume},
		}
		return h.render(c, statusOf(err), submitted, fiber.Map{
			"Error": utils.T(localizer(c), messageOf(err)),
		})
	}

	return h.render(c, fiber.StatusOK, view, fiber.Map{
		"Success": utils.T(localizer(c), "settings_saved"),
	})
}

// TestConnection runs the probe with the submitted key, or the stored one
func (h *SettingsHandler) TestConnection(c *fiber.Ctx) error {
	result := h.service.TestConnection(c.UserContext(), c.FormValue("openaiApiKey"), localizer(c))

	view, err := h.service.Load()
	if err != nil {
		view = &settings.View{}
	}
	if key := c.FormValue("openaiApiKey"); key != "" {
		view.APIKey = key
	}

	extra := fiber.Map{"Probe": result}
	if result.Status == settings.ProbeOK {
		extra["Success"] = result.Message
	} else {
		extra["Error"] = result.Message
	}
	return h.render(c, fiber.StatusOK, view, extra)
}

func (h *SettingsHandler) render(c *fiber.Ctx, status int, view *settings.View, extra fiber.Map) error {
	l := localizer(c)
	lang, _ := c.Locals("lang").(string)
	if lang == "" {
		lang = "en"
	}

	apiStatus := utils.T(l, "status_api_not_set")
	if view.APIKey != "" {
		apiStatus = utils.T(l, "status_api_configured")
	}
	profileStatus := utils.T(l, "status_profile_incomplete")
	if view.Profile != nil && view.Profile.Name != "" {
		profileStatus = utils.T(l, "status_profile_complete")
	}

	data := fiber.Map{
		"Title":         "SmartDraft Settings",
		"Lang":          lang,
		"Localizer":     l,
		"Settings":      view,
		"APIStatus":     apiStatus,
		"ProfileStatus": profileStatus,
		"CSRFToken":     middleware.GenerateCSRFToken(c),
	}

	if h.stats != nil {
		if stats, err := h.stats.GetStats(); err == nil {
			data["Stats"] = stats
		} else {
			utils.Log.Warn("Failed to load stats: %v", err)
		}
	}

	for k, v := range extra {
		data[k] = v
	}
	return c.Status(status).Render("settings", data)
}

func localizer(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.GetLocalizer("en")
}

func statusOf(err error) int {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return fiber.StatusInternalServerError
}

func messageOf(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "error_500"
}

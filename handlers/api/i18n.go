package api

import (
	"time"

	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
)

const translationsTTL = 10 * time.Minute

// clientMessages are the message IDs the settings page script needs
var clientMessages = []string{
	"settings_saved",
	"settings_error_api_key_required",
	"settings_error_name_required",
	"settings_error_api_key_format",
	"settings_error_load",
	"probe_ok",
	"probe_unauthorized",
	"probe_rate_limited",
	"probe_network",
	"error_404",
	"error_500",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct {
	cache *utils.MemoryCache[map[string]string]
}

func NewI18nHandler() *I18nHandler {
	return &I18nHandler{cache: utils.NewMemoryCache[map[string]string]()}
}

// GetTranslations returns translations for client-side scripts
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := utils.MatchLanguage(c.Params("lang"))

	translations := h.cache.GetOrLoad(lang, translationsTTL, func() map[string]string {
		localizer := utils.GetLocalizer(lang)
		out := make(map[string]string, len(clientMessages))
		for _, id := range clientMessages {
			out[id] = utils.T(localizer, id)
		}
		return out
	})
	return c.JSON(translations)
}

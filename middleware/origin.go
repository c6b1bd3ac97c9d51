package middleware

import (
	"strings"

	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
)

// OriginGuard rejects browser requests whose Origin is not in allowed.
// Requests without an Origin header come from non-browser clients and pass.
func OriginGuard(allowed []string) fiber.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.ToLower(origin), "/")] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if _, ok := set[strings.ToLower(origin)]; !ok {
			utils.Log.Warn("Rejected request from origin %s to %s", origin, c.Path())
			return utils.NewAppError(fiber.StatusForbidden, utils.KindAuth, "Origin not allowed", nil)
		}
		return c.Next()
	}
}

package middleware

import (
	"sync"
	"time"

	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	clientIdleTimeout = 10 * time.Minute
	cleanupInterval   = 5 * time.Minute
)

// RateLimiter limits each client IP to requests per duration.
// It guards the HTTP surface only; generation quota is enforced by the coordinator.
func RateLimiter(requests int, duration time.Duration) fiber.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	if requests <= 0 {
		requests = 1
	}

	var (
		clients = make(map[string]*client)
		mu      sync.Mutex
	)

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastSeen) > clientIdleTimeout {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		mu.Lock()
		cl, exists := clients[ip]
		if !exists {
			limiter := rate.NewLimiter(rate.Every(duration/time.Duration(requests)), requests)
			cl = &client{limiter: limiter}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		mu.Unlock()

		if !cl.limiter.Allow() {
			return utils.RateLimitError("Too many requests. Please try again later.").WithContext("ip", ip)
		}

		return c.Next()
	}
}

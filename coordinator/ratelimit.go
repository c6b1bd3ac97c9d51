package coordinator

import (
	"time"

	"smartdraft/models"
	"smartdraft/storage"
)

// RateLimiter enforces the generation quota over the persisted rate window
type RateLimiter struct {
	repo   *storage.Repository
	max    int
	window time.Duration
}

func NewRateLimiter(repo *storage.Repository, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{repo: repo, max: max, window: window}
}

// Allow records an attempt at now if the window has room. Rejected attempts are not recorded.
func (l *RateLimiter) Allow(now time.Time) (bool, error) {
	var allowed bool
	err := l.repo.UpdateRateWindow(func(w *models.RateLimitWindow, found bool) bool {
		if !found {
			w.LastReset = now
		}
		allowed = Admit(w, now, l.max, l.window)
		return allowed
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// Admit applies one attempt to w.
// A window whose last reset is older than the window length is cleared wholesale first.
func Admit(w *models.RateLimitWindow, now time.Time, max int, window time.Duration) bool {
	if now.Sub(w.LastReset) > window {
		w.Requests = nil
		w.LastReset = now
	}

	kept := make([]time.Time, 0, len(w.Requests)+1)
	for _, t := range w.Requests {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	w.Requests = kept

	if len(w.Requests) >= max {
		return false
	}
	w.Requests = append(w.Requests, now)
	return true
}

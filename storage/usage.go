package storage

import (
	"smartdraft/models"
	"time"
)

// UpdateRateWindow runs fn against the stored window inside one transaction.
// The window is written back only when fn returns true.
func (r *Repository) UpdateRateWindow(fn func(w *models.RateLimitWindow, found bool) bool) error {
	return updateJSON(r.store, ScopeLocal, KeyRateLimit, func(w *models.RateLimitWindow, found bool) (bool, error) {
		return fn(w, found), nil
	})
}

// RateWindow returns the stored window, or nil when nothing was recorded yet
func (r *Repository) RateWindow() (*models.RateLimitWindow, error) {
	var w models.RateLimitWindow
	found, err := r.getJSON(ScopeLocal, KeyRateLimit, &w)
	if err != nil || !found {
		return nil, err
	}
	return &w, nil
}

// IncrementStats counts one more generated email, saturating at MaxEmailsGenerated
func (r *Repository) IncrementStats(now time.Time) (models.UsageStats, error) {
	var out models.UsageStats
	err := updateJSON(r.store, ScopeLocal, KeyStats, func(stats *models.UsageStats, _ bool) (bool, error) {
		stats.EmailsGenerated++
		if stats.EmailsGenerated > models.MaxEmailsGenerated {
			stats.EmailsGenerated = models.MaxEmailsGenerated
		}
		used := now
		stats.LastUsed = &used
		out = *stats
		return true, nil
	})
	return out, err
}

// Stats returns the usage counters, zero-valued when nothing was recorded
func (r *Repository) Stats() (models.UsageStats, error) {
	var stats models.UsageStats
	_, err := r.getJSON(ScopeLocal, KeyStats, &stats)
	return stats, err
}

// PutStats overwrites the usage counters
func (r *Repository) PutStats(stats models.UsageStats) error {
	return r.putJSON(ScopeLocal, KeyStats, stats)
}

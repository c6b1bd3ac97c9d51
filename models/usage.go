package models

import "time"

// MaxEmailsGenerated caps the usage counter
const MaxEmailsGenerated = 999999

// RateLimitWindow tracks generation attempts inside the trailing window
type RateLimitWindow struct {
	Requests  []time.Time `json:"requests"`
	LastReset time.Time   `json:"lastReset"`
}

// UsageStats counts successful generations
type UsageStats struct {
	EmailsGenerated int        `json:"emailsGenerated"`
	LastUsed        *time.Time `json:"lastUsed"`
}

// StatsSummary is the status overview shown by the popup
type StatsSummary struct {
	EmailsGenerated int        `json:"emailsGenerated"`
	DraftsSaved     int        `json:"draftsSaved"`
	LastUsed        *time.Time `json:"lastUsed"`
	APIConfigured   bool       `json:"apiConfigured"`
	ProfileComplete bool       `json:"profileComplete"`
}

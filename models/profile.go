package models

import "time"

const (
	MaxNameLen   = 100
	MaxResumeLen = 5000
)

// UserProfile is the sender background embedded into prompts
type UserProfile struct {
	Name        string    `json:"name"`
	Resume      string    `json:"resume"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// APIKeyPrefix is the only shape check applied to stored keys
const APIKeyPrefix = "sk-"

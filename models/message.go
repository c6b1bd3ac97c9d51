package models

import "encoding/json"

// Action names a coordinator operation
type Action string

const (
	ActionGenerateEmail     Action = "generateEmail"
	ActionSaveToGmailDrafts Action = "saveToGmailDrafts"
	ActionAuthenticateGmail Action = "authenticateGmail"
	ActionGetUserProfile    Action = "getUserProfile"
	ActionSaveUserProfile   Action = "saveUserProfile"
	ActionGetStats          Action = "getStats"
)

// Envelope is one inbound message on the bus
type Envelope struct {
	ID     string          `json:"id,omitempty"`
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Reply is the uniform answer to an Envelope
type Reply struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GmailDraftResult is returned by the local-only saveToGmailDrafts stub
type GmailDraftResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthResult is returned by authenticateGmail
type AuthResult struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

// Notification is pushed to event subscribers
type Notification struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

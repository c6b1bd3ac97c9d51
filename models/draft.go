package models

import "time"

// EmailType is the kind of email being drafted
type EmailType string

const (
	EmailTypeBusiness EmailType = "business"
	EmailTypeAcademic EmailType = "academic"
	EmailTypeFormal   EmailType = "formal"
	EmailTypeResearch EmailType = "research"
)

// Tone is the requested register of a draft
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneUrgent       Tone = "urgent"
)

// Field limits applied during sanitization
const (
	MaxRecipientLen = 200
	MaxSubjectLen   = 200
	MaxContextLen   = 2000
)

var (
	emailTypes = []EmailType{EmailTypeBusiness, EmailTypeAcademic, EmailTypeFormal, EmailTypeResearch}
	tones      = []Tone{ToneProfessional, ToneFriendly, ToneFormal, ToneCasual, ToneUrgent}
)

// ParseEmailType maps s onto the allow-list, defaulting to business
func ParseEmailType(s string) EmailType {
	for _, t := range emailTypes {
		if string(t) == s {
			return t
		}
	}
	return EmailTypeBusiness
}

// ParseTone maps s onto the allow-list, defaulting to professional
func ParseTone(s string) Tone {
	for _, t := range tones {
		if string(t) == s {
			return t
		}
	}
	return ToneProfessional
}

// DraftRequest holds sanitized drafting parameters
type DraftRequest struct {
	EmailType EmailType `json:"emailType"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Context   string    `json:"context"`
	Tone      Tone      `json:"tone"`
}

// GeneratedDraft is one successful generation. Stored drafts are append-only.
type GeneratedDraft struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	EmailType EmailType `json:"emailType"`
	Recipient string    `json:"recipient"`
}

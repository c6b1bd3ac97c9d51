package coordinator

import (
	"bytes"
	"encoding/json"
	"errors"

	"smartdraft/models"
	"smartdraft/utils"
)

// Request is one decoded action. Each action has its own concrete type.
type Request interface {
	Action() models.Action
}

// GenerateEmailRequest carries the raw drafting fields; they are sanitized by the handler
type GenerateEmailRequest struct {
	Fields  map[string]interface{}
	Profile *models.UserProfile
}

type SaveToGmailDraftsRequest struct {
	Draft json.RawMessage
}

type AuthenticateGmailRequest struct{}

type GetUserProfileRequest struct{}

type SaveUserProfileRequest struct {
	Name   interface{}
	Resume interface{}
}

type GetStatsRequest struct{}

func (GenerateEmailRequest) Action() models.Action     { return models.ActionGenerateEmail }
func (SaveToGmailDraftsRequest) Action() models.Action { return models.ActionSaveToGmailDrafts }
func (AuthenticateGmailRequest) Action() models.Action { return models.ActionAuthenticateGmail }
func (GetUserProfileRequest) Action() models.Action    { return models.ActionGetUserProfile }
func (SaveUserProfileRequest) Action() models.Action   { return models.ActionSaveUserProfile }
func (GetStatsRequest) Action() models.Action          { return models.ActionGetStats }

// UnknownActionMessage is the reply error for envelopes naming no known action
const UnknownActionMessage = "Unknown action"

// DecodeRequest turns an envelope into its typed request
func DecodeRequest(env models.Envelope) (Request, error) {
	switch env.Action {
	case models.ActionGenerateEmail:
		fields, err := decodeObject(env.Data)
		if err != nil {
			return nil, utils.ValidationError("Invalid input data", err)
		}
		return GenerateEmailRequest{Fields: fields, Profile: profileFrom(fields["userProfile"])}, nil

	case models.ActionSaveToGmailDrafts:
		return SaveToGmailDraftsRequest{Draft: env.Data}, nil

	case models.ActionAuthenticateGmail:
		return AuthenticateGmailRequest{}, nil

	case models.ActionGetUserProfile:
		return GetUserProfileRequest{}, nil

	case models.ActionSaveUserProfile:
		fields, err := decodeObject(env.Data)
		if err != nil {
			return nil, utils.ValidationError("Invalid profile data", err)
		}
		return SaveUserProfileRequest{Name: fields["name"], Resume: fields["resume"]}, nil

	case models.ActionGetStats:
		return GetStatsRequest{}, nil

	default:
		return nil, utils.ValidationError(UnknownActionMessage, nil).WithContext("action", env.Action)
	}
}

// decodeObject accepts only a JSON object
func decodeObject(raw json.RawMessage) (map[string]interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.New("data must be an object")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// profileFrom reads the optional profile the caller cached alongside the request
func profileFrom(v interface{}) *models.UserProfile {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return &models.UserProfile{
		Name:   utils.CleanField(m["name"], models.MaxNameLen),
		Resume: utils.CleanField(m["resume"], models.MaxResumeLen),
	}
}

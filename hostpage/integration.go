package hostpage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"smartdraft/models"
	"smartdraft/utils"

	"github.com/google/uuid"
)

// DefaultTimeout bounds how long Generate waits for a reply
const DefaultTimeout = 30 * time.Second

// Messenger delivers one envelope to the coordinator and returns its reply
type Messenger interface {
	Dispatch(ctx context.Context, env models.Envelope) models.Reply
}

// Integration drives a compose page through the coordinator
type Integration struct {
	messenger Messenger
	timeout   time.Duration
	profile   *models.UserProfile
	current   *models.GeneratedDraft
}

func NewIntegration(messenger Messenger) *Integration {
	return &Integration{messenger: messenger, timeout: DefaultTimeout}
}

// WithTimeout overrides the caller-side wait
func (i *Integration) WithTimeout(d time.Duration) *Integration {
	i.timeout = d
	return i
}

// Profile returns the profile loaded by LoadProfile, if any
func (i *Integration) Profile() *models.UserProfile {
	return i.profile
}

// Current returns the last generated draft
func (i *Integration) Current() *models.GeneratedDraft {
	return i.current
}

// LoadProfile fetches the stored profile. A missing profile is not an error.
func (i *Integration) LoadProfile(ctx context.Context) (*models.UserProfile, error) {
	reply, err := i.send(ctx, models.ActionGetUserProfile, nil)
	if err != nil {
		return nil, err
	}
	var profile *models.UserProfile
	if err := decodeData(reply.Data, &profile); err != nil {
		return nil, err
	}
	i.profile = profile
	return profile, nil
}

// Generate asks for a draft built from the overlay fields.
// Recipient and context must be filled in before anything is sent.
func (i *Integration) Generate(ctx context.Context, fields map[string]interface{}) (*models.GeneratedDraft, error) {
	if strings.TrimSpace(utils.CoerceString(fields["recipient"])) == "" ||
		strings.TrimSpace(utils.CoerceString(fields["context"])) == "" {
		return nil, utils.ValidationError("Please fill in the recipient and context fields.", nil)
	}

	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	if i.profile != nil {
		payload["userProfile"] = i.profile
	}

	reply, err := i.send(ctx, models.ActionGenerateEmail, payload)
	if err != nil {
		return nil, err
	}

	var draft *models.GeneratedDraft
	if err := decodeData(reply.Data, &draft); err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, utils.InternalServerError("empty draft in reply", nil)
	}
	i.current = draft
	return draft, nil
}

// GenerateFrom reads the overlay fields off doc and generates a draft from them
func (i *Integration) GenerateFrom(ctx context.Context, doc *Document) (*models.GeneratedDraft, error) {
	return i.Generate(ctx, doc.ReadRequest())
}

// InsertInto writes the current draft into doc
func (i *Integration) InsertInto(doc *Document) (InsertResult, error) {
	if i.current == nil {
		return InsertResult{}, utils.NotFoundError("no draft generated yet", nil)
	}
	return doc.Insert(i.current), nil
}

// send dispatches one envelope and waits at most i.timeout for the reply.
// On timeout the dispatch keeps running; its reply is dropped.
func (i *Integration) send(ctx context.Context, action models.Action, data interface{}) (models.Reply, error) {
	env := models.Envelope{ID: uuid.NewString(), Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return models.Reply{}, utils.ValidationError("Invalid input data", err)
		}
		env.Data = raw
	}

	done := make(chan models.Reply, 1)
	go func() {
		done <- i.messenger.Dispatch(context.WithoutCancel(ctx), env)
	}()

	timer := time.NewTimer(i.timeout)
	defer timer.Stop()

	select {
	case reply := <-done:
		if !reply.Success {
			return reply, errors.New(reply.Error)
		}
		return reply, nil
	case <-timer.C:
		return models.Reply{}, utils.TimeoutError("Request timeout - please try again")
	case <-ctx.Done():
		return models.Reply{}, ctx.Err()
	}
}

// decodeData accepts both in-process typed data and JSON-decoded maps
func decodeData(data interface{}, out interface{}) error {
	if data == nil {
		return nil
	}
	switch dst := out.(type) {
	case **models.GeneratedDraft:
		if v, ok := data.(*models.GeneratedDraft); ok {
			*dst = v
			return nil
		}
	case **models.UserProfile:
		if v, ok := data.(*models.UserProfile); ok {
			*dst = v
			return nil
		}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return utils.InternalServerError("unreadable reply", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.InternalServerError("unreadable reply", err)
	}
	return nil
}

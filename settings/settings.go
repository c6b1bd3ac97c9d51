// Package settings reads and writes the API key and profile directly against the store.
// It does not go through the coordinator, so profile writes from both are last-write-wins.
package settings

import (
	"context"
	"strings"
	"time"

	"smartdraft/models"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// ModelLister is the authenticated GET used by the connectivity probe
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) (int, error)
}

// ProbeStatus classifies a connectivity probe
type ProbeStatus string

const (
	ProbeOK           ProbeStatus = "ok"
	ProbeUnauthorized ProbeStatus = "unauthorized"
	ProbeRateLimited  ProbeStatus = "rate_limited"
	ProbeFailed       ProbeStatus = "failed"
	ProbeNetwork      ProbeStatus = "network"
	ProbeInvalid      ProbeStatus = "invalid"
)

// ProbeResult is the outcome of TestConnection
type ProbeResult struct {
	Status  ProbeStatus `json:"status"`
	Code    int         `json:"code,omitempty"`
	Message string      `json:"message"`
}

// View is what the settings form shows
type View struct {
	APIKey  string              `json:"openaiApiKey"`
	Profile *models.UserProfile `json:"userProfile"`
}

// Service implements the settings surface
type Service struct {
	repo   *storage.Repository
	prober ModelLister
	now    func() time.Time
}

func NewService(repo *storage.Repository, prober ModelLister) *Service {
	return &Service{repo: repo, prober: prober, now: time.Now}
}

// Load returns the stored key and profile
func (s *Service) Load() (*View, error) {
	key, err := s.repo.APIKey()
	if err != nil {
		return nil, utils.InternalServerError("settings_error_load", err)
	}
	profile, err := s.repo.Profile()
	if err != nil {
		return nil, utils.InternalServerError("settings_error_load", err)
	}
	return &View{APIKey: key, Profile: profile}, nil
}

// Save validates and stores the key and profile. Error messages are i18n message IDs.
func (s *Service) Save(apiKey, name, resume string) (*View, error) {
	apiKey = strings.TrimSpace(apiKey)
	name = strings.TrimSpace(name)

	if apiKey == "" {
		return nil, utils.ValidationError("settings_error_api_key_required", nil)
	}
	if name == "" {
		return nil, utils.ValidationError("settings_error_name_required", nil)
	}
	if !strings.HasPrefix(apiKey, models.APIKeyPrefix) {
		return nil, utils.ValidationError("settings_error_api_key_format", nil)
	}

	return s.write(apiKey, name, resume)
}

// AutoSave stores whatever was typed so far, as long as a name is present.
// It returns false when nothing was written.
func (s *Service) AutoSave(apiKey, name, resume string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, nil
	}
	if _, err := s.write(apiKey, name, resume); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) write(apiKey, name, resume string) (*View, error) {
	if err := s.repo.SaveAPIKey(apiKey); err != nil {
		return nil, utils.InternalServerError("failed to save api key", err)
	}
	// trimmed and truncated the same way saveUserProfile stores it
	profile, err := s.repo.SaveProfile(name, resume, s.now())
	if err != nil {
		return nil, utils.InternalServerError("failed to save profile", err)
	}
	utils.Log.WithField("component", "settings").Info("Settings saved")
	return &View{APIKey: strings.TrimSpace(apiKey), Profile: profile}, nil
}

// TestConnection probes the completion API with key, falling back to the stored key when key is empty.
// It does not touch the generation rate window.
func (s *Service) TestConnection(ctx context.Context, key string, localizer *i18n.Localizer) ProbeResult {
	key = strings.TrimSpace(key)
	if key == "" {
		stored, err := s.repo.APIKey()
		if err != nil {
			utils.Log.Warn("Failed to read stored api key: %v", err)
		}
		key = stored
	}

	if key == "" {
		return ProbeResult{Status: ProbeInvalid, Message: utils.T(localizer, "settings_error_api_key_required")}
	}
	if !strings.HasPrefix(key, models.APIKeyPrefix) {
		return ProbeResult{Status: ProbeInvalid, Message: utils.T(localizer, "settings_error_api_key_format")}
	}

	status, err := s.prober.ListModels(ctx, key)
	if err != nil {
		utils.Log.Warn("API probe failed: %v", err)
		return ProbeResult{Status: ProbeNetwork, Message: utils.T(localizer, "probe_network")}
	}
	return Classify(status, localizer)
}

// Classify maps a probe status code to a user-facing result
func Classify(code int, localizer *i18n.Localizer) ProbeResult {
	switch {
	case code >= 200 && code <= 299:
		return ProbeResult{Status: ProbeOK, Code: code, Message: utils.T(localizer, "probe_ok")}
	case code == 401:
		return ProbeResult{Status: ProbeUnauthorized, Code: code, Message: utils.T(localizer, "probe_unauthorized")}
	case code == 429:
		return ProbeResult{Status: ProbeRateLimited, Code: code, Message: utils.T(localizer, "probe_rate_limited")}
	default:
		return ProbeResult{
			Status:  ProbeFailed,
			Code:    code,
			Message: utils.TWithData(localizer, "probe_failed", map[string]interface{}{"Status": code}),
		}
	}
}

// Package coordinator owns the persisted drafting state and is the only caller of the completion API.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartdraft/identity"
	"smartdraft/models"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/google/uuid"
)

// Completer generates text from a prompt
type Completer interface {
	Complete(ctx context.Context, apiKey, system, prompt string) (string, error)
}

// Notifier receives events about coordinator activity
type Notifier interface {
	Notify(n models.Notification)
}

// NotificationDraftGenerated is published after a draft is stored
const NotificationDraftGenerated = "draft_generated"

const gmailStubMessage = "Draft saved locally. Gmail integration requires additional setup."

// Options wires the coordinator's collaborators
type Options struct {
	Completer   Completer
	Identity    identity.TokenProvider
	Notifier    Notifier // optional
	MaxRequests int
	Window      time.Duration
	Now         func() time.Time
	Logger      *utils.Logger
}

// Coordinator dispatches action messages
type Coordinator struct {
	repo      *storage.Repository
	completer Completer
	identity  identity.TokenProvider
	notifier  Notifier
	limiter   *RateLimiter
	now       func() time.Time
	log       *utils.Logger
}

// New creates a coordinator over repo
func New(repo *storage.Repository, opts Options) *Coordinator {
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = 50
	}
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = utils.Log
	}

	return &Coordinator{
		repo:      repo,
		completer: opts.Completer,
		identity:  opts.Identity,
		notifier:  opts.Notifier,
		limiter:   NewRateLimiter(repo, opts.MaxRequests, opts.Window),
		now:       opts.Now,
		log:       opts.Logger.WithField("component", "coordinator"),
	}
}

// Dispatch decodes and handles one envelope. Every failure, including a panic, becomes an error reply.
func (c *Coordinator) Dispatch(ctx context.Context, env models.Envelope) (reply models.Reply) {
	reply.ID = env.ID
	logger := c.log.WithField("action", env.Action)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler panic: %v", r)
			reply = models.Reply{ID: env.ID, Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	req, err := DecodeRequest(env)
	if err == nil {
		var data interface{}
		data, err = c.Handle(ctx, req)
		if err == nil {
			logger.Debug("Action handled")
			reply.Success = true
			reply.Data = data
			return reply
		}
	}

	logger.WithField("kind", utils.KindOf(err)).Warn("Action failed: %v", err)
	reply.Success = false
	reply.Error = err.Error()
	return reply
}

// Handle runs a typed request
func (c *Coordinator) Handle(ctx context.Context, req Request) (interface{}, error) {
	switch r := req.(type) {
	case GenerateEmailRequest:
		return c.GenerateEmail(ctx, r)
	case SaveToGmailDraftsRequest:
		return c.SaveToGmailDrafts(ctx, r)
	case AuthenticateGmailRequest:
		return c.AuthenticateGmail(ctx)
	case GetUserProfileRequest:
		return c.GetUserProfile()
	case SaveUserProfileRequest:
		return nil, c.SaveUserProfile(r)
	case GetStatsRequest:
		return c.GetStats()
	default:
		return nil, utils.ValidationError(UnknownActionMessage, nil)
	}
}

// GenerateEmail sanitizes the request, spends quota, calls the completion API and stores the draft
func (c *Coordinator) GenerateEmail(ctx context.Context, r GenerateEmailRequest) (*models.GeneratedDraft, error) {
	if r.Fields == nil {
		return nil, utils.ValidationError("Invalid input data", nil)
	}

	req := Sanitize(r.Fields)
	if err := Validate(req); err != nil {
		return nil, err
	}

	allowed, err := c.limiter.Allow(c.now())
	if err != nil {
		return nil, utils.InternalServerError("failed to check rate limit", err)
	}
	if !allowed {
		return nil, utils.RateLimitError("Rate limit exceeded. Please wait before generating another email.")
	}

	apiKey, err := c.repo.APIKey()
	if err != nil {
		return nil, utils.InternalServerError("failed to read API key", err)
	}
	if apiKey == "" {
		return nil, utils.ConfigError("OpenAI API key not configured. Please set it in the options page.")
	}
	if !strings.HasPrefix(apiKey, models.APIKeyPrefix) {
		return nil, utils.ConfigError("Invalid API key format. OpenAI API keys start with \"sk-\"")
	}

	profile := r.Profile
	if profile == nil {
		if profile, err = c.repo.Profile(); err != nil {
			c.log.Warn("Failed to load stored profile: %v", err)
		}
	}

	content, err := c.completer.Complete(ctx, apiKey, systemPrompt, BuildPrompt(req, profile))
	if err != nil {
		return nil, generationFailed(err)
	}

	subject, body := ParseDraft(content)
	draft := &models.GeneratedDraft{
		ID:        uuid.New().String(),
		Subject:   subject,
		Body:      body,
		Timestamp: c.now(),
		EmailType: req.EmailType,
		Recipient: req.Recipient,
	}

	if _, err := c.repo.AppendDraft(draft); err != nil {
		return nil, generationFailed(utils.InternalServerError("failed to save draft", err))
	}
	if _, err := c.repo.IncrementStats(draft.Timestamp); err != nil {
		c.log.Warn("Failed to update usage stats: %v", err)
	}

	if c.notifier != nil {
		c.notifier.Notify(models.Notification{
			ID:   uuid.New().String(),
			Type: NotificationDraftGenerated,
			Data: draft,
		})
	}

	c.log.WithFields(map[string]interface{}{
		"draft":      draft.ID,
		"email_type": draft.EmailType,
	}).Info("Draft generated")

	return draft, nil
}

// generationFailed prefixes a completion failure while keeping its kind and context
func generationFailed(err error) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		return utils.InternalServerError("Failed to generate email", err)
	}
	wrapped := utils.NewAppError(appErr.Code, appErr.Kind, "Failed to generate email", err)
	for k, v := range appErr.Context {
		wrapped.Context[k] = v
	}
	return wrapped
}

// SaveToGmailDrafts is a local-only placeholder; nothing is sent to the mail provider
func (c *Coordinator) SaveToGmailDrafts(_ context.Context, _ SaveToGmailDraftsRequest) (*models.GmailDraftResult, error) {
	return &models.GmailDraftResult{Success: true, Message: gmailStubMessage}, nil
}

// AuthenticateGmail asks the identity provider for an interactive token
func (c *Coordinator) AuthenticateGmail(ctx context.Context) (*models.AuthResult, error) {
	if c.identity == nil {
		return nil, utils.AuthError("Gmail authentication failed", errors.New("no identity provider"))
	}
	token, err := c.identity.Token(ctx, true)
	if err != nil {
		if utils.KindOf(err) == utils.KindAuth {
			return nil, err
		}
		return nil, utils.AuthError("Gmail authentication failed", err)
	}
	if v, ok := c.identity.(identity.Verifier); ok {
		claims, err := v.Verify(token)
		if err != nil {
			return nil, utils.AuthError("Gmail authentication failed", err)
		}
		if claims.Scope != identity.ComposeScope {
			return nil, utils.AuthError("Gmail authentication failed", fmt.Errorf("token scope %q", claims.Scope))
		}
	}
	return &models.AuthResult{Token: token, Authenticated: true}, nil
}

// GetUserProfile returns the stored profile or nil
func (c *Coordinator) GetUserProfile() (*models.UserProfile, error) {
	profile, err := c.repo.Profile()
	if err != nil {
		return nil, utils.InternalServerError("failed to load profile", err)
	}
	return profile, nil
}

// SaveUserProfile overwrites the stored profile with trimmed, truncated values
func (c *Coordinator) SaveUserProfile(r SaveUserProfileRequest) error {
	_, err := c.repo.SaveProfile(utils.CoerceString(r.Name), utils.CoerceString(r.Resume), c.now())
	if err != nil {
		return utils.InternalServerError("failed to save profile", err)
	}
	return nil
}

// GetStats summarizes usage and configuration state
func (c *Coordinator) GetStats() (*models.StatsSummary, error) {
	stats, err := c.repo.Stats()
	if err != nil {
		return nil, utils.InternalServerError("failed to load stats", err)
	}
	drafts, err := c.repo.Drafts()
	if err != nil {
		return nil, utils.InternalServerError("failed to load drafts", err)
	}
	apiKey, err := c.repo.APIKey()
	if err != nil {
		return nil, utils.InternalServerError("failed to read API key", err)
	}
	profile, err := c.repo.Profile()
	if err != nil {
		return nil, utils.InternalServerError("failed to load profile", err)
	}

	return &models.StatsSummary{
		EmailsGenerated: stats.EmailsGenerated,
		DraftsSaved:     len(drafts),
		LastUsed:        stats.LastUsed,
		APIConfigured:   strings.HasPrefix(apiKey, models.APIKeyPrefix),
		ProfileComplete: profile != nil && profile.Name != "",
	}, nil
}

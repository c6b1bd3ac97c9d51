package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smartdraft/config"
	"smartdraft/identity"
	"smartdraft/llm"
	"smartdraft/models"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls   int32
	content string
	err     error
	prompt  string
}

func (f *fakeCompleter) Complete(_ context.Context, apiKey, system, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.prompt = prompt
	return f.content, f.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *recordingNotifier) Notify(note models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

var fixedNow = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T, completer Completer) (*Coordinator, *storage.Repository) {
	t.Helper()
	repo := newTestRepo(t)
	c := New(repo, Options{
		Completer: completer,
		Identity:  identity.NewJWTProvider(config.IdentityConfig{Secret: "test-secret", Subject: "me"}),
		Now:       func() time.Time { return fixedNow },
		Logger:    utils.NewLogger(utils.ERROR),
	})
	return c, repo
}

func envelope(t *testing.T, action models.Action, data interface{}) models.Envelope {
	t.Helper()
	env := models.Envelope{ID: "req-1", Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		env.Data = raw
	}
	return env
}

func validDraftData() map[string]interface{} {
	return map[string]interface{}{
		"emailType": "business",
		"recipient": "Bob",
		"subject":   "",
		"context":   "Schedule a meeting next week",
		"tone":      "friendly",
	}
}

func TestGenerateEmailValidationMakesNoCall(t *testing.T) {
	completer := &fakeCompleter{content: "SUBJECT: x\nBODY: y"}
	c, repo := newTestCoordinator(t, completer)
	require.NoError(t, repo.SaveAPIKey("sk-test"))

	for _, data := range []interface{}{
		map[string]interface{}{"recipient": "  ", "context": "ctx"},
		map[string]interface{}{"recipient": "bob", "context": ""},
		nil,
		"just a string",
		[]string{"a"},
	} {
		reply := c.Dispatch(context.Background(), envelope(t, models.ActionGenerateEmail, data))
		assert.False(t, reply.Success, "data %v", data)
		assert.NotEmpty(t, reply.Error)
	}
	assert.Zero(t, atomic.LoadInt32(&completer.calls))

	w, err := repo.RateWindow()
	require.NoError(t, err)
	assert.Nil(t, w, "validation failures must not spend quota")
}

func TestGenerateEmailRequiresAPIKey(t *testing.T) {
	completer := &fakeCompleter{}
	c, repo := newTestCoordinator(t, completer)

	_, err := c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	assert.Equal(t, utils.KindConfig, utils.KindOf(err))

	require.NoError(t, repo.SaveAPIKey("not-a-key"))
	_, err = c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	assert.Equal(t, utils.KindConfig, utils.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&completer.calls))
}

func TestGenerateEmailRateLimited(t *testing.T) {
	completer := &fakeCompleter{content: "SUBJECT: s\nBODY: b"}
	repo := newTestRepo(t)
	require.NoError(t, repo.SaveAPIKey("sk-test"))
	c := New(repo, Options{
		Completer:   completer,
		MaxRequests: 2,
		Window:      time.Hour,
		Now:         func() time.Time { return fixedNow },
		Logger:      utils.NewLogger(utils.ERROR),
	})

	for i := 0; i < 2; i++ {
		_, err := c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
		require.NoError(t, err)
	}
	_, err := c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	assert.Equal(t, utils.KindRateLimit, utils.KindOf(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&completer.calls))
}

func TestGenerateEmailUpstreamFailureKeepsKind(t *testing.T) {
	completer := &fakeCompleter{err: utils.UpstreamError(500)}
	c, repo := newTestCoordinator(t, completer)
	require.NoError(t, repo.SaveAPIKey("sk-test"))

	_, err := c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	require.Error(t, err)
	assert.Equal(t, utils.KindUpstream, utils.KindOf(err))
	assert.Equal(t, 500, utils.UpstreamStatus(err))
	assert.Equal(t, "Failed to generate email: OpenAI API error: 500", err.Error())

	completer.err = errors.New("boom")
	_, err = c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	assert.Equal(t, utils.KindInternal, utils.KindOf(err))

	drafts, err := repo.Drafts()
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestGenerateEmailUsesStoredProfileWhenNoneSent(t *testing.T) {
	completer := &fakeCompleter{content: "SUBJECT: s\nBODY: b"}
	c, repo := newTestCoordinator(t, completer)
	require.NoError(t, repo.SaveAPIKey("sk-test"))
	_, err := repo.SaveProfile("Stored Name", "Stored resume", fixedNow)
	require.NoError(t, err)

	_, err = c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "Name: Stored Name")

	data := validDraftData()
	data["userProfile"] = map[string]interface{}{"name": "Sent Name"}
	req, err := DecodeRequest(envelope(t, models.ActionGenerateEmail, data))
	require.NoError(t, err)
	_, err = c.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "Name: Sent Name")
}

func TestGenerateEmailEndToEnd(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "Bearer sk-live", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"SUBJECT: Meeting next week\nBODY: Hi Bob,\nCan we meet?\nBest"}}]}`))
	}))
	t.Cleanup(upstream.Close)

	client := llm.NewClient(config.OpenAIConfig{BaseURL: upstream.URL, Model: "gpt-3.5-turbo", TimeoutSeconds: 5})
	repo := newTestRepo(t)
	require.NoError(t, repo.SaveAPIKey("sk-live"))
	notifier := &recordingNotifier{}
	c := New(repo, Options{
		Completer: client,
		Notifier:  notifier,
		Now:       func() time.Time { return fixedNow },
		Logger:    utils.NewLogger(utils.ERROR),
	})

	reply := c.Dispatch(context.Background(), envelope(t, models.ActionGenerateEmail, validDraftData()))
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, "req-1", reply.ID)

	draft, ok := reply.Data.(*models.GeneratedDraft)
	require.True(t, ok)
	assert.Equal(t, "Meeting next week", draft.Subject)
	assert.Equal(t, "Hi Bob,\nCan we meet?\nBest", draft.Body)
	assert.Equal(t, "Bob", draft.Recipient)
	assert.Equal(t, models.EmailTypeBusiness, draft.EmailType)

	drafts, err := repo.Drafts()
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EmailsGenerated)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, NotificationDraftGenerated, notifier.sent[0].Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// the reply serializes to the documented shape
	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	var decoded struct {
		Success bool `json:"success"`
		Data    struct {
			Subject string `json:"subject"`
			Body    string `json:"body"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, "Meeting next week", decoded.Data.Subject)
}

func TestDispatchUnknownAction(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeCompleter{})
	reply := c.Dispatch(context.Background(), models.Envelope{Action: "deleteEverything"})
	assert.False(t, reply.Success)
	assert.Equal(t, UnknownActionMessage, reply.Error)
}

func TestDispatchRecoversPanics(t *testing.T) {
	c, repo := newTestCoordinator(t, nil)
	require.NoError(t, repo.SaveAPIKey("sk-test"))

	reply := c.Dispatch(context.Background(), envelope(t, models.ActionGenerateEmail, validDraftData()))
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "internal error")
}

func TestProfileActions(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeCompleter{})
	ctx := context.Background()

	reply := c.Dispatch(ctx, envelope(t, models.ActionGetUserProfile, nil))
	require.True(t, reply.Success)
	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"req-1","success":true,"data":null}`, string(raw))

	long := make([]byte, 6000)
	for i := range long {
		long[i] = 'x'
	}
	reply = c.Dispatch(ctx, envelope(t, models.ActionSaveUserProfile, map[string]interface{}{
		"name":   " Ada Lovelace ",
		"resume": string(long),
	}))
	require.True(t, reply.Success, reply.Error)
	assert.Nil(t, reply.Data)

	reply = c.Dispatch(ctx, envelope(t, models.ActionGetUserProfile, nil))
	require.True(t, reply.Success)
	profile, ok := reply.Data.(*models.UserProfile)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Len(t, profile.Resume, 5000)
	assert.True(t, profile.LastUpdated.Equal(fixedNow))

	reply = c.Dispatch(ctx, envelope(t, models.ActionSaveUserProfile, nil))
	assert.False(t, reply.Success)
}

func TestSaveToGmailDraftsIsLocalStub(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeCompleter{})
	reply := c.Dispatch(context.Background(), envelope(t, models.ActionSaveToGmailDrafts, map[string]string{"subject": "s"}))
	require.True(t, reply.Success)
	result := reply.Data.(*models.GmailDraftResult)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "Draft saved locally")
}

func TestAuthenticateGmail(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeCompleter{})
	reply := c.Dispatch(context.Background(), envelope(t, models.ActionAuthenticateGmail, nil))
	require.True(t, reply.Success, reply.Error)
	result := reply.Data.(*models.AuthResult)
	assert.True(t, result.Authenticated)
	assert.NotEmpty(t, result.Token)

	denied := New(newTestRepo(t), Options{
		Identity: identity.NewJWTProvider(config.IdentityConfig{}),
		Logger:   utils.NewLogger(utils.ERROR),
	})
	_, err := denied.AuthenticateGmail(context.Background())
	assert.Equal(t, utils.KindAuth, utils.KindOf(err))
}

// forgedProvider hands out tokens signed with another secret than the one it verifies with
type forgedProvider struct {
	*identity.JWTProvider
	signer *identity.JWTProvider
}

func (p forgedProvider) Token(ctx context.Context, interactive bool) (string, error) {
	return p.signer.Token(ctx, interactive)
}

func TestAuthenticateGmailVerifiesToken(t *testing.T) {
	provider := identity.NewJWTProvider(config.IdentityConfig{Secret: "test-secret", Subject: "me"})
	c := New(newTestRepo(t), Options{
		Identity: forgedProvider{
			JWTProvider: provider,
			signer:      identity.NewJWTProvider(config.IdentityConfig{Secret: "other-secret", Subject: "me"}),
		},
		Logger: utils.NewLogger(utils.ERROR),
	})

	reply := c.Dispatch(context.Background(), envelope(t, models.ActionAuthenticateGmail, nil))
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "Gmail authentication failed")

	_, err := c.AuthenticateGmail(context.Background())
	assert.Equal(t, utils.KindAuth, utils.KindOf(err))

	ok := New(newTestRepo(t), Options{Identity: provider, Logger: utils.NewLogger(utils.ERROR)})
	result, err := ok.AuthenticateGmail(context.Background())
	require.NoError(t, err)
	claims, err := provider.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.ComposeScope, claims.Scope)
}

func TestGetStats(t *testing.T) {
	completer := &fakeCompleter{content: "SUBJECT: s\nBODY: b"}
	c, repo := newTestCoordinator(t, completer)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.False(t, stats.APIConfigured)
	assert.False(t, stats.ProfileComplete)
	assert.Nil(t, stats.LastUsed)

	require.NoError(t, repo.SaveAPIKey("sk-test"))
	_, err = repo.SaveProfile("Ada", "", fixedNow)
	require.NoError(t, err)
	_, err = c.GenerateEmail(context.Background(), GenerateEmailRequest{Fields: validDraftData()})
	require.NoError(t, err)

	stats, err = c.GetStats()
	require.NoError(t, err)
	assert.True(t, stats.APIConfigured)
	assert.True(t, stats.ProfileComplete)
	assert.Equal(t, 1, stats.EmailsGenerated)
	assert.Equal(t, 1, stats.DraftsSaved)
	require.NotNil(t, stats.LastUsed)
	assert.True(t, stats.LastUsed.Equal(fixedNow))
}

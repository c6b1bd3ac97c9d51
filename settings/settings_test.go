package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"smartdraft/models"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	status int
	err    error
	keys   []string
}

func (s *stubLister) ListModels(_ context.Context, apiKey string) (int, error) {
	s.keys = append(s.keys, apiKey)
	return s.status, s.err
}

func newService(t *testing.T, lister *stubLister) (*Service, *storage.Repository) {
	t.Helper()
	st, err := storage.OpenBolt(t.TempDir())
	require.NoError(t, err)
	repo, err := storage.NewRepository(st, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return NewService(repo, lister), repo
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newService(t, &stubLister{})

	tests := []struct {
		key, name string
		want      string
	}{
		{"", "Ada", "settings_error_api_key_required"},
		{"sk-abc", "  ", "settings_error_name_required"},
		{"pk-abc", "Ada", "settings_error_api_key_format"},
	}
	for _, tt := range tests {
		_, err := svc.Save(tt.key, tt.name, "")
		require.Error(t, err)
		assert.Equal(t, utils.KindValidation, utils.KindOf(err))
		assert.Equal(t, tt.want, err.Error())
	}
}

func TestSaveAndLoad(t *testing.T) {
	svc, repo := newService(t, &stubLister{})

	_, err := svc.Save(" sk-abc ", "Ada", "Engineer")
	require.NoError(t, err)

	view, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", view.APIKey)
	require.NotNil(t, view.Profile)
	assert.Equal(t, "Ada", view.Profile.Name)

	// the coordinator reads the same keys
	key, err := repo.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", key)
}

func TestSaveTruncatesProfile(t *testing.T) {
	svc, repo := newService(t, &stubLister{})

	view, err := svc.Save("sk-abc", strings.Repeat("n", 150), strings.Repeat("r", 6000))
	require.NoError(t, err)
	assert.Len(t, view.Profile.Name, models.MaxNameLen)
	assert.Len(t, view.Profile.Resume, models.MaxResumeLen)

	stored, err := repo.Profile()
	require.NoError(t, err)
	assert.Len(t, stored.Name, models.MaxNameLen)
	assert.Len(t, stored.Resume, models.MaxResumeLen)
}

func TestAutoSaveNeedsName(t *testing.T) {
	svc, repo := newService(t, &stubLister{})

	saved, err := svc.AutoSave("sk-abc", "", "resume")
	require.NoError(t, err)
	assert.False(t, saved)
	profile, err := repo.Profile()
	require.NoError(t, err)
	assert.Nil(t, profile)

	// auto-save skips key validation
	saved, err = svc.AutoSave("draft-key", "Ada", "")
	require.NoError(t, err)
	assert.True(t, saved)
	key, err := repo.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "draft-key", key)
}

func TestTestConnectionClassifies(t *testing.T) {
	en := utils.GetLocalizer("en")
	tests := []struct {
		status int
		err    error
		want   ProbeStatus
	}{
		{200, nil, ProbeOK},
		{401, nil, ProbeUnauthorized},
		{429, nil, ProbeRateLimited},
		{503, nil, ProbeFailed},
		{0, errors.New("dial tcp: refused"), ProbeNetwork},
	}
	for _, tt := range tests {
		svc, _ := newService(t, &stubLister{status: tt.status, err: tt.err})
		res := svc.TestConnection(context.Background(), "sk-abc", en)
		assert.Equal(t, tt.want, res.Status, "status %d", tt.status)
		assert.NotEmpty(t, res.Message)
	}

	res := Classify(503, en)
	assert.Equal(t, "API connection failed (503). Please try again.", res.Message)
}

func TestTestConnectionRejectsBadKeysWithoutCalling(t *testing.T) {
	lister := &stubLister{status: 200}
	svc, _ := newService(t, lister)
	en := utils.GetLocalizer("en")

	assert.Equal(t, ProbeInvalid, svc.TestConnection(context.Background(), "", en).Status)
	assert.Equal(t, ProbeInvalid, svc.TestConnection(context.Background(), "abc", en).Status)
	assert.Empty(t, lister.keys)
}

func TestTestConnectionFallsBackToStoredKey(t *testing.T) {
	lister := &stubLister{status: 200}
	svc, repo := newService(t, lister)
	require.NoError(t, repo.SaveAPIKey("sk-stored"))

	res := svc.TestConnection(context.Background(), "", utils.GetLocalizer("en"))
	assert.Equal(t, ProbeOK, res.Status)
	assert.Equal(t, []string{"sk-stored"}, lister.keys)

	w, err := repo.RateWindow()
	require.NoError(t, err)
	assert.Nil(t, w)
}

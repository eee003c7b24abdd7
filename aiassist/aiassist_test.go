package aiassist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func setupAssistDB(t *testing.T, name string) context.Context {
	t.Helper()
	conn, err := config.OpenSQLite(fmt.Sprintf("file:aiassist_test_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	previous := config.GetDB()
	config.UseDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.UseDB(previous)
	})
	require.NoError(t, models.MigrateTable())
	return utils.SetOwnerIdInContext(context.Background(), 1)
}

// fakeCompletion records the last request and answers with reply.
func fakeCompletion(t *testing.T, status int, reply string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var last chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":"overloaded"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  " + reply + "\n"}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestNewClientRequiresURLAndKey(t *testing.T) {
	_, err := NewClient("", "key", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewClient("http://ai.local", " ", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewClient("http://ai.local/v1/", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "http://ai.local/v1", c.baseURL)
	assert.Equal(t, defaultModel, c.model)
}

func TestCompleteSendsChatRequest(t *testing.T) {
	srv, last := fakeCompletion(t, http.StatusOK, "Fit score: 8")
	c, err := NewClient(srv.URL+"/v1", "test-key", "local-model")
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), "test", "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Fit score: 8", got)
	assert.Equal(t, "local-model", last.Model)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, "system", last.Messages[0].Role)
	assert.Equal(t, "hello", last.Messages[1].Content)
}

func TestCompleteUpstreamFailure(t *testing.T) {
	srv, _ := fakeCompletion(t, http.StatusServiceUnavailable, "")
	c, err := NewClient(srv.URL+"/v1", "test-key", "")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "test", "s", "u")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
}

func TestAssistantNotConfigured(t *testing.T) {
	a := NewAssistant(nil)
	assert.False(t, a.Configured())
	_, err := a.AnalyzeLyrics(context.Background(), "la la", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = a.AnalyzePitch(context.Background(), 1, "brief")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = a.GenerateContract(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyzeLyricsUsesSongLyrics(t *testing.T) {
	ctx := setupAssistDB(t, "lyrics")
	song, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("Golden Hour"), Mood: ptr("warm"), Lyrics: ptr("we run into the light")})
	require.NoError(t, err)
	srv, last := fakeCompletion(t, http.StatusOK, "uplifting")
	c, err := NewClient(srv.URL+"/v1", "test-key", "")
	require.NoError(t, err)
	a := NewAssistant(c)

	got, err := a.AnalyzeLyrics(ctx, "", &song.ID)
	require.NoError(t, err)
	assert.Equal(t, "uplifting", got)
	assert.Contains(t, last.Messages[1].Content, "we run into the light")
	assert.Contains(t, last.Messages[1].Content, "Mood: warm")

	_, err = a.AnalyzeLyrics(ctx, "", nil)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGenerateContractRendersTemplate(t *testing.T) {
	ctx := setupAssistDB(t, "contract")
	_, err := models.CreateDefaultTemplates(ctx, 1)
	require.NoError(t, err)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{
		ProjectName:   ptr("Trailer Cut"),
		Territory:     ptr("Worldwide"),
		FullSongValue: ptr(decimal.NewFromInt(1000)),
	})
	require.NoError(t, err)

	draft, err := RenderContractDraft(ctx, deal.ID, nil)
	require.NoError(t, err)
	assert.Contains(t, draft, "Project: Trailer Cut")
	assert.Contains(t, draft, "Territory: Worldwide")

	srv, last := fakeCompletion(t, http.StatusOK, "signed")
	c, err := NewClient(srv.URL+"/v1", "test-key", "")
	require.NoError(t, err)
	got, err := NewAssistant(c).GenerateContract(ctx, deal.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "signed", got)
	assert.Equal(t, draft, last.Messages[1].Content)

	_, err = RenderContractDraft(ctx, deal.ID+100, nil)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

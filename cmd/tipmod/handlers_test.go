package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tiptune/tipmod/automod"
	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/rulestore"
	"github.com/tiptune/tipmod/models"
	"github.com/tiptune/tipmod/util/cliutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminHeaders  = map[string]string{headerUserID: "admin-1", headerUserRole: "admin"}
	artistHeaders = map[string]string{headerUserID: "artist-user-1", headerIsArtist: "true"}
	fanHeaders    = map[string]string{headerUserID: "fan-1"}
)

func testServer(t *testing.T, config Config) *Server {
	db, err := cliutil.SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "tipmod.sqlite"), 1)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(db, config)
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{})

	recorder := doRequest(srv, "GET", "/_health", "", nil)
	assert.Equal(200, recorder.Code)

	var status GenericStatus
	decodeBody(t, recorder, &status)
	assert.Equal("ok", status.Status)
	assert.Equal("tipmod", status.Daemon)
}

func TestModerationFlow(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{})

	for _, kw := range []string{
		`{"keyword": "scam", "severity": "HIGH"}`,
		`{"keyword": "spammy", "severity": "MEDIUM"}`,
		`{"keyword": "darn", "severity": "low"}`,
	} {
		recorder := doRequest(srv, "POST", "/api/admin/keywords", kw, adminHeaders)
		assert.Equal(http.StatusCreated, recorder.Code, kw)
	}

	// only admins manage global keywords
	recorder := doRequest(srv, "POST", "/api/admin/keywords", `{"keyword": "nope", "severity": "LOW"}`, fanHeaders)
	assert.Equal(http.StatusForbidden, recorder.Code)
	recorder = doRequest(srv, "POST", "/api/admin/keywords", `{"keyword": "nope", "severity": "EXTREME"}`, adminHeaders)
	assert.Equal(http.StatusBadRequest, recorder.Code)

	recorder = doRequest(srv, "GET", "/api/keywords", "", adminHeaders)
	assert.Equal(200, recorder.Code)
	var rules []models.KeywordRule
	decodeBody(t, recorder, &rules)
	assert.Len(rules, 3)

	// preview
	recorder = doRequest(srv, "POST", "/api/moderation/preview", `{"message": "well darn it"}`, nil)
	assert.Equal(200, recorder.Code)
	var verdict struct {
		Result           string  `json:"result"`
		Confidence       float64 `json:"confidence"`
		SanitizedMessage *string `json:"sanitized_message"`
	}
	decodeBody(t, recorder, &verdict)
	assert.Equal(engine.ResultFiltered.String(), verdict.Result)
	assert.Equal(0.5, verdict.Confidence)
	if assert.NotNil(verdict.SanitizedMessage) {
		assert.Equal("well **** it", *verdict.SanitizedMessage)
	}

	// screen
	recorder = doRequest(srv, "POST", "/api/moderation/screen", `{"message": "total scam"}`, nil)
	assert.Equal(http.StatusBadRequest, recorder.Code)
	var gerr GenericError
	decodeBody(t, recorder, &gerr)
	assert.Equal("BlockedContent", gerr.Error)

	recorder = doRequest(srv, "POST", "/api/moderation/screen", `{"message": "darn good show"}`, nil)
	assert.Equal(200, recorder.Code)
	var screened ScreenResponse
	decodeBody(t, recorder, &screened)
	assert.Equal("**** good show", screened.Message)

	// tip submission
	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"id": "tip-1", "artist_id": "artist-user-1", "message": "this is spammy"}`, fanHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)
	var tipResp TipResponse
	decodeBody(t, recorder, &tipResp)
	assert.Nil(tipResp.Tip.Message)
	if assert.NotNil(tipResp.ModerationLog) {
		assert.Equal(models.ResultFlagged, tipResp.ModerationLog.ModerationResult)
		assert.Equal("0.60", tipResp.ModerationLog.ConfidenceScore)
	}
	logID := tipResp.ModerationLog.ID

	// tips without a message are stored but not moderated
	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"artist_id": "artist-user-1"}`, fanHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)
	tipResp = TipResponse{}
	decodeBody(t, recorder, &tipResp)
	assert.Nil(tipResp.ModerationLog)
	assert.NotEmpty(tipResp.Tip.ID)

	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"message": "hi"}`, fanHeaders)
	assert.Equal(http.StatusBadRequest, recorder.Code)

	// review queue
	recorder = doRequest(srv, "GET", "/api/admin/moderation/queue", "", fanHeaders)
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "GET", "/api/admin/moderation/queue?limit=500", "", adminHeaders)
	assert.Equal(http.StatusBadRequest, recorder.Code)

	recorder = doRequest(srv, "GET", "/api/admin/moderation/queue?page=1&limit=10", "", adminHeaders)
	assert.Equal(200, recorder.Code)
	var page automod.QueuePage
	decodeBody(t, recorder, &page)
	assert.Equal(int64(1), page.Total)
	if assert.Len(page.Data, 1) {
		assert.Equal(logID, page.Data[0].ID)
		if assert.NotNil(page.Data[0].Tip) {
			assert.Equal("tip-1", page.Data[0].Tip.ID)
		}
	}

	// review
	recorder = doRequest(srv, "POST", "/api/admin/moderation/logs/"+logID+"/review", `{"action": "MAYBE"}`, adminHeaders)
	assert.Equal(http.StatusBadRequest, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/admin/moderation/logs/missing/review", `{"action": "APPROVE"}`, adminHeaders)
	assert.Equal(http.StatusNotFound, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/admin/moderation/logs/"+logID+"/review", `{"action": "APPROVE"}`, adminHeaders)
	assert.Equal(200, recorder.Code)
	var reviewed models.ModerationLog
	decodeBody(t, recorder, &reviewed)
	assert.Equal(models.ResultApproved, reviewed.ModerationResult)
	assert.True(reviewed.WasManuallyReviewed)
	if assert.NotNil(reviewed.ReviewedBy) {
		assert.Equal("admin-1", *reviewed.ReviewedBy)
	}

	tip, err := srv.tips.GetTip(context.Background(), "tip-1")
	assert.NoError(err)
	if assert.NotNil(tip.Message) {
		assert.Equal("this is spammy", *tip.Message)
	}

	recorder = doRequest(srv, "POST", "/api/admin/moderation/logs/"+logID+"/review", `{"action": "BLOCK"}`, adminHeaders)
	assert.Equal(http.StatusConflict, recorder.Code)

	// stats
	recorder = doRequest(srv, "GET", "/api/admin/moderation/stats", "", adminHeaders)
	assert.Equal(200, recorder.Code)
	var stats automod.Stats
	decodeBody(t, recorder, &stats)
	assert.Equal(int64(1), stats.Total)
	assert.Equal(int64(1), stats.Approved)
	assert.Equal(int64(0), stats.Flagged)
	assert.Equal(1, stats.Today[models.ResultFlagged])
}

func TestArtistKeywords(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv := testServer(t, Config{})

	require.NoError(t, srv.artists.AddArtist(ctx, &models.Artist{ID: "artist-1", UserID: "artist-user-1", ArtistName: "Test Artist"}))

	recorder := doRequest(srv, "POST", "/api/artist/keywords", `{"keyword": "secret", "severity": "HIGH"}`, fanHeaders)
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/artist/keywords", `{"keyword": "secret", "severity": "HIGH"}`, artistHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)
	var rule models.KeywordRule
	decodeBody(t, recorder, &rule)
	if assert.NotNil(rule.ArtistID) {
		assert.Equal("artist-1", *rule.ArtistID)
	}

	// artist rules apply to tips for that artist only
	recorder = doRequest(srv, "POST", "/api/moderation/screen", `{"message": "a secret", "artist_user_id": "artist-user-1"}`, nil)
	assert.Equal(http.StatusBadRequest, recorder.Code)
	recorder = doRequest(srv, "POST", "/api/moderation/screen", `{"message": "a secret", "artist_user_id": "artist-user-2"}`, nil)
	assert.Equal(200, recorder.Code)

	recorder = doRequest(srv, "GET", "/api/keywords", "", artistHeaders)
	assert.Equal(200, recorder.Code)
	var rules []models.KeywordRule
	decodeBody(t, recorder, &rules)
	assert.Len(rules, 1)

	recorder = doRequest(srv, "GET", "/api/keywords", "", nil)
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "DELETE", "/api/keywords/"+rule.ID, "", fanHeaders)
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "DELETE", "/api/keywords/"+rule.ID, "", artistHeaders)
	assert.Equal(http.StatusNoContent, recorder.Code)

	recorder = doRequest(srv, "DELETE", "/api/keywords/"+rule.ID, "", adminHeaders)
	assert.Equal(http.StatusNotFound, recorder.Code)

	// rule cache was purged by the delete
	recorder = doRequest(srv, "POST", "/api/moderation/screen", `{"message": "a secret", "artist_user_id": "artist-user-1"}`, nil)
	assert.Equal(200, recorder.Code)
}

func TestAuthToken(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{AuthToken: "sekrit"})

	recorder := doRequest(srv, "POST", "/api/moderation/preview", `{"message": "hello"}`, nil)
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/moderation/preview", `{"message": "hello"}`, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(http.StatusForbidden, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/moderation/preview", `{"message": "hello"}`, map[string]string{"Authorization": "Bearer sekrit"})
	assert.Equal(200, recorder.Code)

	// health checks are not authenticated
	recorder = doRequest(srv, "GET", "/_health", "", nil)
	assert.Equal(200, recorder.Code)
}

func TestIdentityHeaders(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{})

	recorder := doRequest(srv, "GET", "/api/keywords", "", map[string]string{headerUserID: "x", headerIsArtist: "maybe"})
	assert.Equal(http.StatusBadRequest, recorder.Code)

	recorder = doRequest(srv, "GET", "/api/nope", "", nil)
	assert.Equal(http.StatusNotFound, recorder.Code)
}

func TestModerateTipOnce(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{})

	recorder := doRequest(srv, "POST", "/api/admin/keywords", `{"keyword": "spammy", "severity": "MEDIUM"}`, adminHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)

	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"id": "tip-x", "artist_id": "artist-user-1", "message": "this has spammy content"}`, fanHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)

	// resubmitting the same id neither replaces the hidden message nor writes another log
	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"id": "tip-x", "artist_id": "artist-user-1", "message": "hello again"}`, fanHeaders)
	assert.Equal(http.StatusConflict, recorder.Code)
	var gerr GenericError
	decodeBody(t, recorder, &gerr)
	assert.Equal("TipExists", gerr.Error)

	tip, err := srv.tips.GetTip(context.Background(), "tip-x")
	assert.NoError(err)
	assert.Nil(tip.Message)

	recorder = doRequest(srv, "GET", "/api/admin/moderation/stats", "", adminHeaders)
	assert.Equal(200, recorder.Code)
	var stats automod.Stats
	decodeBody(t, recorder, &stats)
	assert.Equal(int64(1), stats.Total)
	assert.Equal(int64(1), stats.Flagged)
}

type failingRuleStore struct {
	rulestore.RuleStore
}

func (s failingRuleStore) GlobalRules(ctx context.Context) ([]models.KeywordRule, error) {
	return nil, errors.New("rule store unavailable")
}

func TestModerateTipFailureStoresNothing(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, Config{})

	recorder := doRequest(srv, "POST", "/api/admin/keywords", `{"keyword": "scam", "severity": "HIGH"}`, adminHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)

	rules := srv.mod.Rules
	srv.mod.Rules = failingRuleStore{RuleStore: rules}

	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"id": "tip-s", "artist_id": "artist-user-1", "message": "this is a scam"}`, fanHeaders)
	assert.Equal(http.StatusInternalServerError, recorder.Code)

	_, err := srv.tips.GetTip(context.Background(), "tip-s")
	assert.ErrorIs(err, logstore.ErrTipNotFound)

	// once the rule store recovers, the same tip can be submitted again
	srv.mod.Rules = rules
	recorder = doRequest(srv, "POST", "/api/moderation/tips", `{"id": "tip-s", "artist_id": "artist-user-1", "message": "this is a scam"}`, fanHeaders)
	assert.Equal(http.StatusCreated, recorder.Code)
	var tipResp TipResponse
	decodeBody(t, recorder, &tipResp)
	if assert.NotNil(tipResp.ModerationLog) {
		assert.Equal(models.ResultBlocked, tipResp.ModerationLog.ModerationResult)
	}

	tip, err := srv.tips.GetTip(context.Background(), "tip-s")
	assert.NoError(err)
	assert.Nil(tip.Message)
}

package automod

import (
	"context"
	"errors"
	"testing"

	"github.com/tiptune/tipmod/automod/countstore"
	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/notify"
	"github.com/tiptune/tipmod/models"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestModerateTipMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fixtures := []struct {
		msg        string
		artistUser string
		result     models.ModerationResult
		out        *string
		reason     string
		confidence string
	}{
		{msg: "this is a scam message", result: models.ResultBlocked, out: nil, reason: "high severity keyword match: scam", confidence: "0.90"},
		{msg: "this has spammy content", result: models.ResultFlagged, out: nil, reason: "medium severity keyword match: spammy", confidence: "0.60"},
		{msg: "well darn", result: models.ResultFiltered, out: strPtr("well ****"), reason: "low severity keyword match: darn", confidence: "0.50"},
		{msg: "great show!", result: models.ResultApproved, out: strPtr("great show!"), confidence: "1.00"},
		{msg: "my secret code", artistUser: "artist-user-1", result: models.ResultFiltered, out: strPtr("my ****** code"), reason: "low severity keyword match: secret", confidence: "0.50"},
		{msg: "my secret code", artistUser: "artist-user-2", result: models.ResultApproved, out: strPtr("my secret code"), confidence: "1.00"},
		{msg: "my secret code", artistUser: "not-an-artist", result: models.ResultApproved, out: strPtr("my secret code"), confidence: "1.00"},
		{msg: "SCAM darn spammy", artistUser: "artist-user-1", result: models.ResultBlocked, out: nil, reason: "high severity keyword match: scam", confidence: "0.90"},
	}

	for _, fix := range fixtures {
		m := ModeratorTestFixture()
		tip := &models.Tip{ID: "tip-1", ArtistID: fix.artistUser, Message: strPtr(fix.msg)}

		log, err := m.ModerateTipMessage(ctx, tip, fix.artistUser)
		assert.NoError(err, fix.msg)
		if !assert.NotNil(log, fix.msg) {
			continue
		}
		assert.Equal(fix.result, log.ModerationResult, fix.msg)
		assert.Equal(fix.out, tip.Message, fix.msg)
		assert.Equal(fix.msg, log.OriginalMessage)
		assert.Equal(fix.confidence, log.ConfidenceScore, fix.msg)
		if fix.reason == "" {
			assert.Nil(log.FilterReason, fix.msg)
		} else if assert.NotNil(log.FilterReason, fix.msg) {
			assert.Equal(fix.reason, *log.FilterReason)
		}
		assert.False(log.WasManuallyReviewed)
		assert.Nil(log.ReviewedBy)
		assert.Nil(log.ReviewAction)
		assert.Equal("tip-1", log.TipID)

		// exactly one log was persisted
		stored, err := m.Logs.GetLog(ctx, log.ID)
		assert.NoError(err)
		assert.Equal(fix.result, stored.ModerationResult)
		assert.Equal(1, len(m.Logs.(*logstore.MemLogStore).Logs))
	}
}

func TestModerateTipMessageNoMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := ModeratorTestFixture()

	log, err := m.ModerateTipMessage(ctx, nil, "")
	assert.NoError(err)
	assert.Nil(log)

	for _, msg := range []*string{nil, strPtr(""), strPtr("   \n")} {
		tip := &models.Tip{ID: "tip-1", Message: msg}
		log, err := m.ModerateTipMessage(ctx, tip, "artist-user-1")
		assert.NoError(err)
		assert.Nil(log)
		assert.Equal(msg, tip.Message)
	}
	assert.Empty(m.Logs.(*logstore.MemLogStore).Logs)
	assert.Empty(m.Events.(*CaptureSink).Kinds())
}

func TestModerateTipMessageSideEffects(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := ModeratorTestFixture()

	for i, msg := range []string{"scam", "spammy", "darn", "hello"} {
		tip := &models.Tip{ID: string(rune('a' + i)), ArtistID: "artist-user-1", Message: strPtr(msg)}
		_, err := m.ModerateTipMessage(ctx, tip, "artist-user-1")
		assert.NoError(err)
	}

	sink := m.Events.(*CaptureSink)
	assert.Equal([]notify.EventKind{notify.KindMessageBlocked, notify.KindMessageFlagged}, sink.Kinds())
	for _, ev := range sink.Events {
		assert.Equal("artist-user-1", ev.ArtistID)
		assert.NotEmpty(ev.MessageHash)
		assert.NotEmpty(ev.Reason)
	}

	counts, err := m.Counters.GetCounts(ctx, countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(map[models.ModerationResult]int{
		models.ResultApproved: 1,
		models.ResultFiltered: 1,
		models.ResultFlagged:  1,
		models.ResultBlocked:  1,
	}, counts)
}

type failingLogStore struct {
	logstore.LogStore
}

var errStorage = errors.New("storage unavailable")

func (s failingLogStore) CreateLog(ctx context.Context, log *models.ModerationLog) error {
	return errStorage
}

type failingCountStore struct{}

func (failingCountStore) Increment(ctx context.Context, result models.ModerationResult) error {
	return errStorage
}

func (failingCountStore) GetCounts(ctx context.Context, period string) (map[models.ModerationResult]int, error) {
	return nil, errStorage
}

func TestModerateTipMessageErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	m := ModeratorTestFixture()
	m.Logs = failingLogStore{LogStore: m.Logs}
	tip := &models.Tip{ID: "tip-1", Message: strPtr("this is a scam")}
	log, err := m.ModerateTipMessage(ctx, tip, "")
	assert.ErrorIs(err, errStorage)
	assert.Nil(log)
	// tip untouched when the log could not be written
	assert.Equal("this is a scam", *tip.Message)

	// tally failures don't fail moderation
	m = ModeratorTestFixture()
	m.Counters = failingCountStore{}
	m.Events = nil
	log, err = m.ModerateTipMessage(ctx, tip, "")
	assert.NoError(err)
	assert.Equal(models.ResultBlocked, log.ModerationResult)
}

func TestModerationResultFor(t *testing.T) {
	assert := assert.New(t)

	for r, want := range map[engine.Result]models.ModerationResult{
		engine.ResultApproved: models.ResultApproved,
		engine.ResultFiltered: models.ResultFiltered,
		engine.ResultFlagged:  models.ResultFlagged,
		engine.ResultBlocked:  models.ResultBlocked,
	} {
		got, err := moderationResultFor(r)
		assert.NoError(err)
		assert.Equal(want, got)
	}
	_, err := moderationResultFor(engine.Result(42))
	assert.Error(err)
}

func TestPreviewMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := ModeratorTestFixture()

	v, err := m.PreviewMessage(ctx, "this is a scam")
	assert.NoError(err)
	assert.Equal(engine.ResultBlocked, v.Result)

	// artist-scoped rules never apply to previews
	v, err = m.PreviewMessage(ctx, "my secret code")
	assert.NoError(err)
	assert.Equal(engine.ResultApproved, v.Result)
	assert.Equal("my secret code", *v.SanitizedMessage)

	assert.Empty(m.Logs.(*logstore.MemLogStore).Logs)
	assert.Empty(m.Events.(*CaptureSink).Kinds())
}

func TestScreenMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := ModeratorTestFixture()

	_, err := m.ScreenMessage(ctx, "this is a scam", "")
	assert.ErrorIs(err, ErrBlockedContent)

	out, err := m.ScreenMessage(ctx, "darn it", "")
	assert.NoError(err)
	assert.Equal("**** it", out)

	out, err = m.ScreenMessage(ctx, "so spammy", "")
	assert.NoError(err)
	assert.Equal("so spammy", out)

	out, err = m.ScreenMessage(ctx, "my secret", "artist-user-1")
	assert.NoError(err)
	assert.Equal("my ******", out)

	out, err = m.ScreenMessage(ctx, "  ", "artist-user-1")
	assert.NoError(err)
	assert.Equal("  ", out)

	assert.Empty(m.Logs.(*logstore.MemLogStore).Logs)
}

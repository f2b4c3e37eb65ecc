package automod

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tiptune/tipmod/automod/artistdir"
	"github.com/tiptune/tipmod/automod/countstore"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/notify"
	"github.com/tiptune/tipmod/automod/rulestore"
	"github.com/tiptune/tipmod/models"
)

// Sink which keeps every event in memory.
type CaptureSink struct {
	mu     sync.Mutex
	Events []notify.Event
}

func (s *CaptureSink) Emit(ev notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
}

func (s *CaptureSink) Kinds() []notify.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.EventKind
	for _, ev := range s.Events {
		out = append(out, ev.Kind)
	}
	return out
}

// Moderator backed entirely by in-memory stores, seeded with a few rules:
//
//   - global: "scam" HIGH, "spammy" MEDIUM, "darn" LOW
//   - artist "artist-1" (user "artist-user-1"): "secret" LOW
//
// User "artist-user-2" has the artist profile "artist-2", without rules.
func ModeratorTestFixture() *Moderator {
	ctx := context.Background()
	now := time.Now().UTC()

	rules := rulestore.NewMemRuleStore()
	artist1 := "artist-1"
	for _, r := range []models.KeywordRule{
		{ID: "rule-scam", Keyword: "scam", Severity: "HIGH"},
		{ID: "rule-spammy", Keyword: "spammy", Severity: "MEDIUM"},
		{ID: "rule-darn", Keyword: "darn", Severity: "LOW"},
		{ID: "rule-secret", Keyword: "secret", Severity: "LOW", ArtistID: &artist1},
	} {
		r.AddedBy = "admin-1"
		r.CreatedAt = now
		_ = rules.AddRule(ctx, &r)
	}

	artists := artistdir.NewMemDirectory()
	_ = artists.AddArtist(ctx, &models.Artist{ID: "artist-1", UserID: "artist-user-1", ArtistName: "First Artist", CreatedAt: now})
	_ = artists.AddArtist(ctx, &models.Artist{ID: "artist-2", UserID: "artist-user-2", ArtistName: "Second Artist", CreatedAt: now})

	logs := logstore.NewMemLogStore()
	return &Moderator{
		Logger:   slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Rules:    rules,
		Logs:     logs,
		Tips:     logs,
		Artists:  artists,
		Counters: countstore.NewMemCountStore(),
		Events:   &CaptureSink{},
	}
}

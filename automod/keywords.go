package automod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tiptune/tipmod/automod/artistdir"
	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/automod/keyword"
	"github.com/tiptune/tipmod/automod/rulestore"
	"github.com/tiptune/tipmod/models"

	"github.com/google/uuid"
)

// Adds a rule applying to every tip. Only admins may do this.
func (m *Moderator) AddGlobalKeyword(ctx context.Context, caller *models.User, kw, severity string) (*models.KeywordRule, error) {
	ctx, span := tracer.Start(ctx, "AddGlobalKeyword")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can add global keywords", ErrUnauthorized)
	}
	return m.addKeyword(ctx, caller, kw, severity, nil)
}

// Adds a rule applying only to tips received by the calling artist.
func (m *Moderator) AddArtistKeyword(ctx context.Context, caller *models.User, kw, severity string) (*models.KeywordRule, error) {
	ctx, span := tracer.Start(ctx, "AddArtistKeyword")
	defer span.End()

	if caller == nil || !caller.IsArtist {
		return nil, fmt.Errorf("%w: only artists can add artist keywords", ErrUnauthorized)
	}
	artist, err := m.callerArtist(ctx, caller)
	if err != nil {
		return nil, err
	}
	return m.addKeyword(ctx, caller, kw, severity, &artist.ID)
}

func (m *Moderator) addKeyword(ctx context.Context, caller *models.User, kw, severity string, artistID *string) (*models.KeywordRule, error) {
	clean, err := keyword.Validate(kw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	sev, err := engine.ParseSeverity(severity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	rule := &models.KeywordRule{
		ID:        uuid.NewString(),
		Keyword:   clean,
		Severity:  sev.String(),
		ArtistID:  artistID,
		AddedBy:   caller.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Rules.AddRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("persisting keyword rule: %w", err)
	}
	keywordChangeCount.WithLabelValues("add", ruleScope(rule)).Inc()
	m.Logger.Info("keyword rule added", "rule", rule.ID, "severity", rule.Severity, "scope", ruleScope(rule), "by", caller.ID)
	return rule, nil
}

// Deletes a rule by id. Admins may delete any rule; artists may only delete rules scoped to themselves.
func (m *Moderator) DeleteKeyword(ctx context.Context, caller *models.User, id string) error {
	ctx, span := tracer.Start(ctx, "DeleteKeyword")
	defer span.End()

	if caller == nil {
		return ErrUnauthorized
	}
	rule, err := m.Rules.GetRule(ctx, id)
	if errors.Is(err, rulestore.ErrRuleNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	} else if err != nil {
		return err
	}

	if !caller.IsAdmin() {
		if rule.ArtistID == nil || !caller.IsArtist {
			return fmt.Errorf("%w: can not delete this keyword", ErrUnauthorized)
		}
		artist, err := m.callerArtist(ctx, caller)
		if err != nil {
			return err
		}
		if *rule.ArtistID != artist.ID {
			return fmt.Errorf("%w: keyword belongs to another artist", ErrUnauthorized)
		}
	}

	err = m.Rules.DeleteRule(ctx, id)
	if errors.Is(err, rulestore.ErrRuleNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	} else if err != nil {
		return err
	}
	keywordChangeCount.WithLabelValues("delete", ruleScope(rule)).Inc()
	m.Logger.Info("keyword rule deleted", "rule", rule.ID, "by", caller.ID)
	return nil
}

// Lists keyword rules visible to the caller. Admins see global rules, plus the rules of artistID when it is non-empty. Artists see only their own scoped rules, and artistID is ignored.
func (m *Moderator) ListKeywords(ctx context.Context, caller *models.User, artistID string) ([]models.KeywordRule, error) {
	ctx, span := tracer.Start(ctx, "ListKeywords")
	defer span.End()

	if caller.IsAdmin() {
		return rulestore.RulesForArtist(ctx, m.Rules, artistID)
	}
	if caller == nil || !caller.IsArtist {
		return nil, ErrUnauthorized
	}
	artist, err := m.callerArtist(ctx, caller)
	if err != nil {
		return nil, err
	}
	return m.Rules.ArtistRules(ctx, artist.ID)
}

// Artist profile of the caller. A caller without one is not authorized to act as an artist.
func (m *Moderator) callerArtist(ctx context.Context, caller *models.User) (*models.Artist, error) {
	artist, err := m.Artists.LookupByUser(ctx, caller.ID)
	if errors.Is(err, artistdir.ErrArtistNotFound) {
		return nil, fmt.Errorf("%w: caller has no artist profile", ErrUnauthorized)
	} else if err != nil {
		return nil, err
	}
	return artist, nil
}

func ruleScope(r *models.KeywordRule) string {
	if r.IsGlobal() {
		return "global"
	}
	return "artist"
}

package rulestore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/models"
)

var ErrRuleNotFound = errors.New("keyword rule not found")

// Data access for keyword rules. Implementations must be safe for concurrent use.
type RuleStore interface {
	GlobalRules(ctx context.Context) ([]models.KeywordRule, error)
	ArtistRules(ctx context.Context, artistID string) ([]models.KeywordRule, error)
	GetRule(ctx context.Context, id string) (*models.KeywordRule, error)
	AddRule(ctx context.Context, rule *models.KeywordRule) error
	DeleteRule(ctx context.Context, id string) error
}

// Returns the rule set which applies to a tip for the given artist: every global rule, plus rules scoped to that artist. An empty artistID yields only the global rules.
//
// No ordering is guaranteed. The returned slice is always freshly allocated; stores and caches may share the slices they return.
func RulesForArtist(ctx context.Context, store RuleStore, artistID string) ([]models.KeywordRule, error) {
	rules, err := store.GlobalRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading global keyword rules: %w", err)
	}
	if artistID == "" {
		return rules, nil
	}
	scoped, err := store.ArtistRules(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("loading artist keyword rules: %w", err)
	}
	return slices.Concat(rules, scoped), nil
}

// Converts persisted rules to the form the filter engine evaluates. Rules with an unparsable severity are passed through with a zero severity, which the engine ignores.
func EngineRules(rules []models.KeywordRule) []engine.Rule {
	out := make([]engine.Rule, 0, len(rules))
	for _, r := range rules {
		sev, _ := engine.ParseSeverity(r.Severity)
		er := engine.Rule{
			ID:       r.ID,
			Keyword:  r.Keyword,
			Severity: sev,
		}
		if r.ArtistID != nil {
			er.ArtistID = *r.ArtistID
		}
		out = append(out, er)
	}
	return out
}

// Cache scope a rule belongs to.
func scopeOf(r *models.KeywordRule) string {
	if r.ArtistID == nil {
		return scopeGlobal
	}
	return artistScope(*r.ArtistID)
}

const scopeGlobal = "global"

func artistScope(artistID string) string {
	return "artist/" + artistID
}

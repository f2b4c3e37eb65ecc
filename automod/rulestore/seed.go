package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/automod/keyword"
	"github.com/tiptune/tipmod/models"

	"github.com/google/uuid"
)

// Seeds global rules from a JSON file of the form {"HIGH": ["scam"], "MEDIUM": [...], "LOW": [...]}.
//
// A rule whose (folded keyword, severity) pair already exists as a global rule is skipped, so loading the same file twice is harmless. Returns the number of rules added.
func LoadFromFileJSON(ctx context.Context, store RuleStore, p, addedBy string) (int, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	rules, err := ParseRulesJSON(raw, addedBy)
	if err != nil {
		return 0, fmt.Errorf("parsing rules file %s: %w", p, err)
	}

	existing, err := store.GlobalRules(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[seedKey(r)] = true
	}

	added := 0
	for _, r := range rules {
		if seen[seedKey(r)] {
			continue
		}
		if err := store.AddRule(ctx, &r); err != nil {
			return added, err
		}
		seen[seedKey(r)] = true
		added++
	}
	return added, nil
}

// Parses a rules file body into new global rules. Keywords are validated, and rules are returned grouped by severity (highest first) in file order.
func ParseRulesJSON(raw []byte, addedBy string) ([]models.KeywordRule, error) {
	var bySeverity map[string][]string
	if err := json.Unmarshal(raw, &bySeverity); err != nil {
		return nil, err
	}

	type group struct {
		sev      engine.Severity
		keywords []string
	}
	var groups []group
	for name, l := range bySeverity {
		sev, err := engine.ParseSeverity(name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group{sev: sev, keywords: l})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].sev > groups[j].sev
	})

	now := time.Now().UTC()
	var out []models.KeywordRule
	for _, g := range groups {
		for _, raw := range g.keywords {
			kw, err := keyword.Validate(raw)
			if err != nil {
				return nil, fmt.Errorf("keyword %q: %w", raw, err)
			}
			out = append(out, models.KeywordRule{
				ID:        uuid.NewString(),
				Keyword:   kw,
				Severity:  g.sev.String(),
				AddedBy:   addedBy,
				CreatedAt: now,
			})
		}
	}
	return out, nil
}

func seedKey(r models.KeywordRule) string {
	return r.Severity + "/" + keyword.Fold(r.Keyword)
}

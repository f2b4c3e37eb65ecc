package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tiptune/tipmod/automod/helpers"
	"github.com/tiptune/tipmod/automod/keyword"
)

// Evaluates one message against one rule set.
//
// This is a pure function: no I/O, no shared state, and the same (message, rules) pair always produces the same verdict, regardless of the order rules are supplied in. It never fails; empty, whitespace-only or otherwise unmatchable input is simply approved.
func ApplyFilters(message string, rules []Rule) Verdict {
	if strings.TrimSpace(message) == "" {
		return approvedVerdict(message)
	}

	text := keyword.NewFoldedText(message)
	matched := []Rule{}
	var dominant Severity
	for _, r := range rules {
		if !r.Severity.Valid() {
			continue
		}
		if !text.Contains(keyword.Fold(r.Keyword)) {
			continue
		}
		matched = append(matched, r)
		if r.Severity > dominant {
			dominant = r.Severity
		}
	}
	if len(matched) == 0 {
		return approvedVerdict(message)
	}
	sortRules(matched)

	hits := 0
	var names []string
	for _, r := range matched {
		if r.Severity != dominant {
			continue
		}
		hits++
		names = append(names, keyword.Fold(r.Keyword))
	}
	names = helpers.DedupeStrings(names)
	sort.Strings(names)

	v := Verdict{
		Result:       resultForSeverity(dominant),
		Reason:       fmt.Sprintf("%s severity keyword match: %s", strings.ToLower(dominant.String()), strings.Join(names, ", ")),
		Confidence:   confidence(dominant, hits),
		MatchedRules: matched,
	}
	if v.Result == ResultFiltered {
		clean := sanitize(message, matched)
		v.SanitizedMessage = &clean
	}
	return v
}

func approvedVerdict(message string) Verdict {
	return Verdict{
		Result:           ResultApproved,
		Confidence:       1.0,
		SanitizedMessage: &message,
		MatchedRules:     []Rule{},
	}
}

func resultForSeverity(sev Severity) Result {
	switch sev {
	case SeverityHigh:
		return ResultBlocked
	case SeverityMedium:
		return ResultFlagged
	case SeverityLow:
		return ResultFiltered
	default:
		// unreachable: rules with invalid severity are skipped before matching
		return ResultFlagged
	}
}

type confidenceTier struct {
	base    float64
	step    float64
	ceiling float64
}

// Each additional matched rule at the dominant severity adds one step, up to the tier ceiling.
var confidenceTiers = map[Severity]confidenceTier{
	SeverityHigh:   {base: 0.90, step: 0.05, ceiling: 1.00},
	SeverityMedium: {base: 0.60, step: 0.05, ceiling: 0.80},
	SeverityLow:    {base: 0.50, step: 0.05, ceiling: 0.70},
}

func confidence(sev Severity, hits int) float64 {
	tier, ok := confidenceTiers[sev]
	if !ok || hits < 1 {
		return 0
	}
	c := tier.base + tier.step*float64(hits-1)
	if c > tier.ceiling {
		c = tier.ceiling
	}
	return math.Round(c*100) / 100
}

// Masks every span matching a LOW rule.
//
// Masking can line mask runes up with remaining text to form a fresh occurrence of a keyword containing the mask rune, so redaction repeats until no matched keyword remains. Each pass that changes anything masks at least one more rune, which bounds the loop.
func sanitize(message string, matched []Rule) string {
	var kws []string
	for _, r := range matched {
		if r.Severity == SeverityLow {
			kws = append(kws, keyword.Fold(r.Keyword))
		}
	}
	out := message
	for range utf8.RuneCountInString(message) + 1 {
		ft := keyword.NewFoldedText(out)
		var spans []keyword.Span
		for _, kw := range kws {
			spans = append(spans, ft.FindAll(kw)...)
		}
		if len(spans) == 0 {
			break
		}
		next := keyword.Redact(out, spans, keyword.DefaultMask)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		ka, kb := keyword.Fold(a.Keyword), keyword.Fold(b.Keyword)
		if ka != kb {
			return ka < kb
		}
		return a.ID < b.ID
	})
}

package engine

import (
	"fmt"
)

// Outcome of evaluating one message. This is a closed set: code switching on a Result should handle every variant explicitly.
type Result int

const (
	ResultApproved Result = iota
	ResultFiltered
	ResultFlagged
	ResultBlocked
)

func (r Result) String() string {
	switch r {
	case ResultApproved:
		return "approved"
	case ResultFiltered:
		return "filtered"
	case ResultFlagged:
		return "flagged"
	case ResultBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

func (r Result) MarshalText() ([]byte, error) {
	switch r {
	case ResultApproved, ResultFiltered, ResultFlagged, ResultBlocked:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("invalid result: %d", int(r))
	}
}

// Single keyword rule, as seen by the filter. An empty ArtistID means the rule is global.
type Rule struct {
	ID       string   `json:"id"`
	Keyword  string   `json:"keyword"`
	Severity Severity `json:"severity"`
	ArtistID string   `json:"artist_id,omitempty"`
}

type Verdict struct {
	Result Result `json:"result"`
	// short audit explanation; empty when nothing matched. Not meant for public display.
	Reason string `json:"reason,omitempty"`
	// in [0, 1], rounded to two decimals
	Confidence float64 `json:"confidence"`
	// nil when the message must not be shown at all (blocked or flagged)
	SanitizedMessage *string `json:"sanitized_message"`
	MatchedRules     []Rule  `json:"matched_rules"`
}

// Confidence formatted the way it is stored in moderation logs.
func (v *Verdict) ConfidenceString() string {
	return fmt.Sprintf("%.2f", v.Confidence)
}

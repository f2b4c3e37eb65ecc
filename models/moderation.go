package models

import (
	"fmt"
	"time"
)

type ModerationResult string

const (
	ResultApproved ModerationResult = "APPROVED"
	ResultFiltered ModerationResult = "FILTERED"
	ResultFlagged  ModerationResult = "FLAGGED"
	ResultBlocked  ModerationResult = "BLOCKED"
)

// AllResults lists every moderation result, in the order stats are reported.
var AllResults = []ModerationResult{ResultApproved, ResultFiltered, ResultFlagged, ResultBlocked}

type ReviewAction string

const (
	ReviewApprove ReviewAction = "APPROVE"
	ReviewBlock   ReviewAction = "BLOCK"
)

func ParseReviewAction(raw string) (ReviewAction, error) {
	switch ReviewAction(raw) {
	case ReviewApprove, ReviewBlock:
		return ReviewAction(raw), nil
	default:
		return "", fmt.Errorf("unknown review action: %q", raw)
	}
}

// Keyword rule applied to tip messages. A nil ArtistID means the rule is global.
type KeywordRule struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Keyword   string    `gorm:"not null" json:"keyword"`
	Severity  string    `gorm:"not null" json:"severity"`
	ArtistID  *string   `gorm:"index" json:"artist_id"`
	AddedBy   string    `gorm:"not null" json:"added_by"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (KeywordRule) TableName() string {
	return "blocked_keywords"
}

func (r *KeywordRule) IsGlobal() bool {
	return r.ArtistID == nil
}

// Audit record of one moderation decision on a tip message.
//
// Everything except the review fields is immutable once written. The review fields are only written by the review workflow.
type ModerationLog struct {
	ID                  string           `gorm:"primaryKey" json:"id"`
	TipID               string           `gorm:"not null;index" json:"tip_id"`
	OriginalMessage     string           `gorm:"type:text;not null" json:"original_message"`
	ModerationResult    ModerationResult `gorm:"not null;index" json:"moderation_result"`
	FilterReason        *string          `json:"filter_reason"`
	ConfidenceScore     string           `gorm:"not null" json:"confidence_score"`
	WasManuallyReviewed bool             `gorm:"not null;index" json:"was_manually_reviewed"`
	ReviewedBy          *string          `json:"reviewed_by"`
	ReviewAction        *ReviewAction    `json:"review_action"`
	ReviewedAt          *time.Time       `json:"reviewed_at"`
	CreatedAt           time.Time        `gorm:"not null;index" json:"created_at"`

	// populated by stores when the associated tip could be loaded; never persisted with the log
	Tip *Tip `gorm:"-" json:"tip,omitempty"`
}

func (ModerationLog) TableName() string {
	return "message_moderation_logs"
}

package model

import (
	"fmt"
	"time"
)

// Priority holds a bill's relevance scores and review state. Exactly one row
// per bill. Automatic and manual columns are disjoint: the scoring
// collaborator writes only the auto fields, human review only the manual ones.
type Priority struct {
	ID                    int64          `json:"id"`
	LegislationID         int64          `json:"legislation_id"`
	PublicHealthRelevance int            `json:"public_health_relevance"`
	LocalGovtRelevance    int            `json:"local_govt_relevance"`
	OverallPriority       int            `json:"overall_priority"`
	AutoCategorized       bool           `json:"auto_categorized"`
	AutoCategories        map[string]any `json:"auto_categories,omitempty"`
	ManuallyReviewed      bool           `json:"manually_reviewed"`
	ManualPriority        int            `json:"manual_priority"`
	ReviewerNotes         *string        `json:"reviewer_notes,omitempty"`
	ReviewDate            *time.Time     `json:"review_date,omitempty"`
	ShouldNotify          bool           `json:"should_notify"`
	NotificationSent      bool           `json:"notification_sent"`
	NotificationDate      *time.Time     `json:"notification_date,omitempty"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// AutoScores is the automatic-scoring write set. Scores are clamped to
// [0,100] before storage.
type AutoScores struct {
	PublicHealthRelevance int            `json:"public_health_relevance"`
	LocalGovtRelevance    int            `json:"local_govt_relevance"`
	OverallPriority       int            `json:"overall_priority"`
	AutoCategories        map[string]any `json:"auto_categories,omitempty"`
}

// Clamp bounds every score to [0,100].
func (s AutoScores) Clamp() AutoScores {
	s.PublicHealthRelevance = clampScore(s.PublicHealthRelevance)
	s.LocalGovtRelevance = clampScore(s.LocalGovtRelevance)
	s.OverallPriority = clampScore(s.OverallPriority)
	return s
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ManualReview is the human-review write set.
type ManualReview struct {
	ManualPriority int     `json:"manual_priority"`
	ReviewerNotes  *string `json:"reviewer_notes,omitempty"`
}

// Validate checks the manual priority range.
func (m ManualReview) Validate() error {
	if m.ManualPriority < 0 || m.ManualPriority > 100 {
		return fmt.Errorf("model: manual review: manual_priority must be in [0,100]")
	}
	return nil
}

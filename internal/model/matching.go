package model

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult pairs a waitlist entry with its best slot candidate. Ephemeral:
// produced by a matching pass and either converted into an offer or dropped.
type MatchResult struct {
	WaitlistEntryID uuid.UUID     `json:"waitlist_entry_id"`
	Slot            SlotCandidate `json:"slot"`
	MatchScore      float64       `json:"match_score"`
	MatchReasons    []string      `json:"match_reasons"`
}

// MatchingSummary aggregates one full matching cycle.
type MatchingSummary struct {
	Processed         int           `json:"processed"`
	Matched           int           `json:"matched"`
	Offered           int           `json:"offered"`
	Failed            int           `json:"failed"`
	AverageMatchScore float64       `json:"average_match_score"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	Proposals         []MatchResult `json:"proposals,omitempty"`
}

// MatchingStats reports aggregate waitlist matching performance over a
// reporting window.
type MatchingStats struct {
	TotalEntries      int     `json:"total_entries"`
	Matched           int     `json:"matched"`
	Offered           int     `json:"offered"`
	Accuracy          float64 `json:"accuracy"`
	AverageMatchScore float64 `json:"average_match_score"`
}

package matching

import (
	"fmt"
	"math"
	"time"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
)

// Match score weights. Provider fit dominates, then day and time-of-day
// preferences, then how soon the slot is and the entry's own priority.
const (
	preferredProviderScore = 0.30
	requestedProviderScore = 0.25
	alternateProviderScore = 0.15
	dayMatchScore          = 0.20
	timeMatchScore         = 0.20
	soonerWeight           = 0.15
	soonerCapDays          = 30
	priorityBoostWeight    = 0.15
)

// ScoreMatch rates how well a slot fits a waitlist entry. Pure function:
// no repository access, explicit reference time. The score is within [0, 1]
// and each contributing component is recorded as a human-readable reason
// for audit and notification content.
func ScoreMatch(entry *model.WaitlistEntry, slot model.SlotCandidate, now time.Time) (float64, []string) {
	var score float64
	var reasons []string

	switch {
	case entry.PreferredProviderID != nil && *entry.PreferredProviderID == slot.ClinicianID:
		score += preferredProviderScore
		reasons = append(reasons, "Preferred provider")
	case entry.RequestedClinicianID == slot.ClinicianID:
		score += requestedProviderScore
		reasons = append(reasons, "Requested clinician")
	case entry.IsAlternateClinician(slot.ClinicianID):
		score += alternateProviderScore
		reasons = append(reasons, "Alternate clinician")
	}

	if entry.PrefersDay(slot.Date.Weekday()) {
		score += dayMatchScore
		if len(entry.PreferredDays) == 0 {
			reasons = append(reasons, "Any day works")
		} else {
			reasons = append(reasons, "Preferred day")
		}
	}

	bucket := model.TimeOfDayForHour(slot.StartHour())
	if entry.PrefersTimeOfDay(bucket) {
		score += timeMatchScore
		if len(entry.PreferredTimes) == 0 {
			reasons = append(reasons, "Any time works")
		} else {
			reasons = append(reasons, "Preferred time of day")
		}
	}

	daysUntil := math.Floor(model.DateOnly(slot.Date).Sub(model.DateOnly(now)).Hours() / 24)
	sooner := math.Max(0, 1-daysUntil/soonerCapDays) * soonerWeight
	if sooner > 0 {
		score += sooner
		reasons = append(reasons, fmt.Sprintf("Available in %d days", int(daysUntil)))
	}

	if boost := entry.PriorityScore * priorityBoostWeight; boost > 0 {
		score += boost
		reasons = append(reasons, "Priority boost")
	}

	return math.Min(1.0, score), reasons
}

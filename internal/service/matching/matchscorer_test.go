package matching_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
)

// Monday.
var scoreNow = time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)

func slotOn(clinicianID uuid.UUID, date time.Time, start, end string) model.SlotCandidate {
	return model.SlotCandidate{
		ClinicianID: clinicianID,
		Date:        model.DateOnly(date),
		StartTime:   start,
		EndTime:     end,
	}
}

func TestScoreMatchFullExample(t *testing.T) {
	clinicianID := uuid.New()
	entry := &model.WaitlistEntry{
		RequestedClinicianID: clinicianID,
		PreferredDays:        pq.StringArray{"MONDAY"},
		PreferredTimes:       pq.StringArray{string(model.TimeOfDayMorning)},
		PriorityScore:        0.90,
	}
	slot := slotOn(clinicianID, scoreNow, "09:00", "10:00")

	// 0.25 + 0.20 + 0.20 + 0.15 + 0.90*0.15
	score, reasons := matching.ScoreMatch(entry, slot, scoreNow)
	assert.InDelta(t, 0.935, score, 1e-9)
	assert.Contains(t, reasons, "Requested clinician")
	assert.Contains(t, reasons, "Preferred day")
	assert.Contains(t, reasons, "Preferred time of day")
	assert.Contains(t, reasons, "Priority boost")
}

func TestScoreMatchProviderTiers(t *testing.T) {
	requested := uuid.New()
	alternate := uuid.New()
	preferred := uuid.New()
	unrelated := uuid.New()

	entry := &model.WaitlistEntry{
		RequestedClinicianID:  requested,
		AlternateClinicianIDs: pq.StringArray{alternate.String()},
		PreferredProviderID:   &preferred,
	}

	scoreFor := func(id uuid.UUID) float64 {
		s, _ := matching.ScoreMatch(entry, slotOn(id, scoreNow, "09:00", "10:00"), scoreNow)
		return s
	}

	assert.Greater(t, scoreFor(preferred), scoreFor(requested))
	assert.Greater(t, scoreFor(requested), scoreFor(alternate))
	assert.Greater(t, scoreFor(alternate), scoreFor(unrelated))
}

func TestScoreMatchTimeOfDayBuckets(t *testing.T) {
	entry := &model.WaitlistEntry{
		RequestedClinicianID: uuid.New(),
		PreferredTimes:       pq.StringArray{string(model.TimeOfDayAfternoon)},
	}

	morning, morningReasons := matching.ScoreMatch(entry, slotOn(uuid.New(), scoreNow, "11:00", "12:00"), scoreNow)
	afternoon, afternoonReasons := matching.ScoreMatch(entry, slotOn(uuid.New(), scoreNow, "12:00", "13:00"), scoreNow)

	assert.Greater(t, afternoon, morning)
	assert.NotContains(t, morningReasons, "Preferred time of day")
	assert.Contains(t, afternoonReasons, "Preferred time of day")

	// 17:00 boundary falls into evening.
	_, eveningReasons := matching.ScoreMatch(entry, slotOn(uuid.New(), scoreNow, "17:00", "18:00"), scoreNow)
	assert.NotContains(t, eveningReasons, "Preferred time of day")
}

func TestScoreMatchAnytimeAcceptsAllBuckets(t *testing.T) {
	entry := &model.WaitlistEntry{
		RequestedClinicianID: uuid.New(),
		PreferredTimes:       pq.StringArray{string(model.TimeOfDayAnytime)},
	}

	for _, start := range []string{"08:00", "13:00", "18:00"} {
		_, reasons := matching.ScoreMatch(entry, slotOn(uuid.New(), scoreNow, start, "19:00"), scoreNow)
		assert.Contains(t, reasons, "Preferred time of day", "start %s", start)
	}
}

func TestScoreMatchEmptyPreferencesAcceptEverything(t *testing.T) {
	entry := &model.WaitlistEntry{RequestedClinicianID: uuid.New()}

	_, reasons := matching.ScoreMatch(entry, slotOn(uuid.New(), scoreNow, "09:00", "10:00"), scoreNow)
	assert.Contains(t, reasons, "Any day works")
	assert.Contains(t, reasons, "Any time works")
}

func TestScoreMatchSoonerSlotsScoreHigher(t *testing.T) {
	entry := &model.WaitlistEntry{RequestedClinicianID: uuid.New()}
	clinicianID := uuid.New()

	today, _ := matching.ScoreMatch(entry, slotOn(clinicianID, scoreNow, "09:00", "10:00"), scoreNow)
	nextWeek, _ := matching.ScoreMatch(entry, slotOn(clinicianID, scoreNow.AddDate(0, 0, 7), "09:00", "10:00"), scoreNow)
	farOut, _ := matching.ScoreMatch(entry, slotOn(clinicianID, scoreNow.AddDate(0, 0, 40), "09:00", "10:00"), scoreNow)

	assert.Greater(t, today, nextWeek)
	assert.Greater(t, nextWeek, farOut)
}

func TestScoreMatchBounded(t *testing.T) {
	clinicianID := uuid.New()
	entry := &model.WaitlistEntry{
		RequestedClinicianID: clinicianID,
		PreferredProviderID:  &clinicianID,
		PreferredDays:        pq.StringArray{"MONDAY"},
		PreferredTimes:       pq.StringArray{string(model.TimeOfDayMorning)},
		PriorityScore:        1.0,
	}

	score, _ := matching.ScoreMatch(entry, slotOn(clinicianID, scoreNow, "09:00", "10:00"), scoreNow)
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

package matching_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/lock"
)

type fakeMatchRepo struct {
	repository.WaitlistRepository

	entries []*model.WaitlistEntry
}

func (f *fakeMatchRepo) ListForMatching(ctx context.Context) ([]*model.WaitlistEntry, error) {
	ranked := make([]*model.WaitlistEntry, 0, len(f.entries))
	for _, e := range f.entries {
		if e.Status == model.WaitlistStatusActive && e.AutoMatchEnabled {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PriorityScore != ranked[j].PriorityScore {
			return ranked[i].PriorityScore > ranked[j].PriorityScore
		}
		return ranked[i].AddedDate.Before(ranked[j].AddedDate)
	})
	return ranked, nil
}

func (f *fakeMatchRepo) UpdatePriorityScore(ctx context.Context, id uuid.UUID, score float64) error {
	return nil
}

func (f *fakeMatchRepo) ListActiveForSlot(ctx context.Context, clinicianID uuid.UUID, limit int) ([]*model.WaitlistEntry, error) {
	var matched []*model.WaitlistEntry
	for _, e := range f.entries {
		if e.Status != model.WaitlistStatusActive {
			continue
		}
		for _, id := range e.CandidateClinicianIDs() {
			if id == clinicianID {
				matched = append(matched, e)
				break
			}
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

type fakeAuditRepo struct {
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, l *model.AuditLog) error {
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return f.logs, nil
}

type heldRunLock struct{}

func (heldRunLock) WithLock(ctx context.Context, fn func(context.Context) error) error {
	return lock.ErrLockHeld
}

func mondayOnlyTemplate(clinicianID uuid.UUID) *model.ScheduleTemplate {
	return &model.ScheduleTemplate{
		ID:          uuid.New(),
		ClinicianID: clinicianID,
		Weekly: model.WeeklySchedule{
			"monday": {Available: true, StartTime: "09:00", EndTime: "10:00"},
		},
	}
}

func newOrchestrator(entries *fakeMatchRepo, schedules *fakeScheduleRepo, runLock lock.RunLock, horizonDays int) *matching.Orchestrator {
	auditor := audit.NewService(&fakeAuditRepo{})
	scorer := priority.NewScorer(entries, auditor)
	finder := matching.NewSlotFinder(schedules, horizonDays)
	return matching.NewOrchestrator(entries, scorer, finder, runLock, auditor, nil)
}

func TestRunMatchingCycleReservesSlots(t *testing.T) {
	clinicianID := uuid.New()
	schedules := newFakeScheduleRepo()
	schedules.templates[clinicianID] = mondayOnlyTemplate(clinicianID)

	urgent := activeEntry(clinicianID)
	urgent.Priority = model.PriorityUrgent
	urgent.AutoMatchEnabled = true
	urgent.AddedDate = time.Now().AddDate(0, 0, -20)

	normal := activeEntry(clinicianID)
	normal.Priority = model.PriorityNormal
	normal.AutoMatchEnabled = true
	normal.AddedDate = time.Now().AddDate(0, 0, -5)

	entries := &fakeMatchRepo{entries: []*model.WaitlistEntry{normal, urgent}}

	// A short horizon leaves exactly one Monday, so one slot for two entries.
	o := newOrchestrator(entries, schedules, lock.NewLocalRunLock(), 6)

	summary, err := o.RunMatchingCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Proposals, 1)
	assert.Equal(t, urgent.ID, summary.Proposals[0].WaitlistEntryID, "higher-ranked entry wins the contested slot")
}

func TestRunMatchingCycleLockContention(t *testing.T) {
	entries := &fakeMatchRepo{}
	o := newOrchestrator(entries, newFakeScheduleRepo(), heldRunLock{}, 14)

	_, err := o.RunMatchingCycle(context.Background())
	assert.ErrorIs(t, err, matching.ErrCycleInProgress)
}

func TestRunMatchingCycleIsolatesEntryFailures(t *testing.T) {
	withSchedule := uuid.New()
	withoutSchedule := uuid.New()

	schedules := newFakeScheduleRepo()
	schedules.templates[withSchedule] = weekdayTemplate(withSchedule)

	ok := activeEntry(withSchedule)
	ok.AutoMatchEnabled = true
	broken := activeEntry(withoutSchedule)
	broken.AutoMatchEnabled = true

	entries := &fakeMatchRepo{entries: []*model.WaitlistEntry{ok, broken}}
	o := newOrchestrator(entries, schedules, lock.NewLocalRunLock(), 14)

	summary, err := o.RunMatchingCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Failed, "schedule-less entry fails without aborting the cycle")
}

func TestRunMatchingCycleSkipsManualEntries(t *testing.T) {
	clinicianID := uuid.New()
	schedules := newFakeScheduleRepo()
	schedules.templates[clinicianID] = weekdayTemplate(clinicianID)

	manual := activeEntry(clinicianID)
	manual.AutoMatchEnabled = false

	entries := &fakeMatchRepo{entries: []*model.WaitlistEntry{manual}}
	o := newOrchestrator(entries, schedules, lock.NewLocalRunLock(), 14)

	summary, err := o.RunMatchingCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
}

func TestMatchEntriesForSlotOrdersByScore(t *testing.T) {
	clinicianID := uuid.New()

	requested := activeEntry(clinicianID)
	requested.PriorityScore = 0.9

	alternate := &model.WaitlistEntry{
		ID:                    uuid.New(),
		RequestedClinicianID:  uuid.New(),
		AlternateClinicianIDs: pq.StringArray{clinicianID.String()},
		Status:                model.WaitlistStatusActive,
		PriorityScore:         0.2,
	}

	entries := &fakeMatchRepo{entries: []*model.WaitlistEntry{alternate, requested}}
	o := newOrchestrator(entries, newFakeScheduleRepo(), lock.NewLocalRunLock(), 14)

	now := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	slot := model.SlotCandidate{
		ClinicianID: clinicianID,
		Date:        model.DateOnly(now.AddDate(0, 0, 1)),
		StartTime:   "09:00",
		EndTime:     "10:00",
	}

	results, err := o.MatchEntriesForSlot(context.Background(), slot, now)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, requested.ID, results[0].WaitlistEntryID)
	assert.Equal(t, alternate.ID, results[1].WaitlistEntryID)
	assert.Greater(t, results[0].MatchScore, results[1].MatchScore)
}

func TestMatchEntriesForSlotFiltersPreferences(t *testing.T) {
	clinicianID := uuid.New()

	eveningsOnly := activeEntry(clinicianID)
	eveningsOnly.PreferredTimes = pq.StringArray{string(model.TimeOfDayEvening)}

	entries := &fakeMatchRepo{entries: []*model.WaitlistEntry{eveningsOnly}}
	o := newOrchestrator(entries, newFakeScheduleRepo(), lock.NewLocalRunLock(), 14)

	now := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	morningSlot := model.SlotCandidate{
		ClinicianID: clinicianID,
		Date:        model.DateOnly(now.AddDate(0, 0, 1)),
		StartTime:   "09:00",
		EndTime:     "10:00",
	}

	results, err := o.MatchEntriesForSlot(context.Background(), morningSlot, now)
	require.NoError(t, err)
	assert.Empty(t, results)
}

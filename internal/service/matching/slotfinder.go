package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
)

const (
	DefaultHorizonDays = 14

	scheduleCacheTTL     = time.Minute
	scheduleCacheCleanup = 5 * time.Minute
)

// SlotFinder walks a date window per candidate clinician and derives open
// slot candidates from the weekly template, approved exceptions, and
// existing bookings. Candidates are ephemeral: computed, consumed, dropped.
type SlotFinder struct {
	schedules   repository.ScheduleRepository
	cache       *gocache.Cache
	horizonDays int
}

func NewSlotFinder(schedules repository.ScheduleRepository, horizonDays int) *SlotFinder {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &SlotFinder{
		schedules:   schedules,
		cache:       gocache.New(scheduleCacheTTL, scheduleCacheCleanup),
		horizonDays: horizonDays,
	}
}

// clinicianWindow bundles one clinician's schedule reads for a window.
type clinicianWindow struct {
	template     *model.ScheduleTemplate
	exceptions   []*model.ScheduleException
	appointments []*model.ExistingAppointment
}

// FindSlots returns every open slot candidate for the entry inside its
// effective search window. Returns SCHEDULE_UNAVAILABLE when no candidate
// clinician has a template covering the window, and NO_CANDIDATES when
// templates exist but every date is filtered out.
func (f *SlotFinder) FindSlots(ctx context.Context, entry *model.WaitlistEntry, now time.Time) ([]model.SlotCandidate, error) {
	start := model.DateOnly(now)
	end := start.AddDate(0, 0, f.horizonDays)

	// A max-wait limit caps the window end.
	if entry.MaxWaitDays != nil {
		maxEnd := start.AddDate(0, 0, *entry.MaxWaitDays)
		if maxEnd.Before(end) {
			end = maxEnd
		}
	}

	var (
		candidates   []model.SlotCandidate
		anySchedule  bool
	)

	for _, clinicianID := range entry.CandidateClinicianIDs() {
		window, err := f.loadWindow(ctx, clinicianID, start, end)
		if err != nil {
			return nil, err
		}
		if window.template == nil {
			continue
		}
		anySchedule = true

		candidates = append(candidates, f.walkWindow(entry, clinicianID, window, start, end)...)
	}

	if !anySchedule {
		return nil, apperrors.ScheduleUnavailable(entry.RequestedClinicianID.String())
	}
	if len(candidates) == 0 {
		return nil, apperrors.NoCandidates()
	}
	return candidates, nil
}

func (f *SlotFinder) walkWindow(entry *model.WaitlistEntry, clinicianID uuid.UUID, window *clinicianWindow, start, end time.Time) []model.SlotCandidate {
	var candidates []model.SlotCandidate

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if !entry.PrefersDay(date.Weekday()) {
			continue
		}

		day, ok := window.template.Weekly.ForDay(date.Weekday())
		if !ok || !day.Available {
			continue
		}

		if coveredByException(window.exceptions, date) {
			continue
		}

		slot := model.SlotCandidate{
			ClinicianID: clinicianID,
			Date:        date,
			StartTime:   day.StartTime,
			EndTime:     day.EndTime,
		}

		if hasConflict(window.appointments, slot) {
			continue
		}

		candidates = append(candidates, slot)
	}
	return candidates
}

func coveredByException(exceptions []*model.ScheduleException, date time.Time) bool {
	for _, ex := range exceptions {
		if ex.Covers(date) {
			return true
		}
	}
	return false
}

// hasConflict checks full interval overlap against same-day bookings, not
// just start-time equality, so variable-duration appointments are detected.
func hasConflict(appointments []*model.ExistingAppointment, slot model.SlotCandidate) bool {
	for _, apt := range appointments {
		if !apt.Status.Blocking() {
			continue
		}
		if !model.DateOnly(apt.AppointmentDate).Equal(model.DateOnly(slot.Date)) {
			continue
		}
		if slot.Overlaps(apt.StartTime, apt.EndTime) {
			return true
		}
	}
	return false
}

// loadWindow fetches one clinician's schedule data for the window, with a
// short-lived cache so a cycle touching the same clinician for many entries
// reads it once.
func (f *SlotFinder) loadWindow(ctx context.Context, clinicianID uuid.UUID, start, end time.Time) (*clinicianWindow, error) {
	key := fmt.Sprintf("%s:%s:%s", clinicianID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if cached, ok := f.cache.Get(key); ok {
		return cached.(*clinicianWindow), nil
	}

	template, err := f.schedules.GetWeeklyTemplate(ctx, clinicianID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule template: %w", err)
	}

	window := &clinicianWindow{template: template}
	if template != nil {
		window.exceptions, err = f.schedules.GetApprovedExceptions(ctx, clinicianID, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule exceptions: %w", err)
		}
		window.appointments, err = f.schedules.GetExistingAppointments(ctx, clinicianID, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing appointments: %w", err)
		}
	}

	f.cache.Set(key, window, gocache.DefaultExpiration)
	return window, nil
}

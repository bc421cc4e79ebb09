package priority_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func entryWith(p model.PriorityLevel, waitDays, declined int) *model.WaitlistEntry {
	return &model.WaitlistEntry{
		ID:             uuid.New(),
		Priority:       p,
		AddedDate:      testNow.AddDate(0, 0, -waitDays),
		DeclinedOffers: declined,
	}
}

func TestScoreUrgentFullWait(t *testing.T) {
	// 1.0*0.4 + 1.0*0.3 + 1.0*0.2 - 0
	score := priority.Score(entryWith(model.PriorityUrgent, 30, 0), testNow)
	assert.InDelta(t, 0.90, score, 1e-9)
}

func TestScoreTable(t *testing.T) {
	tests := []struct {
		name     string
		priority model.PriorityLevel
		waitDays int
		declined int
		want     float64
	}{
		{"normal fresh", model.PriorityNormal, 0, 0, 0.25},
		{"normal half wait", model.PriorityNormal, 15, 0, 0.45},
		{"high full wait", model.PriorityHigh, 30, 0, 0.725},
		{"low fresh", model.PriorityLow, 0, 0, 0.175},
		{"urgent fresh", model.PriorityUrgent, 0, 0, 0.50},
		{"normal one decline", model.PriorityNormal, 0, 1, 0.24},
		{"normal many declines", model.PriorityNormal, 0, 15, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := priority.Score(entryWith(tt.priority, tt.waitDays, tt.declined), testNow)
			assert.InDelta(t, tt.want, score, 1e-9)
		})
	}
}

func TestScoreWaitTimeCapped(t *testing.T) {
	atCap := priority.Score(entryWith(model.PriorityNormal, 30, 0), testNow)
	beyondCap := priority.Score(entryWith(model.PriorityNormal, 120, 0), testNow)
	assert.Equal(t, atCap, beyondCap)
}

func TestScoreAlwaysInRange(t *testing.T) {
	priorities := []model.PriorityLevel{model.PriorityUrgent, model.PriorityHigh, model.PriorityNormal, model.PriorityLow}
	for _, p := range priorities {
		for _, waitDays := range []int{0, 1, 29, 30, 365} {
			for _, declined := range []int{0, 1, 5, 50} {
				score := priority.Score(entryWith(p, waitDays, declined), testNow)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 1.0)
			}
		}
	}
}

func TestScoreDeclinesMonotonic(t *testing.T) {
	prev := priority.Score(entryWith(model.PriorityHigh, 10, 0), testNow)
	for declined := 1; declined <= 12; declined++ {
		cur := priority.Score(entryWith(model.PriorityHigh, 10, declined), testNow)
		assert.LessOrEqual(t, cur, prev, "declines must never raise the score")
		prev = cur
	}
}

type fakeWaitlistRepo struct {
	repository.WaitlistRepository

	entries   []*model.WaitlistEntry
	scores    map[uuid.UUID]float64
	failOn    uuid.UUID
	listErr   error
	updateErr error
}

func newFakeWaitlistRepo(entries ...*model.WaitlistEntry) *fakeWaitlistRepo {
	return &fakeWaitlistRepo{entries: entries, scores: make(map[uuid.UUID]float64)}
}

func (f *fakeWaitlistRepo) ListForMatching(ctx context.Context) ([]*model.WaitlistEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeWaitlistRepo) UpdatePriorityScore(ctx context.Context, id uuid.UUID, score float64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if id == f.failOn {
		return errors.New("write failed")
	}
	f.scores[id] = score
	return nil
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

func TestRescorePersistsAndAudits(t *testing.T) {
	entry := entryWith(model.PriorityUrgent, 30, 0)
	repo := newFakeWaitlistRepo(entry)
	audits := &fakeAuditRepo{}
	scorer := priority.NewScorer(repo, audit.NewService(audits))

	score, err := scorer.Rescore(context.Background(), entry, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 0.90, score, 1e-9)
	assert.InDelta(t, 0.90, repo.scores[entry.ID], 1e-9)
	assert.InDelta(t, 0.90, entry.PriorityScore, 1e-9)

	require.Len(t, audits.logs, 1)
	assert.Equal(t, model.AuditActionScoreUpdated, audits.logs[0].Action)
	assert.Equal(t, entry.ID, audits.logs[0].EntityID)
}

func TestRescoreAllSkipsFailures(t *testing.T) {
	good := entryWith(model.PriorityNormal, 5, 0)
	bad := entryWith(model.PriorityNormal, 5, 0)
	repo := newFakeWaitlistRepo(good, bad)
	repo.failOn = bad.ID
	scorer := priority.NewScorer(repo, audit.NewService(&fakeAuditRepo{}))

	updated, err := scorer.RescoreAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Contains(t, repo.scores, good.ID)
	assert.NotContains(t, repo.scores, bad.ID)
}

func TestRescoreAllListFailure(t *testing.T) {
	repo := newFakeWaitlistRepo()
	repo.listErr = errors.New("db down")
	scorer := priority.NewScorer(repo, audit.NewService(&fakeAuditRepo{}))

	_, err := scorer.RescoreAll(context.Background(), testNow)
	assert.Error(t, err)
}

package offer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler"
	offerHandler "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler/offer"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/middleware"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	offerService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
)

type emptyOfferRepo struct {
	repository.OfferRepository
}

func (emptyOfferRepo) Get(ctx context.Context, id uuid.UUID) (*model.WaitlistOffer, error) {
	return nil, apperrors.OfferNotFound(nil)
}

func (emptyOfferRepo) ExpirePending(ctx context.Context, now time.Time) ([]*model.WaitlistOffer, error) {
	return nil, nil
}

type emptyEntryRepo struct {
	repository.WaitlistRepository
}

type noopMatcher struct{}

func (noopMatcher) MatchEntriesForSlot(ctx context.Context, slot model.SlotCandidate, now time.Time) ([]model.MatchResult, error) {
	return nil, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, entryID uuid.UUID, eventType string, payload map[string]interface{}) {
}

type noopAuditRepo struct{}

func (noopAuditRepo) Create(ctx context.Context, l *model.AuditLog) error { return nil }
func (noopAuditRepo) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return nil, nil
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler.RegisterValidations()

	manager := offerService.NewManager(emptyEntryRepo{}, emptyOfferRepo{}, noopMatcher{}, noopNotifier{}, audit.NewService(noopAuditRepo{}), nil, 0.5, 24*time.Hour)
	h := offerHandler.NewHandler(manager, emptyOfferRepo{})

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.ErrorHandler())
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func perform(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGetOfferInvalidID(t *testing.T) {
	w := perform(t, testRouter(), http.MethodGet, "/api/v1/offers/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOfferNotFound(t *testing.T) {
	w := perform(t, testRouter(), http.MethodGet, "/api/v1/offers/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.ErrOfferNotFound))
}

func TestResolveOfferRejectsUnknownOutcome(t *testing.T) {
	w := perform(t, testRouter(), http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/resolve", `{"outcome":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveMissingOfferMapsToNotFound(t *testing.T) {
	w := perform(t, testRouter(), http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/resolve", `{"outcome":"accept"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOfferRejectsBadClock(t *testing.T) {
	body := `{
		"waitlist_entry_id": "` + uuid.NewString() + `",
		"clinician_id": "` + uuid.NewString() + `",
		"slot_date": "2025-06-18T00:00:00Z",
		"start_time": "25:99",
		"end_time": "10:00"
	}`
	w := perform(t, testRouter(), http.MethodPost, "/api/v1/offers", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpireOffersEmptySweep(t *testing.T) {
	w := perform(t, testRouter(), http.MethodPost, "/api/v1/offers/expire", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	assert.Contains(t, w.Body.String(), `"expired":0`)
}

package offer

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	offersvc "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
)

type Handler struct {
	manager *offersvc.Manager
	offers  repository.OfferRepository
}

func NewHandler(manager *offersvc.Manager, offers repository.OfferRepository) *Handler {
	return &Handler{manager: manager, offers: offers}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	offers := rg.Group("/offers")
	{
		offers.POST("", h.CreateOffer)
		offers.GET("/:id", h.GetOffer)
		offers.POST("/:id/resolve", h.ResolveOffer)
		offers.POST("/:id/cancel", h.CancelOffer)
		offers.POST("/expire", h.ExpireOffers)
	}

	rg.GET("/waitlist/:id/offers", h.ListOffersForEntry)
}

type createOfferRequest struct {
	WaitlistEntryID uuid.UUID `json:"waitlist_entry_id" binding:"required"`
	ClinicianID     uuid.UUID `json:"clinician_id" binding:"required"`
	SlotDate        time.Time `json:"slot_date" binding:"required"`
	StartTime       string    `json:"start_time" binding:"required,clock"`
	EndTime         string    `json:"end_time" binding:"required,clock"`
	MatchScore      float64   `json:"match_score" binding:"min=0,max=1"`
	MatchReasons    []string  `json:"match_reasons"`
	TTLHours        int       `json:"ttl_hours" binding:"omitempty,gt=0"`
}

func (h *Handler) CreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	slot := model.SlotCandidate{
		ClinicianID: req.ClinicianID,
		Date:        model.DateOnly(req.SlotDate),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	created, err := h.manager.CreateOffer(c.Request.Context(), req.WaitlistEntryID, slot, req.MatchScore, req.MatchReasons, ttl, time.Now())
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusCreated, created)
}

func (h *Handler) GetOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, http.StatusBadRequest, "invalid offer ID")
		return
	}

	offer, err := h.offers.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, offer)
}

type resolveOfferRequest struct {
	Outcome model.OfferOutcome `json:"outcome" binding:"required,oneof=accept decline"`
	Reason  *string            `json:"reason"`
}

// ResolveOffer records the client's response. Accepting marks the entry
// MATCHED; declining reverts it to ACTIVE and cascades the slot.
func (h *Handler) ResolveOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, http.StatusBadRequest, "invalid offer ID")
		return
	}

	var req resolveOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.manager.ResolveOffer(c.Request.Context(), id, req.Outcome, req.Reason, time.Now()); err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) CancelOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, http.StatusBadRequest, "invalid offer ID")
		return
	}

	if err := h.manager.CancelOffer(c.Request.Context(), id, time.Now()); err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, nil)
}

// ExpireOffers runs the expiration sweep on demand. The worker runs the
// same sweep on a ticker; both paths are idempotent.
func (h *Handler) ExpireOffers(c *gin.Context) {
	count, err := h.manager.ExpireOffers(c.Request.Context(), time.Now())
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, gin.H{"expired": count})
}

func (h *Handler) ListOffersForEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, http.StatusBadRequest, "invalid entry ID")
		return
	}

	offers, err := h.offers.ListByEntry(c.Request.Context(), entryID)
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, offers)
}

package waitlist

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
)

type Handler struct {
	entries      repository.WaitlistRepository
	orchestrator *matching.Orchestrator
	offers       *offer.Manager

	scoreThreshold float64
	offerTTL       time.Duration
}

func NewHandler(entries repository.WaitlistRepository, orchestrator *matching.Orchestrator, offers *offer.Manager, scoreThreshold float64, offerTTL time.Duration) *Handler {
	return &Handler{
		entries:        entries,
		orchestrator:   orchestrator,
		offers:         offers,
		scoreThreshold: scoreThreshold,
		offerTTL:       offerTTL,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/waitlist")
	{
		entries.POST("", h.CreateEntry)
		entries.GET("/:id", h.GetEntry)
	}

	m := rg.Group("/matching")
	{
		m.POST("/run", h.RunMatchingCycle)
		m.GET("/stats", h.GetMatchingStats)
		m.POST("/slot-freed", h.SlotFreed)
	}
}

type createEntryRequest struct {
	ClientID              uuid.UUID           `json:"client_id" binding:"required"`
	RequestedClinicianID  uuid.UUID           `json:"requested_clinician_id" binding:"required"`
	AlternateClinicianIDs []string            `json:"alternate_clinician_ids"`
	PreferredProviderID   *uuid.UUID          `json:"preferred_provider_id"`
	PreferredDays         []string            `json:"preferred_days"`
	PreferredTimes        []string            `json:"preferred_times"`
	AppointmentType       string              `json:"appointment_type" binding:"required"`
	Priority              model.PriorityLevel `json:"priority" binding:"required,oneof=Urgent High Normal Low"`
	AutoMatchEnabled      *bool               `json:"auto_match_enabled"`
	MaxWaitDays           *int                `json:"max_wait_days" binding:"omitempty,gt=0"`
}

func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	autoMatch := true
	if req.AutoMatchEnabled != nil {
		autoMatch = *req.AutoMatchEnabled
	}

	entry := &model.WaitlistEntry{
		ID:                    uuid.New(),
		ClientID:              req.ClientID,
		RequestedClinicianID:  req.RequestedClinicianID,
		AlternateClinicianIDs: pq.StringArray(req.AlternateClinicianIDs),
		PreferredProviderID:   req.PreferredProviderID,
		PreferredDays:         pq.StringArray(req.PreferredDays),
		PreferredTimes:        pq.StringArray(req.PreferredTimes),
		AppointmentType:       req.AppointmentType,
		Priority:              req.Priority,
		Status:                model.WaitlistStatusActive,
		AutoMatchEnabled:      autoMatch,
		AddedDate:             now,
		MaxWaitDays:           req.MaxWaitDays,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	entry.PriorityScore = priority.Score(entry, now)

	if err := h.entries.Create(c.Request.Context(), entry); err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusCreated, entry)
}

func (h *Handler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, http.StatusBadRequest, "invalid entry ID")
		return
	}

	entry, err := h.entries.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, entry)
}

// RunMatchingCycle triggers a full cycle and converts qualifying proposals
// into offers. Returns 409 when a cycle already holds the run lock.
func (h *Handler) RunMatchingCycle(c *gin.Context) {
	summary, err := h.orchestrator.RunMatchingCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, matching.ErrCycleInProgress) {
			handler.Error(c, http.StatusConflict, "matching cycle already in progress")
			return
		}
		c.Error(err)
		return
	}

	offered, failed := h.offers.ConvertProposals(c.Request.Context(), summary.Proposals, h.scoreThreshold, h.offerTTL, time.Now())
	summary.Offered = offered
	summary.Failed += failed

	handler.Success(c, http.StatusOK, summary)
}

func (h *Handler) GetMatchingStats(c *gin.Context) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handler.Error(c, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handler.Error(c, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		to = &t
	}

	stats, err := h.entries.MatchingStats(c.Request.Context(), from, to)
	if err != nil {
		c.Error(err)
		return
	}

	handler.Success(c, http.StatusOK, stats)
}

type slotFreedRequest struct {
	ClinicianID uuid.UUID `json:"clinician_id" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	StartTime   string    `json:"start_time" binding:"required,clock"`
	EndTime     string    `json:"end_time" binding:"required,clock"`
	AutoOffer   bool      `json:"auto_offer"`
}

// SlotFreed handles an appointment-cancellation notification: the vacated
// slot is matched against waiting entries, and with auto_offer the best
// candidate above the threshold is offered immediately.
func (h *Handler) SlotFreed(c *gin.Context) {
	var req slotFreedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	slot := model.SlotCandidate{
		ClinicianID: req.ClinicianID,
		Date:        model.DateOnly(req.Date),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	now := time.Now()
	matches, err := h.orchestrator.MatchEntriesForSlot(c.Request.Context(), slot, now)
	if err != nil {
		c.Error(err)
		return
	}

	if req.AutoOffer && len(matches) > 0 && matches[0].MatchScore >= h.scoreThreshold {
		best := matches[0]
		created, err := h.offers.CreateOffer(c.Request.Context(), best.WaitlistEntryID, best.Slot, best.MatchScore, best.MatchReasons, h.offerTTL, now)
		if err != nil {
			c.Error(err)
			return
		}
		handler.Success(c, http.StatusCreated, gin.H{
			"matches": matches,
			"offer":   created,
		})
		return
	}

	handler.Success(c, http.StatusOK, gin.H{"matches": matches})
}

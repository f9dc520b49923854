package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-slot-api/internal/dto"
	"github.com/noah-isme/campus-slot-api/internal/middleware"
	"github.com/noah-isme/campus-slot-api/internal/models"
	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
	"github.com/noah-isme/campus-slot-api/pkg/response"
)

type slotService interface {
	ListAll(ctx context.Context) ([]models.Slot, error)
	ListAllocatable(ctx context.Context, campusID int64, on *models.Date) (*dto.AllocatableSlots, error)
	ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, on *models.Date) (*dto.AllocatableSlots, error)
	Availability(ctx context.Context, campusID int64, startTime string, on *models.Date) (*dto.SlotAvailability, error)
	Create(ctx context.Context, req dto.CreateSlotRequest) (*models.Slot, error)
	Update(ctx context.Context, campusID int64, startTime string, req dto.UpdateSlotRequest) (*models.Slot, error)
	Rekey(ctx context.Context, campusID int64, startTime string, req dto.RekeySlotRequest) (*models.Slot, error)
	Delete(ctx context.Context, campusID int64, startTime string) error
}

// SlotHandler exposes slot endpoints.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// List godoc
// @Summary List valid slots
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	slots, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, map[string]interface{}{"total": len(slots)})
}

// Allocatable godoc
// @Summary List slots allocatable today
// @Tags Slots
// @Produce json
// @Param campusId path int true "Campus ID"
// @Param from query string false "Only slots ending after this time (HH:MM:SS)"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /campuses/{campusId}/allocatable-slots [get]
func (h *SlotHandler) Allocatable(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	on, ok := dateQuery(c)
	if !ok {
		return
	}

	var (
		listing *dto.AllocatableSlots
		err     error
	)
	start := time.Now()
	if cutoff, set := c.GetQuery("from"); set {
		listing, err = h.service.ListAllocatableFrom(c.Request.Context(), campusID, strings.TrimSpace(cutoff), on)
	} else {
		listing, err = h.service.ListAllocatable(c.Request.Context(), campusID, on)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(listing.Slots) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no allocatable slots for campus"))
		return
	}

	middleware.SetCacheHit(c, listing.CacheHit)
	middleware.SetReferenceDate(c, listing.ReferenceDate.String())
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, listing, meta)
}

// Get godoc
// @Summary Get a slot and its availability
// @Tags Slots
// @Produce json
// @Param campusId path int true "Campus ID"
// @Param startTime path string true "Start time (HH:MM:SS)"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /campuses/{campusId}/slots/{startTime} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	on, ok := dateQuery(c)
	if !ok {
		return
	}
	availability, err := h.service.Availability(c.Request.Context(), campusID, c.Param("startTime"), on)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability)
}

// Create godoc
// @Summary Create a slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid request body"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update slot attributes
// @Tags Slots
// @Accept json
// @Produce json
// @Param campusId path int true "Campus ID"
// @Param startTime path string true "Start time (HH:MM:SS)"
// @Param payload body dto.UpdateSlotRequest true "Slot attributes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /campuses/{campusId}/slots/{startTime} [put]
func (h *SlotHandler) Update(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid request body"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), campusID, c.Param("startTime"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Rekey godoc
// @Summary Move a slot to a new start time
// @Tags Slots
// @Accept json
// @Produce json
// @Param campusId path int true "Campus ID"
// @Param startTime path string true "Current start time (HH:MM:SS)"
// @Param payload body dto.RekeySlotRequest true "New key and attributes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /campuses/{campusId}/slots/{startTime}/rekey [put]
func (h *SlotHandler) Rekey(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	var req dto.RekeySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid request body"))
		return
	}
	slot, err := h.service.Rekey(c.Request.Context(), campusID, c.Param("startTime"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Delete godoc
// @Summary Delete a slot
// @Tags Slots
// @Param campusId path int true "Campus ID"
// @Param startTime path string true "Start time (HH:MM:SS)"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /campuses/{campusId}/slots/{startTime} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), campusID, c.Param("startTime")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func campusIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("campusId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "campusId must be a positive integer"))
		return 0, false
	}
	return id, true
}

func dateQuery(c *gin.Context) (*models.Date, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return nil, true
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		response.Error(c, appErrors.Validation(err, "date must be YYYY-MM-DD"))
		return nil, false
	}
	return &d, true
}

package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/slots"
	"sarvsaathi-server/internal/utils"
)

// maxBulkSlots caps a single bulk creation request.
const maxBulkSlots = 100

// SlotService manages the signed-in doctor's calendar.
type SlotService interface {
	CreateSlot(ctx context.Context, userID string, in slots.CreateInput) (*models.TimeSlot, error)
	BulkCreate(ctx context.Context, userID string, items []slots.CreateInput) (*slots.BulkResult, error)
	Block(ctx context.Context, userID, slotID string) (*models.TimeSlot, error)
	Unblock(ctx context.Context, userID, slotID string) (*models.TimeSlot, error)
	Cancel(ctx context.Context, userID, slotID string) (*models.TimeSlot, error)
	ListDoctorSlots(ctx context.Context, userID string, from, to time.Time) ([]models.TimeSlot, error)
	ParseDay(date string) (time.Time, time.Time, error)
}

type SlotHandler struct {
	svc SlotService
}

func NewSlotHandler(svc SlotService) *SlotHandler {
	return &SlotHandler{svc: svc}
}

// ListSlots returns the doctor's slots in every status, for one day when
// ?date=YYYY-MM-DD is given.
func (h *SlotHandler) ListSlots(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var from, to time.Time
	if date := c.Query("date"); date != "" {
		var err error
		if from, to, err = h.svc.ParseDay(date); err != nil {
			respondError(c, err)
			return
		}
	}
	list, err := h.svc.ListDoctorSlots(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Time slots retrieved successfully", list)
}

func (h *SlotHandler) CreateSlot(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req slots.CreateInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	slot, err := h.svc.CreateSlot(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Time slot created successfully", slot)
}

type BulkSlotsRequest struct {
	Slots []slots.CreateInput `json:"slots" binding:"required,min=1,dive"`
}

// BulkCreateSlots creates each slot independently and reports per-item
// failures alongside the created slots.
func (h *SlotHandler) BulkCreateSlots(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req BulkSlotsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if len(req.Slots) > maxBulkSlots {
		utils.BadRequest(c, "At most 100 slots can be created at once")
		return
	}
	result, err := h.svc.BulkCreate(c.Request.Context(), id, req.Slots)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Time slots processed", result)
}

func (h *SlotHandler) transition(c *gin.Context, fn func(ctx context.Context, userID, slotID string) (*models.TimeSlot, error), message string) {
	id, ok := userID(c)
	if !ok {
		return
	}
	slot, err := fn(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, message, slot)
}

func (h *SlotHandler) BlockSlot(c *gin.Context) {
	h.transition(c, h.svc.Block, "Time slot blocked")
}

func (h *SlotHandler) UnblockSlot(c *gin.Context) {
	h.transition(c, h.svc.Unblock, "Time slot unblocked")
}

func (h *SlotHandler) CancelSlot(c *gin.Context) {
	h.transition(c, h.svc.Cancel, "Time slot cancelled")
}

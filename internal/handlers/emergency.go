package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/emergency"
	"sarvsaathi-server/internal/utils"
)

type EmergencyService interface {
	FindSpecialists(ctx context.Context, userID string, in emergency.SearchInput) (*emergency.SearchResult, error)
	RequestDoctor(ctx context.Context, userID, logID, doctorID string) (*emergency.Dispatch, error)
	CancelRequest(ctx context.Context, userID, logID string) error
	TriggerSOS(ctx context.Context, userID string, in emergency.SOSInput) (*emergency.SOSResult, error)
}

type EmergencyHandler struct {
	svc EmergencyService
}

func NewEmergencyHandler(svc EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{svc: svc}
}

// FindSpecialist returns the nearest specialists for a triage category.
func (h *EmergencyHandler) FindSpecialist(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req emergency.SearchInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	result, err := h.svc.FindSpecialists(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	message := "Specialists found"
	if len(result.Specialists) == 0 {
		message = "No specialists available nearby, please call emergency services"
	}
	utils.Success(c, message, result)
}

type RequestDoctorRequest struct {
	LogID    string `json:"logId" binding:"required"`
	DoctorID string `json:"doctorId" binding:"required"`
}

// RequestDoctor books the chosen specialist for an immediate visit.
func (h *EmergencyHandler) RequestDoctor(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req RequestDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	dispatch, err := h.svc.RequestDoctor(c.Request.Context(), id, req.LogID, req.DoctorID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Doctor alerted, head to the clinic now", dispatch)
}

func (h *EmergencyHandler) CancelRequest(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.CancelRequest(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Emergency request cancelled", nil)
}

// TriggerSOS alerts all of the user's emergency contacts.
func (h *EmergencyHandler) TriggerSOS(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req emergency.SOSInput
	if c.Request.ContentLength != 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	result, err := h.svc.TriggerSOS(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "SOS alert sent", result)
}

package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/utils"
)

// GuidanceService answers symptom questions. It always produces guidance,
// falling back to built-in rules.
type GuidanceService interface {
	SymptomGuidance(ctx context.Context, req insights.GuidanceRequest) *insights.Guidance
}

type InsightsHandler struct {
	svc GuidanceService
}

func NewInsightsHandler(svc GuidanceService) *InsightsHandler {
	return &InsightsHandler{svc: svc}
}

type SymptomGuidanceRequest struct {
	Symptoms string `json:"symptoms" binding:"required,max=2000"`
	Gender   string `json:"gender" binding:"omitempty,oneof=male female other"`
	Age      int    `json:"age" binding:"omitempty,min=0,max=120"`
}

func (h *InsightsHandler) SymptomGuidance(c *gin.Context) {
	var req SymptomGuidanceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	guidance := h.svc.SymptomGuidance(c.Request.Context(), insights.GuidanceRequest{
		Symptoms: strings.TrimSpace(req.Symptoms),
		Gender:   req.Gender,
		Age:      req.Age,
	})
	utils.Success(c, "Guidance generated", guidance)
}

package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/reviews"
	"sarvsaathi-server/internal/utils"
)

type ReviewService interface {
	Create(ctx context.Context, userID string, in reviews.CreateInput) (*models.Review, error)
	ListMine(ctx context.Context, userID string) ([]models.Review, error)
	Respond(ctx context.Context, doctorUserID, reviewID, text string) (*models.Review, error)
}

type ReviewHandler struct {
	svc ReviewService
}

func NewReviewHandler(svc ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// CreateReview rates a completed appointment.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req reviews.CreateInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	review, err := h.svc.Create(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Review submitted successfully", review)
}

func (h *ReviewHandler) ListMine(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	list, err := h.svc.ListMine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Reviews retrieved successfully", list)
}

type RespondRequest struct {
	Response string `json:"response" binding:"required,max=2000"`
}

// Respond stores the doctor's reply to a review.
func (h *ReviewHandler) Respond(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req RespondRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	review, err := h.svc.Respond(c.Request.Context(), id, c.Param("id"), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Response saved", review)
}

package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/utils"
)

// publicSlotHorizon is how far ahead the public calendar reaches.
const publicSlotHorizon = 30 * 24 * time.Hour

// DoctorDirectory serves doctor profiles and favorites.
type DoctorDirectory interface {
	Doctors(ctx context.Context, q accounts.DirectoryQuery) ([]models.DoctorProfile, error)
	Doctor(ctx context.Context, id string) (*models.DoctorProfile, error)
	OwnDoctorProfile(ctx context.Context, userID string) (*models.DoctorProfile, error)
	UpdateDoctorProfile(ctx context.Context, userID string, in accounts.DoctorProfileInput) (*models.DoctorProfile, error)

	ToggleFavorite(ctx context.Context, userID, doctorID string) (bool, error)
	IsFavorite(ctx context.Context, userID, doctorID string) (bool, error)
	Favorites(ctx context.Context, userID string) ([]models.FavoriteDoctor, error)
}

// PublicSlots lists a doctor's bookable slots.
type PublicSlots interface {
	ListPublicSlots(ctx context.Context, doctorID string, to time.Time) ([]models.TimeSlot, error)
	ParseDay(date string) (time.Time, time.Time, error)
}

// DoctorReviews lists the reviews of a doctor.
type DoctorReviews interface {
	ListForDoctor(ctx context.Context, doctorID string) ([]models.Review, error)
}

// DoctorHandler handles the doctor directory, the doctor's own profile and
// patients' favorites.
type DoctorHandler struct {
	directory DoctorDirectory
	slots     PublicSlots
	reviews   DoctorReviews
}

func NewDoctorHandler(directory DoctorDirectory, slots PublicSlots, reviews DoctorReviews) *DoctorHandler {
	return &DoctorHandler{directory: directory, slots: slots, reviews: reviews}
}

// ListDoctors returns verified doctors matching the query filters.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	var q accounts.DirectoryQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	doctors, err := h.directory.Doctors(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Doctors retrieved successfully", doctors)
}

func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctor, err := h.directory.Doctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Doctor retrieved successfully", doctor)
}

// GetDoctorSlots lists a verified doctor's open slots, either for one day
// given as ?date=YYYY-MM-DD or for the coming weeks.
func (h *DoctorHandler) GetDoctorSlots(c *gin.Context) {
	ctx := c.Request.Context()
	doctor, err := h.directory.Doctor(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	to := time.Now().Add(publicSlotHorizon)
	var from time.Time
	if date := c.Query("date"); date != "" {
		if from, to, err = h.slots.ParseDay(date); err != nil {
			respondError(c, err)
			return
		}
	}

	slots, err := h.slots.ListPublicSlots(ctx, doctor.ID, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if !from.IsZero() {
		filtered := slots[:0]
		for _, s := range slots {
			if !s.StartsAt.Before(from) {
				filtered = append(filtered, s)
			}
		}
		slots = filtered
	}
	utils.Success(c, "Time slots retrieved successfully", slots)
}

func (h *DoctorHandler) GetDoctorReviews(c *gin.Context) {
	ctx := c.Request.Context()
	doctor, err := h.directory.Doctor(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	reviews, err := h.reviews.ListForDoctor(ctx, doctor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Reviews retrieved successfully", reviews)
}

// GetOwnProfile returns the signed-in doctor's professional profile.
func (h *DoctorHandler) GetOwnProfile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	doctor, err := h.directory.OwnDoctorProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Doctor profile retrieved successfully", doctor)
}

func (h *DoctorHandler) UpdateOwnProfile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.DoctorProfileInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, err := h.directory.UpdateDoctorProfile(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Doctor profile updated successfully", doctor)
}

func (h *DoctorHandler) ListFavorites(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	favorites, err := h.directory.Favorites(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Favorite doctors retrieved successfully", favorites)
}

// ToggleFavorite saves the doctor, or unsaves one already saved.
func (h *DoctorHandler) ToggleFavorite(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	saved, err := h.directory.ToggleFavorite(c.Request.Context(), id, c.Param("doctorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	message := "Doctor removed from favorites"
	if saved {
		message = "Doctor added to favorites"
	}
	utils.Success(c, message, gin.H{"isFavorite": saved})
}

func (h *DoctorHandler) CheckFavorite(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	saved, err := h.directory.IsFavorite(c.Request.Context(), id, c.Param("doctorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Favorite status retrieved successfully", gin.H{"isFavorite": saved})
}

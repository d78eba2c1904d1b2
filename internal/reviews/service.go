package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotCompleted        = errors.New("only completed appointments can be reviewed")
	ErrAlreadyReviewed     = errors.New("appointment already reviewed")
	ErrInvalidRating       = errors.New("ratings must be between 1 and 5")
	ErrNotFound            = errors.New("review not found")
	ErrEmptyResponse       = errors.New("response text is required")
	ErrDoctorNotFound      = errors.New("doctor profile not found")
)

type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error)

	CreateReview(ctx context.Context, r *models.Review) error
	SaveReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	ReviewExistsForAppointment(ctx context.Context, appointmentID string) (bool, error)
	ListDoctorReviews(ctx context.Context, doctorID string) ([]models.Review, error)
	ListUserReviews(ctx context.Context, userID string) ([]models.Review, error)

	DoctorRatingAggregate(ctx context.Context, doctorID string) (decimal.Decimal, int64, error)
	UpdateDoctorRating(ctx context.Context, doctorID string, average decimal.Decimal, total int64) error
}

// CacheInvalidator drops cached doctor listings after ratings change.
type CacheInvalidator interface {
	InvalidateDoctor(ctx context.Context, doctorID string)
}

type Service struct {
	repo  Repository
	cache CacheInvalidator
	now   func() time.Time
}

func NewService(repo Repository, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

type CreateInput struct {
	AppointmentID       string `json:"appointmentId" binding:"required"`
	Rating              int    `json:"rating" binding:"required"`
	Title               string `json:"title" binding:"max=200"`
	Comment             string `json:"comment"`
	WaitTimeRating      *int   `json:"waitTimeRating"`
	BedsideMannerRating *int   `json:"bedsideMannerRating"`
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

func (in CreateInput) validate() error {
	if !validRating(in.Rating) {
		return ErrInvalidRating
	}
	for _, sub := range []*int{in.WaitTimeRating, in.BedsideMannerRating} {
		if sub != nil && !validRating(*sub) {
			return ErrInvalidRating
		}
	}
	return nil
}

// Create stores a review of the user's completed appointment and refreshes
// the doctor's rating in the same transaction.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointment(ctx, in.AppointmentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && appt.UserID != userID) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusCompleted {
		return nil, ErrNotCompleted
	}

	exists, err := s.repo.ReviewExistsForAppointment(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		AppointmentID:      appt.ID,
		UserID:             userID,
		DoctorID:           appt.DoctorID,
		Rating:             in.Rating,
		Title:              strings.TrimSpace(in.Title),
		Comment:            strings.TrimSpace(in.Comment),
		WaitTimeRating:     in.WaitTimeRating,
		BedsideMannerScore: in.BedsideMannerRating,
		IsVerified:         true,
		IsVisible:          true,
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateReview(ctx, review); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("create review: %w", err)
		}
		return s.RecalculateDoctorRating(ctx, appt.DoctorID)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("review_id", review.ID).
		Str("doctor_id", review.DoctorID).
		Int("rating", review.Rating).
		Msg("review created")
	return review, nil
}

// RecalculateDoctorRating stores the average and count of the doctor's
// visible reviews on the profile.
func (s *Service) RecalculateDoctorRating(ctx context.Context, doctorID string) error {
	avg, total, err := s.repo.DoctorRatingAggregate(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	if err := s.repo.UpdateDoctorRating(ctx, doctorID, avg.Round(2), total); err != nil {
		return fmt.Errorf("update doctor rating: %w", err)
	}
	if s.cache != nil {
		s.cache.InvalidateDoctor(ctx, doctorID)
	}
	return nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]models.Review, error) {
	return s.repo.ListDoctorReviews(ctx, doctorID)
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]models.Review, error) {
	return s.repo.ListUserReviews(ctx, userID)
}

// Respond records the doctor's public reply to a review of them.
func (s *Service) Respond(ctx context.Context, doctorUserID, reviewID, text string) (*models.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	doctor, err := s.repo.GetDoctorByUserID(ctx, doctorUserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}

	review, err := s.repo.GetReview(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && review.DoctorID != doctor.ID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	review.DoctorResponse = text
	review.RespondedAt = &now
	if err := s.repo.SaveReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

package store

import (
	"context"

	"sarvsaathi-server/internal/models"
)

func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	return translate(s.write(ctx).Create(r).Error)
}

func (s *Store) SaveReview(ctx context.Context, r *models.Review) error {
	return translate(s.write(ctx).Save(r).Error)
}

func (s *Store) GetReview(ctx context.Context, id string) (*models.Review, error) {
	var r models.Review
	if err := s.conn(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ReviewExistsForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Review{}).
		Where("appointment_id = ?", appointmentID).
		Count(&count).Error
	return count > 0, err
}

// ListDoctorReviews returns the visible reviews of a doctor, newest first.
func (s *Store) ListDoctorReviews(ctx context.Context, doctorID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.conn(ctx).Preload("User").
		Where("doctor_id = ? AND is_visible = ?", doctorID, true).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *Store) ListUserReviews(ctx context.Context, userID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

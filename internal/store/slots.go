package store

import (
	"context"
	"time"

	"sarvsaathi-server/internal/models"
)

// SlotFilter narrows slot listings. Zero values are ignored.
type SlotFilter struct {
	DoctorID string
	Status   models.SlotStatus
	From     time.Time // starts at or after
	To       time.Time // starts before
}

func (s *Store) CreateSlot(ctx context.Context, slot *models.TimeSlot) error {
	return translate(s.write(ctx).Create(slot).Error)
}

func (s *Store) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := s.conn(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

// HasOverlappingSlot reports whether the doctor has a live slot intersecting
// [start, end).
func (s *Store) HasOverlappingSlot(ctx context.Context, doctorID string, start, end time.Time) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.TimeSlot{}).
		Where("doctor_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			doctorID, models.SlotStatusCancelled, end, start).
		Count(&count).Error
	return count > 0, err
}

// TransitionSlot moves a slot from one status to another in a single
// conditional UPDATE. It returns ErrStatusMismatch when the slot was not in
// status from, which is how a lost race for a slot is detected.
func (s *Store) TransitionSlot(ctx context.Context, id string, from, to models.SlotStatus) error {
	res := s.conn(ctx).Model(&models.TimeSlot{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

func (s *Store) ListSlots(ctx context.Context, f SlotFilter) ([]models.TimeSlot, error) {
	q := s.conn(ctx).Model(&models.TimeSlot{})
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("starts_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("starts_at < ?", f.To)
	}

	var slots []models.TimeSlot
	err := q.Order("starts_at ASC").Find(&slots).Error
	return slots, err
}

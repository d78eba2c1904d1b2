package store

import (
	"context"

	"sarvsaathi-server/internal/models"
)

func (s *Store) CreateEmergencyRequest(ctx context.Context, r *models.EmergencyRequest) error {
	return translate(s.write(ctx).Create(r).Error)
}

// GetEmergencyRequest loads a request owned by userID.
func (s *Store) GetEmergencyRequest(ctx context.Context, id, userID string) (*models.EmergencyRequest, error) {
	var r models.EmergencyRequest
	if err := s.conn(ctx).First(&r, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// AcceptEmergencyRequest links a searching request to the chosen doctor and
// the appointment created for them.
func (s *Store) AcceptEmergencyRequest(ctx context.Context, id, doctorID, appointmentID string) error {
	return s.transitionEmergency(ctx, id, models.EmergencySearching, map[string]interface{}{
		"status":         models.EmergencyAccepted,
		"doctor_id":      doctorID,
		"appointment_id": appointmentID,
	})
}

func (s *Store) CancelEmergencyRequest(ctx context.Context, id string) error {
	return s.transitionEmergency(ctx, id, models.EmergencySearching, map[string]interface{}{
		"status": models.EmergencyCancelled,
	})
}

func (s *Store) transitionEmergency(ctx context.Context, id string, from models.EmergencyStatus, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&models.EmergencyRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

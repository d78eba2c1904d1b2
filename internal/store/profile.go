package store

import (
	"context"
	"time"

	"sarvsaathi-server/internal/models"
)

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return translate(s.write(ctx).Save(u).Error)
}

// GetUserProfile loads the profile of userID.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.conn(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) SaveUserProfile(ctx context.Context, p *models.UserProfile) error {
	return translate(s.write(ctx).Save(p).Error)
}

func (s *Store) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate(s.write(ctx).Create(t).Error)
}

// GetActiveRefreshToken loads an unrevoked, unexpired token issued to userID.
func (s *Store) GetActiveRefreshToken(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.conn(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// RevokeRefreshToken marks the token revoked. Unknown or already revoked
// tokens report ErrStatusMismatch.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string, at time.Time) error {
	res := s.conn(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(map[string]interface{}{"is_revoked": true, "revoked_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

// ListFamilyMembers returns the active members of userID, self first.
func (s *Store) ListFamilyMembers(ctx context.Context, userID string) ([]models.FamilyMember, error) {
	var members []models.FamilyMember
	err := s.conn(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("relationship = 'self' DESC, created_at ASC").
		Find(&members).Error
	return members, err
}

func (s *Store) SaveFamilyMember(ctx context.Context, m *models.FamilyMember) error {
	return translate(s.write(ctx).Save(m).Error)
}

func (s *Store) CreateEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	return translate(s.write(ctx).Create(c).Error)
}

func (s *Store) GetEmergencyContact(ctx context.Context, id, userID string) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	if err := s.conn(ctx).First(&c, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) SaveEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	return translate(s.write(ctx).Save(c).Error)
}

func (s *Store) DeleteEmergencyContact(ctx context.Context, id, userID string) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.EmergencyContact{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	return translate(s.write(ctx).Create(r).Error)
}

func (s *Store) GetMedicalRecord(ctx context.Context, id, userID string) (*models.MedicalRecord, error) {
	var r models.MedicalRecord
	if err := s.conn(ctx).Preload("FamilyMember").First(&r, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ListMedicalRecords returns the records of userID, optionally only those of
// one family member, newest record date first.
func (s *Store) ListMedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error) {
	q := s.conn(ctx).Preload("FamilyMember").Where("user_id = ?", userID)
	if familyMemberID != "" {
		q = q.Where("family_member_id = ?", familyMemberID)
	}
	var records []models.MedicalRecord
	err := q.Order("record_date DESC, created_at DESC").Find(&records).Error
	return records, err
}

func (s *Store) SaveMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	return translate(s.write(ctx).Save(r).Error)
}

func (s *Store) DeleteMedicalRecord(ctx context.Context, id, userID string) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.MedicalRecord{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AddFavorite(ctx context.Context, f *models.FavoriteDoctor) error {
	return translate(s.write(ctx).Create(f).Error)
}

// RemoveFavorite deletes the (user, doctor) pair and reports whether it existed.
func (s *Store) RemoveFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	res := s.conn(ctx).Where("user_id = ? AND doctor_id = ?", userID, doctorID).Delete(&models.FavoriteDoctor{})
	return res.RowsAffected > 0, translate(res.Error)
}

func (s *Store) IsFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.FavoriteDoctor{}).
		Where("user_id = ? AND doctor_id = ?", userID, doctorID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteDoctor, error) {
	var favs []models.FavoriteDoctor
	err := s.conn(ctx).Preload("Doctor.User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favs).Error
	return favs, err
}

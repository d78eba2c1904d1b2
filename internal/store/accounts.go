package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sarvsaathi-server/internal/models"
)

// DoctorSort orders the doctor directory.
type DoctorSort string

const (
	SortRating     DoctorSort = "rating"
	SortFeeAsc     DoctorSort = "fee_asc"
	SortFeeDesc    DoctorSort = "fee_desc"
	SortExperience DoctorSort = "experience"
)

// DoctorFilter narrows the verified doctor directory.
type DoctorFilter struct {
	Specialty     string
	MinFee        *decimal.Decimal
	MaxFee        *decimal.Decimal
	MinExperience int
	Emergency     bool
	Sort          DoctorSort
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Preload("Profile").First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.write(ctx).Create(u).Error)
}

func (s *Store) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	return translate(s.write(ctx).Create(p).Error)
}

func (s *Store) CreateDoctorProfile(ctx context.Context, d *models.DoctorProfile) error {
	return translate(s.write(ctx).Create(d).Error)
}

func (s *Store) GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error) {
	var d models.DoctorProfile
	if err := s.conn(ctx).Preload("User").First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	var d models.DoctorProfile
	if err := s.conn(ctx).Preload("User").First(&d, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) SaveDoctor(ctx context.Context, d *models.DoctorProfile) error {
	return translate(s.write(ctx).Save(d).Error)
}

// ListDoctors returns verified doctors matching f.
func (s *Store) ListDoctors(ctx context.Context, f DoctorFilter) ([]models.DoctorProfile, error) {
	q := s.conn(ctx).Preload("User").Where("is_verified = ?", true)
	if f.Specialty != "" {
		q = q.Where("LOWER(specialty) LIKE ?", "%"+strings.ToLower(f.Specialty)+"%")
	}
	if f.MinFee != nil {
		q = q.Where("consultation_fee >= ?", *f.MinFee)
	}
	if f.MaxFee != nil {
		q = q.Where("consultation_fee <= ?", *f.MaxFee)
	}
	if f.MinExperience > 0 {
		q = q.Where("experience_years >= ?", f.MinExperience)
	}
	if f.Emergency {
		q = q.Where("is_available_for_emergency = ?", true)
	}

	switch f.Sort {
	case SortFeeAsc:
		q = q.Order("consultation_fee ASC")
	case SortFeeDesc:
		q = q.Order("consultation_fee DESC")
	case SortExperience:
		q = q.Order("experience_years DESC")
	default:
		q = q.Order("average_rating DESC").Order("total_reviews DESC")
	}

	var doctors []models.DoctorProfile
	err := q.Find(&doctors).Error
	return doctors, err
}

// FindEmergencyCandidates returns verified doctors of the specialty, matched
// case-insensitively, whose clinic location is known.
func (s *Store) FindEmergencyCandidates(ctx context.Context, specialty string) ([]models.DoctorProfile, error) {
	var doctors []models.DoctorProfile
	err := s.conn(ctx).Preload("User").
		Where("is_verified = ? AND LOWER(specialty) = ?", true, strings.ToLower(specialty)).
		Where("clinic_latitude IS NOT NULL AND clinic_longitude IS NOT NULL").
		Find(&doctors).Error
	return doctors, err
}

// VerifyDoctor marks the doctor profile of the account with email as verified.
func (s *Store) VerifyDoctor(ctx context.Context, email string, at time.Time) (*models.DoctorProfile, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	d, err := s.GetDoctorByUserID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	d.IsVerified = true
	d.VerifiedAt = &at
	if err := s.SaveDoctor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) IncrementDoctorAppointments(ctx context.Context, doctorID string) error {
	return s.conn(ctx).Model(&models.DoctorProfile{}).
		Where("id = ?", doctorID).
		UpdateColumn("total_appointments", gorm.Expr("total_appointments + ?", 1)).Error
}

// DoctorRatingAggregate computes the average rating and count over the
// doctor's visible reviews.
func (s *Store) DoctorRatingAggregate(ctx context.Context, doctorID string) (decimal.Decimal, int64, error) {
	var row struct {
		Average decimal.NullDecimal
		Total   int64
	}
	err := s.conn(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("doctor_id = ? AND is_visible = ?", doctorID, true).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	if !row.Average.Valid {
		return decimal.Zero, row.Total, nil
	}
	return row.Average.Decimal, row.Total, nil
}

func (s *Store) UpdateDoctorRating(ctx context.Context, doctorID string, average decimal.Decimal, total int64) error {
	return s.conn(ctx).Model(&models.DoctorProfile{}).
		Where("id = ?", doctorID).
		UpdateColumns(map[string]interface{}{
			"average_rating": average,
			"total_reviews":  total,
		}).Error
}

func (s *Store) CreateFamilyMember(ctx context.Context, m *models.FamilyMember) error {
	return translate(s.write(ctx).Create(m).Error)
}

// FindActiveFamilyMember loads an active member owned by userID.
func (s *Store) FindActiveFamilyMember(ctx context.Context, userID, memberID string) (*models.FamilyMember, error) {
	var m models.FamilyMember
	err := s.conn(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", memberID, userID, true).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// EnsureSelfMember returns the user's active self record, creating it from
// the account details when missing.
func (s *Store) EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error) {
	var m models.FamilyMember
	err := s.conn(ctx).
		Where("user_id = ? AND relationship = ? AND is_active = ?", userID, models.RelationshipSelf, true).
		First(&m).Error
	if err == nil {
		return &m, nil
	}
	if err = translate(err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	self := models.NewSelfMember(u)
	if err := s.CreateFamilyMember(ctx, self); err != nil {
		return nil, err
	}
	return self, nil
}

func (s *Store) ListEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	var contacts []models.EmergencyContact
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, created_at ASC").
		Find(&contacts).Error
	return contacts, err
}

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sarvsaathi-server/internal/cache"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrInvalidSort    = errors.New("unknown sort order")
	ErrInvalidFee     = errors.New("fees must not be negative")
)

const directoryGenerationKey = "doctors:generation"

// DirectoryQuery filters the public doctor directory.
type DirectoryQuery struct {
	Specialty     string `form:"specialty"`
	MinFee        string `form:"min_fee"`
	MaxFee        string `form:"max_fee"`
	MinExperience int    `form:"min_experience" binding:"min=0"`
	Emergency     bool   `form:"emergency"`
	Sort          string `form:"sort"`
}

func parseFee(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, ErrInvalidFee
	}
	return &d, nil
}

func (q DirectoryQuery) filter() (store.DoctorFilter, error) {
	f := store.DoctorFilter{
		Specialty:     strings.TrimSpace(q.Specialty),
		MinExperience: q.MinExperience,
		Emergency:     q.Emergency,
		Sort:          store.DoctorSort(q.Sort),
	}
	switch f.Sort {
	case "", store.SortRating, store.SortFeeAsc, store.SortFeeDesc, store.SortExperience:
	default:
		return f, ErrInvalidSort
	}

	var err error
	if f.MinFee, err = parseFee(q.MinFee); err != nil {
		return f, err
	}
	if f.MaxFee, err = parseFee(q.MaxFee); err != nil {
		return f, err
	}
	return f, nil
}

func (q DirectoryQuery) key(generation string) string {
	return fmt.Sprintf("doctors:%s:%s|%s|%s|%d|%t|%s", generation,
		strings.ToLower(strings.TrimSpace(q.Specialty)), q.MinFee, q.MaxFee, q.MinExperience, q.Emergency, q.Sort)
}

func doctorKey(id string) string {
	return "doctor:" + id
}

func (s *Service) generation(ctx context.Context) string {
	raw, ok, err := s.cache.Get(ctx, directoryGenerationKey)
	if err != nil || !ok {
		return "0"
	}
	return string(raw)
}

// Doctors lists verified doctors. Results are cached briefly and dropped
// whenever a doctor profile or rating changes.
func (s *Service) Doctors(ctx context.Context, q DirectoryQuery) ([]models.DoctorProfile, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}

	key := q.key(s.generation(ctx))
	var doctors []models.DoctorProfile
	if hit, err := cache.GetJSON(ctx, s.cache, key, &doctors); err == nil && hit {
		return doctors, nil
	}

	doctors, err = s.repo.ListDoctors(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, doctors, s.cfg.Cache.DoctorTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("doctor directory cache write failed")
	}
	return doctors, nil
}

// Doctor returns a verified doctor's public profile.
func (s *Service) Doctor(ctx context.Context, id string) (*models.DoctorProfile, error) {
	var d models.DoctorProfile
	if hit, err := cache.GetJSON(ctx, s.cache, doctorKey(id), &d); err == nil && hit {
		return &d, nil
	}

	doctor, err := s.repo.GetDoctor(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !doctor.IsVerified) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, doctorKey(id), doctor, s.cfg.Cache.DoctorTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("doctor cache write failed")
	}
	return doctor, nil
}

// InvalidateDoctor drops the cached profile of a doctor and every cached
// directory page.
func (s *Service) InvalidateDoctor(ctx context.Context, doctorID string) {
	if err := s.cache.Delete(ctx, doctorKey(doctorID)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("doctor_id", doctorID).Msg("doctor cache delete failed")
	}
	next := strconv.FormatInt(s.now().UnixNano(), 10)
	if err := s.cache.Set(ctx, directoryGenerationKey, []byte(next), 0); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("doctor directory cache reset failed")
	}
}

// OwnDoctorProfile returns the profile of the signed-in doctor.
func (s *Service) OwnDoctorProfile(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	d, err := s.repo.GetDoctorByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

// DoctorProfileInput updates a doctor's professional details. Nil fields are
// left unchanged.
type DoctorProfileInput struct {
	Specialty               *string          `json:"specialty"`
	SubSpecialty            *string          `json:"subSpecialty"`
	LicenseNumber           *string          `json:"licenseNumber"`
	LicenseExpiry           *string          `json:"licenseExpiry"`
	ExperienceYears         *int             `json:"experienceYears" binding:"omitempty,min=0,max=80"`
	Qualification           *string          `json:"qualification"`
	Bio                     *string          `json:"bio"`
	Languages               *string          `json:"languages"`
	ClinicName              *string          `json:"clinicName"`
	ClinicAddress           *string          `json:"clinicAddress"`
	ClinicLatitude          *float64         `json:"clinicLatitude" binding:"omitempty,min=-90,max=90"`
	ClinicLongitude         *float64         `json:"clinicLongitude" binding:"omitempty,min=-180,max=180"`
	ClinicPhone             *string          `json:"clinicPhone"`
	ConsultationFee         *decimal.Decimal `json:"consultationFee"`
	OnlineConsultationFee   *decimal.Decimal `json:"onlineConsultationFee"`
	ConsultationDuration    *int             `json:"consultationDuration" binding:"omitempty,min=5,max=240"`
	IsAvailableForEmergency *bool            `json:"isAvailableForEmergency"`
	IsAcceptingPatients     *bool            `json:"isAcceptingPatients"`
}

func (s *Service) UpdateDoctorProfile(ctx context.Context, userID string, in DoctorProfileInput) (*models.DoctorProfile, error) {
	d, err := s.OwnDoctorProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	setString(&d.Specialty, in.Specialty)
	setString(&d.SubSpecialty, in.SubSpecialty)
	setString(&d.LicenseNumber, in.LicenseNumber)
	setString(&d.Qualification, in.Qualification)
	setString(&d.Bio, in.Bio)
	setString(&d.Languages, in.Languages)
	setString(&d.ClinicName, in.ClinicName)
	setString(&d.ClinicAddress, in.ClinicAddress)
	setString(&d.ClinicPhone, in.ClinicPhone)
	if in.LicenseExpiry != nil {
		if d.LicenseExpiry, err = parseDate(*in.LicenseExpiry); err != nil {
			return nil, err
		}
	}
	if in.ExperienceYears != nil {
		d.ExperienceYears = *in.ExperienceYears
	}
	if in.ClinicLatitude != nil {
		d.ClinicLatitude = in.ClinicLatitude
	}
	if in.ClinicLongitude != nil {
		d.ClinicLongitude = in.ClinicLongitude
	}
	if in.ConsultationFee != nil {
		if in.ConsultationFee.IsNegative() {
			return nil, ErrInvalidFee
		}
		d.ConsultationFee = *in.ConsultationFee
	}
	if in.OnlineConsultationFee != nil {
		if in.OnlineConsultationFee.IsNegative() {
			return nil, ErrInvalidFee
		}
		d.OnlineConsultationFee = decimal.NewNullDecimal(*in.OnlineConsultationFee)
	}
	if in.ConsultationDuration != nil {
		d.ConsultationDuration = *in.ConsultationDuration
	}
	if in.IsAvailableForEmergency != nil {
		d.IsAvailableForEmergency = *in.IsAvailableForEmergency
	}
	if in.IsAcceptingPatients != nil {
		d.IsAcceptingPatients = *in.IsAcceptingPatients
	}

	if err := s.repo.SaveDoctor(ctx, d); err != nil {
		return nil, err
	}
	s.InvalidateDoctor(ctx, d.ID)
	return d, nil
}

// VerifyDoctor marks the doctor account with email as verified so that it
// appears in the directory.
func (s *Service) VerifyDoctor(ctx context.Context, email string) (*models.DoctorProfile, error) {
	d, err := s.repo.VerifyDoctor(ctx, strings.ToLower(strings.TrimSpace(email)), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	s.InvalidateDoctor(ctx, d.ID)
	log.Ctx(ctx).Info().Str("doctor_id", d.ID).Str("email", email).Msg("doctor verified")
	return d, nil
}

// ToggleFavorite saves or unsaves a doctor and reports the new state.
func (s *Service) ToggleFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	removed, err := s.repo.RemoveFavorite(ctx, userID, doctorID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	if _, err := s.Doctor(ctx, doctorID); err != nil {
		return false, err
	}
	err = s.repo.AddFavorite(ctx, &models.FavoriteDoctor{UserID: userID, DoctorID: doctorID})
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return false, err
	}
	return true, nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	return s.repo.IsFavorite(ctx, userID, doctorID)
}

func (s *Service) Favorites(ctx context.Context, userID string) ([]models.FavoriteDoctor, error) {
	return s.repo.ListFavorites(ctx, userID)
}

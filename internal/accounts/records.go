package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var (
	ErrRecordNotFound    = errors.New("medical record not found")
	ErrInvalidRecordType = errors.New("unknown record type")
)

func validRecordType(t models.RecordType) bool {
	switch t {
	case models.RecordPrescription, models.RecordLabReport, models.RecordImaging,
		models.RecordDischargeSummary, models.RecordVaccination, models.RecordOther:
		return true
	}
	return false
}

// RecordInput creates or updates a medical record. The file is optional.
type RecordInput struct {
	FamilyMemberID string            `form:"familyMemberId"`
	Title          string            `form:"title" binding:"required,max=200"`
	RecordType     models.RecordType `form:"recordType" binding:"required"`
	Description    string            `form:"description"`
	RecordDate     string            `form:"recordDate" binding:"required"`
	DoctorName     string            `form:"doctorName" binding:"max=100"`
	HospitalName   string            `form:"hospitalName" binding:"max=200"`
}

// Attachment is an uploaded file.
type Attachment struct {
	File     io.Reader
	Filename string
}

func (s *Service) applyRecord(ctx context.Context, userID string, r *models.MedicalRecord, in RecordInput) error {
	if !validRecordType(in.RecordType) {
		return ErrInvalidRecordType
	}
	date, err := parseDate(in.RecordDate)
	if err != nil {
		return err
	}
	if date == nil {
		return ErrInvalidDate
	}

	r.FamilyMemberID = nil
	if in.FamilyMemberID != "" {
		m, err := s.FamilyMember(ctx, userID, in.FamilyMemberID)
		if err != nil {
			return err
		}
		r.FamilyMemberID = &m.ID
		r.FamilyMember = m
	}

	r.Title = strings.TrimSpace(in.Title)
	r.RecordType = in.RecordType
	r.Description = strings.TrimSpace(in.Description)
	r.RecordDate = *date
	r.DoctorName = strings.TrimSpace(in.DoctorName)
	r.HospitalName = strings.TrimSpace(in.HospitalName)
	return nil
}

func (s *Service) attach(ctx context.Context, r *models.MedicalRecord, file *Attachment) error {
	if file == nil {
		return nil
	}
	previous := r.FilePublicID

	res, err := s.uploader.Upload(ctx, media.UploadInput{
		File:     file.File,
		Filename: file.Filename,
		Folder:   path.Join(s.cfg.Cloudinary.Folder, "medical-records", r.UserID),
	})
	if err != nil {
		return fmt.Errorf("upload record file: %w", err)
	}
	r.FileURL = res.URL
	r.FilePublicID = res.PublicID
	r.FileName = file.Filename

	if previous != "" && previous != res.PublicID {
		s.dropFile(ctx, previous)
	}
	return nil
}

func (s *Service) dropFile(ctx context.Context, publicID string) {
	if err := s.uploader.Delete(ctx, publicID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("public_id", publicID).Msg("stored file delete failed")
	}
}

func (s *Service) MedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error) {
	return s.repo.ListMedicalRecords(ctx, userID, familyMemberID)
}

func (s *Service) MedicalRecord(ctx context.Context, userID, id string) (*models.MedicalRecord, error) {
	r, err := s.repo.GetMedicalRecord(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return r, err
}

func (s *Service) AddMedicalRecord(ctx context.Context, userID string, in RecordInput, file *Attachment) (*models.MedicalRecord, error) {
	r := &models.MedicalRecord{UserID: userID}
	if err := s.applyRecord(ctx, userID, r, in); err != nil {
		return nil, err
	}
	if err := s.attach(ctx, r, file); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMedicalRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateMedicalRecord replaces the record details and, when a file is
// given, its attachment.
func (s *Service) UpdateMedicalRecord(ctx context.Context, userID, id string, in RecordInput, file *Attachment) (*models.MedicalRecord, error) {
	r, err := s.MedicalRecord(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyRecord(ctx, userID, r, in); err != nil {
		return nil, err
	}
	if err := s.attach(ctx, r, file); err != nil {
		return nil, err
	}
	if err := s.repo.SaveMedicalRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) RemoveMedicalRecord(ctx context.Context, userID, id string) error {
	r, err := s.MedicalRecord(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMedicalRecord(ctx, r.ID, userID); err != nil {
		return err
	}
	if r.FilePublicID != "" {
		s.dropFile(ctx, r.FilePublicID)
	}
	return nil
}

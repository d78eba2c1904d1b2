package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/utils"
)

// RecordService manages a user's medical records.
type RecordService interface {
	MedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error)
	MedicalRecord(ctx context.Context, userID, id string) (*models.MedicalRecord, error)
	AddMedicalRecord(ctx context.Context, userID string, in accounts.RecordInput, file *accounts.Attachment) (*models.MedicalRecord, error)
	UpdateMedicalRecord(ctx context.Context, userID, id string, in accounts.RecordInput, file *accounts.Attachment) (*models.MedicalRecord, error)
	RemoveMedicalRecord(ctx context.Context, userID, id string) error
}

// MedicalRecordHandler handles medical record related requests. Records are
// sent as multipart forms with an optional "file" part.
type MedicalRecordHandler struct {
	svc RecordService
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(svc RecordService) *MedicalRecordHandler {
	return &MedicalRecordHandler{svc: svc}
}

// formFile opens the optional "file" part. The returned closer is never nil.
func formFile(c *gin.Context) (*accounts.Attachment, func(), error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	var f multipart.File
	if f, err = header.Open(); err != nil {
		return nil, func() {}, err
	}
	return &accounts.Attachment{File: f, Filename: header.Filename}, func() { f.Close() }, nil
}

func (h *MedicalRecordHandler) bindRecord(c *gin.Context) (accounts.RecordInput, *accounts.Attachment, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	var req accounts.RecordInput
	if !utils.BindForm(c, &req) {
		return req, nil, nil, false
	}
	file, closeFile, err := formFile(c)
	if err != nil {
		utils.BadRequest(c, "Could not read the uploaded file")
		return req, nil, nil, false
	}
	return req, file, closeFile, true
}

// GetMedicalRecords lists the user's records, optionally for one family
// member given as ?familyMemberId=.
func (h *MedicalRecordHandler) GetMedicalRecords(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	records, err := h.svc.MedicalRecords(c.Request.Context(), id, c.Query("familyMemberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Medical records retrieved successfully", records)
}

func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	record, err := h.svc.MedicalRecord(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Medical record retrieved successfully", record)
}

func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	req, file, closeFile, ok := h.bindRecord(c)
	if !ok {
		return
	}
	defer closeFile()

	record, err := h.svc.AddMedicalRecord(c.Request.Context(), id, req, file)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Medical record created successfully", record)
}

func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	req, file, closeFile, ok := h.bindRecord(c)
	if !ok {
		return
	}
	defer closeFile()

	record, err := h.svc.UpdateMedicalRecord(c.Request.Context(), id, c.Param("id"), req, file)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Medical record updated successfully", record)
}

func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveMedicalRecord(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Medical record deleted successfully", nil)
}

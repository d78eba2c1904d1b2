package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/models"
)

type fakeRecords struct {
	RecordService

	input    accounts.RecordInput
	filename string
	content  string
	familyID string
}

func (f *fakeRecords) capture(in accounts.RecordInput, file *accounts.Attachment) error {
	f.input = in
	f.filename, f.content = "", ""
	if file == nil {
		return nil
	}
	raw, err := io.ReadAll(file.File)
	if err != nil {
		return err
	}
	f.filename, f.content = file.Filename, string(raw)
	return nil
}

func (f *fakeRecords) AddMedicalRecord(ctx context.Context, userID string, in accounts.RecordInput, file *accounts.Attachment) (*models.MedicalRecord, error) {
	if err := f.capture(in, file); err != nil {
		return nil, err
	}
	if in.RecordType == "x-ray" {
		return nil, accounts.ErrInvalidRecordType
	}
	r := &models.MedicalRecord{UserID: userID, Title: in.Title, RecordType: in.RecordType, FileName: f.filename}
	r.ID = "record-1"
	return r, nil
}

func (f *fakeRecords) UpdateMedicalRecord(ctx context.Context, userID, id string, in accounts.RecordInput, file *accounts.Attachment) (*models.MedicalRecord, error) {
	if err := f.capture(in, file); err != nil {
		return nil, err
	}
	if id != "record-1" {
		return nil, accounts.ErrRecordNotFound
	}
	r := &models.MedicalRecord{UserID: userID, Title: in.Title, RecordType: in.RecordType}
	r.ID = id
	return r, nil
}

func (f *fakeRecords) MedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error) {
	f.familyID = familyMemberID
	return nil, nil
}

func recordRouter(svc RecordService) http.Handler {
	h := NewMedicalRecordHandler(svc)
	r := asUser("user-1", models.RolePatient)
	r.GET("/records", h.GetMedicalRecords)
	r.POST("/records", h.CreateMedicalRecord)
	r.PUT("/records/:id", h.UpdateMedicalRecord)
	return r
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateMedicalRecordWithFile(t *testing.T) {
	svc := &fakeRecords{}
	r := recordRouter(svc)

	req := multipartRequest(t, http.MethodPost, "/records", map[string]string{
		"title":          "Blood panel",
		"recordType":     "lab_report",
		"recordDate":     "2025-02-10",
		"familyMemberId": "member-2",
	}, "panel.pdf", "%PDF-1.4")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Blood panel", svc.input.Title)
	assert.Equal(t, models.RecordType("lab_report"), svc.input.RecordType)
	assert.Equal(t, "2025-02-10", svc.input.RecordDate)
	assert.Equal(t, "member-2", svc.input.FamilyMemberID)
	assert.Equal(t, "panel.pdf", svc.filename)
	assert.Equal(t, "%PDF-1.4", svc.content)
}

func TestCreateMedicalRecordWithoutFile(t *testing.T) {
	svc := &fakeRecords{}
	r := recordRouter(svc)

	form := url.Values{"title": {"Vaccination card"}, "recordType": {"vaccination"}, "recordDate": {"2024-11-02"}}
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Vaccination card", svc.input.Title)
	assert.Empty(t, svc.filename)
}

func TestCreateMedicalRecordRejections(t *testing.T) {
	svc := &fakeRecords{}
	r := recordRouter(svc)

	req := multipartRequest(t, http.MethodPost, "/records", map[string]string{"recordType": "lab_report"}, "", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, envelope(t, w).Error, "Title is required")

	req = multipartRequest(t, http.MethodPost, "/records", map[string]string{
		"title": "Scan", "recordType": "x-ray", "recordDate": "2025-01-01",
	}, "", "")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, accounts.ErrInvalidRecordType.Error(), envelope(t, w).Error)
}

func TestUpdateMedicalRecordNotFound(t *testing.T) {
	r := recordRouter(&fakeRecords{})

	req := multipartRequest(t, http.MethodPut, "/records/record-9", map[string]string{
		"title": "Scan", "recordType": "imaging", "recordDate": "2025-01-01",
	}, "scan.png", "png")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMedicalRecordsFamilyFilter(t *testing.T) {
	svc := &fakeRecords{}
	r := recordRouter(svc)

	w := do(r, http.MethodGet, "/records?familyMemberId=member-3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "member-3", svc.familyID)
}

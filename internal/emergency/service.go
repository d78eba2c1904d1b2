package emergency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
	"sarvsaathi-server/internal/store"
)

var (
	ErrInvalidCategory     = errors.New("unknown triage category")
	ErrInvalidLocation     = errors.New("latitude and longitude are required")
	ErrInvalidLog          = errors.New("emergency request not found")
	ErrAlreadyHandled      = errors.New("emergency request already handled")
	ErrDoctorNotFound      = errors.New("doctor not found or not verified")
	ErrNoEmergencyContacts = errors.New("no emergency contacts on file")
)

// Repository is the persistence the emergency flow needs.
type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error)
	GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error)
	FindEmergencyCandidates(ctx context.Context, specialty string) ([]models.DoctorProfile, error)
	ListEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)

	CreateEmergencyRequest(ctx context.Context, r *models.EmergencyRequest) error
	GetEmergencyRequest(ctx context.Context, id, userID string) (*models.EmergencyRequest, error)
	AcceptEmergencyRequest(ctx context.Context, id, doctorID, appointmentID string) error
	CancelEmergencyRequest(ctx context.Context, id string) error

	CreateSlot(ctx context.Context, slot *models.TimeSlot) error
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	CreateStatusLog(ctx context.Context, l *models.AppointmentStatusLog) error
}

// NumberIssuer hands out unused appointment numbers.
type NumberIssuer interface {
	NewNumber(ctx context.Context) (string, error)
}

// Notifier queues best-effort alerts.
type Notifier interface {
	Send(msg notify.Message)
}

// Deliverer sends an alert and reports the outcome.
type Deliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

// Options configures the emergency flow.
type Options struct {
	// SlotLength is the calendar block reserved for an emergency visit.
	SlotLength time.Duration
	// SOSWorkers bounds the alerts sent in parallel.
	SOSWorkers int
}

type Service struct {
	repo      Repository
	numbers   NumberIssuer
	notifier  Notifier
	deliverer Deliverer
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, numbers NumberIssuer, notifier Notifier, deliverer Deliverer, opts Options) *Service {
	if opts.SlotLength <= 0 {
		opts.SlotLength = 30 * time.Minute
	}
	if opts.SOSWorkers <= 0 {
		opts.SOSWorkers = 4
	}
	return &Service{
		repo:      repo,
		numbers:   numbers,
		notifier:  notifier,
		deliverer: deliverer,
		opts:      opts,
		now:       time.Now,
	}
}

// SearchInput is the patient's triage report.
type SearchInput struct {
	Latitude  *float64              `json:"latitude" binding:"required"`
	Longitude *float64              `json:"longitude" binding:"required"`
	Category  models.TriageCategory `json:"category" binding:"required"`
	Notes     string                `json:"notes"`
}

// SearchResult lists the nearest specialists and the request to reference
// when choosing one.
type SearchResult struct {
	LogID       string       `json:"logId"`
	Specialty   string       `json:"specialty"`
	Specialists []Specialist `json:"specialists"`
}

// FindSpecialists records a searching emergency request and returns up to
// three verified specialists for the category ordered by distance.
func (s *Service) FindSpecialists(ctx context.Context, userID string, in SearchInput) (*SearchResult, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	if !ValidCategory(in.Category) {
		return nil, ErrInvalidCategory
	}

	self, err := s.repo.EnsureSelfMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	req := &models.EmergencyRequest{
		UserID:         userID,
		FamilyMemberID: self.ID,
		Category:       in.Category,
		Notes:          in.Notes,
		Latitude:       *in.Latitude,
		Longitude:      *in.Longitude,
		Status:         models.EmergencySearching,
	}
	if err := s.repo.CreateEmergencyRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("record emergency request: %w", err)
	}

	specialty := SpecialtyFor(in.Category)
	doctors, err := s.repo.FindEmergencyCandidates(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("find %s doctors: %w", specialty, err)
	}

	found := nearest(doctors, *in.Latitude, *in.Longitude)
	log.Ctx(ctx).Info().
		Str("log_id", req.ID).
		Str("category", string(in.Category)).
		Int("found", len(found)).
		Msg("emergency search")

	return &SearchResult{LogID: req.ID, Specialty: specialty, Specialists: found}, nil
}

// Dispatch is what the patient needs to reach the accepted doctor.
type Dispatch struct {
	AppointmentID     string `json:"appointmentId"`
	AppointmentNumber string `json:"appointmentNumber"`
	DoctorName        string `json:"doctorName"`
	ClinicAddress     string `json:"clinicAddress,omitempty"`
	ClinicPhone       string `json:"clinicPhone,omitempty"`
	DirectionsURL     string `json:"directionsUrl,omitempty"`
}

// DirectionsURL links to driving directions to the given coordinates.
func DirectionsURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%v,%v", lat, lng)
}

func emergencyNotes(r *models.EmergencyRequest) string {
	notes := strings.TrimSpace(r.Notes)
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf("EMERGENCY: %s\n--\n%s", r.Category, notes)
}

// RequestDoctor books the chosen doctor for a searching request: a booked
// thirty minute slot starting now and a confirmed, free emergency
// appointment. The doctor is alerted on every channel afterwards.
func (s *Service) RequestDoctor(ctx context.Context, userID, logID, doctorID string) (*Dispatch, error) {
	req, err := s.repo.GetEmergencyRequest(ctx, logID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidLog
	}
	if err != nil {
		return nil, err
	}
	if req.Status != models.EmergencySearching {
		return nil, ErrAlreadyHandled
	}

	doctor, err := s.repo.GetDoctor(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	if !doctor.IsVerified {
		return nil, ErrDoctorNotFound
	}

	owner, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	member, err := s.repo.EnsureSelfMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	now := s.now()
	slot := &models.TimeSlot{
		BaseModel: models.BaseModel{ID: uuid.New().String()},
		DoctorID:  doctor.ID,
		StartsAt:  now,
		EndsAt:    now.Add(s.opts.SlotLength),
		Mode:      models.SlotModeInClinic,
		Status:    models.SlotStatusBooked,
	}
	appt := &models.Appointment{
		BaseModel:        models.BaseModel{ID: uuid.New().String()},
		UserID:           userID,
		FamilyMemberID:   member.ID,
		DoctorID:         doctor.ID,
		TimeSlotID:       &slot.ID,
		ScheduledStart:   slot.StartsAt,
		ScheduledEnd:     slot.EndsAt,
		ConsultationType: models.ConsultationInClinic,
		Status:           models.StatusConfirmed,
		IsEmergency:      true,
		PaymentStatus:    models.PaymentPaid,
		PaymentMethod:    models.PaymentMethodFree,
		ConsultationFee:  decimal.Zero,
		AmountPaid:       decimal.Zero,
		PatientNotes:     emergencyNotes(req),
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateSlot(ctx, slot); err != nil {
			return fmt.Errorf("create emergency slot: %w", err)
		}
		number, err := s.numbers.NewNumber(ctx)
		if err != nil {
			return err
		}
		appt.AppointmentNumber = number
		if err := s.repo.CreateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("create emergency appointment: %w", err)
		}
		if err := s.repo.CreateStatusLog(ctx, models.NewStatusLog(appt, "", userID, "Emergency request accepted")); err != nil {
			return fmt.Errorf("write status log: %w", err)
		}

		err = s.repo.AcceptEmergencyRequest(ctx, req.ID, doctor.ID, appt.ID)
		if errors.Is(err, store.ErrStatusMismatch) {
			return ErrAlreadyHandled
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Warn().
		Str("log_id", req.ID).
		Str("doctor_id", doctor.ID).
		Str("appointment_id", appt.ID).
		Msg("emergency doctor requested")

	patientName := member.FullName()
	if patientName == "" {
		patientName = owner.FullName()
	}
	s.alertDoctor(doctor, req, patientName, member.ContactPhone(owner))

	out := &Dispatch{
		AppointmentID:     appt.ID,
		AppointmentNumber: appt.AppointmentNumber,
		DoctorName:        doctor.DisplayName(),
		ClinicAddress:     doctor.ClinicAddress,
		ClinicPhone:       doctor.ClinicPhone,
	}
	if doctor.HasClinicLocation() {
		out.DirectionsURL = DirectionsURL(*doctor.ClinicLatitude, *doctor.ClinicLongitude)
	}
	return out, nil
}

func (s *Service) alertDoctor(doctor *models.DoctorProfile, req *models.EmergencyRequest, patientName, patientPhone string) {
	if s.notifier == nil {
		return
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = "None"
	}
	if patientPhone == "" {
		patientPhone = "Not provided"
	}

	msg := notify.Message{
		Name:    doctor.DisplayName(),
		Phone:   doctor.ClinicPhone,
		Subject: "EMERGENCY ALERT",
		Body: fmt.Sprintf("EMERGENCY ALERT: %s is en route to your clinic.\nTriage: %s\nNotes: %s\nPatient Phone: %s",
			patientName, req.Category, notes, patientPhone),
		WhatsApp: true,
	}
	if doctor.User != nil {
		if doctor.User.Phone != "" {
			msg.Phone = doctor.User.Phone
		}
		msg.Email = doctor.User.Email
	}
	s.notifier.Send(msg)
}

// CancelRequest abandons a request that is still searching.
func (s *Service) CancelRequest(ctx context.Context, userID, logID string) error {
	req, err := s.repo.GetEmergencyRequest(ctx, logID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidLog
	}
	if err != nil {
		return err
	}

	err = s.repo.CancelEmergencyRequest(ctx, req.ID)
	if errors.Is(err, store.ErrStatusMismatch) {
		return ErrAlreadyHandled
	}
	return err
}

package appointments

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
	"sarvsaathi-server/internal/payments"
	"sarvsaathi-server/internal/store"
)

// numberAttempts bounds the retries on an appointment number collision.
const numberAttempts = 5

// Repository is the persistence the appointment workflows need. Calls made
// with the ctx handed to Transaction's callback share one transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error)
	IncrementDoctorAppointments(ctx context.Context, doctorID string) error
	FindActiveFamilyMember(ctx context.Context, userID, memberID string) (*models.FamilyMember, error)
	EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error)

	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	TransitionSlot(ctx context.Context, id string, from, to models.SlotStatus) error
	HasActiveAppointmentForSlot(ctx context.Context, slotID string) (bool, error)

	CreateAppointment(ctx context.Context, a *models.Appointment) error
	SaveAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	AppointmentNumberExists(ctx context.Context, number string) (bool, error)
	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]models.Appointment, error)
	CountAppointmentsByStatus(ctx context.Context, f store.AppointmentFilter) (map[models.AppointmentStatus]int64, error)
	CreateStatusLog(ctx context.Context, l *models.AppointmentStatusLog) error
	ListStatusLogs(ctx context.Context, appointmentID string) ([]models.AppointmentStatusLog, error)
}

// Notifier queues best-effort alerts.
type Notifier interface {
	Send(msg notify.Message)
}

// NoShowPredictor scores the risk that a patient misses an appointment.
type NoShowPredictor interface {
	PredictNoShow(ctx context.Context, f insights.Features) (*insights.Prediction, error)
}

// Options configures the workflows.
type Options struct {
	CancellationLeadTime time.Duration
	Currency             string
	FrontendURL          string
	Location             *time.Location
}

// Actor is the authenticated caller. Doctors act on appointments assigned to
// them, patients on the ones they booked.
type Actor struct {
	UserID string
	Role   models.Role
}

// Service implements booking, payment and the appointment lifecycle.
type Service struct {
	repo      Repository
	gateway   payments.Gateway
	notifier  Notifier
	predictor NoShowPredictor
	opts      Options
	now       func() time.Time
	digits    func() int
}

func NewService(repo Repository, gateway payments.Gateway, notifier Notifier, predictor NoShowPredictor, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		notifier:  notifier,
		predictor: predictor,
		opts:      opts,
		now:       time.Now,
		digits:    func() int { return rand.IntN(10000) },
	}
}

// NewNumber returns an unused appointment number: APT, the booking date
// and four random digits.
func (s *Service) NewNumber(ctx context.Context) (string, error) {
	day := s.now().In(s.opts.Location).Format("20060102")
	for i := 0; i < numberAttempts; i++ {
		number := fmt.Sprintf("APT%s%04d", day, s.digits())
		exists, err := s.repo.AppointmentNumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check appointment number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("no free appointment number after %d attempts", numberAttempts)
}

func (s *Service) doctorFor(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	d, err := s.repo.GetDoctorByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

// load fetches an appointment visible to actor. Appointments of other
// users or doctors are reported as not found.
func (s *Service) load(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleDoctor {
		doctor, err := s.doctorFor(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if a.DoctorID != doctor.ID {
			return nil, ErrNotFound
		}
		return a, nil
	}

	if a.UserID != actor.UserID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) logTransition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, actor, notes string) error {
	if err := s.repo.CreateStatusLog(ctx, models.NewStatusLog(a, from, actor, notes)); err != nil {
		return fmt.Errorf("write status log: %w", err)
	}
	return nil
}

// releaseSlot gives a booked slot back to the calendar and detaches it from
// the appointment. A slot that is no longer booked is left as it is.
func (s *Service) releaseSlot(ctx context.Context, a *models.Appointment) error {
	if a.TimeSlotID == nil {
		return nil
	}
	err := s.repo.TransitionSlot(ctx, *a.TimeSlotID, models.SlotStatusBooked, models.SlotStatusAvailable)
	if err != nil && !errors.Is(err, store.ErrStatusMismatch) {
		return fmt.Errorf("release slot: %w", err)
	}
	a.TimeSlotID = nil
	a.TimeSlot = nil
	return nil
}

// Get returns one appointment visible to actor.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.load(ctx, actor, id)
}

// ListFilter narrows an actor's appointment list.
type ListFilter struct {
	Status models.AppointmentStatus
	From   time.Time
	To     time.Time
}

func (s *Service) filterFor(ctx context.Context, actor Actor) (store.AppointmentFilter, error) {
	if actor.Role == models.RoleDoctor {
		doctor, err := s.doctorFor(ctx, actor.UserID)
		if err != nil {
			return store.AppointmentFilter{}, err
		}
		return store.AppointmentFilter{DoctorID: doctor.ID}, nil
	}
	return store.AppointmentFilter{UserID: actor.UserID}, nil
}

// List returns the actor's appointments, most recent first.
func (s *Service) List(ctx context.Context, actor Actor, lf ListFilter) ([]models.Appointment, error) {
	f, err := s.filterFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	f.Status, f.From, f.To = lf.Status, lf.From, lf.To
	return s.repo.ListAppointments(ctx, f)
}

// Stats counts the actor's appointments by status.
type Stats struct {
	Total    int64                              `json:"total"`
	ByStatus map[models.AppointmentStatus]int64 `json:"byStatus"`
}

func (s *Service) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	f, err := s.filterFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountAppointmentsByStatus(ctx, f)
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByStatus: make(map[models.AppointmentStatus]int64, len(models.AllAppointmentStatuses))}
	for _, st := range models.AllAppointmentStatuses {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats, nil
}

// StatusLogs returns the transition history of an appointment, oldest first.
func (s *Service) StatusLogs(ctx context.Context, actor Actor, id string) ([]models.AppointmentStatusLog, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStatusLogs(ctx, a.ID)
}

// NoShowRisk asks the prediction service how likely the patient is to miss
// a doctor's appointment.
func (s *Service) NoShowRisk(ctx context.Context, doctorUserID, id string) (*insights.Prediction, error) {
	a, err := s.load(ctx, Actor{UserID: doctorUserID, Role: models.RoleDoctor}, id)
	if err != nil {
		return nil, err
	}
	if s.predictor == nil {
		return nil, ErrPredictionUnavailable
	}

	age := -1
	if a.FamilyMember != nil {
		age = a.FamilyMember.Age(s.now())
	}
	p, err := s.predictor.PredictNoShow(ctx, insights.Features{
		PatientAge:      age,
		ReminderSent:    a.ReminderSent,
		BookingDate:     a.CreatedAt,
		AppointmentDate: a.ScheduledStart,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPredictionUnavailable, err)
	}
	return p, nil
}

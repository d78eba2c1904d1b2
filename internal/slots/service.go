package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var (
	ErrInvalidRange   = errors.New("slot end must be after its start")
	ErrInvalidTime    = errors.New("slot date or time is malformed")
	ErrInvalidMode    = errors.New("slot mode must be in_clinic, online or both")
	ErrSlotInPast     = errors.New("cannot create slots in the past")
	ErrOverlap        = errors.New("slot overlaps an existing slot")
	ErrNotFound       = errors.New("time slot not found")
	ErrNotAvailable   = errors.New("time slot is not available")
	ErrNotBlocked     = errors.New("time slot is not blocked")
	ErrHeld           = errors.New("time slot is held by an active appointment")
	ErrDoctorNotFound = errors.New("doctor profile not found")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Repository is the persistence the slot service needs.
type Repository interface {
	GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error)
	CreateSlot(ctx context.Context, slot *models.TimeSlot) error
	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	HasOverlappingSlot(ctx context.Context, doctorID string, start, end time.Time) (bool, error)
	TransitionSlot(ctx context.Context, id string, from, to models.SlotStatus) error
	ListSlots(ctx context.Context, f store.SlotFilter) ([]models.TimeSlot, error)
	HasActiveAppointmentForSlot(ctx context.Context, slotID string) (bool, error)
}

// CreateInput is one slot as a doctor enters it: a local calendar date and
// wall-clock start and end times.
type CreateInput struct {
	Date      string           `json:"date" binding:"required"`
	StartTime string           `json:"startTime" binding:"required"`
	EndTime   string           `json:"endTime" binding:"required"`
	Mode      models.SlotMode  `json:"mode"`
	Fee       *decimal.Decimal `json:"fee"`
}

// BulkResult reports the outcome of a bulk creation item by item.
type BulkResult struct {
	Created []models.TimeSlot `json:"created"`
	Errors  []BulkError       `json:"errors"`
}

type BulkError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Service manages doctors' calendars.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a slot service. Slot dates and times are interpreted in
// loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

func (s *Service) doctorFor(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	d, err := s.repo.GetDoctorByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (s *Service) window(in CreateInput) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, in.Date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTime, in.Date)
	}
	start, err := time.Parse(timeLayout, in.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start time %q", ErrInvalidTime, in.StartTime)
	}
	end, err := time.Parse(timeLayout, in.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end time %q", ErrInvalidTime, in.EndTime)
	}

	at := func(t time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, s.loc).UTC()
	}
	return at(start), at(end), nil
}

// CreateSlot adds an available slot to the calendar of the doctor account
// userID.
func (s *Service) CreateSlot(ctx context.Context, userID string, in CreateInput) (*models.TimeSlot, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, doctor, in)
}

func (s *Service) create(ctx context.Context, doctor *models.DoctorProfile, in CreateInput) (*models.TimeSlot, error) {
	if in.Mode == "" {
		in.Mode = models.SlotModeInClinic
	}
	switch in.Mode {
	case models.SlotModeInClinic, models.SlotModeOnline, models.SlotModeBoth:
	default:
		return nil, ErrInvalidMode
	}

	start, end, err := s.window(in)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	if !start.After(s.now()) {
		return nil, ErrSlotInPast
	}

	overlap, err := s.repo.HasOverlappingSlot(ctx, doctor.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlap {
		return nil, ErrOverlap
	}

	slot := &models.TimeSlot{
		DoctorID: doctor.ID,
		StartsAt: start,
		EndsAt:   end,
		Mode:     in.Mode,
		Status:   models.SlotStatusAvailable,
	}
	if in.Fee != nil {
		slot.Fee = decimal.NewNullDecimal(*in.Fee)
	}

	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

// BulkCreate creates each slot independently. A failing item does not stop
// the others.
func (s *Service) BulkCreate(ctx context.Context, userID string, items []CreateInput) (*BulkResult, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{Created: []models.TimeSlot{}, Errors: []BulkError{}}
	for i, in := range items {
		slot, err := s.create(ctx, doctor, in)
		if err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, Error: err.Error()})
			continue
		}
		res.Created = append(res.Created, *slot)
	}

	log.Ctx(ctx).Info().
		Str("doctor_id", doctor.ID).
		Int("created", len(res.Created)).
		Int("failed", len(res.Errors)).
		Msg("bulk slot creation")
	return res, nil
}

// ownedSlot loads a slot of the doctor account userID. Slots of other
// doctors are reported as not found.
func (s *Service) ownedSlot(ctx context.Context, userID, slotID string) (*models.TimeSlot, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.GetSlot(ctx, slotID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && slot.DoctorID != doctor.ID) {
		return nil, ErrNotFound
	}
	return slot, err
}

func (s *Service) transition(ctx context.Context, userID, slotID string, from, to models.SlotStatus, mismatch error) (*models.TimeSlot, error) {
	slot, err := s.ownedSlot(ctx, userID, slotID)
	if err != nil {
		return nil, err
	}

	if from == models.SlotStatusAvailable {
		held, err := s.repo.HasActiveAppointmentForSlot(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, ErrHeld
		}
	}

	if err := s.repo.TransitionSlot(ctx, slot.ID, from, to); err != nil {
		if errors.Is(err, store.ErrStatusMismatch) {
			return nil, mismatch
		}
		return nil, err
	}
	slot.Status = to
	return slot, nil
}

// Block takes an available slot off the public calendar.
func (s *Service) Block(ctx context.Context, userID, slotID string) (*models.TimeSlot, error) {
	return s.transition(ctx, userID, slotID, models.SlotStatusAvailable, models.SlotStatusBlocked, ErrNotAvailable)
}

// Unblock returns a blocked slot to the calendar.
func (s *Service) Unblock(ctx context.Context, userID, slotID string) (*models.TimeSlot, error) {
	return s.transition(ctx, userID, slotID, models.SlotStatusBlocked, models.SlotStatusAvailable, ErrNotBlocked)
}

// Cancel withdraws an available slot permanently.
func (s *Service) Cancel(ctx context.Context, userID, slotID string) (*models.TimeSlot, error) {
	return s.transition(ctx, userID, slotID, models.SlotStatusAvailable, models.SlotStatusCancelled, ErrNotAvailable)
}

// ListDoctorSlots returns every slot of the doctor account userID, in any
// status, within [from, to) when given.
func (s *Service) ListDoctorSlots(ctx context.Context, userID string, from, to time.Time) ([]models.TimeSlot, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, store.SlotFilter{DoctorID: doctor.ID, From: from, To: to})
}

// ListPublicSlots returns a doctor's bookable slots: available and not yet
// started, ordered by start.
func (s *Service) ListPublicSlots(ctx context.Context, doctorID string, to time.Time) ([]models.TimeSlot, error) {
	return s.repo.ListSlots(ctx, store.SlotFilter{
		DoctorID: doctorID,
		Status:   models.SlotStatusAvailable,
		From:     s.now().Add(time.Second),
		To:       to,
	})
}

// ParseDay returns the start and end of a local calendar day in UTC.
func (s *Service) ParseDay(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTime, date)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

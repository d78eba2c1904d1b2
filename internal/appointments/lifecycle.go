package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/models"
)

// CancelInput carries the optional reason and notes of a cancellation.
type CancelInput struct {
	Reason models.CancellationReason `json:"reason"`
	Notes  string                    `json:"notes"`
}

func validReason(r models.CancellationReason) bool {
	switch r {
	case models.CancelPatientRequest, models.CancelDoctorUnavailable, models.CancelEmergency,
		models.CancelRescheduled, models.CancelOther:
		return true
	}
	return false
}

// Cancel cancels an appointment that has not reached a final status and
// starts later than the configured lead time. The slot is given back to
// the doctor's calendar.
func (s *Service) Cancel(ctx context.Context, actor Actor, id string, in CancelInput) (*models.Appointment, error) {
	byDoctor := actor.Role == models.RoleDoctor
	if in.Reason == "" {
		in.Reason = models.CancelPatientRequest
		if byDoctor {
			in.Reason = models.CancelDoctorUnavailable
		}
	}
	if !validReason(in.Reason) {
		return nil, ErrInvalidReason
	}

	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !a.CanCancel(now, s.opts.CancellationLeadTime) {
		return nil, ErrNotCancellable
	}

	previous := a.Status
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.releaseSlot(ctx, a); err != nil {
			return err
		}
		a.Status = models.StatusCancelled
		a.CancellationReason = in.Reason
		a.CancellationNotes = in.Notes
		a.CancelledByID = &actor.UserID
		a.CancelledAt = &now
		if err := s.repo.SaveAppointment(ctx, a); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}
		return s.logTransition(ctx, a, previous, actor.UserID, in.Notes)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("appointment_id", a.ID).
		Str("reason", string(in.Reason)).
		Bool("by_doctor", byDoctor).
		Msg("appointment cancelled")
	s.notifyCancelled(a, byDoctor)
	return a, nil
}

// Reschedule moves a pending or confirmed appointment to another available
// slot of the same doctor. The original is closed as rescheduled and a new
// appointment takes over its payment: a paid appointment stays confirmed and
// books the new slot at once.
func (s *Service) Reschedule(ctx context.Context, userID, id, newSlotID string) (*models.Appointment, error) {
	old, err := s.load(ctx, Actor{UserID: userID, Role: models.RolePatient}, id)
	if err != nil {
		return nil, err
	}
	if old.Status != models.StatusPending && old.Status != models.StatusConfirmed {
		return nil, ErrNotReschedulable
	}
	now := s.now()
	if !old.CanCancel(now, s.opts.CancellationLeadTime) {
		return nil, ErrNotCancellable
	}

	slot, err := s.checkBookable(ctx, newSlotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != old.DoctorID {
		return nil, ErrSlotOtherDoctor
	}

	slotID := slot.ID
	next := &models.Appointment{
		BaseModel:        models.BaseModel{ID: uuid.New().String()},
		UserID:           old.UserID,
		FamilyMemberID:   old.FamilyMemberID,
		DoctorID:         old.DoctorID,
		TimeSlotID:       &slotID,
		ScheduledStart:   slot.StartsAt,
		ScheduledEnd:     slot.EndsAt,
		ConsultationType: old.ConsultationType,
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentUnpaid,
		ConsultationFee:  slot.EffectiveFee(old.Doctor),
		Symptoms:         old.Symptoms,
		PatientNotes:     old.PatientNotes,
	}
	paid := old.PaymentStatus == models.PaymentPaid
	if paid {
		next.Status = models.StatusConfirmed
		next.PaymentStatus = models.PaymentPaid
		next.PaymentMethod = old.PaymentMethod
		next.ConsultationFee = old.ConsultationFee
		next.AmountPaid = old.AmountPaid
		next.PaymentID = old.PaymentID
		next.PaymentReference = old.PaymentReference
	}

	previous := old.Status
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.releaseSlot(ctx, old); err != nil {
			return err
		}
		old.Status = models.StatusRescheduled
		old.CancellationReason = models.CancelRescheduled
		old.CancelledByID = &userID
		old.CancelledAt = &now
		old.RescheduledToID = &next.ID
		if err := s.repo.SaveAppointment(ctx, old); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}

		number, err := s.NewNumber(ctx)
		if err != nil {
			return err
		}
		next.AppointmentNumber = number
		if paid {
			if err := s.reserve(ctx, next); err != nil {
				return err
			}
		}
		if err := s.repo.CreateAppointment(ctx, next); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		if err := s.logTransition(ctx, old, previous, userID, "Rescheduled to "+next.AppointmentNumber); err != nil {
			return err
		}
		return s.logTransition(ctx, next, "", userID, "Rescheduled from "+old.AppointmentNumber)
	})
	if err != nil {
		return nil, err
	}

	next.Doctor = old.Doctor
	next.FamilyMember = old.FamilyMember
	next.User = old.User
	s.notifyRescheduled(old, next)
	return next, nil
}

func (s *Service) loadForDoctor(ctx context.Context, doctorUserID, id string) (*models.Appointment, error) {
	return s.load(ctx, Actor{UserID: doctorUserID, Role: models.RoleDoctor}, id)
}

// StartConsultation records when the doctor began a confirmed appointment.
func (s *Service) StartConsultation(ctx context.Context, doctorUserID, id string) (*models.Appointment, error) {
	a, err := s.loadForDoctor(ctx, doctorUserID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusConfirmed {
		return nil, ErrNotConfirmed
	}

	now := s.now()
	a.ConsultationStartedAt = &now
	if err := s.repo.SaveAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkCompleted closes a confirmed appointment and counts it towards the
// doctor's totals.
func (s *Service) MarkCompleted(ctx context.Context, doctorUserID, id string) (*models.Appointment, error) {
	a, err := s.loadForDoctor(ctx, doctorUserID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusConfirmed {
		return nil, ErrNotConfirmed
	}

	now := s.now()
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		a.Status = models.StatusCompleted
		a.ConsultationEndedAt = &now
		if err := s.repo.SaveAppointment(ctx, a); err != nil {
			return err
		}
		if err := s.repo.IncrementDoctorAppointments(ctx, a.DoctorID); err != nil {
			return fmt.Errorf("update doctor totals: %w", err)
		}
		return s.logTransition(ctx, a, models.StatusConfirmed, doctorUserID, "Consultation completed")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// MarkNoShow records that the patient did not attend a confirmed
// appointment. It is only allowed once the appointment has started.
func (s *Service) MarkNoShow(ctx context.Context, doctorUserID, id string) (*models.Appointment, error) {
	a, err := s.loadForDoctor(ctx, doctorUserID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	if s.now().Before(a.ScheduledStart) {
		return nil, ErrTooEarly
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		a.Status = models.StatusNoShow
		if err := s.repo.SaveAppointment(ctx, a); err != nil {
			return err
		}
		return s.logTransition(ctx, a, models.StatusConfirmed, doctorUserID, "Patient did not attend")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NotesInput updates the clinical fields a doctor owns. Nil fields are left
// unchanged.
type NotesInput struct {
	DoctorNotes  *string    `json:"doctorNotes"`
	Prescription *string    `json:"prescription"`
	FollowUp     *bool      `json:"followUp"`
	FollowUpDate *time.Time `json:"followUpDate"`
}

func (s *Service) UpdateDoctorNotes(ctx context.Context, doctorUserID, id string, in NotesInput) (*models.Appointment, error) {
	a, err := s.loadForDoctor(ctx, doctorUserID, id)
	if err != nil {
		return nil, err
	}

	if in.DoctorNotes != nil {
		a.DoctorNotes = *in.DoctorNotes
	}
	if in.Prescription != nil {
		a.Prescription = *in.Prescription
	}
	if in.FollowUp != nil {
		a.FollowUp = *in.FollowUp
		if !a.FollowUp {
			a.FollowUpDate = nil
		}
	}
	if in.FollowUpDate != nil {
		a.FollowUpDate = in.FollowUpDate
		a.FollowUp = true
	}

	if err := s.repo.SaveAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

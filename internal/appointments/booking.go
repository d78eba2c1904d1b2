package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

// BookInput is a patient's request for a slot.
type BookInput struct {
	TimeSlotID       string                  `json:"timeSlotId" binding:"required"`
	FamilyMemberID   string                  `json:"familyMemberId"`
	ConsultationType models.ConsultationType `json:"consultationType"`
	Symptoms         string                  `json:"symptoms"`
	PatientNotes     string                  `json:"patientNotes"`
}

// checkBookable loads a slot and verifies that it can take a new booking.
func (s *Service) checkBookable(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}

	if slot.Status != models.SlotStatusAvailable {
		return nil, ErrSlotUnavailable
	}
	held, err := s.repo.HasActiveAppointmentForSlot(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, ErrSlotUnavailable
	}
	if slot.IsPast(s.now()) {
		return nil, ErrSlotInPast
	}
	return slot, nil
}

func consultationTypeFor(slot *models.TimeSlot, requested models.ConsultationType) (models.ConsultationType, error) {
	if requested == "" {
		requested = models.ConsultationInClinic
		if slot.Mode == models.SlotModeOnline {
			requested = models.ConsultationOnline
		}
	}
	switch {
	case requested != models.ConsultationInClinic && requested != models.ConsultationOnline:
		return "", ErrConsultationType
	case slot.Mode == models.SlotModeBoth:
	case string(slot.Mode) != string(requested):
		return "", ErrConsultationType
	}
	return requested, nil
}

// Book creates a pending, unpaid appointment on an available slot for the
// requester or one of their family members. The slot stays available until
// the payment is confirmed.
func (s *Service) Book(ctx context.Context, userID string, in BookInput) (*models.Appointment, error) {
	slot, err := s.checkBookable(ctx, in.TimeSlotID)
	if err != nil {
		return nil, err
	}

	consultation, err := consultationTypeFor(slot, in.ConsultationType)
	if err != nil {
		return nil, err
	}

	owner, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}

	var member *models.FamilyMember
	if in.FamilyMemberID != "" {
		member, err = s.repo.FindActiveFamilyMember(ctx, userID, in.FamilyMemberID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFamilyMemberNotFound
		}
	} else {
		member, err = s.repo.EnsureSelfMember(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	if !member.IsProfileComplete(owner) {
		return nil, ErrIncompleteProfile
	}

	doctor, err := s.repo.GetDoctor(ctx, slot.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slotID := slot.ID
	appt := &models.Appointment{
		UserID:           userID,
		FamilyMemberID:   member.ID,
		DoctorID:         doctor.ID,
		TimeSlotID:       &slotID,
		ScheduledStart:   slot.StartsAt,
		ScheduledEnd:     slot.EndsAt,
		ConsultationType: consultation,
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentUnpaid,
		ConsultationFee:  slot.EffectiveFee(doctor),
		Symptoms:         in.Symptoms,
		PatientNotes:     in.PatientNotes,
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		number, err := s.NewNumber(ctx)
		if err != nil {
			return err
		}
		appt.AppointmentNumber = number

		if err := s.repo.CreateAppointment(ctx, appt); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return s.logTransition(ctx, appt, "", userID, "Appointment booked")
	})
	if err != nil {
		return nil, err
	}

	appt.Doctor = doctor
	appt.FamilyMember = member

	log.Ctx(ctx).Info().
		Str("appointment_id", appt.ID).
		Str("appointment_number", appt.AppointmentNumber).
		Str("slot_id", slotID).
		Msg("appointment booked")
	return appt, nil
}

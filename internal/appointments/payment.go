package appointments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/payments"
	"sarvsaathi-server/internal/store"
)

// PaymentInitiation is returned to the client after starting a payment.
// Free appointments are confirmed straight away and carry no approval URL.
type PaymentInitiation struct {
	AppointmentID string `json:"appointmentId"`
	PaymentID     string `json:"paymentId,omitempty"`
	ApprovalURL   string `json:"approvalUrl,omitempty"`
	Confirmed     bool   `json:"confirmed"`
}

func (s *Service) frontendURL(path, appointmentID string) string {
	base := strings.TrimRight(s.opts.FrontendURL, "/")
	return base + path + "?appointment_id=" + url.QueryEscape(appointmentID)
}

// reserve books the appointment's slot. Losing the race for the slot is
// reported as ErrSlotUnavailable.
func (s *Service) reserve(ctx context.Context, a *models.Appointment) error {
	if a.TimeSlotID == nil {
		return ErrSlotUnavailable
	}
	err := s.repo.TransitionSlot(ctx, *a.TimeSlotID, models.SlotStatusAvailable, models.SlotStatusBooked)
	if errors.Is(err, store.ErrStatusMismatch) {
		return ErrSlotUnavailable
	}
	return err
}

// InitiatePayment starts paying for a pending appointment. A zero fee
// confirms the appointment immediately.
func (s *Service) InitiatePayment(ctx context.Context, userID, id string) (*PaymentInitiation, error) {
	a, err := s.load(ctx, Actor{UserID: userID, Role: models.RolePatient}, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPending {
		return nil, ErrNotPending
	}

	if a.ConsultationFee.IsZero() {
		if err := s.confirm(ctx, a, userID, models.PaymentMethodFree, "", "Free consultation confirmed"); err != nil {
			return nil, err
		}
		return &PaymentInitiation{AppointmentID: a.ID, Confirmed: true}, nil
	}

	session, err := s.gateway.CreatePayment(ctx, payments.PaymentRequest{
		Amount:      a.ConsultationFee,
		Currency:    s.opts.Currency,
		Description: "Consultation with " + doctorName(a),
		SKU:         a.AppointmentNumber,
		ReturnURL:   s.frontendURL("/appointment/success", a.ID),
		CancelURL:   s.frontendURL("/appointment/cancel", a.ID),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("appointment_id", a.ID).Msg("payment creation failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	a.PaymentID = session.ID
	if err := s.repo.SaveAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("store payment id: %w", err)
	}

	return &PaymentInitiation{
		AppointmentID: a.ID,
		PaymentID:     session.ID,
		ApprovalURL:   session.ApprovalURL,
	}, nil
}

// ConfirmPayment captures an approved payment and confirms the appointment.
// Replaying the callback for an appointment already confirmed with the same
// payment id succeeds without touching the gateway.
func (s *Service) ConfirmPayment(ctx context.Context, userID, id, paymentID, payerID string) (*models.Appointment, error) {
	a, err := s.load(ctx, Actor{UserID: userID, Role: models.RolePatient}, id)
	if err != nil {
		return nil, err
	}

	if a.Status == models.StatusConfirmed && a.PaymentStatus == models.PaymentPaid && a.PaymentID == paymentID {
		return a, nil
	}
	if a.Status != models.StatusPending {
		return nil, ErrNotPending
	}
	if a.PaymentID == "" || a.PaymentID != paymentID {
		return nil, ErrPaymentMismatch
	}

	capture, err := s.gateway.CapturePayment(ctx, paymentID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("appointment_id", a.ID).
			Str("payment_id", paymentID).
			Str("payer_id", payerID).
			Msg("payment capture failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.confirm(ctx, a, userID, models.PaymentMethodPayPal, capture.ID, "Payment confirmed"); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			log.Ctx(ctx).Error().
				Str("appointment_id", a.ID).
				Str("capture_id", capture.ID).
				Msg("payment captured but slot was lost")
		}
		return nil, err
	}
	return a, nil
}

// confirm reserves the slot and marks a pending appointment confirmed and
// paid in one transaction, then notifies both parties.
func (s *Service) confirm(ctx context.Context, a *models.Appointment, actor string, method models.PaymentMethod, reference, note string) error {
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.reserve(ctx, a); err != nil {
			return err
		}

		a.Status = models.StatusConfirmed
		a.PaymentStatus = models.PaymentPaid
		a.PaymentMethod = method
		a.AmountPaid = a.ConsultationFee
		if reference != "" {
			a.PaymentReference = reference
		}
		if err := s.repo.SaveAppointment(ctx, a); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}
		return s.logTransition(ctx, a, models.StatusPending, actor, note)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("appointment_id", a.ID).
		Str("method", string(method)).
		Msg("appointment confirmed")
	s.notifyConfirmed(a)
	return nil
}

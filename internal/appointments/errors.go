package appointments

import "errors"

var (
	ErrNotFound              = errors.New("appointment not found")
	ErrSlotNotFound          = errors.New("time slot not found")
	ErrSlotUnavailable       = errors.New("time slot is no longer available")
	ErrSlotInPast            = errors.New("time slot has already started")
	ErrSlotOtherDoctor       = errors.New("time slot belongs to a different doctor")
	ErrFamilyMemberNotFound  = errors.New("family member not found")
	ErrIncompleteProfile     = errors.New("patient profile is incomplete: a name and phone number are required")
	ErrConsultationType      = errors.New("consultation type is not offered in this slot")
	ErrNotPending            = errors.New("only pending appointments can be paid")
	ErrPaymentMismatch       = errors.New("payment id does not match the appointment")
	ErrGateway               = errors.New("payment could not be processed")
	ErrNotCancellable        = errors.New("appointment can no longer be cancelled")
	ErrNotReschedulable      = errors.New("only pending or confirmed appointments can be rescheduled")
	ErrInvalidReason         = errors.New("unknown cancellation reason")
	ErrNotConfirmed          = errors.New("only confirmed appointments can be updated this way")
	ErrTooEarly              = errors.New("appointment has not started yet")
	ErrDoctorNotFound        = errors.New("doctor profile not found")
	ErrPredictionUnavailable = errors.New("no-show prediction is unavailable")
)

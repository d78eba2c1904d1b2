package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus enum
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCheckedIn   AppointmentStatus = "checked_in"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// AllAppointmentStatuses lists every status, in lifecycle order.
var AllAppointmentStatuses = []AppointmentStatus{
	StatusPending, StatusConfirmed, StatusCheckedIn, StatusInProgress,
	StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled,
}

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// PaymentMethod enum
type PaymentMethod string

const (
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodFree   PaymentMethod = "free"
)

// CancellationReason enum
type CancellationReason string

const (
	CancelPatientRequest    CancellationReason = "patient_request"
	CancelDoctorUnavailable CancellationReason = "doctor_unavailable"
	CancelEmergency         CancellationReason = "emergency"
	CancelRescheduled       CancellationReason = "rescheduled"
	CancelOther             CancellationReason = "other"
)

// ConsultationType is how the patient chose to attend.
type ConsultationType string

const (
	ConsultationInClinic ConsultationType = "in_clinic"
	ConsultationOnline   ConsultationType = "online"
)

// Appointment links a requester and one of their family members to a
// doctor's time slot. TimeSlotID is cleared once the appointment gives the
// slot back, so at most one appointment holds a slot at a time.
type Appointment struct {
	BaseModel
	AppointmentNumber string            `gorm:"size:20;uniqueIndex;not null" json:"appointmentNumber"`
	UserID            string            `gorm:"size:36;index;not null" json:"userId"`
	FamilyMemberID    string            `gorm:"size:36;index;not null" json:"familyMemberId"`
	DoctorID          string            `gorm:"size:36;index;not null" json:"doctorId"`
	TimeSlotID        *string           `gorm:"size:36;uniqueIndex" json:"timeSlotId,omitempty"`
	ScheduledStart    time.Time         `gorm:"not null;index" json:"scheduledStart"`
	ScheduledEnd      time.Time         `gorm:"not null" json:"scheduledEnd"`
	ConsultationType  ConsultationType  `gorm:"size:20;not null" json:"consultationType"`
	Status            AppointmentStatus `gorm:"size:20;not null;index" json:"status"`
	IsEmergency       bool              `json:"isEmergency"`

	PaymentStatus    PaymentStatus   `gorm:"size:20;not null" json:"paymentStatus"`
	PaymentMethod    PaymentMethod   `gorm:"size:20" json:"paymentMethod,omitempty"`
	ConsultationFee  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"consultationFee"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"amountPaid"`
	PaymentID        string          `gorm:"size:100;index" json:"-"`
	PaymentReference string          `gorm:"size:100" json:"paymentReference,omitempty"`

	Symptoms     string     `gorm:"type:text" json:"symptoms,omitempty"`
	PatientNotes string     `gorm:"type:text" json:"patientNotes,omitempty"`
	DoctorNotes  string     `gorm:"type:text" json:"doctorNotes,omitempty"`
	Prescription string     `gorm:"type:text" json:"prescription,omitempty"`
	FollowUp     bool       `json:"followUp"`
	FollowUpDate *time.Time `gorm:"type:date" json:"followUpDate,omitempty"`

	CancellationReason CancellationReason `gorm:"size:30" json:"cancellationReason,omitempty"`
	CancellationNotes  string             `gorm:"type:text" json:"cancellationNotes,omitempty"`
	CancelledByID      *string            `gorm:"size:36" json:"cancelledById,omitempty"`
	CancelledAt        *time.Time         `json:"cancelledAt,omitempty"`
	RescheduledToID    *string            `gorm:"size:36" json:"rescheduledToId,omitempty"`

	CheckedInAt           *time.Time `json:"checkedInAt,omitempty"`
	ConsultationStartedAt *time.Time `json:"consultationStartedAt,omitempty"`
	ConsultationEndedAt   *time.Time `json:"consultationEndedAt,omitempty"`
	VideoCallLink         string     `gorm:"size:500" json:"videoCallLink,omitempty"`
	ReminderSent          bool       `json:"reminderSent"`
	ReminderSentAt        *time.Time `json:"reminderSentAt,omitempty"`

	User         *User          `gorm:"foreignKey:UserID" json:"-"`
	FamilyMember *FamilyMember  `gorm:"foreignKey:FamilyMemberID" json:"familyMember,omitempty"`
	Doctor       *DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	TimeSlot     *TimeSlot      `gorm:"foreignKey:TimeSlotID" json:"-"`
}

// IsTerminal reports whether no further transitions are possible.
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case StatusCancelled, StatusCompleted, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// CanCancel reports whether the appointment may still be cancelled at now
// given the minimum lead time before the scheduled start.
func (a *Appointment) CanCancel(now time.Time, lead time.Duration) bool {
	if a.IsTerminal() {
		return false
	}
	return a.ScheduledStart.Sub(now) > lead
}

// AppointmentStatusLog is an append-only record of one status transition.
type AppointmentStatusLog struct {
	ID            string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AppointmentID string            `gorm:"size:36;index;not null" json:"appointmentId"`
	FromStatus    AppointmentStatus `gorm:"size:20" json:"fromStatus"`
	ToStatus      AppointmentStatus `gorm:"size:20;not null" json:"toStatus"`
	ChangedByID   *string           `gorm:"size:36" json:"changedById,omitempty"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func (l *AppointmentStatusLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps the log insert-only.
func (l *AppointmentStatusLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// BeforeDelete keeps the log insert-only.
func (l *AppointmentStatusLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// NewStatusLog records a transition of a made by actor.
func NewStatusLog(a *Appointment, from AppointmentStatus, actor string, notes string) *AppointmentStatusLog {
	var changedBy *string
	if actor != "" {
		changedBy = &actor
	}
	return &AppointmentStatusLog{
		AppointmentID: a.ID,
		FromStatus:    from,
		ToStatus:      a.Status,
		ChangedByID:   changedBy,
		Notes:         notes,
	}
}

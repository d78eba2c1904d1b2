package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlotMode is how a consultation in the slot takes place.
type SlotMode string

const (
	SlotModeInClinic SlotMode = "in_clinic"
	SlotModeOnline   SlotMode = "online"
	SlotModeBoth     SlotMode = "both"
)

// SlotStatus enum
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusBlocked   SlotStatus = "blocked"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// TimeSlot is one bookable window of a doctor's calendar. A doctor cannot
// have two slots starting at the same instant.
type TimeSlot struct {
	BaseModel
	DoctorID string              `gorm:"size:36;not null;uniqueIndex:idx_slot_doctor_start,priority:1" json:"doctorId"`
	StartsAt time.Time           `gorm:"not null;uniqueIndex:idx_slot_doctor_start,priority:2" json:"startsAt"`
	EndsAt   time.Time           `gorm:"not null" json:"endsAt"`
	Mode     SlotMode            `gorm:"size:20;not null" json:"mode"`
	Status   SlotStatus          `gorm:"size:20;not null;index" json:"status"`
	Fee      decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"fee"`

	Doctor *DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// IsPast reports whether the slot has already started at now.
func (s *TimeSlot) IsPast(now time.Time) bool {
	return !s.StartsAt.After(now)
}

// Overlaps reports whether [start, end) intersects the slot window.
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndsAt) && end.After(s.StartsAt)
}

// EffectiveFee is the price of booking the slot: the slot's own fee when set,
// otherwise the doctor's default for the slot mode.
func (s *TimeSlot) EffectiveFee(doctor *DoctorProfile) decimal.Decimal {
	if s.Fee.Valid {
		return s.Fee.Decimal
	}
	if doctor == nil {
		return decimal.Zero
	}
	return doctor.DefaultFee(s.Mode)
}

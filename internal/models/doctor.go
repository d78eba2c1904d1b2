package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DoctorProfile holds the professional, clinic and fee details of a doctor
// account. Appointments, slots and reviews reference the profile ID.
type DoctorProfile struct {
	BaseModel
	UserID          string     `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialty       string     `gorm:"size:100;index" json:"specialty"`
	SubSpecialty    string     `gorm:"size:100" json:"subSpecialty,omitempty"`
	LicenseNumber   string     `gorm:"size:50" json:"licenseNumber,omitempty"`
	LicenseExpiry   *time.Time `gorm:"type:date" json:"licenseExpiry,omitempty"`
	ExperienceYears int        `json:"experienceYears"`
	Qualification   string     `gorm:"size:255" json:"qualification,omitempty"`
	Bio             string     `gorm:"type:text" json:"bio,omitempty"`
	Languages       string     `gorm:"size:255" json:"languages,omitempty"`

	ClinicName      string   `gorm:"size:200" json:"clinicName,omitempty"`
	ClinicAddress   string   `gorm:"type:text" json:"clinicAddress,omitempty"`
	ClinicLatitude  *float64 `json:"clinicLatitude,omitempty"`
	ClinicLongitude *float64 `json:"clinicLongitude,omitempty"`
	ClinicPhone     string   `gorm:"size:20" json:"clinicPhone,omitempty"`

	ConsultationFee         decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"consultationFee"`
	OnlineConsultationFee   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"onlineConsultationFee"`
	ConsultationDuration    int                 `gorm:"not null;default:15" json:"consultationDuration"`
	IsAvailableForEmergency bool                `json:"isAvailableForEmergency"`
	IsAcceptingPatients     bool                `json:"isAcceptingPatients"`

	IsVerified bool       `gorm:"index" json:"isVerified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`

	TotalAppointments int             `gorm:"not null;default:0" json:"totalAppointments"`
	TotalReviews      int             `gorm:"not null;default:0" json:"totalReviews"`
	AverageRating     decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0" json:"averageRating"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// DisplayName renders the doctor's name for messages and line items.
func (d *DoctorProfile) DisplayName() string {
	if d.User == nil {
		return "Doctor"
	}
	return "Dr. " + d.User.FullName()
}

// HasClinicLocation reports whether both clinic coordinates are known.
func (d *DoctorProfile) HasClinicLocation() bool {
	return d.ClinicLatitude != nil && d.ClinicLongitude != nil
}

// DefaultFee is the doctor's fee for the given slot mode. Online slots use the
// online fee when one is set.
func (d *DoctorProfile) DefaultFee(mode SlotMode) decimal.Decimal {
	if mode == SlotModeOnline && d.OnlineConsultationFee.Valid {
		return d.OnlineConsultationFee.Decimal
	}
	return d.ConsultationFee
}

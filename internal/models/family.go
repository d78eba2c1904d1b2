package models

import (
	"errors"
	"strings"
	"time"
)

// Relationship of a family member to the account owner.
type Relationship string

const (
	RelationshipSelf    Relationship = "self"
	RelationshipSpouse  Relationship = "spouse"
	RelationshipChild   Relationship = "child"
	RelationshipParent  Relationship = "parent"
	RelationshipSibling Relationship = "sibling"
	RelationshipOther   Relationship = "other"
)

// MinimumSelfAge is the youngest an account owner may be.
const MinimumSelfAge = 18

// ErrSelfUnderage is returned when a self record has a date of birth less
// than MinimumSelfAge years ago.
var ErrSelfUnderage = errors.New("self profile must be at least 18 years old")

// FamilyMember is a person an account books appointments for. Every user has
// one active "self" member representing themselves.
type FamilyMember struct {
	BaseModel
	UserID            string       `gorm:"size:36;index;not null" json:"userId"`
	FirstName         string       `gorm:"size:100;not null" json:"firstName"`
	LastName          string       `gorm:"size:100" json:"lastName,omitempty"`
	Relationship      Relationship `gorm:"size:20;not null" json:"relationship"`
	Gender            string       `gorm:"size:10" json:"gender,omitempty"`
	DateOfBirth       *time.Time   `gorm:"type:date" json:"dateOfBirth,omitempty"`
	Phone             string       `gorm:"size:20" json:"phone,omitempty"`
	Email             string       `gorm:"size:255" json:"email,omitempty"`
	BloodGroup        string       `gorm:"size:5" json:"bloodGroup,omitempty"`
	Allergies         string       `gorm:"type:text" json:"allergies,omitempty"`
	ChronicConditions string       `gorm:"type:text" json:"chronicConditions,omitempty"`
	IsActive          bool         `gorm:"index" json:"isActive"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// FullName joins first and last name.
func (m *FamilyMember) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// ContactPhone prefers the member's own phone and falls back to the owner's.
func (m *FamilyMember) ContactPhone(owner *User) string {
	if strings.TrimSpace(m.Phone) != "" {
		return m.Phone
	}
	if owner != nil {
		return owner.Phone
	}
	return ""
}

// IsProfileComplete reports whether the member has a name and a reachable
// phone number, either their own or the owner's.
func (m *FamilyMember) IsProfileComplete(owner *User) bool {
	return strings.TrimSpace(m.FirstName) != "" && strings.TrimSpace(m.ContactPhone(owner)) != ""
}

// Age returns the member's age at now, or -1 when the date of birth is unknown.
func (m *FamilyMember) Age(now time.Time) int {
	if m.DateOfBirth == nil {
		return -1
	}
	return AgeAt(*m.DateOfBirth, now)
}

// Validate checks the age rule for self records.
func (m *FamilyMember) Validate(now time.Time) error {
	if m.Relationship == RelationshipSelf && m.DateOfBirth != nil && AgeAt(*m.DateOfBirth, now) < MinimumSelfAge {
		return ErrSelfUnderage
	}
	return nil
}

// NewSelfMember builds the self record for u from the account details.
func NewSelfMember(u *User) *FamilyMember {
	first := strings.TrimSpace(u.FirstName)
	if first == "" {
		first = "Self"
	}
	return &FamilyMember{
		UserID:       u.ID,
		FirstName:    first,
		LastName:     u.LastName,
		Relationship: RelationshipSelf,
		DateOfBirth:  u.DateOfBirth,
		Phone:        u.Phone,
		Email:        u.Email,
		IsActive:     true,
	}
}

// EmergencyContact is someone alerted when the user triggers an SOS.
type EmergencyContact struct {
	BaseModel
	UserID       string `gorm:"size:36;index;not null" json:"userId"`
	Name         string `gorm:"size:100;not null" json:"name"`
	Phone        string `gorm:"size:20;not null" json:"phone"`
	Relationship string `gorm:"size:50" json:"relationship,omitempty"`
	Email        string `gorm:"size:255" json:"email,omitempty"`
	IsPrimary    bool   `json:"isPrimary"`
}

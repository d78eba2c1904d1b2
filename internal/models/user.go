package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// User represents an account holder, either a patient or a doctor.
type User struct {
	BaseModel
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName       string     `gorm:"size:100" json:"firstName"`
	LastName        string     `gorm:"size:100" json:"lastName"`
	Phone           string     `gorm:"size:20" json:"phone,omitempty"`
	DateOfBirth     *time.Time `gorm:"type:date" json:"dateOfBirth,omitempty"`
	Role            Role       `gorm:"size:20;not null;index" json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsPhoneVerified bool       `json:"isPhoneVerified"`
	IsActive        bool       `json:"isActive"`

	Profile       *UserProfile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	DoctorProfile *DoctorProfile `gorm:"foreignKey:UserID" json:"-"`
}

// UserProfile holds the optional personal details of a user.
type UserProfile struct {
	BaseModel
	UserID             string   `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Gender             string   `gorm:"size:10" json:"gender,omitempty"`
	BloodGroup         string   `gorm:"size:5" json:"bloodGroup,omitempty"`
	AddressLine1       string   `gorm:"size:255" json:"addressLine1,omitempty"`
	AddressLine2       string   `gorm:"size:255" json:"addressLine2,omitempty"`
	City               string   `gorm:"size:100" json:"city,omitempty"`
	State              string   `gorm:"size:100" json:"state,omitempty"`
	Pincode            string   `gorm:"size:10" json:"pincode,omitempty"`
	Country            string   `gorm:"size:100" json:"country,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	AvatarURL          string   `gorm:"size:500" json:"avatarUrl,omitempty"`
	EmailNotifications bool     `json:"emailNotifications"`
	SMSNotifications   bool     `json:"smsNotifications"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID                string       `json:"id"`
	Email             string       `json:"email"`
	FirstName         string       `json:"firstName"`
	LastName          string       `json:"lastName"`
	Phone             string       `json:"phone,omitempty"`
	DateOfBirth       *time.Time   `json:"dateOfBirth,omitempty"`
	Role              Role         `json:"role"`
	IsEmailVerified   bool         `json:"isEmailVerified"`
	IsProfileComplete bool         `json:"isProfileComplete"`
	Profile           *UserProfile `json:"profile,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// FullName joins first and last name, skipping blanks.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsProfileComplete reports whether the account has the minimum fields
// required to book for itself.
func (u *User) IsProfileComplete() bool {
	return strings.TrimSpace(u.FirstName) != "" && strings.TrimSpace(u.Phone) != ""
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Phone:             u.Phone,
		DateOfBirth:       u.DateOfBirth,
		Role:              u.Role,
		IsEmailVerified:   u.IsEmailVerified,
		IsProfileComplete: u.IsProfileComplete(),
		Profile:           u.Profile,
		CreatedAt:         u.CreatedAt,
	}
}

// AgeAt returns the completed years between dob and now.
func AgeAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

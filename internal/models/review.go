package models

import "time"

// Review is a patient's rating of a completed appointment.
type Review struct {
	BaseModel
	AppointmentID      string     `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	UserID             string     `gorm:"size:36;index;not null" json:"userId"`
	DoctorID           string     `gorm:"size:36;index;not null" json:"doctorId"`
	Rating             int        `gorm:"not null" json:"rating"`
	Title              string     `gorm:"size:200" json:"title,omitempty"`
	Comment            string     `gorm:"type:text" json:"comment,omitempty"`
	WaitTimeRating     *int       `json:"waitTimeRating,omitempty"`
	BedsideMannerScore *int       `json:"bedsideMannerRating,omitempty"`
	IsVerified         bool       `json:"isVerified"`
	IsVisible          bool       `gorm:"index" json:"isVisible"`
	DoctorResponse     string     `gorm:"type:text" json:"doctorResponse,omitempty"`
	RespondedAt        *time.Time `json:"respondedAt,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// FavoriteDoctor marks a doctor as saved by a user.
type FavoriteDoctor struct {
	BaseModel
	UserID   string `gorm:"size:36;not null;uniqueIndex:idx_favorite_user_doctor,priority:1" json:"userId"`
	DoctorID string `gorm:"size:36;not null;uniqueIndex:idx_favorite_user_doctor,priority:2" json:"doctorId"`

	Doctor *DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

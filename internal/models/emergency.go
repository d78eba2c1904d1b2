package models

// TriageCategory is the coarse symptom class chosen by a patient in crisis.
type TriageCategory string

const (
	TriageChestPain TriageCategory = "CHEST_PAIN"
	TriageBreathing TriageCategory = "BREATHING"
	TriageInjury    TriageCategory = "INJURY"
	TriageBleeding  TriageCategory = "BLEEDING"
	TriageOther     TriageCategory = "OTHER"
)

// EmergencyStatus enum
type EmergencyStatus string

const (
	EmergencySearching EmergencyStatus = "searching"
	EmergencyRequested EmergencyStatus = "requested"
	EmergencyAccepted  EmergencyStatus = "accepted"
	EmergencyCancelled EmergencyStatus = "cancelled"
)

// EmergencyRequest logs one triage session from search to accepted doctor.
type EmergencyRequest struct {
	BaseModel
	UserID         string          `gorm:"size:36;index;not null" json:"userId"`
	FamilyMemberID string          `gorm:"size:36;not null" json:"familyMemberId"`
	Category       TriageCategory  `gorm:"size:20;not null" json:"category"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Status         EmergencyStatus `gorm:"size:20;not null;index" json:"status"`
	DoctorID       *string         `gorm:"size:36" json:"doctorId,omitempty"`
	AppointmentID  *string         `gorm:"size:36" json:"appointmentId,omitempty"`
}

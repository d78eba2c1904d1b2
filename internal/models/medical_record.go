package models

import "time"

// RecordType enum
type RecordType string

const (
	RecordPrescription     RecordType = "prescription"
	RecordLabReport        RecordType = "lab_report"
	RecordImaging          RecordType = "imaging"
	RecordDischargeSummary RecordType = "discharge_summary"
	RecordVaccination      RecordType = "vaccination"
	RecordOther            RecordType = "other"
)

// MedicalRecord is a document a user keeps for themselves or a family member.
// The file itself lives in object storage; only its URL is stored.
type MedicalRecord struct {
	BaseModel
	UserID         string     `gorm:"size:36;index;not null" json:"userId"`
	FamilyMemberID *string    `gorm:"size:36;index" json:"familyMemberId,omitempty"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	RecordType     RecordType `gorm:"size:30;not null" json:"recordType"`
	Description    string     `gorm:"type:text" json:"description,omitempty"`
	RecordDate     time.Time  `gorm:"type:date" json:"recordDate"`
	FileURL        string     `gorm:"size:500" json:"fileUrl,omitempty"`
	FilePublicID   string     `gorm:"size:255" json:"-"`
	FileName       string     `gorm:"size:255" json:"fileName,omitempty"`
	DoctorName     string     `gorm:"size:100" json:"doctorName,omitempty"`
	HospitalName   string     `gorm:"size:200" json:"hospitalName,omitempty"`

	FamilyMember *FamilyMember `gorm:"foreignKey:FamilyMemberID" json:"familyMember,omitempty"`
}

package emergency

import (
	"math"
	"sort"

	"sarvsaathi-server/internal/models"
)

const (
	earthRadiusKm  = 6371
	maxSpecialists = 3
)

var triageSpecialty = map[models.TriageCategory]string{
	models.TriageChestPain: "Cardiology",
	models.TriageBreathing: "Pulmonology",
	models.TriageInjury:    "Orthopedics",
	models.TriageBleeding:  "General Surgery",
	models.TriageOther:     "General Physician",
}

// SpecialtyFor maps a triage category to the specialty that handles it.
// Unknown categories go to a general physician.
func SpecialtyFor(c models.TriageCategory) string {
	if s, ok := triageSpecialty[c]; ok {
		return s
	}
	return triageSpecialty[models.TriageOther]
}

// ValidCategory reports whether c is one of the triage categories.
func ValidCategory(c models.TriageCategory) bool {
	_, ok := triageSpecialty[c]
	return ok
}

// Haversine returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusKm
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Specialist is a doctor offered to a patient with their distance.
type Specialist struct {
	DoctorID   string  `json:"doctorId"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	ClinicName string  `json:"clinicName,omitempty"`
	Address    string  `json:"address,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distanceKm"`
}

// nearest ranks doctors with a clinic location by distance from the patient
// and keeps the closest few.
func nearest(doctors []models.DoctorProfile, lat, lng float64) []Specialist {
	out := make([]Specialist, 0, len(doctors))
	for i := range doctors {
		d := &doctors[i]
		if !d.HasClinicLocation() {
			continue
		}
		out = append(out, Specialist{
			DoctorID:   d.ID,
			Name:       d.DisplayName(),
			Specialty:  d.Specialty,
			ClinicName: d.ClinicName,
			Address:    d.ClinicAddress,
			Phone:      d.ClinicPhone,
			Latitude:   *d.ClinicLatitude,
			Longitude:  *d.ClinicLongitude,
			DistanceKm: round2(Haversine(lat, lng, *d.ClinicLatitude, *d.ClinicLongitude)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	if len(out) > maxSpecialists {
		out = out[:maxSpecialists]
	}
	return out
}

package emergency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
	"sarvsaathi-server/internal/store"
)

var errBoom = errors.New("boom")

type fakeRepo struct {
	users    map[string]*models.User
	doctors  map[string]*models.DoctorProfile
	self     map[string]*models.FamilyMember
	contacts map[string][]models.EmergencyContact
	requests map[string]*models.EmergencyRequest

	slots []*models.TimeSlot
	appts []*models.Appointment
	logs  []*models.AppointmentStatusLog

	searchedSpecialty string
	acceptErr         error
}

func (f *fakeRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error) {
	if m, ok := f.self[userID]; ok {
		return m, nil
	}
	m := models.NewSelfMember(f.users[userID])
	m.ID = "self-" + userID
	f.self[userID] = m
	return m, nil
}

func (f *fakeRepo) GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) FindEmergencyCandidates(ctx context.Context, specialty string) ([]models.DoctorProfile, error) {
	f.searchedSpecialty = specialty
	var out []models.DoctorProfile
	for _, d := range f.doctors {
		if d.IsVerified && strings.EqualFold(d.Specialty, specialty) && d.HasClinicLocation() {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	return f.contacts[userID], nil
}

func (f *fakeRepo) CreateEmergencyRequest(ctx context.Context, r *models.EmergencyRequest) error {
	r.ID = fmt.Sprintf("log-%d", len(f.requests)+1)
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRepo) GetEmergencyRequest(ctx context.Context, id, userID string) (*models.EmergencyRequest, error) {
	r, ok := f.requests[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) AcceptEmergencyRequest(ctx context.Context, id, doctorID, appointmentID string) error {
	if f.acceptErr != nil {
		return f.acceptErr
	}
	r := f.requests[id]
	if r.Status != models.EmergencySearching {
		return store.ErrStatusMismatch
	}
	r.Status = models.EmergencyAccepted
	r.DoctorID = &doctorID
	r.AppointmentID = &appointmentID
	return nil
}

func (f *fakeRepo) CancelEmergencyRequest(ctx context.Context, id string) error {
	r := f.requests[id]
	if r.Status != models.EmergencySearching {
		return store.ErrStatusMismatch
	}
	r.Status = models.EmergencyCancelled
	return nil
}

func (f *fakeRepo) CreateSlot(ctx context.Context, slot *models.TimeSlot) error {
	f.slots = append(f.slots, slot)
	return nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	f.appts = append(f.appts, a)
	return nil
}

func (f *fakeRepo) CreateStatusLog(ctx context.Context, l *models.AppointmentStatusLog) error {
	f.logs = append(f.logs, l)
	return nil
}

type fixedNumbers struct{}

func (fixedNumbers) NewNumber(ctx context.Context) (string, error) {
	return "APT202506010001", nil
}

type fakeNotifier struct {
	sent []notify.Message
}

func (n *fakeNotifier) Send(msg notify.Message) {
	n.sent = append(n.sent, msg)
}

type fakeDeliverer struct {
	mu       sync.Mutex
	failFor  map[string]bool
	received []notify.Message
}

func (d *fakeDeliverer) Deliver(ctx context.Context, msg notify.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, msg)
	if d.failFor[msg.Phone] {
		return errBoom
	}
	return nil
}

func coord(v float64) *float64 { return &v }

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	notifier  *fakeNotifier
	deliverer *fakeDeliverer
}

func doctorAt(id, specialty string, lat, lng float64, verified bool) *models.DoctorProfile {
	return &models.DoctorProfile{
		BaseModel:       models.BaseModel{ID: id},
		UserID:          "user-" + id,
		Specialty:       specialty,
		ClinicAddress:   "Clinic " + id,
		ClinicPhone:     "+91110000" + id,
		ClinicLatitude:  coord(lat),
		ClinicLongitude: coord(lng),
		IsVerified:      verified,
		User: &models.User{
			BaseModel: models.BaseModel{ID: "user-" + id},
			FirstName: strings.ToUpper(id[:1]) + id[1:],
			LastName:  "Doc",
			Email:     id + "@example.com",
			Phone:     "+9198000" + id,
		},
	}
}

func newFixture() *fixture {
	repo := &fakeRepo{
		users: map[string]*models.User{
			"user-1": {BaseModel: models.BaseModel{ID: "user-1"}, FirstName: "Priya", LastName: "Sharma", Phone: "+919800000001", Email: "priya@example.com"},
		},
		doctors: map[string]*models.DoctorProfile{
			"near":    doctorAt("near", "Cardiology", 28.6139, 77.2090, true),
			"mid":     doctorAt("mid", "cardiology", 28.7041, 77.1025, true),
			"far":     doctorAt("far", "Cardiology", 19.0760, 72.8777, true),
			"farther": doctorAt("farther", "Cardiology", 13.0827, 80.2707, true),
			"unver":   doctorAt("unver", "Cardiology", 28.6140, 77.2091, false),
			"ortho":   doctorAt("ortho", "Orthopedics", 28.6139, 77.2090, true),
		},
		self:     map[string]*models.FamilyMember{},
		contacts: map[string][]models.EmergencyContact{},
		requests: map[string]*models.EmergencyRequest{},
	}
	n := &fakeNotifier{}
	d := &fakeDeliverer{failFor: map[string]bool{}}
	svc := NewService(repo, fixedNumbers{}, n, d, Options{SOSWorkers: 2})
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, repo: repo, notifier: n, deliverer: d}
}

func TestSpecialtyFor(t *testing.T) {
	tests := []struct {
		category models.TriageCategory
		want     string
	}{
		{models.TriageChestPain, "Cardiology"},
		{models.TriageBreathing, "Pulmonology"},
		{models.TriageInjury, "Orthopedics"},
		{models.TriageBleeding, "General Surgery"},
		{models.TriageOther, "General Physician"},
		{"HEADACHE", "General Physician"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SpecialtyFor(tt.category), string(tt.category))
	}
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(28.6, 77.2, 28.6, 77.2), 1e-9)
	// Delhi to Mumbai.
	assert.InDelta(t, 1148, Haversine(28.6139, 77.2090, 19.0760, 72.8777), 5)
	assert.Equal(t, 12.35, round2(12.3456))
}

func TestFindSpecialists(t *testing.T) {
	fx := newFixture()

	res, err := fx.svc.FindSpecialists(context.Background(), "user-1", SearchInput{
		Latitude:  coord(28.6139),
		Longitude: coord(77.2090),
		Category:  models.TriageChestPain,
		Notes:     "pain in left arm",
	})
	require.NoError(t, err)

	assert.Equal(t, "Cardiology", fx.repo.searchedSpecialty)
	assert.Equal(t, "Cardiology", res.Specialty)
	require.Len(t, res.Specialists, 3)
	assert.Equal(t, "near", res.Specialists[0].DoctorID)
	assert.Equal(t, "mid", res.Specialists[1].DoctorID)
	assert.Equal(t, "far", res.Specialists[2].DoctorID)
	assert.Equal(t, 0.0, res.Specialists[0].DistanceKm)
	assert.Equal(t, "Dr. Near Doc", res.Specialists[0].Name)

	req := fx.repo.requests[res.LogID]
	require.NotNil(t, req)
	assert.Equal(t, models.EmergencySearching, req.Status)
	assert.Equal(t, "self-user-1", req.FamilyMemberID)
}

func TestFindSpecialistsNoneIsNotAnError(t *testing.T) {
	fx := newFixture()

	res, err := fx.svc.FindSpecialists(context.Background(), "user-1", SearchInput{
		Latitude:  coord(28.6),
		Longitude: coord(77.2),
		Category:  models.TriageBreathing,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Specialists)
	assert.NotEmpty(t, res.LogID)
}

func TestFindSpecialistsValidation(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.FindSpecialists(context.Background(), "user-1", SearchInput{Category: models.TriageInjury})
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = fx.svc.FindSpecialists(context.Background(), "user-1", SearchInput{
		Latitude: coord(1), Longitude: coord(1), Category: "HEADACHE",
	})
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Empty(t, fx.repo.requests)
}

func search(t *testing.T, fx *fixture) string {
	t.Helper()
	res, err := fx.svc.FindSpecialists(context.Background(), "user-1", SearchInput{
		Latitude:  coord(28.6139),
		Longitude: coord(77.2090),
		Category:  models.TriageChestPain,
		Notes:     "pain in left arm",
	})
	require.NoError(t, err)
	return res.LogID
}

func TestRequestDoctor(t *testing.T) {
	fx := newFixture()
	logID := search(t, fx)

	out, err := fx.svc.RequestDoctor(context.Background(), "user-1", logID, "near")
	require.NoError(t, err)

	assert.Equal(t, "Dr. Near Doc", out.DoctorName)
	assert.Equal(t, "Clinic near", out.ClinicAddress)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=28.6139,77.209", out.DirectionsURL)
	assert.Equal(t, "APT202506010001", out.AppointmentNumber)

	require.Len(t, fx.repo.slots, 1)
	slot := fx.repo.slots[0]
	assert.Equal(t, models.SlotStatusBooked, slot.Status)
	assert.Equal(t, testNow, slot.StartsAt)
	assert.Equal(t, 30*time.Minute, slot.EndsAt.Sub(slot.StartsAt))

	require.Len(t, fx.repo.appts, 1)
	appt := fx.repo.appts[0]
	assert.Equal(t, out.AppointmentID, appt.ID)
	assert.Equal(t, slot.ID, *appt.TimeSlotID)
	assert.Equal(t, models.StatusConfirmed, appt.Status)
	assert.Equal(t, models.PaymentMethodFree, appt.PaymentMethod)
	assert.True(t, appt.ConsultationFee.IsZero())
	assert.True(t, appt.IsEmergency)
	assert.Equal(t, "EMERGENCY: CHEST_PAIN\n--\npain in left arm", appt.PatientNotes)
	require.Len(t, fx.repo.logs, 1)
	assert.Equal(t, models.StatusConfirmed, fx.repo.logs[0].ToStatus)

	req := fx.repo.requests[logID]
	assert.Equal(t, models.EmergencyAccepted, req.Status)
	assert.Equal(t, "near", *req.DoctorID)
	assert.Equal(t, appt.ID, *req.AppointmentID)

	require.Len(t, fx.notifier.sent, 1)
	msg := fx.notifier.sent[0]
	assert.True(t, msg.WhatsApp)
	assert.Equal(t, "EMERGENCY ALERT", msg.Subject)
	assert.Equal(t, "near@example.com", msg.Email)
	assert.Equal(t, "+9198000near", msg.Phone)
	assert.Equal(t, "EMERGENCY ALERT: Priya Sharma is en route to your clinic.\nTriage: CHEST_PAIN\nNotes: pain in left arm\nPatient Phone: +919800000001", msg.Body)
}

func TestRequestDoctorRejections(t *testing.T) {
	fx := newFixture()
	logID := search(t, fx)

	_, err := fx.svc.RequestDoctor(context.Background(), "user-1", "log-missing", "near")
	assert.ErrorIs(t, err, ErrInvalidLog)

	_, err = fx.svc.RequestDoctor(context.Background(), "user-2", logID, "near")
	assert.ErrorIs(t, err, ErrInvalidLog)

	_, err = fx.svc.RequestDoctor(context.Background(), "user-1", logID, "unver")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = fx.svc.RequestDoctor(context.Background(), "user-1", logID, "nobody")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = fx.svc.RequestDoctor(context.Background(), "user-1", logID, "near")
	require.NoError(t, err)

	_, err = fx.svc.RequestDoctor(context.Background(), "user-1", logID, "mid")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Len(t, fx.repo.appts, 1)
}

func TestRequestDoctorLostRace(t *testing.T) {
	fx := newFixture()
	logID := search(t, fx)
	fx.repo.acceptErr = store.ErrStatusMismatch

	_, err := fx.svc.RequestDoctor(context.Background(), "user-1", logID, "near")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Empty(t, fx.notifier.sent)
}

func TestCancelRequest(t *testing.T) {
	fx := newFixture()
	logID := search(t, fx)

	require.NoError(t, fx.svc.CancelRequest(context.Background(), "user-1", logID))
	assert.Equal(t, models.EmergencyCancelled, fx.repo.requests[logID].Status)

	assert.ErrorIs(t, fx.svc.CancelRequest(context.Background(), "user-1", logID), ErrAlreadyHandled)
	assert.ErrorIs(t, fx.svc.CancelRequest(context.Background(), "user-2", logID), ErrInvalidLog)

	_, err := fx.svc.RequestDoctor(context.Background(), "user-1", logID, "near")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
}

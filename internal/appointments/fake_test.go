package appointments

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
	"sarvsaathi-server/internal/payments"
	"sarvsaathi-server/internal/store"
)

// fakeRepo is an in-memory Repository. Transactions do not roll back.
type fakeRepo struct {
	mu sync.Mutex

	users   map[string]*models.User
	doctors map[string]*models.DoctorProfile
	members map[string]*models.FamilyMember
	slots   map[string]*models.TimeSlot
	appts   map[string]*models.Appointment
	logs    []models.AppointmentStatusLog

	takenNumbers map[string]bool
	// skipActiveCheck makes HasActiveAppointmentForSlot report false, as a
	// concurrent booker would observe before either insert commits.
	skipActiveCheck bool
	seq             int
}

func (f *fakeRepo) nextID(prefix string) string {
	f.seq++
	return prefix + "-" + strings.Repeat("x", f.seq)
}

func (f *fakeRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	for _, d := range f.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) IncrementDoctorAppointments(ctx context.Context, doctorID string) error {
	f.doctors[doctorID].TotalAppointments++
	return nil
}

func (f *fakeRepo) FindActiveFamilyMember(ctx context.Context, userID, memberID string) (*models.FamilyMember, error) {
	m, ok := f.members[memberID]
	if !ok || m.UserID != userID || !m.IsActive {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeRepo) EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error) {
	for _, m := range f.members {
		if m.UserID == userID && m.Relationship == models.RelationshipSelf && m.IsActive {
			return m, nil
		}
	}
	self := models.NewSelfMember(f.users[userID])
	self.ID = f.nextID("member")
	f.members[self.ID] = self
	return self, nil
}

func (f *fakeRepo) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) TransitionSlot(ctx context.Context, id string, from, to models.SlotStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.Status != from {
		return store.ErrStatusMismatch
	}
	s.Status = to
	return nil
}

func (f *fakeRepo) HasActiveAppointmentForSlot(ctx context.Context, slotID string) (bool, error) {
	if f.skipActiveCheck {
		return false, nil
	}
	for _, a := range f.appts {
		if a.TimeSlotID != nil && *a.TimeSlotID == slotID &&
			(a.Status == models.StatusPending || a.Status == models.StatusConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.appts {
		if a.TimeSlotID != nil && other.TimeSlotID != nil && *other.TimeSlotID == *a.TimeSlotID {
			return store.ErrDuplicate
		}
		if other.AppointmentNumber == a.AppointmentNumber {
			return store.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = f.nextID("appt")
	}
	a.CreatedAt = time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)
	cp := *a
	f.appts[a.ID] = &cp
	return nil
}

func (f *fakeRepo) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	cp := *a
	cp.Doctor, cp.FamilyMember, cp.User, cp.TimeSlot = nil, nil, nil, nil
	f.appts[a.ID] = &cp
	return nil
}

func (f *fakeRepo) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	cp.Doctor = f.doctors[a.DoctorID]
	cp.FamilyMember = f.members[a.FamilyMemberID]
	cp.User = f.users[a.UserID]
	return &cp, nil
}

func (f *fakeRepo) AppointmentNumberExists(ctx context.Context, number string) (bool, error) {
	if f.takenNumbers[number] {
		return true, nil
	}
	for _, a := range f.appts {
		if a.AppointmentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.DoctorID != "" && a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.After(out[j].ScheduledStart) })
	return out, nil
}

func (f *fakeRepo) CountAppointmentsByStatus(ctx context.Context, filter store.AppointmentFilter) (map[models.AppointmentStatus]int64, error) {
	list, _ := f.ListAppointments(ctx, filter)
	counts := map[models.AppointmentStatus]int64{}
	for _, a := range list {
		counts[a.Status]++
	}
	return counts, nil
}

func (f *fakeRepo) CreateStatusLog(ctx context.Context, l *models.AppointmentStatusLog) error {
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeRepo) ListStatusLogs(ctx context.Context, appointmentID string) ([]models.AppointmentStatusLog, error) {
	var out []models.AppointmentStatusLog
	for _, l := range f.logs {
		if l.AppointmentID == appointmentID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeGateway struct {
	created    []payments.PaymentRequest
	captured   []string
	createErr  error
	captureErr error
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req payments.PaymentRequest) (*payments.PaymentSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &payments.PaymentSession{ID: "PAY-1", ApprovalURL: "https://paypal.test/approve/PAY-1"}, nil
}

func (g *fakeGateway) CapturePayment(ctx context.Context, paymentID string) (*payments.Capture, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captured = append(g.captured, paymentID)
	return &payments.Capture{ID: "CAPTURE-1", Status: "COMPLETED"}, nil
}

type fakeNotifier struct {
	sent []notify.Message
}

func (n *fakeNotifier) Send(msg notify.Message) {
	n.sent = append(n.sent, msg)
}

type fakePredictor struct {
	got insights.Features
	err error
}

func (p *fakePredictor) PredictNoShow(ctx context.Context, f insights.Features) (*insights.Prediction, error) {
	p.got = f
	if p.err != nil {
		return nil, p.err
	}
	return &insights.Prediction{Label: "Low Risk", Confidence: 0.7}, nil
}

var (
	testNow   = time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)
	slotStart = time.Date(2025, 6, 1, 4, 30, 0, 0, time.UTC) // 10:00 in Asia/Kolkata
	errBoom   = errors.New("boom")
)

type fixture struct {
	repo     *fakeRepo
	gateway  *fakeGateway
	notifier *fakeNotifier
	svc      *Service
}

func newFixture() *fixture {
	dob := time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC)
	childDOB := time.Date(2016, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		users: map[string]*models.User{
			"user-1":    {BaseModel: models.BaseModel{ID: "user-1"}, Email: "priya@example.com", FirstName: "Priya", LastName: "Sharma", Phone: "+919800000001", Role: models.RolePatient},
			"user-2":    {BaseModel: models.BaseModel{ID: "user-2"}, Email: "ravi@example.com", FirstName: "Ravi", Role: models.RolePatient},
			"user-doc":  {BaseModel: models.BaseModel{ID: "user-doc"}, Email: "asha@example.com", FirstName: "Asha", LastName: "Rao", Phone: "+919800000009", Role: models.RoleDoctor},
			"user-doc2": {BaseModel: models.BaseModel{ID: "user-doc2"}, Email: "vik@example.com", FirstName: "Vik", Role: models.RoleDoctor},
		},
		doctors: map[string]*models.DoctorProfile{
			"doc-1": {BaseModel: models.BaseModel{ID: "doc-1"}, UserID: "user-doc", ConsultationFee: decimal.NewFromInt(500), IsVerified: true},
			"doc-2": {BaseModel: models.BaseModel{ID: "doc-2"}, UserID: "user-doc2", ConsultationFee: decimal.NewFromInt(300), IsVerified: true},
		},
		members: map[string]*models.FamilyMember{
			"mem-self":  {BaseModel: models.BaseModel{ID: "mem-self"}, UserID: "user-1", FirstName: "Priya", LastName: "Sharma", Relationship: models.RelationshipSelf, DateOfBirth: &dob, Phone: "+919800000001", IsActive: true},
			"mem-child": {BaseModel: models.BaseModel{ID: "mem-child"}, UserID: "user-1", FirstName: "Anya", Relationship: models.RelationshipChild, DateOfBirth: &childDOB, IsActive: true},
			"mem-gone":  {BaseModel: models.BaseModel{ID: "mem-gone"}, UserID: "user-1", FirstName: "Old", Relationship: models.RelationshipOther, IsActive: false},
		},
		slots:        map[string]*models.TimeSlot{},
		appts:        map[string]*models.Appointment{},
		takenNumbers: map[string]bool{},
	}
	repo.doctors["doc-1"].User = repo.users["user-doc"]
	repo.doctors["doc-2"].User = repo.users["user-doc2"]

	addSlot(repo, "slot-1", "doc-1", slotStart, models.SlotModeInClinic)
	addSlot(repo, "slot-2", "doc-1", slotStart.Add(time.Hour), models.SlotModeBoth)
	addSlot(repo, "slot-other", "doc-2", slotStart, models.SlotModeInClinic)

	gw := &fakeGateway{}
	n := &fakeNotifier{}
	ist := time.FixedZone("IST", 5*3600+1800)
	svc := NewService(repo, gw, n, &fakePredictor{}, Options{
		CancellationLeadTime: 2 * time.Hour,
		Currency:             "USD",
		FrontendURL:          "http://localhost:5173/",
		Location:             ist,
	})
	svc.now = func() time.Time { return testNow }
	digit := 0
	svc.digits = func() int { digit++; return digit }

	return &fixture{repo: repo, gateway: gw, notifier: n, svc: svc}
}

func addSlot(repo *fakeRepo, id, doctorID string, start time.Time, mode models.SlotMode) *models.TimeSlot {
	s := &models.TimeSlot{
		BaseModel: models.BaseModel{ID: id},
		DoctorID:  doctorID,
		StartsAt:  start,
		EndsAt:    start.Add(30 * time.Minute),
		Mode:      mode,
		Status:    models.SlotStatusAvailable,
	}
	repo.slots[id] = s
	return s
}

var patient = Actor{UserID: "user-1", Role: models.RolePatient}
var doctor = Actor{UserID: "user-doc", Role: models.RoleDoctor}

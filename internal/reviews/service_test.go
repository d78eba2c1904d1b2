package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

type fakeRepo struct {
	appts   map[string]*models.Appointment
	doctors map[string]*models.DoctorProfile
	reviews []*models.Review

	updatedAverage decimal.Decimal
	updatedTotal   int64
}

func (f *fakeRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	for _, d := range f.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) CreateReview(ctx context.Context, r *models.Review) error {
	r.ID = "rev-" + r.AppointmentID
	f.reviews = append(f.reviews, r)
	return nil
}

func (f *fakeRepo) SaveReview(ctx context.Context, r *models.Review) error {
	return nil
}

func (f *fakeRepo) GetReview(ctx context.Context, id string) (*models.Review, error) {
	for _, r := range f.reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) ReviewExistsForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	for _, r := range f.reviews {
		if r.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListDoctorReviews(ctx context.Context, doctorID string) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.reviews {
		if r.DoctorID == doctorID && r.IsVisible {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListUserReviews(ctx context.Context, userID string) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.reviews {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) DoctorRatingAggregate(ctx context.Context, doctorID string) (decimal.Decimal, int64, error) {
	sum, n := 0, int64(0)
	for _, r := range f.reviews {
		if r.DoctorID == doctorID && r.IsVisible {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, 0, nil
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(n)), n, nil
}

func (f *fakeRepo) UpdateDoctorRating(ctx context.Context, doctorID string, average decimal.Decimal, total int64) error {
	f.updatedAverage, f.updatedTotal = average, total
	return nil
}

type fakeCache struct {
	invalidated []string
}

func (c *fakeCache) InvalidateDoctor(ctx context.Context, doctorID string) {
	c.invalidated = append(c.invalidated, doctorID)
}

func completed(id, userID string) *models.Appointment {
	return &models.Appointment{
		BaseModel: models.BaseModel{ID: id},
		UserID:    userID,
		DoctorID:  "doc-1",
		Status:    models.StatusCompleted,
	}
}

func newService() (*Service, *fakeRepo, *fakeCache) {
	repo := &fakeRepo{
		appts: map[string]*models.Appointment{
			"a1":      completed("a1", "user-1"),
			"a2":      completed("a2", "user-1"),
			"a3":      completed("a3", "user-1"),
			"pending": {BaseModel: models.BaseModel{ID: "pending"}, UserID: "user-1", DoctorID: "doc-1", Status: models.StatusConfirmed},
		},
		doctors: map[string]*models.DoctorProfile{
			"doc-1": {BaseModel: models.BaseModel{ID: "doc-1"}, UserID: "user-doc"},
			"doc-2": {BaseModel: models.BaseModel{ID: "doc-2"}, UserID: "user-doc2"},
		},
	}
	c := &fakeCache{}
	svc := NewService(repo, c)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) }
	return svc, repo, c
}

func intPtr(v int) *int { return &v }

func TestCreateRecalculatesRating(t *testing.T) {
	svc, repo, c := newService()
	ctx := context.Background()

	for id, rating := range map[string]int{"a1": 5, "a2": 4, "a3": 4} {
		_, err := svc.Create(ctx, "user-1", CreateInput{AppointmentID: id, Rating: rating})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), repo.updatedTotal)
	assert.Equal(t, "4.33", repo.updatedAverage.StringFixed(2))
	assert.Equal(t, []string{"doc-1", "doc-1", "doc-1"}, c.invalidated)

	mine, err := svc.ListMine(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.True(t, mine[0].IsVerified)
}

func TestCreateRejections(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		in   CreateInput
		want error
	}{
		{"rating too high", "user-1", CreateInput{AppointmentID: "a1", Rating: 6}, ErrInvalidRating},
		{"rating zero", "user-1", CreateInput{AppointmentID: "a1", Rating: 0}, ErrInvalidRating},
		{"sub rating out of range", "user-1", CreateInput{AppointmentID: "a1", Rating: 4, WaitTimeRating: intPtr(9)}, ErrInvalidRating},
		{"unknown appointment", "user-1", CreateInput{AppointmentID: "nope", Rating: 4}, ErrAppointmentNotFound},
		{"someone else's appointment", "user-2", CreateInput{AppointmentID: "a1", Rating: 4}, ErrAppointmentNotFound},
		{"not completed", "user-1", CreateInput{AppointmentID: "pending", Rating: 4}, ErrNotCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.user, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, repo.reviews)

	_, err := svc.Create(ctx, "user-1", CreateInput{AppointmentID: "a1", Rating: 3, BedsideMannerRating: intPtr(5)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", CreateInput{AppointmentID: "a1", Rating: 3})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestRespond(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	review, err := svc.Create(ctx, "user-1", CreateInput{AppointmentID: "a1", Rating: 5})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, "user-doc", review.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = svc.Respond(ctx, "user-doc2", review.ID, "Thanks")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Respond(ctx, "user-1", review.ID, "Thanks")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	got, err := svc.Respond(ctx, "user-doc", review.ID, " Thank you! ")
	require.NoError(t, err)
	assert.Equal(t, "Thank you!", got.DoctorResponse)
	require.NotNil(t, got.RespondedAt)

	listed, err := svc.ListForDoctor(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Thank you!", listed[0].DoctorResponse)
}

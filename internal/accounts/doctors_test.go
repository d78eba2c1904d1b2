package accounts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarvsaathi-server/internal/models"
)

func (fx *fixture) doctor(t *testing.T, email, specialty string, verified bool) *models.DoctorProfile {
	t.Helper()
	u := fx.register(t, RegisterInput{Email: email, FirstName: "Dr", Role: models.RoleDoctor, Specialty: specialty})
	d, err := fx.repo.GetDoctorByUserID(context.Background(), u.ID)
	require.NoError(t, err)
	d.IsVerified = verified
	return d
}

func TestDoctorsDirectoryIsCachedUntilInvalidated(t *testing.T) {
	fx := newFixture(t)
	fx.doctor(t, "card@example.com", "Cardiologist", true)
	fx.doctor(t, "hidden@example.com", "Cardiologist", false)
	ctx := context.Background()
	q := DirectoryQuery{Specialty: "cardio", Sort: "rating"}

	first, err := fx.svc.Doctors(ctx, q)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	_, err = fx.svc.Doctors(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.repo.listDoctorCalls)

	fx.doctor(t, "card2@example.com", "Cardiologist", true)
	fx.svc.InvalidateDoctor(ctx, "any")

	again, err := fx.svc.Doctors(ctx, q)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, 2, fx.repo.listDoctorCalls)
}

func TestDoctorsRejectsBadQuery(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Doctors(ctx, DirectoryQuery{Sort: "alphabetical"})
	assert.ErrorIs(t, err, ErrInvalidSort)

	_, err = fx.svc.Doctors(ctx, DirectoryQuery{MinFee: "-1"})
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = fx.svc.Doctors(ctx, DirectoryQuery{MaxFee: "cheap"})
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestDoctorHidesUnverified(t *testing.T) {
	fx := newFixture(t)
	d := fx.doctor(t, "new@example.com", "Dermatologist", false)
	ctx := context.Background()

	_, err := fx.svc.Doctor(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	verified, err := fx.svc.VerifyDoctor(ctx, " NEW@example.com ")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	require.NotNil(t, verified.VerifiedAt)
	assert.Equal(t, fx.now, *verified.VerifiedAt)

	got, err := fx.svc.Doctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = fx.svc.VerifyDoctor(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestUpdateDoctorProfileRefreshesCache(t *testing.T) {
	fx := newFixture(t)
	d := fx.doctor(t, "card@example.com", "Cardiologist", true)
	ctx := context.Background()

	cached, err := fx.svc.Doctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, cached.ClinicName)

	fee := decimal.NewFromInt(800)
	_, err = fx.svc.UpdateDoctorProfile(ctx, d.UserID, DoctorProfileInput{
		ClinicName:      ptr("Heart Care"),
		ConsultationFee: &fee,
		LicenseExpiry:   ptr("2030-01-31"),
	})
	require.NoError(t, err)

	got, err := fx.svc.Doctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heart Care", got.ClinicName)
	assert.True(t, fee.Equal(got.ConsultationFee))

	negative := decimal.NewFromInt(-5)
	_, err = fx.svc.UpdateDoctorProfile(ctx, d.UserID, DoctorProfileInput{ConsultationFee: &negative})
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = fx.svc.UpdateDoctorProfile(ctx, "patient-user", DoctorProfileInput{})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestToggleFavorite(t *testing.T) {
	fx := newFixture(t)
	u := fx.register(t, RegisterInput{Email: "asha@example.com", FirstName: "Asha"})
	d := fx.doctor(t, "card@example.com", "Cardiologist", true)
	hidden := fx.doctor(t, "hidden@example.com", "Cardiologist", false)
	ctx := context.Background()

	saved, err := fx.svc.ToggleFavorite(ctx, u.ID, d.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	is, err := fx.svc.IsFavorite(ctx, u.ID, d.ID)
	require.NoError(t, err)
	assert.True(t, is)

	favs, err := fx.svc.Favorites(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	saved, err = fx.svc.ToggleFavorite(ctx, u.ID, d.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	_, err = fx.svc.ToggleFavorite(ctx, u.ID, hidden.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

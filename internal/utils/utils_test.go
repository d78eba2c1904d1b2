package utils

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/models"
)

func TestTokens(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "access-secret"
	cfg.JWT.RefreshSecret = "refresh-secret"
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour

	user := &models.User{Role: models.RoleDoctor}
	user.ID = "user-1"

	access, refresh, err := GenerateTokens(user, cfg, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := ValidateToken(access, cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleDoctor, claims.Role)

	_, err = ValidateToken(access, cfg.JWT.RefreshSecret)
	assert.Error(t, err)

	_, err = ValidateToken(refresh, cfg.JWT.RefreshSecret)
	assert.NoError(t, err)

	expired, _, err := GenerateTokens(user, cfg, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	_, err = ValidateToken(expired, cfg.JWT.Secret)
	assert.Error(t, err)
}

func TestFormatValidationError(t *testing.T) {
	type input struct {
		Email string `validate:"required,email"`
		Name  string `validate:"min=3"`
		Age   int    `validate:"max=120"`
		Mode  string `validate:"oneof=online in_clinic"`
	}

	err := validator.New().Struct(input{Email: "nope", Name: "al", Age: 130, Mode: "phone"})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "Email must be a valid email address")
	assert.Contains(t, msg, "Name must be at least 3 characters")
	assert.Contains(t, msg, "Age must be at most 120")
	assert.Contains(t, msg, "Mode must be one of: online in_clinic")

	assert.Equal(t, "plain", FormatValidationError(errString("plain")))
}

type errString string

func (e errString) Error() string { return string(e) }

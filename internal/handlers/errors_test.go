package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/appointments"
	"sarvsaathi-server/internal/emergency"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/slots"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appointments.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", slots.ErrNotFound), http.StatusNotFound},
		{appointments.ErrSlotUnavailable, http.StatusConflict},
		{accounts.ErrEmailTaken, http.StatusConflict},
		{emergency.ErrInvalidCategory, http.StatusBadRequest},
		{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
		{accounts.ErrInactive, http.StatusForbidden},
		{fmt.Errorf("%w: declined", appointments.ErrGateway), http.StatusBadGateway},
		{media.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	r := asUser("", "")
	r.GET("/fail", func(c *gin.Context) {
		respondError(c, errors.New("dial tcp 10.0.0.1:3306: refused"))
	})
	r.GET("/conflict", func(c *gin.Context) {
		respondError(c, appointments.ErrSlotUnavailable)
	})

	w := do(r, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, envelope(t, w).Error, "3306")

	w = do(r, http.MethodGet, "/conflict", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appointments.ErrSlotUnavailable.Error(), envelope(t, w).Error)
}

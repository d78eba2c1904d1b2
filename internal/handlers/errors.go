package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/appointments"
	"sarvsaathi-server/internal/emergency"
	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/reviews"
	"sarvsaathi-server/internal/slots"
	"sarvsaathi-server/internal/utils"
)

type errorStatus struct {
	err    error
	status int
}

// errorStatuses maps domain errors to response codes. Anything not listed is
// an internal error.
var errorStatuses = []errorStatus{
	// not found or not owned
	{appointments.ErrNotFound, http.StatusNotFound},
	{appointments.ErrSlotNotFound, http.StatusNotFound},
	{appointments.ErrFamilyMemberNotFound, http.StatusNotFound},
	{appointments.ErrDoctorNotFound, http.StatusNotFound},
	{slots.ErrNotFound, http.StatusNotFound},
	{slots.ErrDoctorNotFound, http.StatusNotFound},
	{emergency.ErrInvalidLog, http.StatusNotFound},
	{emergency.ErrDoctorNotFound, http.StatusNotFound},
	{reviews.ErrAppointmentNotFound, http.StatusNotFound},
	{reviews.ErrNotFound, http.StatusNotFound},
	{reviews.ErrDoctorNotFound, http.StatusNotFound},
	{accounts.ErrUserNotFound, http.StatusNotFound},
	{accounts.ErrDoctorNotFound, http.StatusNotFound},
	{accounts.ErrMemberNotFound, http.StatusNotFound},
	{accounts.ErrContactNotFound, http.StatusNotFound},
	{accounts.ErrRecordNotFound, http.StatusNotFound},

	// state conflicts
	{appointments.ErrSlotUnavailable, http.StatusConflict},
	{appointments.ErrNotPending, http.StatusConflict},
	{appointments.ErrNotCancellable, http.StatusConflict},
	{appointments.ErrNotReschedulable, http.StatusConflict},
	{appointments.ErrNotConfirmed, http.StatusConflict},
	{appointments.ErrTooEarly, http.StatusConflict},
	{slots.ErrOverlap, http.StatusConflict},
	{slots.ErrNotAvailable, http.StatusConflict},
	{slots.ErrNotBlocked, http.StatusConflict},
	{slots.ErrHeld, http.StatusConflict},
	{emergency.ErrAlreadyHandled, http.StatusConflict},
	{reviews.ErrAlreadyReviewed, http.StatusConflict},
	{reviews.ErrNotCompleted, http.StatusConflict},
	{accounts.ErrEmailTaken, http.StatusConflict},
	{accounts.ErrSelfExists, http.StatusConflict},

	// invalid input
	{appointments.ErrSlotInPast, http.StatusBadRequest},
	{appointments.ErrSlotOtherDoctor, http.StatusBadRequest},
	{appointments.ErrIncompleteProfile, http.StatusBadRequest},
	{appointments.ErrConsultationType, http.StatusBadRequest},
	{appointments.ErrPaymentMismatch, http.StatusBadRequest},
	{appointments.ErrInvalidReason, http.StatusBadRequest},
	{slots.ErrInvalidRange, http.StatusBadRequest},
	{slots.ErrInvalidTime, http.StatusBadRequest},
	{slots.ErrInvalidMode, http.StatusBadRequest},
	{slots.ErrSlotInPast, http.StatusBadRequest},
	{emergency.ErrInvalidCategory, http.StatusBadRequest},
	{emergency.ErrInvalidLocation, http.StatusBadRequest},
	{emergency.ErrNoEmergencyContacts, http.StatusBadRequest},
	{reviews.ErrInvalidRating, http.StatusBadRequest},
	{reviews.ErrEmptyResponse, http.StatusBadRequest},
	{accounts.ErrInvalidRole, http.StatusBadRequest},
	{accounts.ErrInvalidDate, http.StatusBadRequest},
	{accounts.ErrInvalidSort, http.StatusBadRequest},
	{accounts.ErrInvalidFee, http.StatusBadRequest},
	{accounts.ErrMemberIncomplete, http.StatusBadRequest},
	{accounts.ErrSelfUndeletable, http.StatusBadRequest},
	{accounts.ErrInvalidRelation, http.StatusBadRequest},
	{accounts.ErrContactIncomplete, http.StatusBadRequest},
	{accounts.ErrInvalidRecordType, http.StatusBadRequest},
	{accounts.ErrNoAvatar, http.StatusBadRequest},
	{models.ErrSelfUnderage, http.StatusBadRequest},

	// credentials
	{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
	{accounts.ErrInvalidToken, http.StatusUnauthorized},
	{accounts.ErrInactive, http.StatusForbidden},

	// upstream
	{appointments.ErrGateway, http.StatusBadGateway},
	{appointments.ErrPredictionUnavailable, http.StatusBadGateway},
	{insights.ErrUnavailable, http.StatusBadGateway},
	{media.ErrNotConfigured, http.StatusServiceUnavailable},
}

// StatusFor returns the response code for err.
func StatusFor(err error) int {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err in the standard envelope. Internal errors are
// logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		utils.InternalServerError(c, "Something went wrong, please try again later")
		return
	}
	if status >= http.StatusBadGateway {
		log.Ctx(c.Request.Context()).Warn().Err(err).Str("path", c.FullPath()).Msg("upstream failure")
	}
	utils.Error(c, status, err.Error())
}

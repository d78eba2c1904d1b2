package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/appointments"
	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/utils"
)

// AppointmentService is the booking, payment and lifecycle workflow.
type AppointmentService interface {
	Book(ctx context.Context, userID string, in appointments.BookInput) (*models.Appointment, error)
	InitiatePayment(ctx context.Context, userID, id string) (*appointments.PaymentInitiation, error)
	ConfirmPayment(ctx context.Context, userID, id, paymentID, payerID string) (*models.Appointment, error)
	Cancel(ctx context.Context, actor appointments.Actor, id string, in appointments.CancelInput) (*models.Appointment, error)
	Reschedule(ctx context.Context, userID, id, newSlotID string) (*models.Appointment, error)

	Get(ctx context.Context, actor appointments.Actor, id string) (*models.Appointment, error)
	List(ctx context.Context, actor appointments.Actor, f appointments.ListFilter) ([]models.Appointment, error)
	Stats(ctx context.Context, actor appointments.Actor) (*appointments.Stats, error)
	StatusLogs(ctx context.Context, actor appointments.Actor, id string) ([]models.AppointmentStatusLog, error)

	StartConsultation(ctx context.Context, doctorUserID, id string) (*models.Appointment, error)
	MarkCompleted(ctx context.Context, doctorUserID, id string) (*models.Appointment, error)
	MarkNoShow(ctx context.Context, doctorUserID, id string) (*models.Appointment, error)
	UpdateDoctorNotes(ctx context.Context, doctorUserID, id string, in appointments.NotesInput) (*models.Appointment, error)
	NoShowRisk(ctx context.Context, doctorUserID, id string) (*insights.Prediction, error)
}

// AppointmentHandler handles appointment related requests for patients and
// doctors. The caller's role decides which appointments are visible.
type AppointmentHandler struct {
	svc AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

// BookAppointment creates a pending appointment for an open slot.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req appointments.BookInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.svc.Book(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully, awaiting payment", appt)
}

// ListQuery filters appointment lists.
type ListQuery struct {
	Status models.AppointmentStatus `form:"status"`
	From   time.Time                `form:"from" time_format:"2006-01-02"`
	To     time.Time                `form:"to" time_format:"2006-01-02"`
}

// GetAppointments lists the caller's appointments.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var q ListQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	list, err := h.svc.List(c.Request.Context(), a, appointments.ListFilter{Status: q.Status, From: q.From, To: q.To})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", list)
}

func (h *AppointmentHandler) GetStats(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment statistics retrieved successfully", stats)
}

// GetAppointmentByID returns one appointment visible to the caller.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	appt, err := h.svc.Get(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", appt)
}

func (h *AppointmentHandler) GetStatusLogs(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	logs, err := h.svc.StatusLogs(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Status history retrieved successfully", logs)
}

// InitiatePayment starts checkout. Free appointments are confirmed at once
// and carry no approval URL.
func (h *AppointmentHandler) InitiatePayment(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	res, err := h.svc.InitiatePayment(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	message := "Payment initiated, redirect the patient to the approval URL"
	if res.Confirmed {
		message = "Appointment confirmed, no payment required"
	}
	utils.Success(c, message, res)
}

type ExecutePaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	PayerID   string `json:"payerId"`
}

// ExecutePayment captures an approved payment and confirms the appointment.
func (h *AppointmentHandler) ExecutePayment(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req ExecutePaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.svc.ConfirmPayment(c.Request.Context(), id, c.Param("id"), req.PaymentID, req.PayerID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Payment successful, appointment confirmed", appt)
}

// CancelAppointment cancels on behalf of either party.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req appointments.CancelInput
	if c.Request.ContentLength != 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.svc.Cancel(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appt)
}

type RescheduleRequest struct {
	TimeSlotID string `json:"timeSlotId" binding:"required"`
}

func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.svc.Reschedule(c.Request.Context(), id, c.Param("id"), req.TimeSlotID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appt)
}

func (h *AppointmentHandler) UpdateNotes(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req appointments.NotesInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appt, err := h.svc.UpdateDoctorNotes(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Consultation notes saved", appt)
}

func (h *AppointmentHandler) doctorAction(c *gin.Context, fn func(ctx context.Context, doctorUserID, id string) (*models.Appointment, error), message string) {
	id, ok := userID(c)
	if !ok {
		return
	}
	appt, err := fn(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, message, appt)
}

func (h *AppointmentHandler) StartConsultation(c *gin.Context) {
	h.doctorAction(c, h.svc.StartConsultation, "Consultation started")
}

func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	h.doctorAction(c, h.svc.MarkCompleted, "Appointment completed")
}

func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	h.doctorAction(c, h.svc.MarkNoShow, "Appointment marked as no-show")
}

// NoShowRisk returns the model's prediction for one of the doctor's
// appointments.
func (h *AppointmentHandler) NoShowRisk(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	prediction, err := h.svc.NoShowRisk(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "No-show risk retrieved successfully", gin.H{
		"prediction": prediction.Label,
		"confidence": prediction.Confidence,
		"highRisk":   prediction.HighRisk(),
	})
}

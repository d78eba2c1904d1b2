package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/handlers"
	"sarvsaathi-server/internal/middleware"
	"sarvsaathi-server/internal/models"
)

// Handlers are the request handlers mounted by SetupRoutes.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Family        *handlers.FamilyHandler
	MedicalRecord *handlers.MedicalRecordHandler
	Doctor        *handlers.DoctorHandler
	Slot          *handlers.SlotHandler
	Appointment   *handlers.AppointmentHandler
	Review        *handlers.ReviewHandler
	Emergency     *handlers.EmergencyHandler
	Insights      *handlers.InsightsHandler

	// Ping checks the database for the health endpoint.
	Ping func(ctx context.Context) error
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, cfg *config.Config) {
	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", h.Auth.Register)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/refresh-token", h.Auth.RefreshToken)
		}

		doctorRoutes := public.Group("/doctors")
		{
			doctorRoutes.GET("", h.Doctor.ListDoctors)
			doctorRoutes.GET("/:id", h.Doctor.GetDoctor)
			doctorRoutes.GET("/:id/time-slots", h.Doctor.GetDoctorSlots)
			doctorRoutes.GET("/:id/reviews", h.Doctor.GetDoctorReviews)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", h.Auth.Logout)
			authRoutesPrivate.GET("/profile", h.Auth.GetProfile)
			authRoutesPrivate.PUT("/profile", h.Auth.UpdateProfile)
			authRoutesPrivate.POST("/avatar", h.Auth.UploadAvatar)
			authRoutesPrivate.DELETE("/avatar", h.Auth.DeleteAvatar)
		}

		familyRoutes := private.Group("/family-members")
		{
			familyRoutes.GET("", h.Family.ListMembers)
			familyRoutes.POST("", h.Family.AddMember)
			familyRoutes.GET("/:id", h.Family.GetMember)
			familyRoutes.PUT("/:id", h.Family.UpdateMember)
			familyRoutes.DELETE("/:id", h.Family.RemoveMember)
		}

		contactRoutes := private.Group("/emergency-contacts")
		{
			contactRoutes.GET("", h.Family.ListContacts)
			contactRoutes.POST("", h.Family.AddContact)
			contactRoutes.PUT("/:id", h.Family.UpdateContact)
			contactRoutes.DELETE("/:id", h.Family.RemoveContact)
		}

		// Records belong to the account and its family members
		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.GET("", h.MedicalRecord.GetMedicalRecords)
			medicalRecordRoutes.POST("", h.MedicalRecord.CreateMedicalRecord)
			medicalRecordRoutes.GET("/:id", h.MedicalRecord.GetMedicalRecordByID)
			medicalRecordRoutes.PUT("/:id", h.MedicalRecord.UpdateMedicalRecord)
			medicalRecordRoutes.DELETE("/:id", h.MedicalRecord.DeleteMedicalRecord)
		}

		// Listing and reading work for both roles; the handler scopes by role
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", h.Appointment.GetAppointments)
			appointmentRoutes.GET("/stats", h.Appointment.GetStats)
			appointmentRoutes.GET("/:id", h.Appointment.GetAppointmentByID)
			appointmentRoutes.GET("/:id/status-logs", h.Appointment.GetStatusLogs)

			patientOnly := appointmentRoutes.Group("")
			patientOnly.Use(middleware.RequireRole(models.RolePatient))
			{
				patientOnly.POST("/book", h.Appointment.BookAppointment)
				patientOnly.POST("/:id/pay", h.Appointment.InitiatePayment)
				patientOnly.POST("/:id/execute-payment", h.Appointment.ExecutePayment)
				patientOnly.POST("/:id/cancel", h.Appointment.CancelAppointment)
				patientOnly.POST("/:id/reschedule", h.Appointment.RescheduleAppointment)
			}
		}

		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", middleware.RequireRole(models.RolePatient), h.Review.CreateReview)
			reviewRoutes.GET("/mine", h.Review.ListMine)
		}

		favoriteRoutes := private.Group("/favorites")
		{
			favoriteRoutes.GET("", h.Doctor.ListFavorites)
			favoriteRoutes.POST("/:doctorId", h.Doctor.ToggleFavorite)
			favoriteRoutes.GET("/:doctorId", h.Doctor.CheckFavorite)
		}

		emergencyRoutes := private.Group("/emergency")
		emergencyRoutes.Use(middleware.RateLimit(middleware.RateLimitConfig{
			PerMinute: cfg.RateLimit.EmergencyPerMinute,
			Burst:     cfg.RateLimit.EmergencyBurst,
		}))
		{
			emergencyRoutes.POST("/find-specialist", h.Emergency.FindSpecialist)
			emergencyRoutes.POST("/request-doctor", h.Emergency.RequestDoctor)
			emergencyRoutes.POST("/:id/cancel", h.Emergency.CancelRequest)
			emergencyRoutes.POST("/trigger-sos", h.Emergency.TriggerSOS)
		}

		private.POST("/insights/symptom-guidance", h.Insights.SymptomGuidance)

		doctorRoutes := private.Group("/doctor")
		doctorRoutes.Use(middleware.RequireRole(models.RoleDoctor))
		{
			doctorRoutes.GET("/profile", h.Doctor.GetOwnProfile)
			doctorRoutes.PUT("/profile", h.Doctor.UpdateOwnProfile)

			doctorRoutes.GET("/time-slots", h.Slot.ListSlots)
			doctorRoutes.POST("/time-slots", h.Slot.CreateSlot)
			doctorRoutes.POST("/time-slots/bulk", h.Slot.BulkCreateSlots)
			doctorRoutes.POST("/time-slots/:id/block", h.Slot.BlockSlot)
			doctorRoutes.POST("/time-slots/:id/unblock", h.Slot.UnblockSlot)
			doctorRoutes.POST("/time-slots/:id/cancel", h.Slot.CancelSlot)

			doctorRoutes.GET("/appointments", h.Appointment.GetAppointments)
			doctorRoutes.GET("/appointments/:id", h.Appointment.GetAppointmentByID)
			doctorRoutes.PATCH("/appointments/:id/notes", h.Appointment.UpdateNotes)
			doctorRoutes.POST("/appointments/:id/start", h.Appointment.StartConsultation)
			doctorRoutes.POST("/appointments/:id/complete", h.Appointment.CompleteAppointment)
			doctorRoutes.POST("/appointments/:id/no-show", h.Appointment.MarkNoShow)
			doctorRoutes.POST("/appointments/:id/cancel", h.Appointment.CancelAppointment)
			doctorRoutes.GET("/appointments/:id/no-show-risk", h.Appointment.NoShowRisk)

			doctorRoutes.PATCH("/reviews/:id/response", h.Review.Respond)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if h.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}

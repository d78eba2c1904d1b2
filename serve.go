package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/appointments"
	"sarvsaathi-server/internal/cache"
	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/emergency"
	"sarvsaathi-server/internal/handlers"
	"sarvsaathi-server/internal/insights"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/middleware"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
	"sarvsaathi-server/internal/payments"
	"sarvsaathi-server/internal/reviews"
	"sarvsaathi-server/internal/routes"
	"sarvsaathi-server/internal/slots"
	"sarvsaathi-server/internal/store"
)

const shutdownTimeout = 10 * time.Second

func runServer(migrate bool) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if migrate {
		if err := models.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	c, err := serverCache(cfg)
	if err != nil {
		return err
	}
	dispatcher := newDispatcher(cfg)
	repo := store.New(db)

	accountSvc := accounts.NewService(repo, cfg, newUploader(cfg), c)
	reviewSvc := reviews.NewService(repo, accountSvc)
	slotSvc := slots.NewService(repo, cfg.Location())
	predictor := insights.NewClient(cfg.ML.URL, cfg.ML.Timeout)
	gateway := payments.NewPayPalClient(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPalBaseURL())

	appointmentSvc := appointments.NewService(repo, gateway, dispatcher, predictor, appointments.Options{
		CancellationLeadTime: cfg.Booking.CancellationLeadTime,
		Currency:             cfg.Booking.Currency,
		FrontendURL:          cfg.App.FrontendURL,
		Location:             cfg.Location(),
	})
	emergencySvc := emergency.NewService(repo, appointmentSvc, dispatcher, dispatcher, emergency.Options{
		SlotLength: cfg.Booking.EmergencySlotLength,
		SOSWorkers: cfg.Notify.Workers,
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(log.Logger))
	router.Use(middleware.RequestLogger(log.Logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.App.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:          handlers.NewAuthHandler(accountSvc, cfg),
		Family:        handlers.NewFamilyHandler(accountSvc),
		MedicalRecord: handlers.NewMedicalRecordHandler(accountSvc),
		Doctor:        handlers.NewDoctorHandler(accountSvc, slotSvc, reviewSvc),
		Slot:          handlers.NewSlotHandler(slotSvc),
		Appointment:   handlers.NewAppointmentHandler(appointmentSvc),
		Review:        handlers.NewReviewHandler(reviewSvc),
		Emergency:     handlers.NewEmergencyHandler(emergencySvc),
		Insights:      handlers.NewInsightsHandler(predictor),
		Ping:          pinger(db),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", string(cfg.App.Env)).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// queued notifications finish before exit
	dispatcher.Wait()
	if closer, ok := c.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("cache close failed")
		}
	}
	log.Info().Msg("server stopped")
	return nil
}

// serverCache is newCache with a reachability check: an unreachable Redis
// degrades to the in-process cache instead of failing startup.
func serverCache(cfg *config.Config) (cache.Cache, error) {
	c, err := newCache(cfg)
	if err != nil {
		return nil, err
	}
	r, ok := c.(*cache.RedisCache)
	if !ok {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, using in-process cache")
		_ = r.Close()
		return cache.NewLRU(cfg.Cache.Size)
	}
	return r, nil
}

func newDispatcher(cfg *config.Config) *notify.Dispatcher {
	var (
		sms      notify.SMSSender      = notify.LogSender{Channel: "sms"}
		whatsapp notify.WhatsAppSender = notify.LogSender{Channel: "whatsapp"}
		email    notify.EmailSender    = notify.LogSender{Channel: "email"}
	)
	if tw := notify.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, cfg.Twilio.WhatsAppFrom); tw != nil {
		sms, whatsapp = tw, tw
	} else {
		log.Warn().Msg("twilio credentials missing, sms and whatsapp are logged only")
	}
	if br := notify.NewBrevoClient(cfg.Brevo.APIKey, cfg.Brevo.SenderEmail, cfg.Brevo.SenderName, cfg.Brevo.Sandbox); br != nil {
		email = br
	} else {
		log.Warn().Msg("brevo credentials missing, email is logged only")
	}
	return notify.NewDispatcher(sms, whatsapp, email, cfg.Notify.Timeout)
}

func newUploader(cfg *config.Config) media.Uploader {
	if cl := media.NewCloudinaryClient(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret); cl != nil {
		return cl
	}
	log.Warn().Msg("cloudinary credentials missing, file uploads are disabled")
	return media.Disabled{}
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

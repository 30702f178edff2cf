package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sessionworks/bookings/internal/http/handlers"
	httpmw "github.com/sessionworks/bookings/internal/http/middleware"
	"github.com/sessionworks/bookings/internal/notify"
	"github.com/sessionworks/bookings/internal/platform/auth"
	"github.com/sessionworks/bookings/internal/platform/cache"
	"github.com/sessionworks/bookings/internal/platform/mailer"
	"github.com/sessionworks/bookings/internal/repo/postgres"
	"github.com/sessionworks/bookings/internal/service"
	"github.com/sessionworks/bookings/pkg/config"
	"github.com/sessionworks/bookings/pkg/database"
	"github.com/sessionworks/bookings/pkg/events"
	"github.com/sessionworks/bookings/pkg/logger"
	mw "github.com/sessionworks/bookings/pkg/middleware"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Connect to cache
	cacheClient, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer cacheClient.Close()

	// Initialize repositories
	slotsRepo := postgres.NewSlotsRepo(pool)
	bookingsRepo := postgres.NewBookingsRepo(pool)
	reviewsRepo := postgres.NewReviewsRepo(pool)

	// Initialize services
	gate := auth.NewGate(cfg.Admin.Secret)
	allocator := service.NewSlotAllocator(slotsRepo, cfg.Slots.MaxPerMonth)
	bookingService := service.NewBookingService(bookingsRepo, allocator, eventBus)
	reviewService := service.NewReviewService(reviewsRepo, gate, eventBus, cacheClient, cfg.PublicBaseURL)

	// Initialize mailer + notify worker
	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}
	worker := notify.New(eventBus, mail, cfg.Email.OperatorEmail, cfg.Email.FromName)

	// Initialize handlers
	h := handlers.New(bookingService, reviewService, allocator, gate)

	// Rate limiting for admin and submission endpoints
	adminLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 30,
		Window:   time.Minute,
		KeyFunc:  httpmw.ClientIPKeyFunc("admin"),
	})
	submitLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc:  httpmw.ClientIPKeyFunc("submit"),
	})

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("sessions"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/slots/state", h.SlotState)

	r.Route("/bookings", func(r chi.Router) {
		r.With(submitLimiter.Middleware(), mw.IdempotencyMiddleware(cacheClient)).
			Post("/create", h.CreateBooking)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.With(submitLimiter.Middleware()).Post("/create", h.CreateReview)
		r.Post("/verify", h.VerifyReview)
		r.With(adminLimiter.Middleware()).Post("/publish", h.PublishReview)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminLimiter.Middleware())
		r.Post("/reset-slots", h.ResetSlots)
		r.Route("/bookings", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/", h.ListBookings)
			r.Post("/approve", h.ApproveBooking)
			r.Post("/reject", h.RejectBooking)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting sessions API", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down sessions API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Sessions API error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/email"
	"github.com/jwalitptl/bookabot/internal/handler/health"
	"github.com/jwalitptl/bookabot/internal/handler/webhook"
	"github.com/jwalitptl/bookabot/internal/messenger/whatsapp"
	"github.com/jwalitptl/bookabot/internal/middleware"
	"github.com/jwalitptl/bookabot/internal/repository/postgres"
	"github.com/jwalitptl/bookabot/internal/router"
	"github.com/jwalitptl/bookabot/internal/service/booking"
	"github.com/jwalitptl/bookabot/internal/service/catalog"
	"github.com/jwalitptl/bookabot/internal/service/conversation"
	"github.com/jwalitptl/bookabot/internal/service/scheduling"
	"github.com/jwalitptl/bookabot/pkg/logger"
	"github.com/jwalitptl/bookabot/pkg/messaging"
	redisbroker "github.com/jwalitptl/bookabot/pkg/messaging/redis"
	"github.com/jwalitptl/bookabot/pkg/metrics"
	"github.com/jwalitptl/bookabot/pkg/worker"
)

func main() {
	logger.Setup(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	customerRepo := postgres.NewCustomerRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	messageLogRepo := postgres.NewMessageLogRepository(db)

	// The broker is optional; without Redis bookings still work, only the
	// email notification fan-out is disabled.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	m := metrics.NewMetrics("bookabot")

	catalogSvc := catalog.NewService(serviceRepo)
	schedulingSvc, err := scheduling.NewService(appointmentRepo, cfg.Booking)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduling")
	}
	bookingSvc := booking.NewService(appointmentRepo, serviceRepo, broker, m)

	sender := whatsapp.NewClient(cfg.WhatsApp)
	engine := conversation.NewEngine(conversation.NewStore(), catalogSvc, schedulingSvc, bookingSvc, sender, m)

	webhookHandler := webhook.NewHandler(engine, customerRepo, messageLogRepo, sender, cfg.WhatsApp, m)
	healthHandler := health.NewHandler(db)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
	}

	r := router.NewRouter(webhookHandler, healthHandler, router.Config{
		RateLimiter:   limiter,
		MetricsPrefix: "bookabot_http",
	})
	r.Setup()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if broker != nil && cfg.Notification.Enabled {
		notifier := worker.NewBookingNotifier(broker, email.NewService(cfg.Notification))
		go func() {
			if err := notifier.Start(workerCtx); err != nil {
				log.Error().Err(err).Msg("booking notifier stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

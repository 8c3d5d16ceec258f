// The worker binary runs the booking notification consumer on its own, for
// deployments that want webhook handling and email fan-out scaled separately.
// The api binary embeds the same consumer when notifications are enabled.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/email"
	"github.com/jwalitptl/bookabot/pkg/logger"
	redisbroker "github.com/jwalitptl/bookabot/pkg/messaging/redis"
	"github.com/jwalitptl/bookabot/pkg/worker"
)

func main() {
	logger.Setup(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Redis.URL == "" {
		log.Fatal().Msg("worker requires a Redis URL")
	}

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	setupHealthCheck()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	notifier := worker.NewBookingNotifier(broker, email.NewService(cfg.Notification))
	log.Info().Msg("booking notifier started")
	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("booking notifier failed")
	}
}

func setupHealthCheck() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()
}

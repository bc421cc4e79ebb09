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

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/config"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler"
	offerHandler "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler/offer"
	waitlistHandler "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler/waitlist"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository/postgres"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/router"
	auditService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
	notificationService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/notification"
	offerService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/lock"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/logger"
	redisbroker "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/messaging/redis"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/metrics"
)

func main() {
	// Initialize logger
	log.Logger = *logger.NewLogger(nil).ZL()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis message broker
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL: redisURL(cfg.Redis),
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Initialize repositories
	waitlistRepo := postgres.NewWaitlistRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Initialize services
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, cfg.Monitoring.Subsystem)
	auditSvc := auditService.NewService(auditRepo)
	notifySvc := notificationService.NewService(broker, m)
	scorer := priority.NewScorer(waitlistRepo, auditSvc)
	finder := matching.NewSlotFinder(scheduleRepo, cfg.Matching.HorizonDays)
	runLock := lock.NewRedisRunLock(broker.Client(), "waitlist:matching:run", cfg.Matching.RunLockTTL)
	orchestrator := matching.NewOrchestrator(waitlistRepo, scorer, finder, runLock, auditSvc, m)
	offerMgr := offerService.NewManager(waitlistRepo, offerRepo, orchestrator, notifySvc, auditSvc, m, cfg.Matching.ScoreThreshold, cfg.Matching.OfferTTL)

	// Initialize handlers
	h := handler.NewHandler()
	waitlistH := waitlistHandler.NewHandler(waitlistRepo, orchestrator, offerMgr, cfg.Matching.ScoreThreshold, cfg.Matching.OfferTTL)
	offerH := offerHandler.NewHandler(offerMgr, offerRepo)

	// Setup router
	r := router.NewRouter(waitlistH, offerH, h, router.RouterConfig{
		RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst: cfg.RateLimit.Burst,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func redisURL(c config.RedisConfig) string {
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", c.Password, c.Addr, c.DB)
	}
	return fmt.Sprintf("redis://%s/%d", c.Addr, c.DB)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/config"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/repository/postgres"
	auditService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/audit"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/matching"
	notificationService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/notification"
	offerService "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/offer"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/service/priority"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/worker"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/lock"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/logger"
	redisbroker "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/messaging/redis"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/metrics"
)

// workerEnv overrides worker-only knobs without touching the shared config
// file.
type workerEnv struct {
	HealthPort    int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	CycleInterval time.Duration `envconfig:"WORKER_CYCLE_INTERVAL"`
	SweepInterval time.Duration `envconfig:"WORKER_SWEEP_INTERVAL"`
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	log.Logger = *logger.NewLogger(nil).ZL()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("Failed to process worker environment")
	}
	if env.CycleInterval > 0 {
		cfg.Matching.CycleInterval = env.CycleInterval
	}
	if env.SweepInterval > 0 {
		cfg.Matching.SweepInterval = env.SweepInterval
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL: redisURL(cfg.Redis),
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	waitlistRepo := postgres.NewWaitlistRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	m := metrics.NewMetrics(cfg.Monitoring.Namespace, cfg.Monitoring.Subsystem)
	auditSvc := auditService.NewService(auditRepo)
	notifySvc := notificationService.NewService(broker, m)
	scorer := priority.NewScorer(waitlistRepo, auditSvc)
	finder := matching.NewSlotFinder(scheduleRepo, cfg.Matching.HorizonDays)
	runLock := lock.NewRedisRunLock(broker.Client(), "waitlist:matching:run", cfg.Matching.RunLockTTL)
	orchestrator := matching.NewOrchestrator(waitlistRepo, scorer, finder, runLock, auditSvc, m)
	offerMgr := offerService.NewManager(waitlistRepo, offerRepo, orchestrator, notifySvc, auditSvc, m, cfg.Matching.ScoreThreshold, cfg.Matching.OfferTTL)

	cycleWorker := worker.NewMatchingCycleWorker(orchestrator, offerMgr, cfg.Matching.CycleInterval, cfg.Matching.ScoreThreshold, cfg.Matching.OfferTTL)
	expiryWorker := worker.NewOfferExpiryWorker(offerMgr, cfg.Matching.SweepInterval, time.Duration(cfg.Matching.EntryMaxAgeDays)*24*time.Hour)

	setupHealthCheck(env.HealthPort)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cycleWorker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		expiryWorker.Start(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	wg.Wait()
}

func redisURL(c config.RedisConfig) string {
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", c.Password, c.Addr, c.DB)
	}
	return fmt.Sprintf("redis://%s/%d", c.Addr, c.DB)
}

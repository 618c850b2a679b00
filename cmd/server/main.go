package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	assessmentHandler "cat/internal/assessment/handler"
	assessmentService "cat/internal/assessment/service"
	assessmentStore "cat/internal/assessment/store"
	"cat/internal/audit"
	"cat/internal/jwttoken"
	"cat/internal/platform/config"
	"cat/internal/platform/httpserver"
	"cat/internal/platform/logger"
	"cat/internal/platform/metrics"
	"cat/internal/platform/redis"
	httptransport "cat/internal/transport/http"
	userCache "cat/internal/user/cache"
	userHandler "cat/internal/user/handler"
	userService "cat/internal/user/service"
	userStore "cat/internal/user/store"
	validationHandler "cat/internal/validation/handler"
	validationService "cat/internal/validation/service"
	validationStore "cat/internal/validation/store"
)

const auditInboxSize = 256

// main wires the dependency graph and owns process lifecycle. Business rules
// live in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		users       userService.Store
		validations validationService.Store
		gate        assessmentService.ValidationGate
		assessments assessmentService.Store
		auditStore  audit.Store
		healthCheck []func(ctx context.Context) error
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		users = userStore.NewPostgres(db)
		vs := validationStore.NewPostgres(db)
		validations, gate = vs, vs
		assessments = assessmentStore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		healthCheck = append(healthCheck, db.PingContext)
		log.Info("using postgres stores")
	} else {
		vs := validationStore.NewInMemory()
		users = userStore.NewInMemory()
		validations, gate = vs, vs
		assessments = assessmentStore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("CAT_POSTGRES_URL not set, using in-memory stores")
	}

	// Profile cache: enabled only when Redis is configured.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthCheck = append(healthCheck, redisClient.Health)
	}
	profiles := userCache.New(redisClient, cfg.Redis.ProfileTTL, log)

	// Audit pipeline: channel publisher feeding a worker that persists events
	// and, when brokers are configured, fans out to Kafka.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	}
	auditInbox := make(chan audit.Event, auditInboxSize)
	auditWorker := audit.NewWorker(auditStore, sink, auditInbox, log)
	publisher := audit.NewChannelPublisher(auditInbox)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	usersSvc := userService.New(users,
		userService.WithLogger(log),
		userService.WithProfileCache(profiles),
		userService.WithAuditPublisher(publisher),
		userService.WithMetrics(m),
	)
	validationsSvc := validationService.New(validations,
		validationService.WithLogger(log),
		validationService.WithAuditPublisher(publisher),
		validationService.WithMetrics(m),
		validationService.WithTerminalUpdates(cfg.AllowTerminalUpdates),
	)
	assessmentsSvc := assessmentService.New(assessments, gate,
		assessmentService.WithLogger(log),
		assessmentService.WithAuditPublisher(publisher),
		assessmentService.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		TokenCheck:   tokens,
		Resolver:     usersSvc,
		Users:        userHandler.New(usersSvc, log),
		Validations:  validationHandler.New(validationsSvc, log),
		Assessments:  assessmentHandler.New(assessmentsSvc, log),
		HealthChecks: healthCheck,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting cat service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

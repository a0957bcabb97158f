package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jobpazar/admin"
	"jobpazar/auth"
	"jobpazar/config"
	"jobpazar/db"
	"jobpazar/job"
	"jobpazar/lifecycle"
	"jobpazar/mail"
	"jobpazar/notification"
	"jobpazar/proposal"
	"jobpazar/ratelimit"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("jobpazar: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := db.NewPool(ctx, cfg.Database.URL,
		db.WithMaxConns(cfg.Database.MaxConns),
		db.WithApplicationName("jobpazar-api"),
	)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	logger := log.Default()
	mailer := mail.NewConsoleMailer(cfg.Mail.From, logger)

	userRepo := auth.NewRepository(pool)
	jobRepo := job.NewRepository(pool)
	proposalRepo := proposal.NewRepository(pool)
	notificationRepo := notification.NewRepository(pool)

	engine := lifecycle.NewEngine(pool, jobRepo, proposalRepo, userRepo, notification.NewNotifier(notificationRepo)).
		WithLogger(logger)
	dispatcher := notification.NewDispatcher(pool, notificationRepo, userRepo, mailer).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxAttempts(cfg.Outbox.MaxAttempts).
		WithInterval(cfg.Outbox.PollInterval).
		WithRetryDelay(cfg.Outbox.RetryDelay).
		WithLogger(logger)

	server := &Server{
		authService: auth.NewService(userRepo, cfg.Auth.JWTSecret).
			WithMailer(mailer).
			WithLogger(logger).
			WithTokenTTL(cfg.Auth.TokenTTL),
		jobService:          job.NewService(jobRepo, userRepo),
		proposalService:     proposal.NewService(proposalRepo),
		engine:              engine,
		notificationService: notification.NewService(notificationRepo),
		adminService:        admin.NewService(userRepo, jobRepo),
		db:                  pool,
		requestTimeout:      cfg.HTTP.RequestTimeout,
		logger:              logger,
	}

	if cfg.Redis.URL != "" {
		client, err := ratelimit.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		server.limiter = ratelimit.NewRedisLimiter(client, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
	} else {
		logger.Printf("[http] REDIS_URL not set; rate limiting disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("[http] listening on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

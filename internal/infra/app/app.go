package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/config"
	"github.com/arklim/social-platform-membership/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-membership/internal/infra/kafka"
	"github.com/arklim/social-platform-membership/internal/infra/logger"
	"github.com/arklim/social-platform-membership/internal/infra/mail"
	redisinfra "github.com/arklim/social-platform-membership/internal/infra/redis"
	"github.com/arklim/social-platform-membership/internal/infra/security"
	"github.com/arklim/social-platform-membership/internal/infra/telemetry"
	postgresrepo "github.com/arklim/social-platform-membership/internal/repository/postgres"
	redisrepo "github.com/arklim/social-platform-membership/internal/repository/redis"
	"github.com/arklim/social-platform-membership/internal/transport/http/middleware"
	"github.com/arklim/social-platform-membership/internal/transport/http/routes"
	"github.com/arklim/social-platform-membership/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
			tracer = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.App.Env != "development" {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	hasher := security.NewPasswordHasher(security.IterationPolicy{
		BaseIterations:      cfg.Crypto.BaseIterations,
		DoublingPeriodYears: cfg.Crypto.DoublingPeriodYears,
		EpochYear:           cfg.Crypto.EpochYear,
	})
	validator := security.DefaultPasswordValidator(security.PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		MinUppercase:     cfg.Password.MinUppercase,
		MinLowercase:     cfg.Password.MinLowercase,
		MinDigits:        cfg.Password.MinDigits,
		MinSymbols:       cfg.Password.MinSymbols,
		MinStrengthScore: cfg.Password.MinStrengthScore,
	})
	codeIssuer := security.NewCodeIssuer()
	resetCodeHasher := security.ResetCodeHasher{}

	loginRepo := postgresrepo.NewLoginRepository(pool)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitTTL := cfg.Redis.RateLimitTTL
	if rateLimitTTL <= 0 {
		rateLimitTTL = rateLimitWindow * 2
	}
	rateLimitPrefix := cfg.Redis.RateLimitPrefix
	if rateLimitPrefix == "" {
		rateLimitPrefix = "membership:rate_limit"
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: rateLimitPrefix,
		TTL:       rateLimitTTL,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	emailService := mail.NewEmailService(cfg.SMTP, log)
	smsService := mail.NewLoggingSmsService(log)
	formatter := mail.NewDefaultMessageFormatter()

	authService := usecase.NewAuthService(cfg, loginRepo, rateLimitStore, eventPublisher, hasher, metrics, log)
	accountService := usecase.NewAccountService(loginRepo, eventPublisher, emailService, formatter, hasher, validator, codeIssuer, metrics, log)
	verificationService := usecase.NewVerificationService(cfg, loginRepo, rateLimitStore, eventPublisher, emailService, smsService, formatter, codeIssuer, metrics, log)
	passwordResetService := usecase.NewPasswordResetService(cfg, loginRepo, rateLimitStore, eventPublisher, emailService, formatter, hasher, validator, codeIssuer, resetCodeHasher, metrics, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Accounts:      accountService,
			Verification:  verificationService,
			PasswordReset: passwordResetService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting membership API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

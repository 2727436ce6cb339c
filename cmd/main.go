package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/sessionguard/internal/api/grpc/context"
	"github.com/dtroode/sessionguard/internal/api/grpc/router"
	grpcServer "github.com/dtroode/sessionguard/internal/api/grpc/server"
	"github.com/dtroode/sessionguard/internal/config"
	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/mail"
	"github.com/dtroode/sessionguard/internal/metrics"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/ratelimit"
	"github.com/dtroode/sessionguard/internal/repository/postgres"
	"github.com/dtroode/sessionguard/internal/security"
	"github.com/dtroode/sessionguard/internal/service"
	storage "github.com/dtroode/sessionguard/internal/storage/minio"
	"github.com/dtroode/sessionguard/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig(".env")
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	logAppVersion()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	clock := model.SystemClock{}
	appMetrics := metrics.New()

	principalRepo := postgres.NewPrincipalRepository(db)
	sessionRepo := postgres.NewRefreshSessionRepository(db)
	revocationRepo := postgres.NewRevocationRepository(db)
	verificationRepo, err := postgres.NewActionTokenRepository(db, model.ActionVerification)
	if err != nil {
		logger.Fatal("failed to create verification token repository", "error", err)
	}
	resetRepo, err := postgres.NewActionTokenRepository(db, model.ActionPasswordReset)
	if err != nil {
		logger.Fatal("failed to create password reset token repository", "error", err)
	}

	codec, err := token.NewJWT(cfg.JWT.Secret, revocationRepo,
		token.WithAccessTTL(cfg.JWT.AccessTTL),
		token.WithRefreshTTL(cfg.JWT.RefreshTTL),
	)
	if err != nil {
		logger.Fatal("failed to create token codec", "error", err)
	}

	mailSender, err := newMailSender(ctx, cfg, clock, logger)
	if err != nil {
		logger.Fatal("failed to create mail sender", "error", err)
	}

	limiter := ratelimit.New(ratelimit.WithLimits(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window))
	hasher := security.NewBcryptHasher(0)

	revocations := service.NewRevocations(revocationRepo, codec, clock, appMetrics, logger)
	sessions := service.NewSessions(sessionRepo, revocations, db, clock, cfg.JWT.RefreshTTL, cfg.Session.SinglePerPrincipal, logger)
	verifications := service.NewActionTokens(model.ActionVerification, verificationRepo, db, clock, cfg.Action.VerificationTTL, logger)
	resets := service.NewActionTokens(model.ActionPasswordReset, resetRepo, db, clock, cfg.Action.PasswordResetTTL, logger)

	authService := service.NewAuth(service.AuthDeps{
		Codec:         codec,
		Sessions:      sessions,
		Revocations:   revocations,
		Verifications: verifications,
		Resets:        resets,
		Limiter:       limiter,
		Principals:    principalRepo,
		Authenticator: security.NewPasswordAuthenticator(principalRepo, hasher),
		Hasher:        hasher,
		Mail:          mailSender,
		Tx:            db,
		Clock:         clock,
		Metrics:       appMetrics,
		Logger:        logger,
		FrontendURL:   cfg.Mail.FrontendURL,
	})
	cleanup := service.NewCleanup(revocations, sessions, verifications, resets, limiter, clock, appMetrics, logger)

	gs := router.New(authService, grpcctx.NewManager(), logger).Register()
	reflection.Register(gs)
	srv := grpcServer.NewGRPCServer(gs, fmt.Sprintf(":%s", cfg.GRPC.Port))
	securityLayer := grpcServer.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsMux(appMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting gRPC server", "address", srv.Address())
		return srv.Start(securityLayer)
	})

	g.Go(func() error {
		logger.Info("starting metrics server", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return cleanup.Start(gCtx, cfg.Cleanup.Interval)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Stop(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
	}
	logger.Info("shutdown complete")
}

func newMailSender(ctx context.Context, cfg *config.Config, clock model.Clock, logger *logger.Logger) (model.MailSender, error) {
	switch cfg.Mail.Driver {
	case "log":
		return mail.NewLogSender(logger), nil
	case "outbox":
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage client: %w", err)
		}
		return mail.NewOutboxSender(storageClient, clock), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

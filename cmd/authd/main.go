package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/background"
	"github.com/BradenHooton/autentica/internal/config"
	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/geo"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/metrics"
	middlewareCustom "github.com/BradenHooton/autentica/internal/middleware"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/oauth"
	"github.com/BradenHooton/autentica/internal/repositories"
	"github.com/BradenHooton/autentica/internal/services"
	pkgauth "github.com/BradenHooton/autentica/pkg/auth"
	pkghttp "github.com/BradenHooton/autentica/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pquerna/otp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	cleanupOnce := flag.Bool("cleanup-once", false, "run one cleanup pass and exit")
	verify := flag.Bool("verify-signatures", false, "verify row signatures, print the report and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	metrics.MustRegister("autentica")

	app, err := buildApp(cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize services", slog.Any("error", err))
		db.Close()
		os.Exit(1)
	}
	defer app.close()

	code := 0
	switch {
	case *verify:
		code = runVerify(app, logger)
	case *cleanupOnce:
		code = runCleanupOnce(app, logger)
	default:
		serve(cfg, db, app, logger)
	}

	if code != 0 {
		app.close()
		db.Close()
		os.Exit(code)
	}
}

// app holds everything the ops binary drives
type app struct {
	cleanup   *services.CleanupService
	integrity *services.IntegrityService
	closers   []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func buildApp(cfg *config.Config, db *database.DB, logger *slog.Logger) (*app, error) {
	signer, err := integrity.NewSigner(cfg.Security.SignatureKey)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	cipher, err := auth.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	hasher, err := pkgauth.NewHasher(cfg.Security.HashDriver, cfg.Security.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hasher: %w", err)
	}

	a := &app{}

	// Initialize repositories
	authMethodRepo := repositories.NewAuthMethodRepository(db, signer)
	tokenRepo := repositories.NewTokenRepository(db, signer)
	mfaConfigRepo := repositories.NewMfaConfigRepository(db, signer)
	backupCodeRepo := repositories.NewBackupCodeRepository(db, signer)
	deviceRepo := repositories.NewTrustedDeviceRepository(db, signer)
	sessionRepo := repositories.NewSessionRepository(db, signer)
	socialRepo := repositories.NewSocialAccountRepository(db, signer)

	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Security.FailureDelay,
		RandomDelay: cfg.Security.FailureJitter,
	})

	// Initialize services
	methods := services.NewAuthMethodService(authMethodRepo)

	mfaService := services.NewMFAService(mfaConfigRepo, methods, auth.NewTOTPEngine(), cipher, timing, logger, services.MFAConfig{
		Issuer: cfg.MFA.Issuer,
		TOTP: auth.TOTPOptions{
			Period:    cfg.MFA.Period,
			Digits:    otp.Digits(cfg.MFA.Digits),
			Algorithm: totpAlgorithm(cfg.MFA.Algorithm),
			Window:    cfg.MFA.Window,
		},
		SecretLength:      cfg.MFA.SecretLength,
		ChannelCodePeriod: cfg.MFA.ChannelCodePeriod,
	})

	if cfg.Email.FromAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sender, err := services.NewSESCodeSender(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.MFA.Issuer, logger)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("email sender: %w", err)
		}
		mfaService.RegisterSender(models.MfaEmail, sender)
	}

	backupCodes := services.NewBackupCodeService(backupCodeRepo, db, hasher, timing, logger, services.BackupCodeConfig{
		Count:        cfg.MFA.BackupCodeCount,
		Length:       cfg.MFA.BackupCodeLength,
		LowWaterMark: cfg.MFA.BackupCodeLowWaterMark,
		Retention:    cfg.MFA.BackupCodeRetention,
	})

	tokens := services.NewTokenService(tokenRepo, hasher, logger, services.TokenConfig{
		RememberTTL: cfg.Tokens.RememberTTL,
		SessionTTL:  cfg.Tokens.SessionTTL,
		APITTL:      cfg.Tokens.APITTL,
	})

	devices := services.NewTrustedDeviceService(deviceRepo, db, logger, services.DeviceConfig{
		MaxDevices:    cfg.Devices.MaxDevices,
		InactiveAfter: cfg.Devices.InactiveAfter,
	})

	resolver, closeResolver := buildResolver(cfg, logger)
	if closeResolver != nil {
		a.closers = append(a.closers, closeResolver)
	}

	sessions := services.NewSessionService(sessionRepo, devices, resolver, db, logger, services.SessionConfig{
		MaxConcurrent: cfg.Sessions.MaxConcurrent,
		InactiveAfter: cfg.Sessions.InactiveAfter,
		GeoTimeout:    cfg.Geo.Timeout,
		ActiveWithin:  cfg.Sessions.ActiveWithin,
		IdleWithin:    cfg.Sessions.IdleWithin,
	})

	// The web layer owns sign-in flows; here the client only reports what is configured.
	oauthClient := oauth.NewClient(oauth.Config{
		Credentials: map[models.Provider]oauth.Credentials{
			models.ProviderGoogle:    {ClientID: cfg.OAuth.Google.ClientID, ClientSecret: cfg.OAuth.Google.ClientSecret},
			models.ProviderMicrosoft: {ClientID: cfg.OAuth.Microsoft.ClientID, ClientSecret: cfg.OAuth.Microsoft.ClientSecret},
			models.ProviderGitHub:    {ClientID: cfg.OAuth.GitHub.ClientID, ClientSecret: cfg.OAuth.GitHub.ClientSecret},
			models.ProviderFacebook:  {ClientID: cfg.OAuth.Facebook.ClientID, ClientSecret: cfg.OAuth.Facebook.ClientSecret},
		},
		HTTPTimeout: cfg.OAuth.HTTPTimeout,
		StateSecret: cfg.Security.OAuthStateKey,
		StateTTL:    cfg.OAuth.StateTTL,
	}, logger)

	logger.Info("services initialized",
		slog.Any("oauth_providers", oauthClient.Configured()),
		slog.Bool("email_mfa", cfg.Email.FromAddress != ""),
		slog.Bool("geo", cfg.Geo.Enabled),
	)

	a.cleanup = services.NewCleanupService(tokens, backupCodes, devices, sessions, logger)
	a.integrity = services.NewIntegrityService(map[string]services.SignatureAuditor{
		"auth_methods":     authMethodRepo,
		"auth_tokens":      tokenRepo,
		"mfa_configs":      mfaConfigRepo,
		"mfa_backup_codes": backupCodeRepo,
		"trusted_devices":  deviceRepo,
		"user_sessions":    sessionRepo,
		"social_accounts":  socialRepo,
	}, logger)

	return a, nil
}

// buildResolver returns nil when geolocation is disabled, which the
// session registry treats as an unknown location.
func buildResolver(cfg *config.Config, logger *slog.Logger) (services.LocationResolver, func() error) {
	if !cfg.Geo.Enabled {
		return nil, nil
	}

	var resolver geo.Resolver = geo.NewHTTPResolver(cfg.Geo.URL, cfg.Geo.Timeout, logger).
		WithIPRedaction(cfg.Server.Env == "production")
	if cfg.Redis.URL == "" {
		return resolver, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := geo.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.PoolSize)
	if err != nil {
		logger.Warn("geolocation cache unavailable, resolving directly", slog.Any("error", err))
		return resolver, nil
	}
	return geo.NewCachedResolver(resolver, client, cfg.Geo.CacheTTL, logger), client.Close
}

func runVerify(a *app, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := a.integrity.VerifyAll(ctx)
	if err != nil {
		logger.Error("signature verification failed", slog.Any("error", err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Clean() {
		return 2
	}
	return 0
}

func runCleanupOnce(a *app, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := a.cleanup.Run(ctx)
	logger.Info("cleanup finished", slog.Int64("rows", report.Total()))
	if err != nil {
		logger.Error("cleanup failed", slog.Any("error", err))
		return 1
	}
	return 0
}

func serve(cfg *config.Config, db *database.DB, a *app, logger *slog.Logger) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	cleanupManager := background.NewCleanupManager(a.cleanup, logger, cfg.Cleanup.Interval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middlewareCustom.RateLimitByIP(middlewareCustom.DefaultOpsRateLimit(), ipConfig))

	router.Get("/health", healthHandler(db))
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting ops server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthHandler reports 503 while the database is unreachable
func healthHandler(db healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteServiceUnavailable(w, "database unavailable")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func totpAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

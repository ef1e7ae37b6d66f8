package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/config"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/admin"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/consultation"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/doctor"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/medicine"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/patient"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/setting"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/blobstore"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/featureflag"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/middleware"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/notification"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/migrations"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bhishak-server",
		Short:        "Bhishak telemedicine API server",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(adminCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			migrator := db.NewMigrator(cfg.DatabaseURL, migrations.FS)
			if err := migrator.Up(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully.")
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := db.NewMigrator(cfg.DatabaseURL, migrations.FS).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	})

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Fprintln(cmd.OutOrStdout(), "Use the goose CLI against the migrations/ directory to roll back.")
			return nil
		},
	})

	return cmd
}

func printStatus(w io.Writer, st *db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-10s %s\n", "CURRENT", "LATEST", "PENDING")
	fmt.Fprintf(w, "%-10d %-10d %d\n", st.Current, st.Latest, st.Pending)
	if st.Pending == 0 {
		fmt.Fprintln(w, "Schema is up to date.")
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage back-office accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			if email == "" || name == "" {
				return fmt.Errorf("--email and --name are required")
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := admin.NewService(admin.NewRepo(pool), nil, nil, nil, zerolog.Nop())
			account, err := svc.Create(ctx, email, name, password, role)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created with role %s (id %s)\n", account.Email, account.Role, account.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Login email")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("role", auth.RoleAdmin, "ADMIN or SUPER_ADMIN")

	cmd.AddCommand(createCmd)
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the command can be scripted.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.UsingDevSecret() {
		logger.Warn().Str("env", cfg.Env).
			Msg("DEVELOPMENT: tokens are signed with the built-in insecure secret; set JWT_SECRET before deploying")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Object storage
	var presigner blobstore.Presigner
	if cfg.S3Enabled() {
		s3, err := blobstore.NewS3(ctx, blobstore.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			TTL:       cfg.S3PresignTTL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure object storage")
		}
		presigner = s3
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("object storage enabled")
	} else {
		logger.Warn().Msg("S3_BUCKET not set, image uploads are disabled")
	}

	e := newServer(cfg, pool, presigner, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires every domain onto an echo instance backed by pool.
func newServer(cfg *config.Config, pool *pgxpool.Pool, presigner blobstore.Presigner, logger zerolog.Logger) *echo.Echo {
	// Shared services
	auditRepo := audit.NewRepo(pool)
	recorder := audit.NewRecorder(auditRepo, logger)
	urls := blobstore.NewURLResolver(cfg.APIBaseURL, presigner)
	loginLimiter := limiter.NewPG(pool, cfg.LoginLockout, cfg.LoginMaxFailures, cfg.LoginLockout)
	notifier := notification.NewNotifier(notification.NewLogSender(logger), notification.NewTemplateEngine(), 3, 500*time.Millisecond)

	patientTokens := auth.NewPatientTokens(
		auth.NewSigner([]byte(cfg.JWTSecret), cfg.AccessTokenTTL),
		auth.NewSigner([]byte(cfg.JWTRefreshSecret), cfg.RefreshTokenTTL),
	)
	adminTokens := auth.NewAdminTokens(auth.NewSigner([]byte(cfg.AdminJWTSecret), cfg.AdminTokenTTL))

	settingSvc := setting.NewService(setting.NewRepo(pool), recorder, logger)
	gate := featureflag.NewGate(settingSvc, cfg.FeatureEnv(), logger)

	adminRepo := admin.NewRepo(pool)
	adminSvc := admin.NewService(adminRepo, adminTokens, loginLimiter, recorder, logger)
	auditSvc := audit.NewService(auditRepo, adminRepo, logger)
	medicineSvc := medicine.NewService(medicine.NewRepo(pool), recorder, urls, presigner, cfg.S3PresignTTL, logger)
	doctorSvc := doctor.NewService(doctor.NewRepo(pool), urls)
	consultationSvc := consultation.NewService(consultation.NewRepo(pool), urls)
	patientSvc := patient.NewService(patient.Config{
		OTPLength:      cfg.OTPLength,
		OTPTTL:         cfg.OTPTTL,
		ResendInterval: cfg.OTPResendInterval,
		MaxAttempts:    cfg.OTPMaxAttempts,
	}, patient.NewRepo(pool), patient.NewOTPRepo(pool), patientTokens, loginLimiter, notifier, recorder, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpx.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-Access-Reason"},
		ExposeHeaders:    []string{"Content-Disposition", "Retry-After", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API groups
	api := e.Group("/api/v1")
	adminGroup := api.Group("", auth.RequireAdmin(adminTokens), middleware.AdminAccess(logger, recorder))
	pa := api.Group("/patient-auth")
	patientGroup := pa.Group("", auth.RequirePatient(patientTokens))

	patient.NewHandler(patientSvc).RegisterRoutes(pa, patientGroup, gate.RequirePatientSignup())
	consultation.NewHandler(consultationSvc).RegisterRoutes(patientGroup)
	setting.NewHandler(settingSvc, gate).RegisterRoutes(api, adminGroup)
	admin.NewHandler(adminSvc).RegisterRoutes(api, adminGroup)
	audit.NewHandler(auditSvc).RegisterRoutes(adminGroup)
	medicine.NewHandler(medicineSvc).RegisterRoutes(api, adminGroup)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)

	return e
}

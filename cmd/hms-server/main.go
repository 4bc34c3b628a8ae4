package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mmh/hms/internal/config"
	"github.com/mmh/hms/internal/domain/auditexport"
	"github.com/mmh/hms/internal/domain/diagnostics"
	"github.com/mmh/hms/internal/domain/identity"
	"github.com/mmh/hms/internal/domain/medication"
	"github.com/mmh/hms/internal/domain/messaging"
	"github.com/mmh/hms/internal/domain/patient"
	"github.com/mmh/hms/internal/domain/vitals"
	"github.com/mmh/hms/internal/platform/blobstore"
	"github.com/mmh/hms/internal/platform/db"
	"github.com/mmh/hms/internal/platform/middleware"
	"github.com/mmh/hms/internal/platform/reporting"
	"github.com/mmh/hms/internal/platform/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management System API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HMS API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// userCmd bootstraps staff accounts from the command line. The first admin
// has to come from somewhere before the /users API is reachable.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID, _ := cmd.Flags().GetString("employee-id")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			department, _ := cmd.Flags().GetString("department")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewRepo(pool), session.NewPGStoreFromPool(pool))
			user, err := svc.Create(ctx, identity.CreateInput{
				EmployeeID: employeeID,
				Username:   username,
				Password:   password,
				Role:       role,
				Department: department,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created %s (%s, %s) with id %s\n", user.Username, user.Role, user.Department, user.ID)
			return nil
		},
	}
	createCmd.Flags().String("employee-id", "", "Employee badge number")
	createCmd.Flags().String("username", "", "Login username")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", "", "Role (admin, doctor, nurse, pharmacist, lab, radiology)")
	createCmd.Flags().String("department", "", "Department label")

	cmd.AddCommand(createCmd)
	return cmd
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

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Infrastructure tables that aren't part of the clinical schema.
	if _, err := pool.Exec(ctx, session.MigrationSessions); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure sessions table")
	}
	if _, err := pool.Exec(ctx, blobstore.MigrationImages); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure images table")
	}

	// Session signing key. Production requires a configured key; in
	// development an ephemeral one is generated at startup.
	signingKey := []byte(cfg.SessionKey)
	if len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := crypto_rand.Read(signingKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate session key")
		}
	}

	sessions := session.NewPGStoreFromPool(pool)
	issuer := session.NewTokenIssuer(signingKey, cfg.SessionTTL)
	secureCookie := cfg.IsProduction() || cfg.TLSEnabled

	// Expired sessions are purged in the background; failures are logged
	// and retried on the next tick.
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if err := sessions.Cleanup(cleanupCtx); err != nil {
					logger.Error().Err(err).Msg("session cleanup failed")
				}
			}
		}
	}()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("10M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID", "X-CSRF-Token"},
		AllowCredentials: true,
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Public routes: login lives outside the session middleware.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(rateLimitCfg))

	// Authenticated API: every route below resolves the session cookie,
	// enforces CSRF on mutations, and records an audit line.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(session.Middleware(sessions, issuer))
	apiV1.Use(session.CSRF(sessions))
	apiV1.Use(middleware.Audit(logger))

	// -- Register Domain Handlers --

	// Patient registry
	patientSvc := patient.NewService(patient.NewRepo(pool), pool)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Vitals
	vitalsSvc := vitals.NewService(vitals.NewRepo(pool), patientSvc)
	vitals.NewHandler(vitalsSvc).RegisterRoutes(apiV1)

	// Diagnostics, with Postgres-backed image storage
	images := blobstore.NewPGImageStore(pool, cfg.ImageMaxBytes)
	dxSvc := diagnostics.NewService(diagnostics.NewRepo(pool), patientSvc, images)
	diagnostics.NewHandler(dxSvc).RegisterRoutes(apiV1)

	// Medication
	medSvc := medication.NewService(medication.NewRepo(pool), patientSvc)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1)

	// Messaging
	msgSvc := messaging.NewService(messaging.NewRepo(pool), patientSvc)
	messaging.NewHandler(msgSvc).RegisterRoutes(apiV1)

	// Identity and sessions
	identitySvc := identity.NewService(identity.NewRepo(pool), sessions)
	identityHandler := identity.NewHandler(identitySvc, sessions, issuer, secureCookie)
	identityHandler.RegisterPublicRoutes(public)
	identityHandler.RegisterRoutes(apiV1)

	// Export audit log
	exportSvc := auditexport.NewService(auditexport.NewRepo(pool), logger)
	auditexport.NewHandler(exportSvc).RegisterRoutes(apiV1)

	// Reporting framework; served reports land in the export log
	reporting.NewHandler(pool, exportSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var startErr error
		if cfg.TLSEnabled {
			startErr = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			startErr = e.Start(addr)
		}
		if startErr != nil && startErr != http.ErrServerClosed {
			logger.Fatal().Err(startErr).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

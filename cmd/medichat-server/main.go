package main

import (
	"context"
	"fmt"
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

	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/domain/chat"
	"github.com/medichat/medichat/internal/domain/identity"
	"github.com/medichat/medichat/internal/domain/patient"
	"github.com/medichat/medichat/internal/platform/auth"
	"github.com/medichat/medichat/internal/platform/blobstore"
	"github.com/medichat/medichat/internal/platform/db"
	"github.com/medichat/medichat/internal/platform/llm"
	"github.com/medichat/medichat/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medichat-server",
		Short: "MediChat API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MediChat API server",
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

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with demo accounts and patient records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store != "postgres" {
				return fmt.Errorf("seed requires STORE=postgres (the memory store seeds itself on serve)")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			if err := seedStores(ctx, cfg, logger,
				identity.NewUserRepoPG(pool),
				patient.NewProfileRepoPG(pool),
				patient.NewDocumentRepoPG(pool)); err != nil {
				return err
			}
			fmt.Println("Seeded demo accounts and patient records.")
			return nil
		},
	}
}

func seedStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger,
	users identity.UserRepository, profiles patient.ProfileRepository, documents patient.DocumentRepository) error {
	codec := auth.NewTokenCodec(sessionSecret(cfg), time.Duration(cfg.SessionTTLMins)*time.Minute)
	sessions := identity.NewSessions(users, codec, identity.AllowAll{}, logger)
	if err := sessions.Seed(ctx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := patient.Seed(ctx, profiles, documents); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	return nil
}

// sessionSecret returns the configured secret, falling back to a fixed
// development-only value so dev tokens survive restarts.
func sessionSecret(cfg *config.Config) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	return []byte("medichat-dev-secret")
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Stores
	var (
		pool         *pgxpool.Pool
		userRepo     identity.UserRepository
		profileRepo  patient.ProfileRepository
		documentRepo patient.DocumentRepository
		messageRepo  chat.MessageRepository
	)
	switch cfg.Store {
	case "postgres":
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		userRepo = identity.NewUserRepoPG(pool)
		profileRepo = patient.NewProfileRepoPG(pool)
		documentRepo = patient.NewDocumentRepoPG(pool)
		messageRepo = chat.NewMessageRepoPG(pool)
	default:
		userRepo = identity.NewUserRepoMem()
		profileRepo = patient.NewProfileRepoMem()
		documentRepo = patient.NewDocumentRepoMem()
		messageRepo = chat.NewMessageRepoMem()

		// The memory store starts empty on every boot; give it the demo data.
		if err := seedStores(ctx, cfg, logger, userRepo, profileRepo, documentRepo); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed memory store")
		}
		logger.Info().Msg("using in-memory store with demo data")
	}

	// Platform services
	codec := auth.NewTokenCodec(sessionSecret(cfg), time.Duration(cfg.SessionTTLMins)*time.Minute)
	blobs := blobstore.NewInMemoryBlobStore(cfg.MaxUploadBytes)

	// Domain services
	patientSvc := patient.NewService(profileRepo, documentRepo, blobs)

	var verifier identity.CredentialVerifier = identity.NewBcryptVerifier(patientSvc)
	if cfg.IsDev() {
		verifier = identity.AllowAll{}
	}
	sessionSvc := identity.NewSessions(userRepo, codec, verifier, logger).
		WithProfileDirectory(patientSvc)

	var backend llm.Client
	if cfg.OpenAIAPIKey != "" {
		backend = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, chat responses will fall back")
		backend = llm.Unavailable{}
	}
	conversationSvc := chat.NewConversation(messageRepo, chat.NewGenerator(backend), patientSvc, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.Middleware(codec))

	// Routes
	apiV1 := e.Group("/api/v1")
	identity.NewHandler(sessionSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	chat.NewHandler(conversationSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
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
	return nil
}

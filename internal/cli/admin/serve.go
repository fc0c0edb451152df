package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openailib "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/quillbase-ai/quillbase/internal/api/handlers"
	"github.com/quillbase-ai/quillbase/internal/api/middleware"
	"github.com/quillbase-ai/quillbase/internal/config"
	"github.com/quillbase-ai/quillbase/internal/database"
	"github.com/quillbase-ai/quillbase/internal/jobs"
	"github.com/quillbase-ai/quillbase/internal/openai"
	"github.com/quillbase-ai/quillbase/internal/repository"
	"github.com/quillbase-ai/quillbase/internal/server"
	"github.com/quillbase-ai/quillbase/internal/service"
	"github.com/quillbase-ai/quillbase/internal/storage"
	"github.com/quillbase-ai/quillbase/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the quillbase API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Skip starting the embedding backfill worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	apiKeys := cfg.ParseAPIKeys()
	if len(apiKeys) == 0 {
		log.Println("warning: no API keys configured, all requests will be rejected")
	}

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("QUILLBASE_OPENAI_API_KEY is required: the engine does not fall back to lexical matching")
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openailib.EmbeddingModel(cfg.EmbeddingModel),
	})
	gateway := service.NewEmbeddingGatewayWithTimeout(embeddingClient,
		time.Duration(cfg.EmbeddingTimeoutSec)*time.Second)

	converter := service.NewConverter()
	engine := service.NewRelevanceEngine(gateway)

	ingestSvc := service.NewIngestService(converter, gateway, knowledgeRepo)
	searchSvc := service.NewSearchService(knowledgeRepo, engine, searchLogRepo)
	corpusSvc := service.NewCorpusService(knowledgeRepo, knowledgeRepo)

	var archiver handlers.SourceArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready for source archiving", cfg.S3Bucket)
		archiver = s3Client
	}

	var ingestHandler *handlers.IngestHandler
	if archiver != nil {
		ingestHandler = handlers.NewIngestHandlerWithArchiver(ingestSvc, archiver)
	} else {
		ingestHandler = handlers.NewIngestHandler(ingestSvc)
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: middleware.NewStaticKeyValidator(apiKeys),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		IngestHandler: ingestHandler,
		CorpusHandler: handlers.NewCorpusHandler(corpusSvc),
	})

	var reembedWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		processor := jobs.NewReembedWorker(knowledgeRepo, gateway)
		reembedWorker = jobs.NewWorker(processor, time.Duration(cfg.ReembedIntervalSec)*time.Second)
		go reembedWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if reembedWorker != nil {
		reembedWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

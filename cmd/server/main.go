package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/config"
	"modelibr/internal/database"
	"modelibr/internal/events"
	"modelibr/internal/handlers"
	"modelibr/internal/jobqueue"
	"modelibr/internal/logger"
	"modelibr/internal/objectstore"
	"modelibr/internal/observability"
	"modelibr/internal/processor"
	"modelibr/internal/pushhub"
	"modelibr/internal/recycle"
	"modelibr/internal/router"
	"modelibr/internal/upload"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	port := getEnv("PORT", "3001")
	env := getEnv("NODE_ENV", "development")

	slogger := logger.Init("modelibr", env, logger.ParseLevelFromEnv())

	shutdownOTel, err := observability.InitOTel(context.Background(), "modelibr-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Printf("Error shutting down OpenTelemetry: %v", err)
			}
		}()
		log.Println("✓ OpenTelemetry initialized")
	}

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(databaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("✓ Connected to PostgreSQL")

	objects, err := objectstore.New()
	if err != nil {
		log.Fatal("Failed to connect to object store:", err)
	}
	blobs := blobstore.NewWithRoot(objects, config.LoadUploads().BlobStoreRoot)
	graph := assetgraph.NewRepository(db)
	bus := events.NewBus()

	queueCfg := config.LoadQueue()
	queueRepo := jobqueue.NewRepository(db)
	workerClient := jobqueue.NewWorkerClient(queueRepo)

	hub := pushhub.NewHub(slogger)

	// Domain event handlers enqueue the derived-state jobs a successful
	// upload implies, decoupled from the upload transaction itself.
	bus.Subscribe(events.KindModelUploaded, false, func(ctx context.Context, event any) error {
		e := event.(events.ModelUploaded)
		jobID, wasNew, err := queueRepo.Enqueue(ctx, jobqueue.EnqueueParams{
			Kind:           assetmodel.JobKindModelThumbnail,
			TargetEntityID: e.VersionID,
			TargetBlobHash: e.BlobHash,
			MaxAttempts:    queueCfg.MaxAttempts,
		})
		if err == nil && wasNew {
			hub.BroadcastJobAdded(jobID, assetmodel.JobKindModelThumbnail)
		}
		return err
	})
	bus.Subscribe(events.KindSoundUploaded, false, func(ctx context.Context, event any) error {
		e := event.(events.SoundUploaded)
		jobID, wasNew, err := queueRepo.Enqueue(ctx, jobqueue.EnqueueParams{
			Kind:           assetmodel.JobKindSoundWaveform,
			TargetEntityID: e.SoundID,
			TargetBlobHash: e.BlobHash,
			MaxAttempts:    queueCfg.MaxAttempts,
		})
		if err == nil && wasNew {
			hub.BroadcastJobAdded(jobID, assetmodel.JobKindSoundWaveform)
		}
		return err
	})
	bus.Subscribe(events.KindTextureSetChanged, false, func(ctx context.Context, event any) error {
		e := event.(events.TextureSetChanged)
		jobID, wasNew, err := queueRepo.Enqueue(ctx, jobqueue.EnqueueParams{
			Kind:           assetmodel.JobKindTextureSetThumbnail,
			TargetEntityID: e.TextureSetID,
			TargetBlobHash: e.BlobHash,
			MaxAttempts:    queueCfg.MaxAttempts,
		})
		if err == nil && wasNew {
			hub.BroadcastJobAdded(jobID, assetmodel.JobKindTextureSetThumbnail)
		}
		return err
	})

	uploads := upload.NewService(blobs, graph, bus)
	recycleService := recycle.NewService(graph)

	// The classifier engine is an external processor; the toggle is read
	// here so operators get startup-time feedback on the flag either way.
	if clsCfg := config.LoadClassification(); clsCfg.Enabled {
		slogger.Info("image classification enabled",
			"min_confidence", clsCfg.MinConfidence, "max_tags", clsCfg.MaxTags)
	} else {
		slogger.Info("image classification disabled")
	}

	// Processors run embedded in the API process so the completion side
	// effect (write Thumbnail row, push ThumbnailStatusChanged) can reach
	// the same Hub instance that holds client connections. cmd/worker offers
	// a horizontally-scaled out-of-process alternative; see its own doc
	// comment for the push-fabric tradeoff that comes with it.
	renderer := processor.NewPlaceholderRenderer()
	registry := processor.NewRegistry()
	registry.Register(processor.NewModelThumbnailProcessor(blobs, graph, renderer, hub))
	registry.Register(processor.NewSoundWaveformProcessor(blobs, graph, renderer, hub))
	registry.Register(processor.NewTextureSetThumbnailProcessor(blobs, graph, renderer, hub))
	registry.Register(processor.NewMeshAnalysisProcessor())

	workerCfg := config.LoadWorker()
	pool := processor.NewPool(workerCfg.PoolSizePerKind*len(registry.AcceptedKinds()), workerClient, registry, queueCfg.LeaseDuration, queueCfg.IdleBackoff, "embedded", hub)

	h := router.Handlers{
		Models:      handlers.NewModelHandler(graph, uploads, hub),
		TextureSets: handlers.NewTextureSetHandler(graph, uploads),
		Media:       handlers.NewMediaHandler(graph, uploads),
		Thumbnails:  handlers.NewThumbnailHandler(graph, blobs, queueRepo),
		Jobs:        handlers.NewJobHandler(workerClient),
		Recycle:     handlers.NewRecycleHandler(recycleService),
		Push:        handlers.NewPushHandler(hub, slogger),
	}

	r := router.Setup(db, h)

	ctx, cancelBackground := context.WithCancel(context.Background())
	sweeper := jobqueue.NewSweeper(queueRepo, queueCfg.ReclaimInterval, queueCfg.JobEventRetention)
	go sweeper.Run(ctx)
	go pool.Run(ctx)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", port)
		log.Printf("🌍 Environment: %s", env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("📤 Shutting down server...")

	cancelBackground()
	registry.Cleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

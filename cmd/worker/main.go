// Command worker runs an out-of-process worker pool against the same
// Postgres-backed job queue and object store the API process uses —
// horizontal scaling independent of the HTTP tier. Its processors write
// derived state (Thumbnail rows) exactly as the API process's embedded pool
// does; the one thing it cannot do is broadcast over the push fabric, since
// that hub lives in the API process and holds the client WebSocket
// connections. Clients connected to a cluster fronted by this worker pool
// rely on their own poll-on-reconnect fallback.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelibr/internal/assetgraph"
	"modelibr/internal/blobstore"
	"modelibr/internal/config"
	"modelibr/internal/database"
	"modelibr/internal/jobqueue"
	"modelibr/internal/logger"
	"modelibr/internal/objectstore"
	"modelibr/internal/observability"
	"modelibr/internal/processor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	env := getEnv("NODE_ENV", "development")

	slogger := logger.Init("modelibr-worker", env, logger.ParseLevelFromEnv())
	slogger.Info("starting worker process")

	shutdownOTel, err := observability.InitOTel(context.Background(), "modelibr-worker")
	if err != nil {
		slogger.Warn("failed to initialize OpenTelemetry", "error", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				slogger.Error("error shutting down OpenTelemetry", "error", err)
			}
		}()
	}

	db, err := database.New(databaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	slogger.Info("connected to PostgreSQL")

	objects, err := objectstore.New()
	if err != nil {
		log.Fatal("Failed to connect to object store:", err)
	}
	blobs := blobstore.NewWithRoot(objects, config.LoadUploads().BlobStoreRoot)
	graph := assetgraph.NewRepository(db)

	queueCfg := config.LoadQueue()
	workerCfg := config.LoadWorker()
	queueRepo := jobqueue.NewRepository(db)
	workerClient := jobqueue.NewWorkerClient(queueRepo)

	renderer := processor.NewPlaceholderRenderer()
	registry := processor.NewRegistry()
	registry.Register(processor.NewModelThumbnailProcessor(blobs, graph, renderer, nil))
	registry.Register(processor.NewSoundWaveformProcessor(blobs, graph, renderer, nil))
	registry.Register(processor.NewTextureSetThumbnailProcessor(blobs, graph, renderer, nil))
	registry.Register(processor.NewMeshAnalysisProcessor())

	idPrefix := getEnv("WORKER_ID_PREFIX", "worker-"+hostnameOrPID())
	pool := processor.NewPool(workerCfg.PoolSizePerKind*len(registry.AcceptedKinds()), workerClient, registry, queueCfg.LeaseDuration, queueCfg.IdleBackoff, idPrefix, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx)
	slogger.Info("worker pool running", "kinds", registry.AcceptedKinds())

	metricsServer := startMetricsServer(workerCfg.MetricsPort, db, slogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slogger.Info("shutting down worker process")

	cancel()
	registry.Cleanup()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(context.Background())
	}
	slogger.Info("worker process exited")
}

// startMetricsServer exposes /metrics and /health on a dedicated port so an
// out-of-process worker pool remains scrapeable even though it never binds
// the API tier's gin router. Returns nil if the listener fails to start; the
// worker pool itself keeps running either way.
func startMetricsServer(port int, db *database.DB, slogger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slogger.Error("metrics server failed", "error", err)
		}
	}()
	slogger.Info("metrics server listening", "port", port)
	return srv
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func hostnameOrPID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return strconv.Itoa(os.Getpid())
}

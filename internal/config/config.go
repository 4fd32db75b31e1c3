// Package config reads the environment variables recognized at startup,
// using small typed getters over os.Getenv for each tunable group.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load env vars from .env file directly
func init() {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist (e.g. in production),
		// but we should log it just in case.
		log.Println("No .env file found or error loading it, using system environment variables")
	}
}

// Queue holds the durable job queue's tunables.
type Queue struct {
	LeaseDuration     time.Duration
	MaxAttempts       int
	IdleBackoff       time.Duration
	ReclaimInterval   time.Duration
	JobEventRetention time.Duration
}

// LoadQueue reads QUEUE_* environment variables, applying defaults for any left unset.
func LoadQueue() Queue {
	return Queue{
		LeaseDuration:     time.Duration(getInt("QUEUE_LEASE_SECONDS", 600)) * time.Second,
		MaxAttempts:       getInt("QUEUE_MAX_ATTEMPTS", 3),
		IdleBackoff:       time.Duration(getInt("QUEUE_IDLE_BACKOFF_MS", 5000)) * time.Millisecond,
		ReclaimInterval:   time.Duration(getInt("QUEUE_RECLAIM_INTERVAL_MS", 30000)) * time.Millisecond,
		JobEventRetention: getDuration("JOB_EVENT_RETENTION", 30*24*time.Hour),
	}
}

// Worker holds the worker pool's tunables. WORKER_POOL_SIZE sizes both the
// API server's embedded pool and cmd/worker's pool; WORKER_METRICS_PORT is
// read only by cmd/worker.
type Worker struct {
	PoolSizePerKind int
	MetricsPort     int
}

// LoadWorker reads WORKER_POOL_SIZE, defaulting to one worker goroutine per
// registered job kind, and WORKER_METRICS_PORT for the process's /metrics
// and /health listener.
func LoadWorker() Worker {
	return Worker{
		PoolSizePerKind: getInt("WORKER_POOL_SIZE", 1),
		MetricsPort:     getInt("WORKER_METRICS_PORT", 9091),
	}
}

// Uploads holds size caps for the upload service and blob store.
type Uploads struct {
	MaxBytes          int64
	ThumbnailMaxBytes int64
	BlobStoreRoot     string
}

// LoadUploads reads UPLOAD_MAX_BYTES / THUMBNAIL_MAX_BYTES / BLOB_STORE_ROOT.
func LoadUploads() Uploads {
	return Uploads{
		MaxBytes:          getInt64("UPLOAD_MAX_BYTES", 1073741824),
		ThumbnailMaxBytes: getInt64("THUMBNAIL_MAX_BYTES", 10485760),
		BlobStoreRoot:     os.Getenv("BLOB_STORE_ROOT"),
	}
}

// Classification holds the (optional) image-classifier tunables.
type Classification struct {
	Enabled       bool
	MinConfidence float64
	MaxTags       int
}

// LoadClassification reads IMAGE_CLASSIFICATION_ENABLED / CLASSIFICATION_*.
func LoadClassification() Classification {
	return Classification{
		Enabled:       getBool("IMAGE_CLASSIFICATION_ENABLED", false),
		MinConfidence: getFloat("CLASSIFICATION_MIN_CONFIDENCE", 0.1),
		MaxTags:       getInt("CLASSIFICATION_MAX_TAGS", 10),
	}
}

// GetAllowedOrigins returns a slice of allowed origins from the environment variable.
// It defaults to localhost:3000 if not set.
func GetAllowedOrigins() []string {
	originsStr := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsStr == "" {
		return []string{"http://localhost:3000"}
	}

	// Split by comma and trim spaces
	parts := strings.Split(originsStr, ",")
	var origins []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"modelibr/internal/config"
	"modelibr/internal/database"
	"modelibr/internal/handlers"
	"modelibr/internal/middleware"
)

// Handlers bundles every route handler the router wires up. Built in
// cmd/server/main.go once all the underlying services are constructed.
type Handlers struct {
	Models      *handlers.ModelHandler
	TextureSets *handlers.TextureSetHandler
	Media       *handlers.MediaHandler
	Thumbnails  *handlers.ThumbnailHandler
	Jobs        *handlers.JobHandler
	Recycle     *handlers.RecycleHandler
	Push        *handlers.PushHandler
}

// Setup creates and configures the Gin router.
func Setup(db *database.DB, h Handlers) *gin.Engine {
	router := setupBaseRouter()

	router.GET("/health", healthCheck(db))
	router.GET("/api", apiDocumentation())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", h.Push.Connect)

	v1 := router.Group("/api/v1")
	{
		models := v1.Group("/models")
		{
			models.POST("", h.Models.CreateModel)
			models.GET("", h.Models.ListModels)
			models.GET("/:id", h.Models.GetModel)
			models.POST("/:id/versions", h.Models.CreateModelVersion)
			models.PUT("/:id/active-version", h.Models.SetActiveVersion)
			models.PUT("/:id/default-texture-set", h.Models.SetDefaultTextureSet)
			models.DELETE("/:id", h.Models.SoftDeleteModel)
			models.GET("/:id/thumbnail", h.Thumbnails.GetThumbnailStatus)
			models.GET("/:id/thumbnail/file", h.Thumbnails.GetThumbnailFile)
			models.POST("/:id/thumbnail/regenerate", h.Thumbnails.RegenerateThumbnail)
		}

		textureSets := v1.Group("/texture-sets")
		{
			textureSets.POST("", h.TextureSets.CreateTextureSet)
			textureSets.GET("", h.TextureSets.ListTextureSets)
			textureSets.GET("/:id", h.TextureSets.GetTextureSet)
			textureSets.POST("/:id/textures", h.TextureSets.AddTexture)
			textureSets.DELETE("/:id", h.TextureSets.SoftDeleteTextureSet)
		}

		v1.POST("/files", h.Media.CreateFile)

		sounds := v1.Group("/sounds")
		{
			sounds.POST("", h.Media.CreateSound)
			sounds.GET("", h.Media.ListSounds)
			sounds.GET("/:id", h.Media.GetSound)
			sounds.DELETE("/:id", h.Media.SoftDeleteSound)
		}

		sprites := v1.Group("/sprites")
		{
			sprites.POST("", h.Media.CreateSprite)
			sprites.GET("", h.Media.ListSprites)
			sprites.GET("/:id", h.Media.GetSprite)
			sprites.DELETE("/:id", h.Media.SoftDeleteSprite)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.POST("/lease", h.Jobs.Lease)
			jobs.POST("/:id/renew", h.Jobs.Renew)
			jobs.POST("/:id/complete", h.Jobs.Complete)
			jobs.POST("/:id/fail", h.Jobs.Fail)
		}

		recycle := v1.Group("/recycle")
		{
			recycle.GET("", h.Recycle.List)
			recycle.POST("/:kind/:id/restore", h.Recycle.Restore)
			recycle.DELETE("/:kind/:id", h.Recycle.Purge)
		}
	}

	return router
}

func setupBaseRouter() *gin.Engine {
	router := gin.New()

	router.Use(otelgin.Middleware("modelibr"))
	router.Use(middleware.Observability())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit())

	// Trusted Proxies Configuration
	// In production, set this to the specific IP ranges of your load balancers
	// or reverse proxies. nil means no proxy headers (X-Forwarded-For, etc.)
	// are trusted, which prevents IP spoofing if not behind a configured proxy.
	router.SetTrustedProxies(nil)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.GetAllowedOrigins()
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", "Accept", "User-Agent",
		"Cache-Control", "Pragma",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"database":  "postgresql",
				"timestamp": time.Now().Unix(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   "1.0",
			"database":  "postgresql",
			"timestamp": time.Now().Unix(),
		})
	}
}

func apiDocumentation() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "modelibr",
			"version":     "1.0",
			"description": "Self-hosted 3D asset library backbone: blob store, asset graph, upload service, job queue, and push notifications",
			"endpoints": map[string]interface{}{
				"health":          "GET /health",
				"metrics":         "GET /metrics",
				"models":          "GET/POST /api/v1/models",
				"modelVersions":   "POST /api/v1/models/:id/versions",
				"thumbnails":      "GET /api/v1/models/:id/thumbnail",
				"files":           "POST /api/v1/files",
				"textureSets":     "GET/POST /api/v1/texture-sets",
				"sounds":          "GET/POST /api/v1/sounds",
				"sprites":         "GET/POST /api/v1/sprites",
				"jobs":            "POST /api/v1/jobs/lease",
				"recycle":         "GET /api/v1/recycle",
				"push":            "GET /ws",
			},
		})
	}
}

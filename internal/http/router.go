package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/leadsight/backend/internal/config"
	"github.com/leadsight/backend/internal/db"
	"github.com/leadsight/backend/internal/http/handlers"
	"github.com/leadsight/backend/internal/http/middleware"
	"github.com/leadsight/backend/internal/roster"

	_ "github.com/leadsight/backend/docs"
)

func Router(cfg config.Config, store *db.Store, rst *roster.Roster, backfill *roster.Backfill, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:           store,
		Roster:          rst,
		Backfill:        backfill,
		Validator:       validator.New(),
		Logger:          logger,
		DefaultPageSize: cfg.DefaultPageSize,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/customers", h.CustomersList)
		api.GET("/notes", h.NotesList)
	}

	guarded := api.Group("")
	guarded.Use(middleware.APIKey(cfg.APIKey))
	{
		guarded.POST("/customers", h.AddCustomer)
		guarded.PUT("/customers/:id/probability", h.UpdateProbability)
		guarded.POST("/process", h.Process)
		guarded.POST("/notes", h.NoteCreate)
		guarded.PUT("/notes/:id", h.NoteUpdate)
		guarded.DELETE("/notes/:id", h.NoteDelete)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

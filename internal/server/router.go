package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/paraflux/mdimg/internal/auth"
	"github.com/paraflux/mdimg/internal/config"
	"github.com/paraflux/mdimg/internal/image"
	"github.com/paraflux/mdimg/internal/logger"
	"github.com/paraflux/mdimg/internal/metrics"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	DB           *pgxpool.Pool
	ObjectStore  *minio.Client
	AuthService  *auth.Service
	ImageService *image.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		if deps.ImageService != nil {
			identified := api.Group("/")
			identified.Use(auth.Identify(deps.AuthService))
			image.RegisterRoutes(identified, deps.ImageService)
		}
	}

	return router
}

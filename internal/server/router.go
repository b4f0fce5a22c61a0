package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"

	"github.com/pindrop/pindrop/internal/config"
	"github.com/pindrop/pindrop/internal/metrics"
	"github.com/pindrop/pindrop/internal/transfer"
)

// Dependencies groups the services required by the HTTP router.
// DB and ObjectStore are nil unless the corresponding backend is selected.
type Dependencies struct {
	Config          config.Config
	DB              *pgxpool.Pool
	ObjectStore     *minio.Client
	TransferService *transfer.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.TransferService != nil {
		transfer.RegisterRoutes(api, deps.TransferService)
	}

	return router
}

package api

import (
	v1 "github.com/flexprice/lockbox/internal/api/v1"
	"github.com/flexprice/lockbox/internal/config"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/rest/middleware"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health        *v1.HealthHandler
	Lockbox       *v1.LockboxHandler
	PaymentMethod *v1.PaymentMethodHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeLocal {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(logger),
	)
	router.MaxMultipartMemory = cfg.Lockbox.MaxFileSizeBytes

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1", middleware.TenantMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	lockbox := router.Group("/lockbox")
	{
		lockbox.POST("/imports", handlers.Lockbox.ImportFiles)
		lockbox.POST("/imports/s3", handlers.Lockbox.ImportS3File)
		lockbox.POST("/parse", handlers.Lockbox.ParseFile)
		lockbox.GET("/batches", handlers.Lockbox.ListBatches)
		lockbox.GET("/batches/:id", handlers.Lockbox.GetBatch)
		lockbox.POST("/batches/:id/apply", handlers.Lockbox.ApplyPayment)
	}

	paymentMethods := router.Group("/payment_methods")
	{
		paymentMethods.POST("", handlers.PaymentMethod.CreatePaymentMethod)
	}
}

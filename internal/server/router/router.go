package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.POSHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	sessions := r.Group("/sessions")
	sessions.POST("", handler.StartSession)
	sessions.GET("/:id", handler.GetSession)
	sessions.DELETE("/:id", handler.EndSession)
	sessions.POST("/:id/items", handler.AddItem)
	sessions.POST("/:id/custom-items", handler.AddCustomItem)
	sessions.DELETE("/:id/items", handler.ClearCart)
	sessions.PUT("/:id/discount", handler.SetDiscount)
	sessions.PUT("/:id/customer", handler.SetCustomer)
	sessions.POST("/:id/bill", handler.GenerateBill)
	sessions.GET("/:id/stock", handler.Stock)
	sessions.POST("/:id/stock/sales", handler.RecordSale)
	sessions.POST("/:id/stock/save", handler.SaveStock)

	r.GET("/catalog", handler.Catalog)
	r.POST("/catalog", handler.ImportCatalog)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

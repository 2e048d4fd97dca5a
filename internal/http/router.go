package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-sys/internal/service"
)

// NewRouter configura el router de Gin con middlewares y la tabla de rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	userH *UserHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/auth")
	auth.POST("/login", authH.Login)

	sys := r.Group("/sys", JWTAuthMiddleware(jwtSvc))
	users := sys.Group("/user")
	users.GET("/page", userH.GetPage)
	users.GET("/:id", userH.GetUser)
	users.POST("/", userH.Save)
	users.DELETE("/:ids", userH.Delete)
	users.POST("/lock/:ids", userH.LockOrUnlock)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"euroassist/internal/service"
)

// RouterDeps agrupa handlers y la configuracion de sesion/CORS.
type RouterDeps struct {
	Sessions    *service.SessionService
	Cookie      CookieConfig
	CORSOrigins []string
	Auth        *AuthHandler
	Chats       *ChatHandler
	Health      *HealthHandler
	GoogleOAuth bool
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, CORS y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(deps.CORSOrigins))

	r.GET("/health", deps.Health.Liveness)
	r.GET("/health/ready", deps.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", jsonContentTypeMiddleware())
	requireSession := RequireSession(logger, deps.Sessions, deps.Cookie)

	auth := api.Group("/auth")
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/logout", deps.Auth.Logout)
	auth.GET("/user", requireSession, deps.Auth.CurrentUser)
	if deps.GoogleOAuth {
		auth.GET("/google", deps.Auth.GoogleLogin)
		auth.GET("/google/callback", deps.Auth.GoogleCallback)
	}

	chats := api.Group("/chats", requireSession)
	chats.GET("", deps.Chats.ListChats)
	chats.POST("", deps.Chats.CreateChat)
	chats.GET("/:chatId", deps.Chats.GetChat)
	chats.PATCH("/:chatId", deps.Chats.RenameChat)
	chats.DELETE("/:chatId", deps.Chats.DeleteChat)
	chats.POST("/:chatId/messages", deps.Chats.PostMessage)
	chats.GET("/:chatId/messages/stream", deps.Chats.StreamMessage)

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
// Los handlers SSE lo sobreescriben antes del primer evento.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// corsMiddleware permite los origenes del front con cookies.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	methods := strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
			c.Header("Access-Control-Max-Age", strconv.Itoa(86400))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

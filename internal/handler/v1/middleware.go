package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxLogger    = "logger"
	ctxActor     = "actor"
)

// RequestID propagates the caller's X-Request-ID or mints a new one, and
// stores a logger tagged with it for the rest of the chain.
func RequestID(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Set(ctxLogger, log.With(zap.String("request_id", rid)))
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

func loggerFrom(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(ctxLogger); ok {
		return l.(*zap.Logger)
	}
	return zap.NewNop()
}

// RequestLogger emits one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", c.ClientIP()),
		}
		log := loggerFrom(c)
		if status >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// Recovery turns a panic into a 500 and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				loggerFrom(c).Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
				respondError(c, http.StatusInternalServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

// Metrics records request counts and latencies by route template, so
// /patients/:id is one series regardless of the id.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.InFlightGauge.Inc()
		start := time.Now()
		c.Next()
		m.InFlightGauge.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        cfg.MaxAge,
	})
}

// AuthRequired validates the bearer access token and stores the acting
// user for the handlers.
func AuthRequired(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.Set(ctxActor, domain.Actor{UserID: claims.UserID, Role: claims.Role, IP: c.ClientIP()})
		c.Set(ctxLogger, loggerFrom(c).With(zap.String("user_id", claims.UserID.String())))
		c.Next()
	}
}

// RequireRoles rejects actors whose role is not listed. It must run after
// AuthRequired.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).HasRole(roles...) {
			respondError(c, http.StatusForbidden, "access denied")
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if a, ok := c.Get(ctxActor); ok {
		return a.(domain.Actor)
	}
	return domain.Actor{IP: c.ClientIP()}
}

package api

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timbercalc/internal/auth"
	"timbercalc/internal/errors"
	"timbercalc/internal/metrics"
)

const claimsKey = "claims"

// requestLogger logs one line per request
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// requestMetrics records request counts and latency by route template
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// requireAdmin rejects requests without a valid admin bearer token
func requireAdmin(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(c, errors.Unauthorized("Please enter the passcode to make changes."))
			c.Abort()
			return
		}
		claims, err := auth.ParseToken(secret, strings.TrimSpace(token))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// statusFor maps an error type to an HTTP status
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.TypeValidation, errors.TypeParsing, errors.TypeUnresolved:
		return http.StatusBadRequest
	case errors.TypeUnauthorized:
		return http.StatusUnauthorized
	case errors.TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error envelope. Internal failures hide their cause.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	message := "internal error"
	var e *errors.Error
	if status < http.StatusInternalServerError && stderrors.As(err, &e) {
		message = e.Message
	}
	c.JSON(status, ErrorBody{Error: ErrorDetail{
		Code:    string(errors.TypeOf(err)),
		Message: message,
	}})
}

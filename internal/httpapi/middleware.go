package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/domain"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/tracing"
)

// RequestIDHeader carries the request ID in and out of the service
const RequestIDHeader = "X-Request-ID"

// RequestContext assigns a request ID, opens a tracing span and stores both on the request context
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		ctx, span := tracing.StartSpan(c.Request.Context(), fmt.Sprintf("HTTP %s %s", c.Request.Method, c.FullPath()))
		defer span.End()

		ctx = log.WithRequestID(ctx, requestID)
		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			ctx = log.WithTraceID(ctx, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		tracing.SetSpanAttributes(ctx,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// RequestLogger logs every request once it completes and records request metrics
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			log.Error(ctx, "HTTP request failed", fields...)
		} else {
			log.Info(ctx, "HTTP request completed", fields...)
		}
	}
}

// Recovery turns panics into an INTERNAL_ERROR response
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		metrics.RecordError("panic", "http")
		log.Error(c.Request.Context(), "Panic while handling request",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewInternalError("Internal server error"))
	})
}

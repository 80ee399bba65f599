package server

import (
	"net/http"
	"time"

	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

func (h *Handler) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx, _ := logger.WithRequestID(c.Request.Context(), h.log, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(requestIDHeader, requestID)

		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		logger.FromContext(c.Request.Context(), h.log).Info("HTTP request",
			zap.String("method", method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", statusCode),
			zap.Duration("duration", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		h.metrics.HTTP().Request(method, path, statusCode, latency)
	}
}

func (h *Handler) recover(c *gin.Context, rec any) {
	logger.FromContext(c.Request.Context(), h.log).Error("panic recovered",
		zap.Any("panic", rec),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatus(http.StatusInternalServerError)
}

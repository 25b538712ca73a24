package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/resource-conflict-api/internal/service"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
	"github.com/noah-isme/resource-conflict-api/pkg/logger"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

// RateLimit sheds requests beyond rps (with burst) with 503 and Retry-After rather than
// letting them queue on the connection pool. rps <= 0 disables it.
func RateLimit(rps float64, burst int, metricsSvc *service.MetricsService, logr *zap.Logger) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			metricsSvc.RecordShed()
			logger.ForRequest(logr, c).Debug("request shed", zap.String("path", c.FullPath()))
			response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "server busy, retry shortly"))
			c.Abort()
			return
		}
		c.Next()
	}
}

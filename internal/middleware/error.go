package middleware

import (
	"tripadmin/pkg/logger"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler turns a panic into a 500 envelope
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.GetLogger().WithFields(logrus.Fields{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Errorf("Panic recovered: %v", err)
				response.ServerError(c, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := logger.GetLogger().WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"client_ip": c.ClientIP(),
		})
		if userID, ok := CurrentUserID(c); ok {
			entry = entry.WithField("user_id", userID)
		}
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}

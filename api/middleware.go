package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// codeRateLimited is the error code of a throttled request.
const codeRateLimited = "RATE_LIMITED"

func (s *Server) rateLimit(c *gin.Context) {
	if !s.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, uploadtypes.ErrorResponse{
			Error:   codeRateLimited,
			Message: "too many requests",
		})
		return
	}
	c.Next()
}

func (s *Server) limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	}
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.logger.DebugContext(c.Request.Context(), "request served",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

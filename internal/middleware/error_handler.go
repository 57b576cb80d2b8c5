package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"stockledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// requestLog returns a logger carrying the request id, the matched route and,
// once JWTAuth has run, the acting user.
func requestLog(c *gin.Context) zerolog.Logger {
	ctx := log.With().
		Str("request_id", c.GetString(RequestIDKey)).
		Str("method", c.Request.Method).
		Str("route", c.FullPath())
	if claims := GetClaims(c); claims != nil {
		ctx = ctx.Str("actor", claims.UserID).Str("role", claims.Role)
	}
	return ctx.Logger()
}

// ErrorHandler answers 500 for errors handlers attached with c.Error and did
// not map themselves. The error goes to the log only.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}

		l := requestLog(c)
		for _, e := range c.Errors {
			l.Error().Err(e.Err).Msg("request failed")
		}
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Internal())
		}
	}
}

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				l := requestLog(c)
				l.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Internal())
			}
		}()
		c.Next()
	}
}

// Logger writes one line per request. 4xx responses are logged at info since
// refused stock movements are routine; 5xx at error.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := requestLog(c)
		status := c.Writer.Status()
		evt := l.Info()
		if status >= http.StatusInternalServerError {
			evt = l.Error()
		}
		evt.Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"brainbox/internal/service"
)

const actorKey = "actor"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Debug()
		}
		event = event.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start))
		if actor, exists := c.Get(actorKey); exists {
			event = event.Uint("user", actor.(service.Actor).UserID)
		}
		event.Msg("request")
	}
}

// recovery turns a panic into the usual failure envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   "Unexpected server error.",
			"errorKind": service.KindStorage,
		})
	})
}

// requireAuth rejects requests without a logged-in session and stores the
// Actor for the handlers.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := s.svc.Auth.Authenticate(c.Request.Context(), s.sessionToken(c))
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	return c.MustGet(actorKey).(service.Actor)
}

func (s *Server) sessionToken(c *gin.Context) string {
	token, err := c.Cookie(s.opts.CookieName)
	if err != nil {
		return ""
	}
	return token
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, token, int(s.svc.Auth.SessionTTL().Seconds()), "/", "", s.opts.CookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, "", -1, "/", "", s.opts.CookieSecure, true)
}

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindNotFound:     http.StatusNotFound,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindConflict:     http.StatusConflict,
	service.KindStorage:      http.StatusInternalServerError,
}

// writeError renders err as {success:false, message, errorKind}. The cause of a
// storage error is logged, and only echoed back in debug mode.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	body := gin.H{
		"success":   false,
		"message":   service.MessageOf(err),
		"errorKind": kind,
	}

	if kind == service.KindStorage {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("storage failure")
		if s.opts.Debug {
			var se *service.Error
			if errors.As(err, &se) && se.Err != nil {
				body["detail"] = se.Err.Error()
			} else {
				body["detail"] = err.Error()
			}
		}
	}

	c.JSON(kindStatus[kind], body)
}

func ok(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

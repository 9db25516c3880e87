// Package web serves the auth and data JSON API over gin.
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brainbox/internal/service"
)

// Services are the operations the API exposes.
type Services struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	Data     *service.DataService
}

// Options tune cookies and error verbosity.
type Options struct {
	CookieName   string
	CookieSecure bool
	// Debug adds the underlying cause of storage errors to responses.
	Debug bool
	// Now dates export file names; defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP front-end.
type Server struct {
	svc    Services
	opts   Options
	router *gin.Engine
}

// NewServer builds the router with all routes registered.
func NewServer(svc Services, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "brainbox_session"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	router := gin.New()
	s := &Server{svc: svc, opts: opts, router: router}

	router.Use(requestLogger(), s.recovery())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found."})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/:action", s.handleAuth)
		api.GET("/auth/check_auth", s.handleCheckAuth)
		api.POST("/verify_code", s.handleVerifyCode)

		data := api.Group("", s.requireAuth())
		data.POST("/data", s.handleData)
		data.POST("/data/:action", s.handleData)
		data.GET("/data/get_all_data", s.handleGetAllData)
		data.GET("/export", s.handleExport)
		data.GET("/recycle_bin", s.handleRecycleBin)
		data.GET("/timeline", s.handleTimeline)
	}

	return s
}

// Handler exposes the router for http.Server and httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

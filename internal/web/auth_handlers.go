package web

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"brainbox/internal/service"
)

type authRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleAuth(c *gin.Context) {
	switch c.Param("action") {
	case "register":
		s.handleRegister(c)
	case "login":
		s.handleLogin(c)
	case "logout":
		s.handleLogout(c)
	case "check_auth":
		s.handleCheckAuth(c)
	default:
		s.writeError(c, &service.Error{Kind: service.KindValidation, Message: "Invalid action specified."})
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req authRequest
	if !bindJSON(c, s, &req) {
		return
	}
	user, err := s.svc.Auth.Register(c.Request.Context(), s.sessionToken(c), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, "Registration successful. You can now login.", gin.H{
		"user": service.Actor{UserID: user.ID, Username: user.Username},
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req authRequest
	if !bindJSON(c, s, &req) {
		return
	}
	token, actor, err := s.svc.Auth.Login(c.Request.Context(), s.sessionToken(c), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setSessionCookie(c, token)
	ok(c, "Login successful!", gin.H{"user": actor})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.svc.Auth.Logout(c.Request.Context(), s.sessionToken(c)); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearSessionCookie(c)
	ok(c, "Logged out successfully.", nil)
}

func (s *Server) handleCheckAuth(c *gin.Context) {
	actor, err := s.svc.Auth.CheckAuth(c.Request.Context(), s.sessionToken(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if actor == nil {
		ok(c, "", gin.H{"authenticated": false})
		return
	}
	ok(c, "", gin.H{"authenticated": true, "user": actor})
}

func (s *Server) handleVerifyCode(c *gin.Context) {
	var req struct {
		Code string `json:"verification_code"`
	}
	if !bindJSON(c, s, &req) {
		return
	}
	token, err := s.svc.Auth.VerifyCode(c.Request.Context(), s.sessionToken(c), req.Code)
	if token != "" {
		s.setSessionCookie(c, token)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, "Verification successful! You can now register.", nil)
}

// bindJSON decodes the body into dst. An empty body leaves dst zeroed.
func bindJSON(c *gin.Context, s *Server, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		s.writeError(c, &service.Error{Kind: service.KindValidation, Message: "Request body must be valid JSON.", Err: err})
		return false
	}
	return true
}

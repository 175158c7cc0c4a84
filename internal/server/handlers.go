package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/authgate/internal/auth"
	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/server/middleware"
	"github.com/avolkov/authgate/internal/store"
	"github.com/avolkov/authgate/internal/token"
)

// signupRequest is the JSON body for user registration.
type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// signupResponse is returned after a successful registration.
type signupResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// tokenResponse is returned after a successful login.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleRoot serves the landing response.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, world"})
}

// handleHealth serves the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleSignup registers a new user. Registration has no side effect
// beyond the store insert; the client still has to log in.
func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		case errors.Is(err, auth.ErrEmptyCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		default:
			s.logger.Error("registration failed", observability.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		}
		return
	}

	c.JSON(http.StatusCreated, signupResponse{
		UserID:   user.ID,
		Username: user.Username,
	})
}

// handleToken verifies form credentials and issues a session token.
// Bad credentials get the same response as a missing user.
func (s *Server) handleToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := s.users.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.MsgCouldNotValidate})
			return
		}
		s.logger.Error("credential verification failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	signed, err := s.tokens.Issue(user.Username, user.ID)
	if err != nil {
		s.logger.Error("token issuance failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   token.TokenType,
	})
}

// handleMe returns the identity carried by the caller's session token.
func (s *Server) handleMe(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		// RequireAuth guarantees an identity; this is a wiring bug
		c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.MsgCouldNotValidate})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": identity.Username,
		"user_id":  identity.UserID,
	})
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/token"
)

// AuthConfig holds configuration for the authentication middleware.
type AuthConfig struct {
	// Tokens validates session tokens.
	Tokens *token.Service

	// Extractor pulls the raw token from the request. Nil falls back
	// to the standard Authorization bearer extractor.
	Extractor *token.HeaderExtractor

	// Logger for validation failures.
	Logger observability.Logger
}

// RequireAuth returns a middleware that rejects requests without a
// valid session token. Every failure mode (missing header, malformed
// token, bad signature, expiry) yields the same 401 so callers cannot
// distinguish why validation failed. On success the identity is stored
// in the gin context under ContextKeyIdentity.
func RequireAuth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Extractor == nil {
		cfg.Extractor = token.NewHeaderExtractor("", "")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		raw, err := cfg.Extractor.Extract(c.Request)
		if err != nil {
			unauthorized(c, cfg.Logger, err)
			return
		}

		identity, err := cfg.Tokens.Validate(raw)
		if err != nil {
			unauthorized(c, cfg.Logger, err)
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// unauthorized aborts the request with the uniform authentication
// failure response.
func unauthorized(c *gin.Context, logger observability.Logger, err error) {
	logger.Debug("token validation failed",
		observability.String("path", c.Request.URL.Path),
		observability.Error(err),
	)
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": MsgCouldNotValidate,
	})
}

// GetIdentity returns the authenticated identity from the gin context,
// or nil when the request did not pass RequireAuth.
func GetIdentity(c *gin.Context) *token.Identity {
	if v, exists := c.Get(ContextKeyIdentity); exists {
		if identity, ok := v.(*token.Identity); ok {
			return identity
		}
	}
	return nil
}

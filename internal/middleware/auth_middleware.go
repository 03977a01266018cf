package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PrincipalKey is the gin context key holding the *auth.Principal.
const PrincipalKey = "principal"

// TokenAuthenticator resolves a raw access token to its principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*auth.Principal, error)
}

// Authenticate attaches the caller's principal when a valid bearer token is
// present. Requests without a token continue anonymously; RequireAuth decides
// whether a route needs one.
func Authenticate(tokens TokenAuthenticator, skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		principal, err := tokens.Authenticate(c.Request.Context(), strings.TrimSpace(raw))
		switch {
		case err == nil:
		case errors.Is(err, service.ErrExpiredToken),
			errors.Is(err, service.ErrMalformedToken),
			errors.Is(err, service.ErrInvalidSignature):
			abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, apperror.MessageOf(err))
			return
		case apperror.CodeOf(err) == apperror.CodeInternal:
			logger.Log.Error("Token authentication failed", zap.String("path", path), zap.Error(err))
			abort(c, http.StatusInternalServerError, apperror.CodeInternal, "internal server error")
			return
		default:
			// revoked, wrong type or deleted user: treat as anonymous
			logger.Log.Debug("Ignoring unusable token", zap.String("path", path), zap.Error(err))
			c.Next()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.FromContext(c.Request.Context()) == nil {
			abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers holding none of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.FromContext(c.Request.Context())
		if p == nil {
			abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "authentication required")
			return
		}
		if !p.HasAnyRole(roles...) {
			abort(c, http.StatusForbidden, apperror.CodeForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, code apperror.Code, message string) {
	c.AbortWithStatusJSON(status, dto.Fail(string(code), message, nil))
}

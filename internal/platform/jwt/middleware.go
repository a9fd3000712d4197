package jwtmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

const ContextPrincipal = "principal"

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	ParseToken(tokenStr string) (*Claims, error)
}

// PrincipalResolver turns a verified subject into a principal using the stored user record.
// It must fail when the user is missing, inactive, or changed password after issuedAt.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string, issuedAt time.Time) (principal.Principal, error)
}

// AuthRequired returns a Gin middleware function that validates JWT tokens
// and restricts access to authenticated users only.
func AuthRequired(parser TokenParser, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			api.WriteError(c, apperr.Unauthorized("missing bearer token"))
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		claims, err := parser.ParseToken(tokenStr)
		if err != nil {
			if errors.Is(err, ErrMissingSecret) {
				// Server misconfiguration (JWT_SECRET not set)
				slog.Error("jwt secret not configured")
				c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Error: "server misconfigured", Code: apperr.KindStore.String()})
				return
			}
			msg := "invalid token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "token expired"
			}
			api.WriteError(c, apperr.Unauthorized(msg))
			return
		}

		p, err := resolver.ResolvePrincipal(c.Request.Context(), claims.UserID, claims.IssuedAt)
		if err != nil {
			if apperr.IsKind(err, apperr.KindStore) {
				api.WriteError(c, err)
				return
			}
			slog.Warn("token rejected", "user_id", claims.UserID, "error", err, "remote_addr", c.ClientIP())
			api.WriteError(c, apperr.Unauthorized("not authorized"))
			return
		}

		c.Set(ContextPrincipal, p)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthRequired.
func PrincipalFrom(c *gin.Context) (principal.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return principal.Principal{}, false
	}
	p, ok := v.(principal.Principal)
	return p, ok && p.UserID != ""
}

package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/auth"
	apperrors "github.com/pvforge/helios/pkg/errors"
)

func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "Authentication required", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "Authentication required", "authorization header must be a bearer token", nil))
			return
		}
		token := strings.TrimSpace(parts[1])
		claims, err := svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if apperrors.IsCode(err, apperrors.CodeInvalidToken) {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, "Invalid token", apperrors.MessageOf(err), err))
				return
			}
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Authentication failed", errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

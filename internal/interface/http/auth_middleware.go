package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/searchcal/internal/domain/ingest"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
)

// serviceTokenMiddleware admits requests carrying a valid ingest bearer token.
func serviceTokenMiddleware(svc ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			status := http.StatusForbidden
			code := "invalid_token"
			if !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
				status = http.StatusInternalServerError
				code = "auth_failed"
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

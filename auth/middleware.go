package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const claimsContextKey = "auth_claims"

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BearerToken requires a valid "Authorization: Bearer" token
func (tm *TokenManager) BearerToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{false, "Authorization token is required"})
		}
		claims, err := tm.Verify(strings.TrimSpace(raw))
		if err != nil {
			log.Warnf("Rejected bearer token from %s: %v", c.RealIP(), err)
			return c.JSON(http.StatusUnauthorized, errorResponse{false, "Invalid or expired token"})
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

// AdminToken requires a valid bearer token carrying the admin claim
func (tm *TokenManager) AdminToken(next echo.HandlerFunc) echo.HandlerFunc {
	return tm.BearerToken(func(c echo.Context) error {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.IsAdmin {
			return c.JSON(http.StatusForbidden, errorResponse{false, "Admin privileges required"})
		}
		return next(c)
	})
}

// ClaimsFrom returns the claims stored by BearerToken, or nil
func ClaimsFrom(c echo.Context) *Claims {
	claims, _ := c.Get(claimsContextKey).(*Claims)
	return claims
}

package main

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/tiptune/tipmod/automod"
	"github.com/tiptune/tipmod/models"

	"github.com/labstack/echo/v4"
)

// Identity headers are set by the gateway in front of this service, which does the actual authentication.
const (
	headerUserID   = "X-Tipmod-User-Id"
	headerUserRole = "X-Tipmod-User-Role"
	headerIsArtist = "X-Tipmod-Is-Artist"

	callerContextKey = "tipmod-caller"
)

func (srv *Server) checkAuthToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if srv.authToken == "" {
			return next(c)
		}
		hdr := c.Request().Header.Get("Authorization")
		tok, ok := strings.CutPrefix(hdr, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(tok), []byte(srv.authToken)) != 1 {
			return echo.ErrForbidden
		}
		return next(c)
	}
}

// Attaches the caller identity to the request context, if the request carries one. Anonymous requests pass through; operations which need a caller reject them.
func (srv *Server) identifyCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hdr := c.Request().Header
		userID := strings.TrimSpace(hdr.Get(headerUserID))
		if userID == "" {
			return next(c)
		}
		role := strings.ToLower(strings.TrimSpace(hdr.Get(headerUserRole)))
		if role == "" {
			role = models.RoleUser
		}
		isArtist := false
		if raw := hdr.Get(headerIsArtist); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%w: bad %s header: %q", automod.ErrInvalidInput, headerIsArtist, raw)
			}
			isArtist = v
		}
		c.Set(callerContextKey, &models.User{
			ID:       userID,
			Role:     role,
			IsArtist: isArtist,
		})
		return next(c)
	}
}

func (srv *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !callerFrom(c).IsAdmin() {
			return fmt.Errorf("%w: admin role required", automod.ErrUnauthorized)
		}
		return next(c)
	}
}

// Returns the request caller, or nil for anonymous requests.
func callerFrom(c echo.Context) *models.User {
	u, _ := c.Get(callerContextKey).(*models.User)
	return u
}

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admin passes every check.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasAnyRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

func HasAnyRole(userRoles []string, roles ...Role) bool {
	for _, has := range userRoles {
		if has == string(RoleAdmin) {
			return true
		}
		for _, required := range roles {
			if has == string(required) {
				return true
			}
		}
	}
	return false
}

// CanActFor reports whether the caller may act on records owned by the given
// principal: staff can act for anyone, everyone else only for themselves.
func CanActFor(c echo.Context, role Role, id int64) bool {
	ctx := c.Request().Context()
	if HasAnyRole(RolesFromContext(ctx), RoleAdmin) {
		return true
	}
	gotRole, gotID, ok := PrincipalFromContext(ctx)
	return ok && gotRole == role && gotID == id
}

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role is a staff role. Authorization is an explicit allow-list of roles per
// operation, checked against the verified token claim.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDoctor    Role = "DOCTOR"
	RoleFrontDesk Role = "FRONT_DESK"
	RoleNurse     Role = "NURSE"
	RolePharmacy  Role = "PHARMACY"
	RoleBilling   Role = "BILLING"
)

var allRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleDoctor:    true,
	RoleFrontDesk: true,
	RoleNurse:     true,
	RolePharmacy:  true,
	RoleBilling:   true,
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !allRoles[r] {
		return "", fmt.Errorf("%q is not a valid role", s)
	}
	return r, nil
}

// Staff lists every staff role, for endpoints any authenticated staff member
// may call.
func Staff() []Role {
	return []Role{RoleAdmin, RoleDoctor, RoleFrontDesk, RoleNurse, RolePharmacy, RoleBilling}
}

// RequireRole returns middleware that rejects requests whose authenticated
// role is not in the allow-list.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := RoleFromContext(c.Request().Context())
			for _, required := range roles {
				if userRole == required {
					return next(c)
				}
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

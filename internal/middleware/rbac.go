package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

// StaffRoles are the clinic roles allowed to use the workflow and alert endpoints.
var StaffRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleNurse, models.RoleStaff}

// ReviewerRoles may approve or reject pending actions.
var ReviewerRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

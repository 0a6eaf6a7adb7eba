package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

// FeatureHeader reports which feature gate served the request.
const FeatureHeader = "X-Feature"

// FeatureGate hides a route group behind a configuration switch. Disabled groups
// answer 404 so that clients cannot tell them apart from unknown routes.
func FeatureGate(name string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, name+" is disabled"))
			c.Abort()
			return
		}
		c.Writer.Header().Set(FeatureHeader, name)
		c.Next()
	}
}

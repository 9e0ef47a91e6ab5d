package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	tenantHeader = "X-Tenant-ID"
	tenantKey    = "tenantID"
)

// TenantMiddleware resolves the request's tenant from X-Tenant-ID, falling
// back to defaultTenant.
func TenantMiddleware(defaultTenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(tenantHeader)
		if tenant == "" {
			tenant = defaultTenant
		}
		c.Set(tenantKey, tenant)
		c.Next()
	}
}

// TenantID returns the tenant resolved by TenantMiddleware.
func TenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}

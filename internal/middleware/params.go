package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
)

// RequireIDParam parses the named path parameter as a positive integer ID
// and stores it in the context under the same name.
func RequireIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(name), 10, 64)
		if err != nil || id == 0 {
			apierrors.InvalidFormat(c, "Invalid "+name)
			c.Abort()
			return
		}

		c.Set(name, id)
		c.Next()
	}
}

// GetIDParam returns an ID stored by RequireIDParam
func GetIDParam(c *gin.Context, name string) uint64 {
	return c.GetUint64(name)
}

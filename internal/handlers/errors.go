package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/apierr"
)

// writeError maps any error to its taxonomy-tagged wire body (spec §7),
// centralizing the err -> apierr.Error -> JSON conversion every handler
// needs.
func writeError(c *gin.Context, err error) {
	apiErr := apierr.As(err)
	if apiErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(apiErr.RetryAfter)))
	}
	c.JSON(apiErr.Status(), apiErr.ToBody())
}

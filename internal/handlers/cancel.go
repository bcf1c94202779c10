package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cancel requests cancellation of a non-terminal job (spec §4.7).
// DELETE /job/:job_id
func (h *Handler) Cancel(c *gin.Context) {
	jobID := c.Param("job_id")

	resp, err := h.Polling.Cancel(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

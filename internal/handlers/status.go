package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status returns a job's current lifecycle snapshot (spec §4.7).
// GET /status/:job_id
func (h *Handler) Status(c *gin.Context) {
	jobID := c.Param("job_id")

	resp, err := h.Polling.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

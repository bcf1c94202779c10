package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Result returns the transcript for a completed job, or a 409 reporting
// the job's current state when it hasn't finished yet (spec §4.7, §6).
// GET /result/:job_id
func (h *Handler) Result(c *gin.Context) {
	jobID := c.Param("job_id")

	resp, err := h.Polling.GetResult(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

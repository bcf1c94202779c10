package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/middleware"
	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/services/submission"
)

// Transcribe handles a new transcription submission (spec §4.6, §6).
// POST /transcribe
func (h *Handler) Transcribe(c *gin.Context) {
	c.Request.Body = submission.MaxBytesReader(c.Writer, c.Request.Body, h.MaxFileSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, apierr.New(apierr.PayloadTooLarge, "upload exceeds the configured size cap"))
			return
		}
		c.JSON(http.StatusBadRequest, apierr.Body{ErrorKind: apierr.BadRequest, Message: "missing \"file\" form field"})
		return
	}
	defer file.Close()

	opts := models.Options{
		Language:      c.PostForm("language"),
		VADFilter:     c.PostForm("vad_filter") == "true",
		InitialPrompt: c.PostForm("initial_prompt"),
	}

	contentType := header.Header.Get("Content-Type")
	callerID := middleware.CallerID(c)

	resp, err := h.Submission.Submit(c.Request.Context(), callerID, header.Filename, contentType, file, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LogSource returns recent log entries, oldest first.
type LogSource interface {
	Snapshot() []string
}

// LogsHandler serves the recent log buffer.
type LogsHandler struct {
	source LogSource
}

// NewLogsHandler constructs a LogsHandler.
func NewLogsHandler(source LogSource) *LogsHandler {
	return &LogsHandler{source: source}
}

// List returns the buffered entries.
func (h *LogsHandler) List(c *gin.Context) {
	logs := []string{}
	if h.source != nil {
		logs = h.source.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

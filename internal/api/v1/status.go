package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态
type StatusResponse struct {
	Initialized  bool `json:"initialized"`
	AnlagenCount int  `json:"anlagenCount"`
	ReadingCount int  `json:"readingCount"`
}

// GetStatus 系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	anlagen, err := h.store.ListAnlagen()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	readingCount := 0
	for _, a := range anlagen {
		readings, err := h.store.ListReadings(a.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		readingCount += len(readings)
	}

	c.JSON(http.StatusOK, StatusResponse{
		Initialized:  len(anlagen) > 0,
		AnlagenCount: len(anlagen),
		ReadingCount: readingCount,
	})
}

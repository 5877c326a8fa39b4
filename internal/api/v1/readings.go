package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eedc/internal/model"
)

// ListReadings 列出安装的月度读数
// GET /api/anlagen/:id/readings
func (h *Handler) ListReadings(c *gin.Context) {
	items, err := h.store.ListReadings(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpsertReading 写入/更新一条月度读数（手工录入）
// PUT /api/anlagen/:id/readings
func (h *Handler) UpsertReading(c *gin.Context) {
	var r model.MonthlyReading
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	r.AnlageID = c.Param("id")

	if !r.Key().Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法年月"})
		return
	}

	if err := h.store.UpsertReading(&r); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteReading 删除一条月度读数
// DELETE /api/anlagen/:id/readings/:year/:month
func (h *Handler) DeleteReading(c *gin.Context) {
	year, err1 := strconv.Atoi(c.Param("year"))
	month, err2 := strconv.Atoi(c.Param("month"))
	if err1 != nil || err2 != nil || !(model.PeriodKey{Year: year, Month: month}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法年月"})
		return
	}

	if err := h.store.DeleteReading(c.Param("id"), year, month); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

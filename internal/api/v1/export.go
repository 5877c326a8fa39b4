package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

type exportRequest struct {
	AnlageID string `json:"anlageId"`
	Year     int    `json:"year"`
}

// Export 生成年报并返回下载 token
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnlageID == "" || req.Year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	f, err := h.exporter.Export(req.AnlageID, req.Year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	filePath := filepath.Join(os.TempDir(), fmt.Sprintf("eedc_export_%d_%d.xlsx", req.Year, time.Now().UnixNano()))
	if err := f.SaveAs(filePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存导出文件失败"})
		return
	}

	token := h.downloads.put(filePath, req.Year, 10*time.Minute)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// DownloadExport 按 token 下载导出文件（一次性，用后即焚）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载已过期或不存在"})
		return
	}
	h.downloads.delete(token)
	defer os.Remove(item.filePath)

	c.Header("Content-Disposition", buildExportContentDisposition(item.year))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)
}

// buildExportContentDisposition 下载文件名（ASCII 回退 + UTF-8 扩展名）
func buildExportContentDisposition(year int) string {
	ascii := fmt.Sprintf("energy-report-%d.xlsx", year)
	utf8Name := url.PathEscape(fmt.Sprintf("%d年度能源报表.xlsx", year))
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", ascii, utf8Name)
}

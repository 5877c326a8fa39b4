package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eedc/internal/model"
)

// fieldCatalogEntry 字段声明 + 该字段可选的取值策略
type fieldCatalogEntry struct {
	model.FieldDescriptor
	AvailableStrategies []model.Strategy `json:"availableStrategies"`
}

// GetFieldCatalog 字段目录
// GET /api/catalog/fields?componentType=...
// 不带 componentType 返回基础字段目录
func (h *Handler) GetFieldCatalog(c *gin.Context) {
	var catalog []model.FieldDescriptor
	if componentType := c.Query("componentType"); componentType != "" {
		catalog = model.ComponentFieldCatalog(componentType)
	} else {
		catalog = model.BaseFieldCatalog()
	}

	out := make([]fieldCatalogEntry, 0, len(catalog))
	for _, desc := range catalog {
		out = append(out, fieldCatalogEntry{
			FieldDescriptor:     desc,
			AvailableStrategies: h.resolver.AvailableStrategies(desc),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// GetFormulaCatalog 公式目录（静态参考数据）
// GET /api/catalog/formulas
func (h *Handler) GetFormulaCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, model.FormulaCatalog())
}

// ListSensors 列出外部平台的候选传感器
// GET /api/sensors
func (h *Handler) ListSensors(c *gin.Context) {
	sensors, err := h.source.ListSensors(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "外部平台不可用: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sensors})
}

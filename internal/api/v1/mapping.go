package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eedc/internal/model"
)

// GetMapping 读取安装的传感器映射
// GET /api/anlagen/:id/mapping
func (h *Handler) GetMapping(c *gin.Context) {
	m, err := h.store.LoadMapping(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

// SaveMapping 保存安装的传感器映射
// PUT /api/anlagen/:id/mapping
//
// 策略与字段声明不符（如对非 optional 字段设置 excluded）按 400 拒绝；
// 结构不完整的映射（缺来源 key、公式占位符未绑全）从保存载荷中过滤掉，
// 绝不以半成品状态写入
func (h *Handler) SaveMapping(c *gin.Context) {
	anlageID := c.Param("id")

	var req model.MappingSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	investments, err := h.store.ListInvestments(anlageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	typeByID := make(map[string]string, len(investments))
	for _, inv := range investments {
		typeByID[inv.ID] = inv.Type
	}

	cleaned := model.MappingSaveRequest{BaseMapping: make(map[string]model.FieldMapping)}

	baseCatalog := model.BaseFieldCatalog()
	for fieldKey, fm := range req.BaseMapping {
		desc, ok := model.FindField(baseCatalog, fieldKey)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "未知基础字段: " + fieldKey})
			return
		}
		kept, err := h.validateFieldMapping(desc, fm)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if kept != nil {
			cleaned.BaseMapping[fieldKey] = *kept
		}
	}

	for _, cm := range req.ComponentMappings {
		componentType, ok := typeByID[cm.ComponentID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "未知投资项: " + cm.ComponentID})
			return
		}
		catalog := model.ComponentFieldCatalog(componentType)

		kept := model.ComponentMapping{
			ComponentID: cm.ComponentID,
			Fields:      make(map[string]model.FieldMapping),
		}
		for fieldKey, fm := range cm.Fields {
			desc, ok := model.FindField(catalog, fieldKey)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "未知组件字段: " + fieldKey})
				return
			}
			keptField, err := h.validateFieldMapping(desc, fm)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if keptField != nil {
				kept.Fields[fieldKey] = *keptField
			}
		}
		if len(kept.Fields) > 0 {
			cleaned.ComponentMappings = append(cleaned.ComponentMappings, kept)
		}
	}

	if err := h.store.SaveMapping(anlageID, cleaned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cleaned)
}

// validateFieldMapping 校验策略合法性；不完整的映射返回 nil（过滤）
func (h *Handler) validateFieldMapping(desc model.FieldDescriptor, fm model.FieldMapping) (*model.FieldMapping, error) {
	allowed := false
	for _, s := range h.resolver.AvailableStrategies(desc) {
		if s == fm.Strategy {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("字段 %s 不支持策略 %s", desc.Key, fm.Strategy)
	}

	if !h.resolver.IsComplete(fm, desc) {
		return nil, nil
	}
	return &fm, nil
}

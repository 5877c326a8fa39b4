package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eedc/internal/model"
	"eedc/internal/service/importer"
	"eedc/internal/service/selection"
)

type previewRequest struct {
	FromYear  int `json:"fromYear"`
	FromMonth int `json:"fromMonth"`
	ToYear    int `json:"toYear"`
	ToMonth   int `json:"toMonth"`
}

// WizardPreview 加载导入预览（创建新的向导会话，旧会话的编辑作废）
// POST /api/anlagen/:id/wizard/preview
func (h *Handler) WizardPreview(c *gin.Context) {
	anlageID := c.Param("id")

	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	from := model.PeriodKey{Year: req.FromYear, Month: req.FromMonth}
	to := model.PeriodKey{Year: req.ToYear, Month: req.ToMonth}
	if !from.Valid() || !to.Valid() {
		// 默认最近 12 个月
		now := time.Now()
		to = model.PeriodKey{Year: now.Year(), Month: int(now.Month())}
		from = to
		for i := 0; i < 11; i++ {
			from.Month--
			if from.Month < 1 {
				from.Month = 12
				from.Year--
			}
		}
	}

	resp, err := h.coordinator.LoadPreview(c.Request.Context(), anlageID, from, to)
	if errors.Is(err, importer.ErrSuperseded) {
		// 已有更新的加载请求，本次结果直接丢弃
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		// 外部源不可用：预览退化为「没有周期、没有动作」，界面回落到手工录入
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// wizardStateResponse 向导当前状态
type wizardStateResponse struct {
	SessionID       string             `json:"sessionId"`
	BulkMode        selection.BulkMode `json:"bulkMode"`
	SelectedCount   int                `json:"selectedCount"`
	TotalFieldCount int                `json:"totalFieldCount"`
	Batch           model.ImportBatch  `json:"batch"`
}

// WizardState 读取向导会话状态与当前批次预览
// GET /api/anlagen/:id/wizard/state
func (h *Handler) WizardState(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有活动的导入会话"})
		return
	}

	c.JSON(http.StatusOK, wizardStateResponse{
		SessionID:       s.ID,
		BulkMode:        s.Selection.Mode(),
		SelectedCount:   s.Selection.SelectedCount(),
		TotalFieldCount: s.Selection.TotalFieldCount(),
		Batch:           s.Selection.BuildImportBatch(s.Engine.Decide),
	})
}

type bulkModeRequest struct {
	Mode selection.BulkMode `json:"mode"`
}

// WizardApplyBulkMode 应用批量选择模式
// POST /api/anlagen/:id/wizard/bulk
func (h *Handler) WizardApplyBulkMode(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有活动的导入会话"})
		return
	}

	var req bulkModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	switch req.Mode {
	case selection.ModeAll, selection.ModeBaseOnly, selection.ModeComponentsOnly, selection.ModeManual:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知批量模式: %s", req.Mode)})
		return
	}

	s.Selection.ApplyBulkMode(req.Mode, s.Periods)
	c.JSON(http.StatusOK, gin.H{"bulkMode": s.Selection.Mode()})
}

type togglePeriodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// WizardTogglePeriod 翻转周期级开关
// POST /api/anlagen/:id/wizard/toggle-period
func (h *Handler) WizardTogglePeriod(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有活动的导入会话"})
		return
	}

	var req togglePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	s.Selection.TogglePeriod(req.Year, req.Month)
	c.JSON(http.StatusOK, gin.H{
		"enabled": s.Selection.PeriodEnabled(req.Year, req.Month),
	})
}

type toggleFieldRequest struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	FieldKey    string `json:"fieldKey"`
	ComponentID string `json:"componentId"` // 为空表示基础字段
}

// WizardToggleField 翻转单个字段的选择（细粒度编辑，会把批量模式降为 manual）
// POST /api/anlagen/:id/wizard/toggle-field
func (h *Handler) WizardToggleField(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有活动的导入会话"})
		return
	}

	var req toggleFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FieldKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	if req.ComponentID == "" {
		s.Selection.ToggleBaseField(req.Year, req.Month, req.FieldKey)
	} else {
		s.Selection.ToggleComponentField(req.Year, req.Month, req.ComponentID, req.FieldKey)
	}
	c.JSON(http.StatusOK, gin.H{"bulkMode": s.Selection.Mode()})
}

type submitRequest struct {
	AllowOverwrite bool `json:"allowOverwrite"`
}

// WizardSubmit 构建批次并提交导入
// POST /api/anlagen/:id/wizard/submit
//
// 空批次在这里拒绝并给出提示，不发起零条目的写入
func (h *Handler) WizardSubmit(c *gin.Context) {
	anlageID := c.Param("id")

	req, ok := h.buildSubmitRequest(c, anlageID)
	if !ok {
		return
	}

	resp, err := h.coordinator.Submit(anlageID, req)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// WizardSubmitStream 流式提交（SSE 逐周期进度）
// POST /api/anlagen/:id/wizard/submit/stream
func (h *Handler) WizardSubmitStream(c *gin.Context) {
	anlageID := c.Param("id")

	req, ok := h.buildSubmitRequest(c, anlageID)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, okFlush := c.Writer.(http.Flusher)
	if !okFlush {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	for event := range h.coordinator.SubmitStream(anlageID, req) {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// buildSubmitRequest 从会话选择状态构建提交请求；会话缺失或批次为空时已写好响应
func (h *Handler) buildSubmitRequest(c *gin.Context, anlageID string) (model.ImportSubmitRequest, bool) {
	s, ok := h.sessions.Get(anlageID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有活动的导入会话"})
		return model.ImportSubmitRequest{}, false
	}

	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return model.ImportSubmitRequest{}, false
	}

	batch := s.Selection.BuildImportBatch(s.Engine.Decide)
	if batch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "导入批次为空：没有选中任何周期或字段"})
		return model.ImportSubmitRequest{}, false
	}

	return model.ImportSubmitRequest{
		Batch:          batch,
		AllowOverwrite: body.AllowOverwrite,
	}, true
}

func (h *Handler) writeSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrEmptyBatch), errors.Is(err, importer.ErrOverwriteNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// WizardDrop 结束并丢弃向导会话
// DELETE /api/anlagen/:id/wizard
func (h *Handler) WizardDrop(c *gin.Context) {
	h.sessions.Drop(c.Param("id"))
	c.Status(http.StatusNoContent)
}

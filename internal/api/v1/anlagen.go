package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eedc/internal/model"
	"eedc/internal/store"
)

type anlageRequest struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	KWp      float64 `json:"kwp"`
	Active   *bool   `json:"active"`
}

// ListAnlagen 列出全部安装
// GET /api/anlagen
func (h *Handler) ListAnlagen(c *gin.Context) {
	anlagen, err := h.store.ListAnlagen()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": anlagen})
}

// CreateAnlage 新建安装
// POST /api/anlagen
func (h *Handler) CreateAnlage(c *gin.Context) {
	var req anlageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	a := &model.Anlage{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Location: req.Location,
		KWp:      req.KWp,
		Active:   true,
	}
	if req.Active != nil {
		a.Active = *req.Active
	}

	if errs := a.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	if err := h.store.CreateAnlage(a); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// GetAnlage 获取单个安装
// GET /api/anlagen/:id
func (h *Handler) GetAnlage(c *gin.Context) {
	a, err := h.store.GetAnlage(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "安装不存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

// UpdateAnlage 更新安装
// PATCH /api/anlagen/:id
func (h *Handler) UpdateAnlage(c *gin.Context) {
	a, err := h.store.GetAnlage(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "安装不存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req anlageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	if req.Name != "" {
		a.Name = req.Name
	}
	if req.Location != "" {
		a.Location = req.Location
	}
	if req.KWp > 0 {
		a.KWp = req.KWp
	}
	if req.Active != nil {
		a.Active = *req.Active
	}

	if errs := a.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	if err := h.store.UpdateAnlage(a); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAnlage 删除安装及其全部附属数据
// DELETE /api/anlagen/:id
func (h *Handler) DeleteAnlage(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteAnlage(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// 安装被删除后其向导会话随之失效
	h.sessions.Drop(id)
	c.Status(http.StatusNoContent)
}

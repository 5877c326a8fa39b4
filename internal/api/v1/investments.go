package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eedc/internal/model"
)

type investmentRequest struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Active *bool  `json:"active"`
}

// ListInvestments 列出安装下的投资项
// GET /api/anlagen/:id/investments
func (h *Handler) ListInvestments(c *gin.Context) {
	items, err := h.store.ListInvestments(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateInvestment 新建投资项
// POST /api/anlagen/:id/investments
func (h *Handler) CreateInvestment(c *gin.Context) {
	var req investmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	inv := &model.Investment{
		ID:       uuid.NewString(),
		AnlageID: c.Param("id"),
		Type:     req.Type,
		Label:    req.Label,
		Active:   true,
	}
	if req.Active != nil {
		inv.Active = *req.Active
	}

	if errs := inv.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	if err := h.store.CreateInvestment(inv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// UpdateInvestment 更新投资项
// PATCH /api/investments/:id
func (h *Handler) UpdateInvestment(c *gin.Context) {
	var req investmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	inv := &model.Investment{
		ID:    c.Param("id"),
		Type:  req.Type,
		Label: req.Label,
	}
	inv.Active = req.Active == nil || *req.Active

	if err := h.store.UpdateInvestment(inv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// DeleteInvestment 删除投资项
// DELETE /api/investments/:id
func (h *Handler) DeleteInvestment(c *gin.Context) {
	if err := h.store.DeleteInvestment(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

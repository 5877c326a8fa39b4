// Package v1 REST API 处理器
package v1

import (
	"github.com/gin-gonic/gin"

	"eedc/internal/exporter"
	"eedc/internal/service/importer"
	"eedc/internal/service/mapping"
	"eedc/internal/service/session"
	"eedc/internal/source"
	"eedc/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store       *store.Store
	source      source.Client
	sessions    *session.Manager
	coordinator *importer.Coordinator
	resolver    *mapping.Resolver
	exporter    *exporter.Exporter
	downloads   *exportDownloadStore
}

// NewHandler 创建 V1 API 处理器
func NewHandler(st *store.Store, src source.Client) *Handler {
	sessions := session.NewManager()
	return &Handler{
		store:       st,
		source:      src,
		sessions:    sessions,
		coordinator: importer.NewCoordinator(st, src, sessions),
		resolver:    mapping.NewResolver(),
		exporter:    exporter.NewExporter(st),
		downloads:   newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 安装管理
	router.GET("/anlagen", h.ListAnlagen)
	router.POST("/anlagen", h.CreateAnlage)
	router.GET("/anlagen/:id", h.GetAnlage)
	router.PATCH("/anlagen/:id", h.UpdateAnlage)
	router.DELETE("/anlagen/:id", h.DeleteAnlage)

	// 投资项管理
	router.GET("/anlagen/:id/investments", h.ListInvestments)
	router.POST("/anlagen/:id/investments", h.CreateInvestment)
	router.PATCH("/investments/:id", h.UpdateInvestment)
	router.DELETE("/investments/:id", h.DeleteInvestment)

	// 月度读数
	router.GET("/anlagen/:id/readings", h.ListReadings)
	router.PUT("/anlagen/:id/readings", h.UpsertReading)
	router.DELETE("/anlagen/:id/readings/:year/:month", h.DeleteReading)

	// 字段/公式目录与传感器列表
	router.GET("/catalog/fields", h.GetFieldCatalog)
	router.GET("/catalog/formulas", h.GetFormulaCatalog)
	router.GET("/sensors", h.ListSensors)

	// 传感器映射
	router.GET("/anlagen/:id/mapping", h.GetMapping)
	router.PUT("/anlagen/:id/mapping", h.SaveMapping)

	// 导入向导
	router.POST("/anlagen/:id/wizard/preview", h.WizardPreview)
	router.GET("/anlagen/:id/wizard/state", h.WizardState)
	router.POST("/anlagen/:id/wizard/bulk", h.WizardApplyBulkMode)
	router.POST("/anlagen/:id/wizard/toggle-period", h.WizardTogglePeriod)
	router.POST("/anlagen/:id/wizard/toggle-field", h.WizardToggleField)
	router.POST("/anlagen/:id/wizard/submit", h.WizardSubmit)
	router.POST("/anlagen/:id/wizard/submit/stream", h.WizardSubmitStream)
	router.DELETE("/anlagen/:id/wizard", h.WizardDrop)

	// 数据导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}

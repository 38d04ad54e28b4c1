package api

import (
	"github.com/gin-gonic/gin"

	"esgscope/internal/exporter"
	"esgscope/internal/report"
	"esgscope/internal/store"
)

// HandlerOptions API 处理器依赖
type HandlerOptions struct {
	View            *report.View
	Exporter        *exporter.Exporter
	Store           *store.Store // 可为 nil，此时不提供上传记录
	ExportDir       string       // 流式导出的临时文件目录
	MaxUploadSize   int64
	ScoringEndpoint string
}

// Handler API 处理器
type Handler struct {
	view            *report.View
	exporter        *exporter.Exporter
	store           *store.Store
	exportDir       string
	maxUploadSize   int64
	scoringEndpoint string
	downloads       *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(opts HandlerOptions) *Handler {
	maxUpload := opts.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadSize
	}
	return &Handler{
		view:            opts.View,
		exporter:        opts.Exporter,
		store:           opts.Store,
		exportDir:       opts.ExportDir,
		maxUploadSize:   maxUpload,
		scoringEndpoint: opts.ScoringEndpoint,
		downloads:       newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 状态
	router.GET("/status", h.GetStatus)

	// 文件选择与上传
	router.POST("/file", h.SelectFile)
	router.POST("/submit", h.Submit)
	router.POST("/upload", h.Upload)

	// 报告
	router.GET("/report", h.GetReport)
	router.GET("/report/image", h.DownloadImage)
	router.GET("/report/document", h.DownloadDocument)
	router.GET("/report/workbook", h.DownloadWorkbook)

	// 导出
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)

	// 上传记录
	router.GET("/submissions", h.ListSubmissions)
}

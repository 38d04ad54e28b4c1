package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"esgscope/internal/api"
	"esgscope/internal/config"
	"esgscope/internal/exporter"
	"esgscope/internal/importer"
	"esgscope/internal/report"
	"esgscope/internal/store"
)

//go:embed web/index.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "web/index.html"))

type pageData struct {
	Title           string
	ScoringEndpoint string
}

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	view   *report.View
	api    *api.Handler
	page   []byte
	http   *http.Server
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, "esgscope.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		_ = sqliteStore.Close()
		return nil, fmt.Errorf("load report font: %w", err)
	}

	client := importer.NewClient(importer.ClientOptions{
		BaseURL:    cfg.Scoring.BaseURL,
		UploadPath: cfg.Scoring.UploadPath,
		FieldName:  cfg.Scoring.FieldName,
	})
	view := report.NewView(client)
	view.SetJournal(api.NewSubmissionJournal(sqliteStore))

	exp := exporter.NewExporter(view, renderer, exporter.Options{
		Scale:    cfg.Export.Scale,
		PageSize: cfg.Export.PageSize,
		MarginMM: cfg.Export.MarginMM,
	})

	handler := api.NewHandler(api.HandlerOptions{
		View:            view,
		Exporter:        exp,
		Store:           sqliteStore,
		ExportDir:       filepath.Join(dataDir, "exports"),
		MaxUploadSize:   cfg.Server.MaxUploadSize,
		ScoringEndpoint: client.Endpoint(),
	})

	var page bytes.Buffer
	if err := pageTemplate.Execute(&page, pageData{
		Title:           "ESG Report",
		ScoringEndpoint: client.Endpoint(),
	}); err != nil {
		_ = sqliteStore.Close()
		return nil, fmt.Errorf("render page: %w", err)
	}

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		view:   view,
		api:    handler,
		page:   page.Bytes(),
	}

	s.setupRoutes(devMode)
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	// CORS（开发模式下页面可能由其他端口提供）
	if devMode {
		s.router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
	}

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	// 报告页面
	s.router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 监听 addr 并提供服务，直到 Shutdown 被调用
// Shutdown 先于 Run 执行时 Run 立即返回 nil。
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有的监听器上提供服务
func (s *Server) Serve(ln net.Listener) error {
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求并关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}

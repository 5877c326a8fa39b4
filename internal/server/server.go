package server

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	v1 "eedc/internal/api/v1"
	"eedc/internal/config"
	"eedc/internal/source"
	"eedc/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	v1     *v1.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "eedc.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 数据源客户端
	src := source.NewHomeAssistantClient(cfg.Source.BaseURL, cfg.Source.Token)

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		v1:     v1.NewHandler(sqliteStore, src),
	}

	s.setupRoutes(devMode)

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}

	// 静态资源
	if devMode {
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
	} else {
		// 生产模式：提供 web/dist 下的前端构建产物
		s.router.Static("/assets", "./web/dist/assets")
		s.router.StaticFile("/", "./web/dist/index.html")

		// SPA 路由 fallback
		s.router.NoRoute(func(c *gin.Context) {
			c.File("./web/dist/index.html")
		})
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭底层存储（SQLite 自动持久化，无需额外落盘）
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}

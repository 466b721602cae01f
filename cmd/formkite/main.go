package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/formkite/formkite/internal/config"
	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/handler"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/formkite/formkite/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting formkite service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 仓库、服务、处理器
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg)
	handlers := handler.NewHandlers(services, repos, cfg)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// migrate 建表并补充 AutoMigrate 建不出来的约束
func migrate(db *gorm.DB, zapLogger *zap.Logger) error {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.FormTemplate{},
		&entity.Submission{},
		&entity.AdminNote{},
		&entity.AdminAssignment{},
	); err != nil {
		return err
	}

	// 并发首保存/重复分配依赖这两个唯一索引
	migrationSQL := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_user_template ON submissions(user_id, form_template_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_admin_user ON admin_assignments(admin_id, user_id)",
		"CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notes_submission ON admin_notes(submission_id)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}

	zapLogger.Info("Database migration completed")
	return nil
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 静态文件服务 - 本地上传文件
	r.Static("/uploads", "./uploads")

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 邀请码解析 (无需登录，注册页预览邀请人)
		v1.GET("/invite/:code", h.Invite.Resolve)

		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 接受邀请
			authorized.POST("/invite/:code/accept", h.Invite.Accept)

			// 用户侧表单
			forms := authorized.Group("/forms")
			{
				forms.GET("", h.Form.List)
				forms.GET("/:templateId", h.Form.Get)
				forms.PUT("/:templateId/draft", h.Form.SaveDraft)
				forms.POST("/:templateId/submit", h.Form.Submit)
			}

			// 文件上传
			authorized.POST("/upload", h.Upload.Upload)

			// 管理员：审阅
			admin := authorized.Group("/admin")
			admin.Use(middleware.RequireRole(entity.RoleAdmin))
			{
				admin.GET("/invite", h.Invite.MyCode)
				admin.GET("/submissions", h.Review.List)
				admin.GET("/submissions/export", h.Review.Export)
				admin.GET("/submissions/:id", h.Review.Get)
				admin.GET("/submissions/:id/notes", h.Review.ListNotes)
				admin.POST("/submissions/:id/notes", h.Review.AddNote)
			}

			// 超级管理员：模板设计与账号管理
			super := authorized.Group("")
			super.Use(middleware.RequireRole(entity.RoleSuperAdmin))
			{
				templates := super.Group("/templates")
				{
					templates.GET("", h.Template.List)
					templates.POST("", h.Template.Create)
					templates.GET("/:id", h.Template.Get)
					templates.PUT("/:id", h.Template.Update)
					templates.DELETE("/:id", h.Template.Delete)
					templates.POST("/:id/duplicate", h.Template.Duplicate)
					templates.POST("/:id/fields", h.Template.AddField)
					templates.PUT("/:id/fields/:fieldId", h.Template.UpdateField)
					templates.DELETE("/:id/fields/:fieldId", h.Template.RemoveField)
					templates.POST("/:id/fields/:fieldId/move", h.Template.MoveField)
					templates.POST("/:id/fields/:fieldId/options", h.Template.AddOption)
					templates.DELETE("/:id/fields/:fieldId/options/:value", h.Template.RemoveOption)
				}

				super.GET("/admin/assignments", h.Assignment.List)
				super.POST("/admin/assignments", h.Assignment.Create)
				super.DELETE("/admin/assignments/:id", h.Assignment.Delete)
				super.GET("/admin/users", h.Assignment.ListUsers)
				super.PUT("/admin/users/:id/role", h.Assignment.SetRole)
			}
		}
	}
}

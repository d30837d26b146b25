// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"psa-server/internal/cache"
	"psa-server/internal/config"
	"psa-server/internal/handler"
	"psa-server/internal/middleware"
	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/internal/scheduler"
	"psa-server/internal/service"
	"psa-server/internal/websocket"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// .env 是可选的，本地开发用
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	// Redis 只承担缓存和锁，不可用时降级为只走数据库
	var redisCache *cache.RedisCache
	if cfg.Redis.Host != "" {
		redisCache, err = cache.NewRedisCache(cfg)
		if err != nil {
			log.Printf("[WARN] redis unavailable, running without cache: %v", err)
			redisCache = nil
		}
	} else {
		log.Println("Redis not configured, running without cache")
	}

	// 初始化 Repository 层
	messageRepo := repository.NewMessageRepository(db)
	ritualRepo := repository.NewRitualRepository(db)
	winddownRepo := repository.NewWinddownRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// 初始化 Service 层
	messageService := service.NewMessageService(messageRepo, redisCache)
	relayService := service.NewRelayService(cfg)
	aiService := service.NewAIService(cfg)
	settingsService := service.NewSettingsService(settingsRepo)
	ritualService := service.NewRitualService(cfg, messageService, ritualRepo, winddownRepo, settingsRepo, relayService, aiService)
	winddownService := service.NewWinddownService(winddownRepo, messageService)

	// 初始化 WebSocket Hub，并接到消息服务的变更通知上
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	wsHub := websocket.NewHub(redisCache)
	go wsHub.Run(hubCtx)
	messageService.SetNotifier(wsHub)

	// 初始化 Handler 层
	messageHandler := handler.NewMessageHandler(messageService)
	ritualHandler := handler.NewRitualHandler(ritualService)
	winddownHandler := handler.NewWinddownHandler(winddownService)
	fallbackHandler := handler.NewFallbackHandler(cfg, relayService, settingsService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	wsHandler := websocket.NewHandler(wsHub)

	// 启动仪式调度器
	ritualScheduler := scheduler.New(ritualRepo, ritualService)
	if err := ritualScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware())

	// 注册路由
	registerRoutes(router, messageHandler, ritualHandler, winddownHandler, fallbackHandler, settingsHandler, wsHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	ritualScheduler.Stop()
	hubCancel()

	if err := redisCache.Close(); err != nil {
		log.Printf("Failed to close redis: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	log.Println("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&model.Message{},
		&model.Ritual{},
		&model.WinddownSession{},
		&model.WinddownAnswer{},
		&model.WinddownThought{},
		&model.Settings{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	messageHandler *handler.MessageHandler,
	ritualHandler *handler.RitualHandler,
	winddownHandler *handler.WinddownHandler,
	fallbackHandler *handler.FallbackHandler,
	settingsHandler *handler.SettingsHandler,
	wsHandler *websocket.Handler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 消息时间线
	messages := v1.Group("/messages")
	{
		messages.GET("", messageHandler.ListMessages)
		messages.POST("", messageHandler.AppendMessage)
		messages.PUT("", messageHandler.UpdateMessage)
		messages.DELETE("", messageHandler.ClearMessages)
		messages.GET("/:id", messageHandler.GetMessage)
		messages.PATCH("/:id", messageHandler.PatchMessage)
	}

	// 仪式
	rituals := v1.Group("/rituals")
	{
		rituals.POST("/trigger", ritualHandler.TriggerRitual)
		rituals.POST("/advance", ritualHandler.AdvanceRitual)
		rituals.GET("", ritualHandler.ListRituals)
		rituals.POST("", ritualHandler.SaveRitual)
		rituals.DELETE("/:id", ritualHandler.DeleteRitual)
	}

	// 睡前复盘
	winddown := v1.Group("/winddown")
	{
		winddown.GET("", winddownHandler.History)
		winddown.POST("/answer", winddownHandler.SubmitAnswer)
		winddown.DELETE("/sessions/:id", winddownHandler.DeleteSession)
		winddown.DELETE("/answers/:id", winddownHandler.DeleteAnswer)
		winddown.GET("/thoughts", winddownHandler.ListThoughts)
		winddown.POST("/thoughts", winddownHandler.SaveThought)
		winddown.DELETE("/thoughts/:id", winddownHandler.DeleteThought)
	}

	// 问题卡片的提交目标
	v1.POST("/sleep/hours", messageHandler.SubmitSleepHours)
	v1.POST("/impulse/answer", ritualHandler.AnswerImpulse)

	// 回退聊天代理
	v1.POST("/fallback", fallbackHandler.Relay)

	// 用户设置
	settings := v1.Group("/settings")
	{
		settings.GET("", settingsHandler.GetSettings)
		settings.PATCH("", settingsHandler.PatchSettings)
	}

	// WebSocket 路由
	wsHandler.RegisterRoutes(router)
}

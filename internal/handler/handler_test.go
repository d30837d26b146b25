package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"psa-server/internal/config"
	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/internal/service"
)

// newTestRouter 组装一个接近生产布线的路由，用内存数据库、无 Redis、无 AI key
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Message{},
		&model.Ritual{},
		&model.WinddownSession{},
		&model.WinddownAnswer{},
		&model.WinddownThought{},
		&model.Settings{},
	))

	cfg := &config.Config{}

	messageRepo := repository.NewMessageRepository(db)
	ritualRepo := repository.NewRitualRepository(db)
	winddownRepo := repository.NewWinddownRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	messageService := service.NewMessageService(messageRepo, nil)
	relayService := service.NewRelayService(cfg)
	aiService := service.NewAIService(cfg)
	settingsService := service.NewSettingsService(settingsRepo)
	ritualService := service.NewRitualService(cfg, messageService, ritualRepo, winddownRepo, settingsRepo, relayService, aiService)
	winddownService := service.NewWinddownService(winddownRepo, messageService)

	messageHandler := NewMessageHandler(messageService)
	ritualHandler := NewRitualHandler(ritualService)
	winddownHandler := NewWinddownHandler(winddownService)
	fallbackHandler := NewFallbackHandler(cfg, relayService, settingsService)
	settingsHandler := NewSettingsHandler(settingsService)

	router := gin.New()
	v1 := router.Group("/api/v1")

	messages := v1.Group("/messages")
	messages.GET("", messageHandler.ListMessages)
	messages.POST("", messageHandler.AppendMessage)
	messages.PUT("", messageHandler.UpdateMessage)
	messages.DELETE("", messageHandler.ClearMessages)
	messages.GET("/:id", messageHandler.GetMessage)
	messages.PATCH("/:id", messageHandler.PatchMessage)

	rituals := v1.Group("/rituals")
	rituals.POST("/trigger", ritualHandler.TriggerRitual)
	rituals.POST("/advance", ritualHandler.AdvanceRitual)
	rituals.GET("", ritualHandler.ListRituals)
	rituals.POST("", ritualHandler.SaveRitual)
	rituals.DELETE("/:id", ritualHandler.DeleteRitual)

	winddown := v1.Group("/winddown")
	winddown.GET("", winddownHandler.History)
	winddown.POST("/answer", winddownHandler.SubmitAnswer)
	winddown.POST("/thoughts", winddownHandler.SaveThought)
	winddown.GET("/thoughts", winddownHandler.ListThoughts)

	v1.POST("/impulse/answer", ritualHandler.AnswerImpulse)
	v1.POST("/sleep/hours", messageHandler.SubmitSleepHours)
	v1.POST("/fallback", fallbackHandler.Relay)

	settings := v1.Group("/settings")
	settings.GET("", settingsHandler.GetSettings)
	settings.PATCH("", settingsHandler.PatchSettings)

	return router
}

// doJSON 发送 JSON 请求并解析响应体
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec.Code, parsed
}

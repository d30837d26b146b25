package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"psa-server/internal/config"
	"psa-server/internal/model"
	"psa-server/internal/repository"
)

// newTestDB 创建一个独立的内存数据库
// 限制为单连接：内存库按连接隔离，连接池会让查询落到空库上
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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
	return db
}

// testEnv 服务层测试的依赖集合
// 不配置 Redis 和 AI key：缓存降级为只走数据库，文本生成走本地兜底
type testEnv struct {
	db             *gorm.DB
	cfg            *config.Config
	messageRepo    *repository.MessageRepository
	ritualRepo     *repository.RitualRepository
	winddownRepo   *repository.WinddownRepository
	settingsRepo   *repository.SettingsRepository
	messageService *MessageService
	ritualService  *RitualService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	cfg := &config.Config{}

	messageRepo := repository.NewMessageRepository(db)
	ritualRepo := repository.NewRitualRepository(db)
	winddownRepo := repository.NewWinddownRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	messageService := NewMessageService(messageRepo, nil)
	relayService := NewRelayService(cfg)
	aiService := NewAIService(cfg)
	ritualService := NewRitualService(cfg, messageService, ritualRepo, winddownRepo, settingsRepo, relayService, aiService)

	return &testEnv{
		db:             db,
		cfg:            cfg,
		messageRepo:    messageRepo,
		ritualRepo:     ritualRepo,
		winddownRepo:   winddownRepo,
		settingsRepo:   settingsRepo,
		messageService: messageService,
		ritualService:  ritualService,
	}
}

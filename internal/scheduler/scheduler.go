// Package scheduler 提供定时触发仪式的调度器
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/internal/service"
)

// Scheduler 仪式调度器
// 每分钟扫描一次启用中的仪式，本地时间命中 trigger.time 的就触发；
// 同一仪式同一分钟内只触发一次
type Scheduler struct {
	cron          *cron.Cron
	ritualRepo    *repository.RitualRepository
	ritualService *service.RitualService

	// 上次触发记录：ritualID -> "2006-01-02 15:04"
	lastFired map[string]string
}

// New 创建 Scheduler 实例
func New(ritualRepo *repository.RitualRepository, ritualService *service.RitualService) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		ritualRepo:    ritualRepo,
		ritualService: ritualService,
		lastFired:     make(map[string]string),
	}
}

// Start 启动调度器
// 返回:
//   - error: cron 表达式解析错误（固定表达式，正常不会发生）
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.tick); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[INFO] ritual scheduler started")
	return nil
}

// Stop 停止调度器，等待进行中的触发结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// tick 每分钟执行一次的扫描
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rituals, err := s.ritualRepo.ListActive(ctx)
	if err != nil {
		log.Printf("[WARN] scheduler: failed to list rituals: %v", err)
		return
	}

	now := time.Now()
	clock := now.Format("15:04")
	stamp := now.Format("2006-01-02 15:04")

	for _, ritual := range rituals {
		if ritual.Trigger.Type != model.TriggerTypeSchedule || ritual.Trigger.Time != clock {
			continue
		}
		if !repeatMatches(ritual.Trigger.Repeat, now.Weekday()) {
			continue
		}
		if s.lastFired[ritual.ID] == stamp {
			continue
		}
		s.lastFired[ritual.ID] = stamp

		log.Printf("[INFO] scheduler: firing ritual '%s' at %s", ritual.ID, clock)
		if _, err := s.ritualService.Trigger(ctx, &service.TriggerRequest{RitualID: ritual.ID}); err != nil {
			log.Printf("[WARN] scheduler: ritual '%s' failed: %v", ritual.ID, err)
		}
	}
}

// repeatMatches 判断重复规则是否覆盖给定的星期几
// 空串和 "daily" 表示每天；"weekdays" 周一到周五；"weekends" 周六周日
func repeatMatches(repeat string, day time.Weekday) bool {
	switch repeat {
	case "", "daily":
		return true
	case "weekdays":
		return day >= time.Monday && day <= time.Friday
	case "weekends":
		return day == time.Saturday || day == time.Sunday
	}
	return true
}

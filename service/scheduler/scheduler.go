/*
 * @module service/scheduler/scheduler
 * @description 采集调度器：按租户配置的cron表达式周期性投递结构采集任务
 * @architecture 调度层 - robfig/cron
 * @stateFlow 启动时加载租户 -> 注册cron条目 -> 到点投递ingestion任务到队列
 * @rules 未配置cron表达式的租户不调度；表达式非法只记日志跳过该租户；
 *        Reload整体重建条目，避免增量维护的漂移
 * @dependencies github.com/robfig/cron/v3
 * @refs service/tenant/tenant_service.go, service/taskqueue/queue.go
 */

package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"recomind-service/service/models"
	"recomind-service/service/taskqueue"
	"recomind-service/service/tenant"
)

// Scheduler 采集调度器
type Scheduler struct {
	cron    *cron.Cron
	tenants *tenant.Service
	queue   *taskqueue.Queue

	mu      sync.Mutex
	entries []cron.EntryID
}

// New 创建调度器
func New(tenants *tenant.Service, queue *taskqueue.Queue) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		tenants: tenants,
		queue:   queue,
	}
}

// Start 加载租户计划并启动调度
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("采集调度器启动")
	return nil
}

// Stop 停止调度，等待在途任务投递完成
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("采集调度器停止")
}

// Reload 重建全部调度条目
func (s *Scheduler) Reload(ctx context.Context) error {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, t := range tenants {
		if t.IngestionCronExpr == "" {
			continue
		}
		companyID := t.CompanyID
		id, err := s.cron.AddFunc(t.IngestionCronExpr, func() {
			taskID, err := s.queue.Submit(context.Background(), models.TaskKindIngestion, companyID, "")
			if err != nil {
				slog.Error("周期采集投递失败", "company_id", companyID, "error", err)
				return
			}
			slog.Info("周期采集已投递", "company_id", companyID, "task_id", taskID)
		})
		if err != nil {
			slog.Error("cron表达式非法，跳过租户", "company_id", companyID, "expr", t.IngestionCronExpr, "error", err)
			continue
		}
		s.entries = append(s.entries, id)
	}

	slog.Info("调度条目已加载", "count", len(s.entries))
	return nil
}

/*
 * @module service/taskqueue/queue
 * @description Redis任务队列：投递、状态存取与工作循环，承载分析与采集两类后台任务
 * @architecture 服务层 - 生产者/消费者
 * @stateFlow Submit(LPUSH+状态写入PENDING) -> 工作协程BRPOP -> PROGRESS(阶段标签) -> SUCCESS/FAILURE
 * @rules 状态键带过期时间避免堆积；任务一旦出队不支持中途取消；
 *        处理函数panic由工作循环捕获并落为FAILURE
 * @dependencies github.com/go-redis/redis/v8, github.com/google/uuid
 * @refs service/models/task.go, service/pipeline/pipeline.go
 */

package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"recomind-service/service/models"
)

const (
	queueKey       = "recomind:tasks"
	statusKeyPref  = "recomind:task:"
	statusTTL      = 24 * time.Hour
	dequeueTimeout = 5 * time.Second
)

// HandlerFunc 任务处理函数
// 返回的结果字符串作为SUCCESS状态的result；返回错误落为FAILURE
type HandlerFunc func(ctx context.Context, payload models.TaskPayload, progress func(stage string)) (string, error)

// Queue Redis任务队列
type Queue struct {
	rdb      *redis.Client
	handlers map[string]HandlerFunc
}

// NewQueue 创建任务队列
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{
		rdb:      rdb,
		handlers: make(map[string]HandlerFunc),
	}
}

// RegisterHandler 注册任务类型的处理函数
func (q *Queue) RegisterHandler(kind string, handler HandlerFunc) {
	q.handlers[kind] = handler
}

// Submit 投递任务，返回任务ID
func (q *Queue) Submit(ctx context.Context, kind, companyID, userRequest string) (string, error) {
	payload := models.TaskPayload{
		TaskID:      uuid.NewString(),
		Kind:        kind,
		CompanyID:   companyID,
		UserRequest: userRequest,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化任务载荷失败: %w", err)
	}

	if err := q.setStatus(ctx, payload.TaskID, models.TaskStatusPending, ""); err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, queueKey, raw).Err(); err != nil {
		return "", fmt.Errorf("任务入队失败: %w", err)
	}

	slog.Info("任务已投递", "task_id", payload.TaskID, "kind", kind)
	return payload.TaskID, nil
}

// GetStatus 查询任务状态
func (q *Queue) GetStatus(ctx context.Context, taskID string) (*models.TaskState, error) {
	fields, err := q.rdb.HGetAll(ctx, statusKeyPref+taskID).Result()
	if err != nil {
		return nil, fmt.Errorf("读取任务状态失败: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("任务不存在: %s", taskID)
	}
	return &models.TaskState{
		TaskID: taskID,
		Status: fields["status"],
		Result: fields["result"],
	}, nil
}

// Run 工作循环，阻塞直至ctx取消
func (q *Queue) Run(ctx context.Context) {
	slog.Info("任务队列工作循环启动")
	for {
		if ctx.Err() != nil {
			slog.Info("任务队列工作循环退出")
			return
		}

		values, err := q.rdb.BRPop(ctx, dequeueTimeout, queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("任务出队失败", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(values) < 2 {
			continue
		}

		var payload models.TaskPayload
		if err := json.Unmarshal([]byte(values[1]), &payload); err != nil {
			slog.Error("任务载荷解析失败", "error", err)
			continue
		}

		q.process(ctx, payload)
	}
}

// process 执行单个任务
func (q *Queue) process(ctx context.Context, payload models.TaskPayload) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("任务处理panic", "task_id", payload.TaskID, "panic", r)
			_ = q.setStatus(ctx, payload.TaskID, models.TaskStatusFailure, fmt.Sprintf("internal error: %v", r))
		}
	}()

	handler, ok := q.handlers[payload.Kind]
	if !ok {
		_ = q.setStatus(ctx, payload.TaskID, models.TaskStatusFailure, fmt.Sprintf("unknown task kind: %s", payload.Kind))
		return
	}

	progress := func(stage string) {
		_ = q.setStatus(ctx, payload.TaskID, models.TaskStatusProgress, stage)
	}

	result, err := handler(ctx, payload, progress)
	if err != nil {
		slog.Error("任务处理失败", "task_id", payload.TaskID, "error", err)
		_ = q.setStatus(ctx, payload.TaskID, models.TaskStatusFailure, err.Error())
		return
	}
	_ = q.setStatus(ctx, payload.TaskID, models.TaskStatusSuccess, result)
	slog.Info("任务处理完成", "task_id", payload.TaskID)
}

// setStatus 写入任务状态哈希
func (q *Queue) setStatus(ctx context.Context, taskID, status, result string) error {
	key := statusKeyPref + taskID
	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, key, "status", status, "result", result)
	pipe.Expire(ctx, key, statusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入任务状态失败: %w", err)
	}
	return nil
}

/*
 * @module service/analysis/service
 * @description 分析服务，持有模型客户端与重试配置，承载图谱各节点的实现
 * @architecture 服务层 - 依赖注入
 * @stateFlow 由pipeline构造并驱动，节点实现分布在同包各文件
 * @rules 模型调用统一走invokeWithRetry：固定3次尝试、固定间隔，重试打满后降级不抛错
 * @dependencies recomind-service/client
 * @refs state_machine.go, service/pipeline/pipeline.go
 */

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recomind-service/client"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

// Service 分析服务
type Service struct {
	llm        client.LLMClient
	kpiRunner  *KpiCodeRunner
	retryDelay time.Duration
}

// NewService 创建分析服务实例
func NewService(llm client.LLMClient) *Service {
	return &Service{
		llm:        llm,
		kpiRunner:  NewKpiCodeRunner(),
		retryDelay: retryDelay,
	}
}

// invokeWithRetry 带重试的模型调用
// validate对每次回复做校验，返回错误视为本次尝试失败；重试打满后返回最后一个错误
func (s *Service) invokeWithRetry(ctx context.Context, prompt string, validate func(string) error) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		content, err := s.llm.Invoke(ctx, prompt)
		if err == nil && content != "" {
			if validate == nil {
				return content, nil
			}
			if verr := validate(content); verr == nil {
				return content, nil
			} else {
				err = verr
			}
		} else if err == nil {
			err = fmt.Errorf("模型返回空回复")
		}

		lastErr = err
		slog.Warn("模型调用失败", "attempt", attempt, "max", maxRetries, "error", err)

		if attempt < maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("重试%d次后仍然失败: %w", maxRetries, lastErr)
}

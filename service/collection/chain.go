/*
 * @module service/collection/chain
 * @description 查询合成链服务，持有模型客户端、嵌入客户端与应用库连接并串联各阶段
 * @architecture 服务层 - 顺序代理链 + 有界纠错回路
 * @stateFlow 检索 -> 选表 -> 取结构 -> 选列 -> 生成 -> 审查，审查拒绝时带反馈回到生成，最多3轮
 * @rules 每个模型阶段共享统一重试策略（3次、固定间隔）；
 *        审查的ERROR:前缀是控制信号，打满纠错轮次后整链返回错误
 * @dependencies gorm.io/gorm, recomind-service/client
 * @refs vector_search.go, table_analyzer.go, schema_tool.go, column_selector.go, query_generator.go, reviewer.go
 */

package collection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"recomind-service/client"
	"recomind-service/service/models"
)

const (
	maxRetries        = 3
	retryDelay        = 5 * time.Second
	maxCorrectionLoop = 3
	retrievalLimit    = 12
)

// Chain 查询合成链
type Chain struct {
	llm        client.LLMClient
	embedder   client.EmbeddingClient
	db         *gorm.DB
	retryDelay time.Duration
}

// NewChain 创建查询合成链
// db为应用库连接，承载租户表结构向量
func NewChain(llm client.LLMClient, embedder client.EmbeddingClient, db *gorm.DB) *Chain {
	return &Chain{
		llm:        llm,
		embedder:   embedder,
		db:         db,
		retryDelay: retryDelay,
	}
}

// Synthesize 执行完整合成链，产出通过审查的SELECT语句
// sourceDB为租户源库连接，用于读取真实表结构
func (c *Chain) Synthesize(ctx context.Context, sctx *models.SynthesisContext, sourceDB *sql.DB) error {
	if err := c.RetrieveContext(ctx, sctx); err != nil {
		return fmt.Errorf("结构检索失败: %w", err)
	}
	if err := c.AnalyzeTables(ctx, sctx); err != nil {
		return fmt.Errorf("选表失败: %w", err)
	}
	if err := c.FetchSchema(ctx, sctx, sourceDB); err != nil {
		return fmt.Errorf("取表结构失败: %w", err)
	}
	if err := c.SelectColumns(ctx, sctx); err != nil {
		return fmt.Errorf("选列失败: %w", err)
	}

	// 生成与审查构成有界纠错回路，审查意见作为下一轮的纠错反馈
	for round := 1; round <= maxCorrectionLoop; round++ {
		if err := c.GenerateQuery(ctx, sctx); err != nil {
			return fmt.Errorf("生成查询失败: %w", err)
		}

		verdict := c.ReviewQuery(sctx)
		if !strings.HasPrefix(verdict, reviewErrorPrefix) {
			sctx.SQLQuery = verdict
			sctx.CorrectionFeedback = ""
			slog.Info("查询通过审查", "round", round)
			return nil
		}

		sctx.CorrectionFeedback = verdict
		slog.Warn("查询被审查驳回", "round", round, "feedback", verdict)
	}

	return fmt.Errorf("纠错%d轮后查询仍未通过审查: %s", maxCorrectionLoop, sctx.CorrectionFeedback)
}

// invokeWithRetry 带重试的模型调用，validate校验每次回复
func (c *Chain) invokeWithRetry(ctx context.Context, prompt string, validate func(string) error) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		content, err := c.llm.Invoke(ctx, prompt)
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
		slog.Warn("合成链模型调用失败", "attempt", attempt, "max", maxRetries, "error", err)

		if attempt < maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("重试%d次后仍然失败: %w", maxRetries, lastErr)
}

/*
 * @module service/collection/query_generator
 * @description 生成阶段：按选列与主外键事实产出PostgreSQL SELECT语句，支持携带审查反馈重生成
 * @architecture 服务层 - 链尾生成阶段
 * @stateFlow selected_columns + key_info (+ correction_feedback) -> 模型SQL -> 围栏剥离写入上下文
 * @rules JOIN条件只能使用key_info中列出的键对；只生成单条SELECT语句
 * @dependencies recomind-service/client
 * @refs reviewer.go, chain.go
 */

package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

const queryGeneratorPromptTemplate = `You are an expert PostgreSQL engineer. Write ONE SELECT statement that answers the user's request.

User request: "%s"

Columns to use (table-prefixed):
%s

Primary/foreign key facts (the ONLY valid join conditions):
%s

Table schemas for reference:
%s
%s
Rules:
- Output a single PostgreSQL SELECT statement and nothing else.
- Join tables ONLY on the key pairs listed in the key facts. Never join on columns that merely share a name.
- Quote an identifier with double quotes only if it is case-sensitive or a reserved word.
- Alias output columns with AS when two selected columns share a name or a name is too generic (e.g. SalesOrderHeader.ModifiedDate AS OrderModifiedDate).
- Do not use INSERT, UPDATE, DELETE, DROP or any other non-SELECT statement.`

// GenerateQuery 生成阶段
func (c *Chain) GenerateQuery(ctx context.Context, sctx *models.SynthesisContext) error {
	keyInfoJSON, err := json.MarshalIndent(sctx.KeyInfo, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化键事实失败: %w", err)
	}

	feedback := ""
	if sctx.CorrectionFeedback != "" {
		feedback = fmt.Sprintf("\nYour previous attempt was rejected with this feedback, fix it:\n%s\n", sctx.CorrectionFeedback)
	}

	prompt := fmt.Sprintf(queryGeneratorPromptTemplate,
		sctx.UserRequest,
		strings.Join(sctx.SelectedColumns, "\n"),
		string(keyInfoJSON),
		sctx.FullSchemaString,
		feedback)

	content, err := c.invokeWithRetry(ctx, prompt, func(reply string) error {
		query := utils.StripCodeFence(reply)
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
			return fmt.Errorf("生成结果不是SELECT语句")
		}
		return nil
	})
	if err != nil {
		return err
	}

	sctx.SQLQuery = utils.StripCodeFence(content)
	slog.Info("查询生成完成", "chars", len(sctx.SQLQuery))
	return nil
}

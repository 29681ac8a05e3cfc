/*
 * @module service/collection/column_selector
 * @description 选列阶段：在完整表结构里挑出回答请求所需的最小列集合
 * @architecture 服务层 - 链中阶段
 * @stateFlow full_schema_string + 用户请求 -> 模型JSON -> selected_columns写入上下文
 * @rules 列名必须带表前缀（Table.Column），且只能取自完整表结构
 * @dependencies recomind-service/client
 * @refs schema_tool.go, query_generator.go
 */

package collection

import (
	"context"
	"fmt"
	"log/slog"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

const columnSelectorPromptTemplate = `You are a database analyst. From the table schemas below, select the minimal set of columns needed to answer the user's request.

Table schemas:
%s

User request: "%s"

Respond with ONLY a JSON object of this exact shape:
{"selected_columns": ["TableA.ColumnX", "TableB.ColumnY"]}

Rules:
- Every column MUST be prefixed with its table name.
- Only use columns that appear in the table schemas above.
- Include join key columns when more than one table is involved.`

// SelectColumns 选列阶段
func (c *Chain) SelectColumns(ctx context.Context, sctx *models.SynthesisContext) error {
	prompt := fmt.Sprintf(columnSelectorPromptTemplate, sctx.FullSchemaString, sctx.UserRequest)

	var selected []string
	_, err := c.invokeWithRetry(ctx, prompt, func(reply string) error {
		obj, err := utils.ExtractJSONObject(reply)
		if err != nil {
			return err
		}
		raw, ok := obj["selected_columns"].([]interface{})
		if !ok || len(raw) == 0 {
			return fmt.Errorf("选列结果为空")
		}
		cols := make([]string, 0, len(raw))
		for _, item := range raw {
			name, ok := item.(string)
			if !ok || name == "" {
				return fmt.Errorf("选列结果包含非字符串项")
			}
			cols = append(cols, name)
		}
		selected = cols
		return nil
	})
	if err != nil {
		return err
	}

	sctx.SelectedColumns = selected
	slog.Info("选列完成", "columns", len(selected))
	return nil
}

/*
 * @module service/collection/table_analyzer
 * @description 选表阶段：让模型从检索上下文中挑出相关表并沉淀主外键事实
 * @architecture 服务层 - 链中阶段
 * @stateFlow 检索上下文 + 用户请求 -> 模型JSON -> selected_tables与key_info写入上下文
 * @rules key_info只允许来自检索上下文中的Relations事实，后续JOIN以此为唯一依据
 * @dependencies recomind-service/client
 * @refs vector_search.go, query_generator.go
 */

package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

const tableAnalyzerPromptTemplate = `You are a database analyst. From the schema context below, pick the tables needed to answer the user's request, and record the primary/foreign key facts for those tables.

Schema context (each block lists a table, its description and its key relations):
%s

User request: "%s"

Respond with ONLY a JSON object of this exact shape:
{
  "selected_tables": ["TableA", "TableB"],
  "key_info": {
    "TableA": {"pk": "Id", "fks": [{"from_column": "CustomerID", "to_table": "TableB", "to_column": "Id"}]},
    "TableB": {"pk": "Id", "fks": []}
  }
}

Rules:
- Select only tables that appear in the schema context.
- Copy key relations exactly as given in the context. Never invent a key that is not listed there.
- Include every selected table as a key of key_info, with an empty fks list when the context lists none.`

// tableAnalysis 选表阶段的模型输出
type tableAnalysis struct {
	SelectedTables []string                         `json:"selected_tables"`
	KeyInfo        map[string]models.TableRelations `json:"key_info"`
}

// AnalyzeTables 选表阶段
func (c *Chain) AnalyzeTables(ctx context.Context, sctx *models.SynthesisContext) error {
	prompt := fmt.Sprintf(tableAnalyzerPromptTemplate, sctx.RetrievedContext, sctx.UserRequest)

	var analysis tableAnalysis
	_, err := c.invokeWithRetry(ctx, prompt, func(reply string) error {
		obj, err := utils.ExtractJSONObject(reply)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		var parsed tableAnalysis
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("选表结果结构不符: %w", err)
		}
		if len(parsed.SelectedTables) == 0 {
			return fmt.Errorf("选表结果为空")
		}
		analysis = parsed
		return nil
	})
	if err != nil {
		return err
	}

	sctx.SelectedTables = analysis.SelectedTables
	sctx.KeyInfo = analysis.KeyInfo
	if sctx.KeyInfo == nil {
		sctx.KeyInfo = map[string]models.TableRelations{}
	}
	slog.Info("选表完成", "tables", sctx.SelectedTables)
	return nil
}

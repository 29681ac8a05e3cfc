/*
 * @module service/embedding/description_generator
 * @description 表描述生成器：分批把采集到的表结构喂给模型，产出面向检索的业务描述
 * @architecture 服务层 - 元数据加工
 * @stateFlow TableMetadata批次 -> 模型JSON -> 描述回填；失败批次退化为列清单拼接的描述
 * @rules 单批最多8张表控制提示词长度；任何批次失败不阻断整体采集
 * @dependencies recomind-service/client
 * @refs scanner.go, vector_store.go
 */

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recomind-service/client"
	"recomind-service/service/utils"
)

const descriptionBatchSize = 8

const descriptionPromptTemplate = `You are a data catalog writer. For each database table below, write one concise sentence describing what business data it holds, based on its name and columns.

Tables:
%s

Respond with ONLY a JSON object mapping each table name to its description:
{"TableA": "description...", "TableB": "description..."}`

// GenerateDescriptions 为采集到的表批量生成描述并回填
func GenerateDescriptions(ctx context.Context, llm client.LLMClient, tables []TableMetadata) []TableMetadata {
	for start := 0; start < len(tables); start += descriptionBatchSize {
		end := start + descriptionBatchSize
		if end > len(tables) {
			end = len(tables)
		}
		batch := tables[start:end]

		described, err := describeBatch(ctx, llm, batch)
		if err != nil {
			slog.Warn("表描述批次生成失败，退化为列清单描述", "error", err)
			described = nil
		}

		for i := range batch {
			if desc, ok := described[batch[i].TableName]; ok && desc != "" {
				batch[i].Description = desc
				continue
			}
			batch[i].Description = fallbackDescription(batch[i])
		}
	}
	return tables
}

// describeBatch 单批模型调用
func describeBatch(ctx context.Context, llm client.LLMClient, batch []TableMetadata) (map[string]string, error) {
	var b strings.Builder
	for _, table := range batch {
		cols := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", col.Name, col.DataType))
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", table.TableName, strings.Join(cols, ", ")))
	}

	content, err := llm.Invoke(ctx, fmt.Sprintf(descriptionPromptTemplate, b.String()))
	if err != nil {
		return nil, err
	}

	obj, err := utils.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(obj))
	for name, value := range obj {
		if desc, ok := value.(string); ok {
			out[name] = desc
		}
	}
	return out, nil
}

// fallbackDescription 模型不可用时的机械描述
func fallbackDescription(table TableMetadata) string {
	cols := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		cols = append(cols, col.Name)
	}
	return fmt.Sprintf("Table %s with columns: %s", table.TableName, strings.Join(cols, ", "))
}

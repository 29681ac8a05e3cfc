/*
 * @module service/collection/vector_search
 * @description 结构检索阶段：对用户请求做向量化，按租户在向量库中做相似度召回
 * @architecture 服务层 - 链首阶段
 * @stateFlow 用户请求 -> 嵌入向量 -> pgvector相似度排序 -> 前12条表结构上下文
 * @rules 检索严格限定company_id，不同租户的结构信息互不可见
 * @dependencies gorm.io/gorm, recomind-service/client
 * @refs service/models/schema_vector.go, service/embedding/vector_store.go
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

// RetrieveContext 结构检索阶段
func (c *Chain) RetrieveContext(ctx context.Context, sctx *models.SynthesisContext) error {
	embedding, err := c.embedder.Embed(ctx, sctx.UserRequest)
	if err != nil {
		return fmt.Errorf("请求向量化失败: %w", err)
	}

	var records []models.ClientSchemaVector
	err = c.db.WithContext(ctx).
		Raw(`SELECT id, company_id, table_name, table_description, table_relations
		     FROM client_schema_vectors
		     WHERE company_id = ?
		     ORDER BY embedding <-> ?::vector
		     LIMIT ?`,
			sctx.CompanyID, utils.VectorLiteral(embedding), retrievalLimit).
		Scan(&records).Error
	if err != nil {
		return fmt.Errorf("向量检索失败: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("租户 %s 没有可用的表结构向量", sctx.CompanyID)
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(fmt.Sprintf("Table: %s\n", rec.TableName))
		if rec.TableDescription != "" {
			b.WriteString(fmt.Sprintf("Description: %s\n", rec.TableDescription))
		}
		if len(rec.TableRelations) > 0 {
			relJSON, err := json.Marshal(map[string]interface{}(rec.TableRelations))
			if err == nil {
				b.WriteString(fmt.Sprintf("Relations: %s\n", relJSON))
			}
		}
		b.WriteString("\n")
	}

	sctx.RetrievedContext = b.String()
	slog.Info("结构检索完成", "company_id", sctx.CompanyID, "tables", len(records))
	return nil
}

/*
 * @module service/embedding/vector_store
 * @description 向量库写入器：按租户整体替换表结构向量，先删后插封装在同一事务里
 * @architecture 服务层 - 数据访问
 * @stateFlow 表描述 -> 嵌入向量 -> 事务内DELETE全租户旧记录 + INSERT新记录
 * @rules 删除与插入同一事务，任一步失败整体回滚，旧数据保持可用；
 *        嵌入失败的表跳过写入但不回滚其余表
 * @dependencies gorm.io/gorm, recomind-service/client
 * @refs scanner.go, service/models/schema_vector.go
 */

package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"recomind-service/client"
	"recomind-service/service/models"
	"recomind-service/service/utils"
)

// StoreSchemaVectors 按租户整体替换表结构向量
func StoreSchemaVectors(ctx context.Context, db *gorm.DB, embedder client.EmbeddingClient, companyID string, tables []TableMetadata) error {
	records := make([]models.ClientSchemaVector, 0, len(tables))
	for _, table := range tables {
		text := fmt.Sprintf("%s: %s", table.TableName, table.Description)
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			slog.Warn("表描述向量化失败，跳过该表", "table", table.TableName, "error", err)
			continue
		}

		relations := models.JSONB{
			"pk":  table.Relations.PK,
			"fks": table.Relations.FKs,
		}
		records = append(records, models.ClientSchemaVector{
			CompanyID:        companyID,
			TableName:        table.TableName,
			TableDescription: table.Description,
			TableRelations:   relations,
			Embedding:        utils.VectorLiteral(vec),
		})
	}

	if len(records) == 0 {
		return fmt.Errorf("租户 %s 没有任何可写入的表向量", companyID)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", companyID).
			Delete(&models.ClientSchemaVector{}).Error; err != nil {
			return fmt.Errorf("清除旧向量失败: %w", err)
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("写入新向量失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("租户向量写入完成", "company_id", companyID, "tables", len(records))
	return nil
}

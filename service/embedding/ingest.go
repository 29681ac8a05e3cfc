/*
 * @module service/embedding/ingest
 * @description 采集入口：串联扫描、描述生成与向量写入，完成一个租户的结构采集
 * @architecture 服务层 - 采集管线
 * @stateFlow 扫描源库 -> 生成描述 -> 整体替换向量
 * @rules 扫描失败即终止；描述生成尽力而为；写入保持事务性替换
 * @dependencies gorm.io/gorm, recomind-service/client
 * @refs scanner.go, description_generator.go, vector_store.go
 */

package embedding

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"recomind-service/client"
)

// IngestTenantSchema 执行一个租户的完整结构采集
func IngestTenantSchema(ctx context.Context, appDB *gorm.DB, llm client.LLMClient, embedder client.EmbeddingClient, companyID string, sourceDB *sql.DB) error {
	tables, err := ScanSourceDatabase(ctx, sourceDB)
	if err != nil {
		return fmt.Errorf("结构扫描失败: %w", err)
	}
	if len(tables) == 0 {
		return fmt.Errorf("租户 %s 源库中没有可采集的表", companyID)
	}

	tables = GenerateDescriptions(ctx, llm, tables)

	if err := StoreSchemaVectors(ctx, appDB, embedder, companyID, tables); err != nil {
		return fmt.Errorf("向量写入失败: %w", err)
	}
	return nil
}

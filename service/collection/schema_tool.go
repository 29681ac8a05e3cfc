/*
 * @module service/collection/schema_tool
 * @description 取表结构阶段：直接查询租户源库的information_schema，拼出选中表的完整结构文本
 * @architecture 服务层 - 工具阶段（无模型参与）
 * @stateFlow selected_tables -> information_schema.columns -> full_schema_string写入上下文
 * @rules 结构来自数据库目录而非模型输出，审查阶段据此校验列存在性
 * @dependencies database/sql, github.com/lib/pq
 * @refs chain.go, reviewer.go
 */

package collection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"recomind-service/service/models"
)

// FetchSchema 取表结构阶段
func (c *Chain) FetchSchema(ctx context.Context, sctx *models.SynthesisContext, sourceDB *sql.DB) error {
	if len(sctx.SelectedTables) == 0 {
		return fmt.Errorf("没有选中的表")
	}

	rows, err := sourceDB.QueryContext(ctx,
		`SELECT table_name, column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = ANY($1)
		 ORDER BY table_name, ordinal_position`,
		pq.Array(sctx.SelectedTables))
	if err != nil {
		return fmt.Errorf("查询表结构失败: %w", err)
	}
	defer rows.Close()

	columnsByTable := make(map[string][]string)
	order := []string{}
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return fmt.Errorf("读取表结构失败: %w", err)
		}
		if _, seen := columnsByTable[tableName]; !seen {
			order = append(order, tableName)
		}
		columnsByTable[tableName] = append(columnsByTable[tableName],
			fmt.Sprintf("%s (%s)", columnName, dataType))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("读取表结构失败: %w", err)
	}
	if len(columnsByTable) == 0 {
		return fmt.Errorf("选中的表在源库中不存在: %v", sctx.SelectedTables)
	}

	var b strings.Builder
	for _, tableName := range order {
		b.WriteString(fmt.Sprintf("Table %s:\n", tableName))
		for _, col := range columnsByTable[tableName] {
			b.WriteString(fmt.Sprintf("  - %s\n", col))
		}
	}

	sctx.FullSchemaString = b.String()
	slog.Info("表结构获取完成", "tables", len(columnsByTable))
	return nil
}

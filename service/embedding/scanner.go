/*
 * @module service/embedding/scanner
 * @description 源库结构扫描器：从租户库目录里读出全部表、列与主外键关系
 * @architecture 服务层 - 元数据采集
 * @stateFlow information_schema/pg_constraint -> TableMetadata列表 -> 描述生成与向量写入
 * @rules 只扫描public模式；主外键事实来自数据库目录，后续合成链据此约束JOIN
 * @dependencies database/sql
 * @refs description_generator.go, vector_store.go
 */

package embedding

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"recomind-service/service/models"
)

// TableMetadata 单表的采集结果
type TableMetadata struct {
	TableName   string
	Columns     []ColumnMetadata
	Relations   models.TableRelations
	Description string
}

// ColumnMetadata 单列的采集结果
type ColumnMetadata struct {
	Name     string
	DataType string
}

// ScanSourceDatabase 扫描租户源库的全部表结构
func ScanSourceDatabase(ctx context.Context, sourceDB *sql.DB) ([]TableMetadata, error) {
	tables, err := scanColumns(ctx, sourceDB)
	if err != nil {
		return nil, err
	}
	if err := scanPrimaryKeys(ctx, sourceDB, tables); err != nil {
		return nil, err
	}
	if err := scanForeignKeys(ctx, sourceDB, tables); err != nil {
		return nil, err
	}

	out := make([]TableMetadata, 0, len(tables))
	for _, name := range sortedTableNames(tables) {
		out = append(out, *tables[name])
	}
	slog.Info("源库结构扫描完成", "tables", len(out))
	return out, nil
}

// scanColumns 读取所有表的列清单
func scanColumns(ctx context.Context, db *sql.DB) (map[string]*TableMetadata, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name, column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema = 'public'
		 ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("读取列信息失败: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]*TableMetadata)
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("读取列信息失败: %w", err)
		}
		meta, ok := tables[tableName]
		if !ok {
			meta = &TableMetadata{TableName: tableName}
			tables[tableName] = meta
		}
		meta.Columns = append(meta.Columns, ColumnMetadata{Name: columnName, DataType: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取列信息失败: %w", err)
	}
	return tables, nil
}

// scanPrimaryKeys 读取各表主键
func scanPrimaryKeys(ctx context.Context, db *sql.DB, tables map[string]*TableMetadata) error {
	rows, err := db.QueryContext(ctx,
		`SELECT tc.table_name, kcu.column_name
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		 WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public'`)
	if err != nil {
		return fmt.Errorf("读取主键失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return fmt.Errorf("读取主键失败: %w", err)
		}
		if meta, ok := tables[tableName]; ok && meta.Relations.PK == "" {
			meta.Relations.PK = columnName
		}
	}
	return rows.Err()
}

// scanForeignKeys 读取各表外键关系
func scanForeignKeys(ctx context.Context, db *sql.DB, tables map[string]*TableMetadata) error {
	rows, err := db.QueryContext(ctx,
		`SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		 JOIN information_schema.constraint_column_usage ccu
		   ON tc.constraint_name = ccu.constraint_name
		  AND tc.table_schema = ccu.table_schema
		 WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'`)
	if err != nil {
		return fmt.Errorf("读取外键失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, fromColumn, toTable, toColumn string
		if err := rows.Scan(&tableName, &fromColumn, &toTable, &toColumn); err != nil {
			return fmt.Errorf("读取外键失败: %w", err)
		}
		if meta, ok := tables[tableName]; ok {
			meta.Relations.FKs = append(meta.Relations.FKs, models.ForeignKey{
				FromColumn: fromColumn,
				ToTable:    toTable,
				ToColumn:   toColumn,
			})
		}
	}
	return rows.Err()
}

func sortedTableNames(tables map[string]*TableMetadata) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

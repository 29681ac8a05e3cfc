/*
 * @module service/collection/source_executor
 * @description 源库执行器：对租户源库只读执行合成出的SELECT，结果装载为列式数据集
 * @architecture 服务层 - 数据访问
 * @stateFlow 围栏剥离 -> SELECT前缀守卫 -> database/sql查询 -> Dataset
 * @rules 守卫在剥离Markdown围栏之后判断；任何非SELECT语句直接拒绝执行；
 *        []byte列值转为字符串，保持数据集内的值可序列化
 * @dependencies database/sql, github.com/lib/pq
 * @refs service/dataset/dataset.go, chain.go
 */

package collection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recomind-service/service/dataset"
	"recomind-service/service/utils"
)

// ExecuteQuery 在租户源库上执行SELECT并装载结果
func ExecuteQuery(ctx context.Context, sourceDB *sql.DB, query string) (*dataset.Dataset, error) {
	query = utils.StripCodeFence(query)
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return nil, fmt.Errorf("拒绝执行非SELECT语句")
	}

	rows, err := sourceDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询执行失败: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("读取结果列失败: %w", err)
	}

	ds := dataset.New(columns, nil)
	scanTargets := make([]interface{}, len(columns))
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("读取结果行失败: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeCell(v)
		}
		ds.Rows = append(ds.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历结果失败: %w", err)
	}

	slog.Info("源库查询完成", "columns", len(columns), "rows", ds.RowCount())
	return ds, nil
}

// normalizeCell 驱动层值规整
func normalizeCell(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

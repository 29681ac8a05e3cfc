/*
 * @module service/dataset/dataset
 * @description 表格数据集，按列序存储查询结果，支持重复列名、列操作和按行遍历
 * @architecture 数据层 - 内存表格模型
 * @stateFlow 查询结果装载 -> 分析各阶段原地变换 -> 报告输出
 * @rules 所有列操作对缺失列宽容处理（no-op），不允许因形状问题抛出异常
 * @dependencies github.com/spf13/cast
 * @refs service/analysis, service/collection/source_executor.go
 */

package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Dataset 表格数据集
// 列名单独保存以支持重复列名（地图结构无法表达重复列）
type Dataset struct {
	Columns []string
	Rows    [][]interface{}
}

// New 创建数据集
func New(columns []string, rows [][]interface{}) *Dataset {
	return &Dataset{
		Columns: columns,
		Rows:    rows,
	}
}

// RowCount 行数
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnCount 列数
func (d *Dataset) ColumnCount() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// IsEmpty 判断数据集是否为空（无行或无列）
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.Rows) == 0 || len(d.Columns) == 0
}

// ColumnIndex 查找列下标，不存在返回-1（重复列名返回第一个）
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn 判断列是否存在
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Copy 深拷贝数据集
// 清洗执行器依赖该拷贝实现失败时的整体回滚
func (d *Dataset) Copy() *Dataset {
	if d == nil {
		return nil
	}
	columns := make([]string, len(d.Columns))
	copy(columns, d.Columns)

	rows := make([][]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		newRow := make([]interface{}, len(row))
		copy(newRow, row)
		rows[i] = newRow
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// HasDuplicateColumns 判断是否存在重复列名
func (d *Dataset) HasDuplicateColumns() bool {
	seen := make(map[string]bool, len(d.Columns))
	for _, col := range d.Columns {
		if seen[col] {
			return true
		}
		seen[col] = true
	}
	return false
}

// DedupColumns 去除重复列（保留首次出现的列）
func (d *Dataset) DedupColumns() {
	if !d.HasDuplicateColumns() {
		return
	}
	seen := make(map[string]bool, len(d.Columns))
	keep := make([]int, 0, len(d.Columns))
	for i, col := range d.Columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		keep = append(keep, i)
	}
	d.project(keep)
}

// project 按列下标投影数据集
func (d *Dataset) project(keep []int) {
	columns := make([]string, 0, len(keep))
	for _, idx := range keep {
		columns = append(columns, d.Columns[idx])
	}
	for i, row := range d.Rows {
		newRow := make([]interface{}, 0, len(keep))
		for _, idx := range keep {
			if idx < len(row) {
				newRow = append(newRow, row[idx])
			} else {
				newRow = append(newRow, nil)
			}
		}
		d.Rows[i] = newRow
	}
	d.Columns = columns
}

// DropColumns 按名称删除列，列不存在时忽略
func (d *Dataset) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(d.Columns))
	for i, col := range d.Columns {
		if !drop[col] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(d.Columns) {
		return
	}
	d.project(keep)
}

// RenameColumn 重命名列，旧列不存在时no-op
func (d *Dataset) RenameColumn(oldName, newName string) {
	idx := d.ColumnIndex(oldName)
	if idx < 0 {
		return
	}
	d.Columns[idx] = newName
}

// Value 取单元格值，越界返回nil
func (d *Dataset) Value(row, col int) interface{} {
	if row < 0 || row >= len(d.Rows) {
		return nil
	}
	r := d.Rows[row]
	if col < 0 || col >= len(r) {
		return nil
	}
	return r[col]
}

// SetValue 写单元格值，越界时忽略
func (d *Dataset) SetValue(row, col int, value interface{}) {
	if row < 0 || row >= len(d.Rows) {
		return
	}
	r := d.Rows[row]
	if col < 0 || col >= len(r) {
		return
	}
	r[col] = value
}

// IsNull 判断单元格是否为空值
func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// NullRatio 计算某列的空值比例
func (d *Dataset) NullRatio(col int) float64 {
	if len(d.Rows) == 0 {
		return 0
	}
	nulls := 0
	for i := range d.Rows {
		if IsNull(d.Value(i, col)) {
			nulls++
		}
	}
	return float64(nulls) / float64(len(d.Rows))
}

// DistinctCount 计算某列去重后的取值个数（空值也计为一种取值）
func (d *Dataset) DistinctCount(col int) int {
	seen := make(map[string]bool)
	for i := range d.Rows {
		seen[fmt.Sprintf("%v", d.Value(i, col))] = true
	}
	return len(seen)
}

// ColumnKind 列类型
type ColumnKind string

const (
	KindNumeric  ColumnKind = "numeric"
	KindText     ColumnKind = "text"
	KindDatetime ColumnKind = "datetime"
	KindUnknown  ColumnKind = "unknown"
)

// InferKind 根据非空取值推断列类型
func (d *Dataset) InferKind(col int) ColumnKind {
	numeric, datetime, text, total := 0, 0, 0, 0
	for i := range d.Rows {
		v := d.Value(i, col)
		if IsNull(v) {
			continue
		}
		total++
		switch v.(type) {
		case time.Time:
			datetime++
			continue
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			numeric++
			continue
		}
		if _, err := cast.ToFloat64E(v); err == nil {
			numeric++
		} else {
			text++
		}
	}
	if total == 0 {
		return KindUnknown
	}
	switch {
	case datetime == total:
		return KindDatetime
	case numeric == total:
		return KindNumeric
	default:
		return KindText
	}
}

// NumericValues 取某列所有可转为数值的非空取值
func (d *Dataset) NumericValues(col int) []float64 {
	values := make([]float64, 0, len(d.Rows))
	for i := range d.Rows {
		v := d.Value(i, col)
		if IsNull(v) {
			continue
		}
		if f, err := cast.ToFloat64E(v); err == nil {
			values = append(values, f)
		}
	}
	return values
}

/*
 * @module service/analysis/cleaning_executor
 * @description 清洗执行器，把模型生成的清洗计划解释执行到完整数据集上
 * @architecture 解释器模式 - 动作词表到处理函数的映射
 * @stateFlow 拷贝数据集 -> 自动安全规则 -> 逐动作执行 -> 成功替换/失败整体回滚
 * @rules 执行过程中任何错误都回滚到清洗前的原始数据集；形状不符的details按no-op跳过；
 *        自动规则（重复列去除、>40%空值列删除）无论计划是否提及都会执行
 * @dependencies recomind-service/service/dataset, golang.org/x/text
 * @refs cleaning_advisor.go, state_machine.go
 */

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recomind-service/service/dataset"
	"recomind-service/service/models"
)

// 空值列的自动删除阈值，固定不可配置
const nullColumnThreshold = 0.40

// 统一空值表示时替换为NULL的占位符
var nullPlaceholders = map[string]bool{
	"-":  true,
	"NA": true,
	"":   true,
	" ":  true,
}

var (
	quotedNamePattern = regexp.MustCompile(`['"](.*?)['"]`)
	idTokenPattern    = regexp.MustCompile(`[a-zA-Z0-9\-._]+`)
	lowerCaser        = cases.Lower(language.Und)
)

// actionHandler 单个清洗动作的处理函数
type actionHandler func(ds *dataset.Dataset, details interface{}) error

// cleaningInterpreter 清洗计划解释器
type cleaningInterpreter struct {
	handlers map[string]actionHandler
}

// newCleaningInterpreter 组装动作词表到处理函数的映射
func newCleaningInterpreter() *cleaningInterpreter {
	return &cleaningInterpreter{
		handlers: map[string]actionHandler{
			models.ActionRemoveDuplicates:    applyRemoveDuplicates,
			models.ActionDropColumn:          applyDropColumn,
			models.ActionRenameColumn:        applyRenameColumn,
			models.ActionMapTextValues:       applyMapTextValues,
			models.ActionUnifyFormat:         applyUnifyFormat,
			models.ActionStandardizeText:     applyStandardizeText,
			models.ActionImputeMissing:       applyImputeMissing,
			models.ActionHandleIDs:           applyHandleIDs,
			models.ActionHandleDates:         applyHandleDates,
			models.ActionHandleNumericValues: applyHandleNumericValues,
			models.ActionHandleMissingValues: applyHandleMissingValues,
			models.ActionValidateRelations:   applyValidateRelationships,
		},
	}
}

// Apply 在数据集副本上执行整个清洗计划
// 返回清洗后的数据集；任何错误（含panic）返回原始数据集，保证原子性
func (ci *cleaningInterpreter) Apply(ds *dataset.Dataset, plan []models.CleaningAction) (result *dataset.Dataset, err error) {
	cleaned := ds.Copy()

	defer func() {
		if r := recover(); r != nil {
			result = ds
			err = fmt.Errorf("清洗执行发生panic: %v", r)
		}
	}()

	// 自动安全规则，独立于计划内容
	cleaned.DedupColumns()
	dropHighNullColumns(cleaned)

	for _, action := range plan {
		handler, ok := ci.handlers[action.Action]
		if !ok {
			slog.Warn("跳过未知清洗动作", "action", action.Action)
			continue
		}
		if !validDetailsShape(action.Details) {
			continue
		}
		slog.Info("执行清洗动作", "action", action.Action, "reason", action.Reasoning)
		if aerr := handler(cleaned, action.Details); aerr != nil {
			return ds, fmt.Errorf("清洗动作 %s 执行失败: %w", action.Action, aerr)
		}
	}
	return cleaned, nil
}

// CleaningExecutor 清洗执行节点
// 执行失败只降级为跳过清洗，不中断整个管线
func (s *Service) CleaningExecutor(ctx context.Context, state *models.AnalysisState) error {
	if state.Dataset == nil || state.CleaningPlan == nil {
		slog.Warn("数据集或清洗计划缺失，跳过清洗执行")
		return nil
	}

	cleaned, err := newCleaningInterpreter().Apply(state.Dataset, state.CleaningPlan)
	if err != nil {
		slog.Error("清洗计划执行失败，保留原始数据集", "error", err)
		state.Dataset = cleaned // Apply失败时返回的就是原始数据集
		return nil
	}

	state.Dataset = cleaned
	slog.Info("清洗计划执行完成", "rows", cleaned.RowCount(), "columns", cleaned.ColumnCount())
	return nil
}

// validDetailsShape 过滤完全无法解释的details形状
func validDetailsShape(details interface{}) bool {
	switch details.(type) {
	case string, []interface{}, []string, map[string]interface{}, nil:
		return true
	default:
		return false
	}
}

// dropHighNullColumns 删除空值比例超过阈值的列
func dropHighNullColumns(ds *dataset.Dataset) {
	if ds.RowCount() == 0 {
		return
	}
	var drop []string
	for i, name := range ds.Columns {
		if ds.NullRatio(i) > nullColumnThreshold {
			slog.Info("空值比例超限，自动删除列", "column", name)
			drop = append(drop, name)
		}
	}
	if len(drop) > 0 {
		ds.DropColumns(drop...)
	}
}

// detailColumns 把details解释为列名列表
func detailColumns(details interface{}) []string {
	switch v := details.(type) {
	case []string:
		return v
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

// applyRemoveDuplicates 删除完全重复的行
func applyRemoveDuplicates(ds *dataset.Dataset, _ interface{}) error {
	seen := make(map[string]bool, len(ds.Rows))
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		key := fmt.Sprintf("%v", row)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	if dropped := len(ds.Rows) - len(kept); dropped > 0 {
		slog.Info("删除重复行", "dropped", dropped)
	}
	ds.Rows = kept
	return nil
}

// applyDropColumn 删除显式点名的列，不存在的列忽略
// details可以是列名列表，也可以是包含引号列名的说明文字
func applyDropColumn(ds *dataset.Dataset, details interface{}) error {
	names := detailColumns(details)
	if names == nil {
		for _, m := range quotedNamePattern.FindAllStringSubmatch(fmt.Sprintf("%v", details), -1) {
			names = append(names, m[1])
		}
	}
	if len(names) > 0 {
		ds.DropColumns(names...)
	}
	return nil
}

// applyRenameColumn 重命名单列，旧列不存在时no-op
func applyRenameColumn(ds *dataset.Dataset, details interface{}) error {
	m, ok := details.(map[string]interface{})
	if !ok {
		return nil
	}
	oldName, ok1 := m["old_name"].(string)
	newName, ok2 := m["new_name"].(string)
	if !ok1 || !ok2 {
		return nil
	}
	ds.RenameColumn(oldName, newName)
	return nil
}

// applyMapTextValues 对单列应用取值替换表，未命中的取值原样保留
func applyMapTextValues(ds *dataset.Dataset, details interface{}) error {
	m, ok := details.(map[string]interface{})
	if !ok {
		return nil
	}
	colName, ok1 := m["column"].(string)
	mapping, ok2 := m["mapping"].(map[string]interface{})
	if !ok1 || !ok2 {
		return nil
	}
	col := ds.ColumnIndex(colName)
	if col < 0 {
		return nil
	}
	for i := range ds.Rows {
		v := ds.Value(i, col)
		if v == nil {
			continue
		}
		if mapped, hit := mapping[fmt.Sprintf("%v", v)]; hit {
			ds.SetValue(i, col, mapped)
		}
	}
	return nil
}

// applyUnifyFormat 全表把空值占位符替换为NULL
func applyUnifyFormat(ds *dataset.Dataset, _ interface{}) error {
	for i := range ds.Rows {
		for j := range ds.Columns {
			if s, ok := ds.Value(i, j).(string); ok && nullPlaceholders[s] {
				ds.SetValue(i, j, nil)
			}
		}
	}
	return nil
}

// applyStandardizeText 文本列统一小写并去除首尾空白
func applyStandardizeText(ds *dataset.Dataset, _ interface{}) error {
	for j := range ds.Columns {
		if ds.InferKind(j) != dataset.KindText {
			continue
		}
		for i := range ds.Rows {
			if s, ok := ds.Value(i, j).(string); ok {
				ds.SetValue(i, j, strings.TrimSpace(lowerCaser.String(s)))
			}
		}
	}
	return nil
}

// applyImputeMissing 全表填补缺失值：数值列取中位数，其余列取众数
func applyImputeMissing(ds *dataset.Dataset, _ interface{}) error {
	for j := range ds.Columns {
		hasNull := false
		for i := range ds.Rows {
			if dataset.IsNull(ds.Value(i, j)) {
				hasNull = true
				break
			}
		}
		if !hasNull {
			continue
		}

		var fill interface{}
		if ds.InferKind(j) == dataset.KindNumeric {
			values := ds.NumericValues(j)
			if len(values) == 0 {
				continue
			}
			fill = median(values)
		} else {
			fill = columnMode(ds, j)
			if fill == nil {
				continue
			}
		}
		for i := range ds.Rows {
			if dataset.IsNull(ds.Value(i, j)) {
				ds.SetValue(i, j, fill)
			}
		}
	}
	return nil
}

// applyHandleIDs 标识列规范化：仅保留字母数字及-._，保持字符串类型
func applyHandleIDs(ds *dataset.Dataset, details interface{}) error {
	for _, name := range detailColumns(details) {
		col := ds.ColumnIndex(name)
		if col < 0 {
			continue
		}
		for i := range ds.Rows {
			v := ds.Value(i, col)
			if v == nil {
				continue
			}
			token := idTokenPattern.FindString(fmt.Sprintf("%v", v))
			ds.SetValue(i, col, token)
		}
	}
	return nil
}

// 日期解析尝试的格式，从精确到宽松
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// parseDate 尽力解析日期，失败返回false
func parseDate(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// applyHandleDates 点名列解析为时间类型，解析失败置NULL
func applyHandleDates(ds *dataset.Dataset, details interface{}) error {
	for _, name := range detailColumns(details) {
		col := ds.ColumnIndex(name)
		if col < 0 {
			continue
		}
		for i := range ds.Rows {
			v := ds.Value(i, col)
			if dataset.IsNull(v) {
				ds.SetValue(i, col, nil)
				continue
			}
			if t, ok := parseDate(v); ok {
				ds.SetValue(i, col, t)
			} else {
				ds.SetValue(i, col, nil)
			}
		}
	}
	return nil
}

// applyValidateRelationships 删除起始日期晚于结束日期的行
// 两列齐全才执行；任一单元格无法解析为日期的行保留
func applyValidateRelationships(ds *dataset.Dataset, details interface{}) error {
	m, ok := details.(map[string]interface{})
	if !ok {
		return nil
	}
	startName, ok1 := m["start_date_col"].(string)
	endName, ok2 := m["end_date_col"].(string)
	if !ok1 || !ok2 {
		return nil
	}
	startCol, endCol := ds.ColumnIndex(startName), ds.ColumnIndex(endName)
	if startCol < 0 || endCol < 0 {
		return nil
	}

	kept := ds.Rows[:0]
	for i, row := range ds.Rows {
		start, okS := parseDate(ds.Value(i, startCol))
		end, okE := parseDate(ds.Value(i, endCol))
		if okS && okE && start.After(end) {
			continue
		}
		kept = append(kept, row)
	}
	if dropped := len(ds.Rows) - len(kept); dropped > 0 {
		slog.Info("删除日期关系非法的行", "dropped", dropped)
	}
	ds.Rows = kept
	return nil
}

// applyHandleNumericValues 数值列离群值处理
// 超出[Q1-1.5*IQR, Q3+1.5*IQR]的取值置NULL，行数保持不变
func applyHandleNumericValues(ds *dataset.Dataset, details interface{}) error {
	for _, name := range detailColumns(details) {
		col := ds.ColumnIndex(name)
		if col < 0 || ds.InferKind(col) != dataset.KindNumeric {
			continue
		}

		// 先统一强转数值，不可转的置NULL
		for i := range ds.Rows {
			v := ds.Value(i, col)
			if dataset.IsNull(v) {
				ds.SetValue(i, col, nil)
				continue
			}
			if f, err := cast.ToFloat64E(v); err == nil {
				ds.SetValue(i, col, f)
			} else {
				ds.SetValue(i, col, nil)
			}
		}

		values := ds.NumericValues(col)
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		q1, q3 := quantile(values, 0.25), quantile(values, 0.75)
		iqr := q3 - q1
		lower, upper := q1-1.5*iqr, q3+1.5*iqr

		for i := range ds.Rows {
			if f, ok := ds.Value(i, col).(float64); ok && (f < lower || f > upper) {
				ds.SetValue(i, col, nil)
			}
		}
	}
	return nil
}

// applyHandleMissingValues 删除关键列缺失的行
func applyHandleMissingValues(ds *dataset.Dataset, details interface{}) error {
	var cols []int
	for _, name := range detailColumns(details) {
		if idx := ds.ColumnIndex(name); idx >= 0 {
			cols = append(cols, idx)
		}
	}
	if len(cols) == 0 {
		return nil
	}

	kept := ds.Rows[:0]
	for i, row := range ds.Rows {
		missing := false
		for _, col := range cols {
			if dataset.IsNull(ds.Value(i, col)) {
				missing = true
				break
			}
		}
		if !missing {
			kept = append(kept, row)
		}
	}
	if dropped := len(ds.Rows) - len(kept); dropped > 0 {
		slog.Info("删除关键列缺失的行", "dropped", dropped)
	}
	ds.Rows = kept
	return nil
}

// median 中位数（输入无需有序）
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantile(sorted, 0.5)
}

// quantile 线性插值分位数，输入必须有序
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// columnMode 众数，全空列返回nil
func columnMode(ds *dataset.Dataset, col int) interface{} {
	counts := make(map[string]int)
	first := make(map[string]interface{})
	for i := range ds.Rows {
		v := ds.Value(i, col)
		if dataset.IsNull(v) {
			continue
		}
		key := fmt.Sprintf("%v", v)
		counts[key]++
		if _, ok := first[key]; !ok {
			first[key] = v
		}
	}
	best, bestCount := "", 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	if bestCount == 0 {
		return nil
	}
	return first[best]
}

/*
 * @module service/analysis/kpi_executor
 * @description KPI执行节点，让大模型产出Go代码并在内嵌解释器中对数据集求值
 * @architecture 服务层 - 图节点 + 脚本执行器
 * @stateFlow KPI计划 -> 代码生成提示词 -> 围栏剥离 -> yaegi受限执行 -> 结果消毒
 * @rules 生成代码只能通过注入的columns/rows和辅助函数访问数据；
 *        生成或执行的任何错误都折叠为{"error": ...}结果，不向上抛出
 * @dependencies github.com/traefik/yaegi
 * @refs sanitize.go, kpi_advisor.go
 */

package analysis

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

// kpiRunFunc 脚本入口函数签名
type kpiRunFunc func(params map[string]interface{}) (interface{}, error)

// compiledScript 编译缓存项
type compiledScript struct {
	fn kpiRunFunc
}

// KpiCodeRunner 基于yaegi的KPI代码执行器
// 按脚本内容哈希缓存编译结果，同一计划重复执行不重复编译
type KpiCodeRunner struct {
	mu    sync.RWMutex
	cache map[string]*compiledScript
}

// NewKpiCodeRunner 创建KPI代码执行器
func NewKpiCodeRunner() *KpiCodeRunner {
	return &KpiCodeRunner{
		cache: make(map[string]*compiledScript),
	}
}

// 脚本包装模板：生成代码被拼接进Run函数体，只能看到注入的绑定与辅助函数
const kpiScriptWrapper = `
package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func Run(params map[string]interface{}) (interface{}, error) {
	columns, _ := params["columns"].([]string)
	rows, _ := params["rows"].([][]interface{})

	colIndex := func(name string) int {
		for i, c := range columns {
			if c == name {
				return i
			}
		}
		return -1
	}
	toFloat := func(v interface{}) (float64, bool) {
		switch x := v.(type) {
		case float64:
			return x, true
		case float32:
			return float64(x), true
		case int:
			return float64(x), true
		case int64:
			return float64(x), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			return f, err == nil
		}
		return 0, false
	}
	col := func(name string) []interface{} {
		idx := colIndex(name)
		if idx < 0 {
			return nil
		}
		out := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			if idx < len(row) {
				out = append(out, row[idx])
			}
		}
		return out
	}
	numericCol := func(name string) []float64 {
		out := []float64{}
		for _, v := range col(name) {
			if f, ok := toFloat(v); ok {
				out = append(out, f)
			}
		}
		return out
	}
	sum := func(name string) float64 {
		total := 0.0
		for _, f := range numericCol(name) {
			total += f
		}
		return total
	}
	mean := func(name string) float64 {
		values := numericCol(name)
		if len(values) == 0 {
			return 0
		}
		total := 0.0
		for _, f := range values {
			total += f
		}
		return total / float64(len(values))
	}
	countDistinct := func(name string) int {
		seen := map[string]bool{}
		for _, v := range col(name) {
			if v != nil {
				seen[fmt.Sprintf("%v", v)] = true
			}
		}
		return len(seen)
	}
	groupSum := func(byName, valueName string) map[string]float64 {
		byIdx, valIdx := colIndex(byName), colIndex(valueName)
		out := map[string]float64{}
		if byIdx < 0 || valIdx < 0 {
			return out
		}
		for _, row := range rows {
			if byIdx >= len(row) || valIdx >= len(row) {
				continue
			}
			f, ok := toFloat(row[valIdx])
			if !ok {
				continue
			}
			out[fmt.Sprintf("%v", row[byIdx])] += f
		}
		return out
	}

	_ = sort.Float64s
	_, _, _, _, _, _, _ = col, numericCol, sum, mean, countDistinct, groupSum, toFloat

	results := map[string]interface{}{}

	//kpi:body

	return results, nil
}
`

// kpiBodyMarker 生成代码的插入点；模板内含%v等格式动词，不能走fmt.Sprintf拼接
const kpiBodyMarker = "//kpi:body"

// Execute 执行一段KPI计算代码体
func (r *KpiCodeRunner) Execute(body string, params map[string]interface{}) (map[string]interface{}, error) {
	script := strings.Replace(kpiScriptWrapper, kpiBodyMarker, body, 1)
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	r.mu.RLock()
	compiled, ok := r.cache[hash]
	r.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = r.compile(script)
		if err != nil {
			return nil, fmt.Errorf("KPI代码编译失败: %v", err)
		}
		r.mu.Lock()
		r.cache[hash] = compiled
		r.mu.Unlock()
	}

	value, err := compiled.fn(params)
	if err != nil {
		return nil, fmt.Errorf("KPI代码执行失败: %v", err)
	}
	results, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("KPI代码未产出results映射")
	}
	return results, nil
}

// compile 编译脚本并提取Run入口
func (r *KpiCodeRunner) compile(script string) (*compiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}
	if _, err := i.Eval(script); err != nil {
		return nil, err
	}
	v, err := i.Eval("main.Run")
	if err != nil {
		return nil, err
	}
	fn, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run函数签名不符")
	}
	return &compiledScript{fn: fn}, nil
}

const kpiCodePromptTemplate = `You are an expert Go data analyst. Write the BODY of a function that calculates a list of Key Performance Indicators over a tabular dataset and stores them in an existing map called results.

Available bindings (already declared, do not redeclare them):
- columns []string — column names
- rows [][]interface{} — data rows, cells aligned with columns
- results map[string]interface{} — write every KPI into this map
Helper functions (already declared):
- col(name string) []interface{} — all values of a column
- numericCol(name string) []float64 — numeric values of a column, non-numeric cells skipped
- sum(name string) float64 — numeric sum of a column
- mean(name string) float64 — numeric mean of a column
- countDistinct(name string) int — distinct non-null values of a column
- groupSum(byName, valueName string) map[string]float64 — per-group numeric sums
- toFloat(v interface{}) (float64, bool) — safe numeric coercion

CRITICAL RULE 1: Operate ONLY on the provided bindings. Do not embed raw data values in the code.
CRITICAL RULE 2: Write defensive code: check that a denominator is non-zero BEFORE any division.
CRITICAL RULE 3: Use the helper functions for numeric work so that non-numeric cells cannot crash the code.
CRITICAL RULE 4: Use the exact KPI names from the plan as results keys.

Here is the list of KPIs to calculate:
%s

Respond with ONLY the Go statements (no function signature, no package clause, no imports, no markdown).`

// KpiExecutor KPI执行节点
func (s *Service) KpiExecutor(ctx context.Context, state *models.AnalysisState) error {
	if state.Dataset == nil || state.KpiPlan == nil {
		slog.Warn("数据集或KPI计划缺失，跳过KPI执行")
		state.KpiResults = nil
		return nil
	}

	planJSON, err := json.MarshalIndent(state.KpiPlan, "", "  ")
	if err != nil {
		state.KpiResults = map[string]interface{}{"error": fmt.Sprintf("KPI计划序列化失败: %v", err)}
		return nil
	}

	prompt := fmt.Sprintf(kpiCodePromptTemplate, string(planJSON))

	content, err := s.invokeWithRetry(ctx, prompt, nil)
	if err != nil {
		slog.Error("KPI代码生成失败", "error", err)
		state.KpiResults = map[string]interface{}{"error": "Failed to generate KPI code after all retries."}
		return nil
	}

	body := utils.StripCodeFence(content)
	params := map[string]interface{}{
		"columns": state.Dataset.Columns,
		"rows":    state.Dataset.Rows,
	}

	results, err := s.kpiRunner.Execute(body, params)
	if err != nil {
		slog.Error("KPI代码执行失败", "error", err)
		state.KpiResults = map[string]interface{}{"error": fmt.Sprintf("An error occurred during KPI code execution: %v", err)}
		return nil
	}

	state.KpiResults = SanitizeKpiResults(results)
	slog.Info("KPI计算完成", "kpis", len(state.KpiResults))
	return nil
}

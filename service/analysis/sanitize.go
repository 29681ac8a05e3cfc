/*
 * @module service/analysis/sanitize
 * @description KPI结果消毒，把任意执行产物收敛为可序列化、可入库的结构
 * @architecture 服务层 - 纯函数
 * @stateFlow KpiExecutor产出原始结果 -> 递归消毒 -> 写入分析状态
 * @rules 映射和序列递归处理；浮点统一保留两位小数；
 *        其余标量一律转字符串，保证任何输入都有确定输出
 * @dependencies github.com/spf13/cast
 * @refs kpi_executor.go
 */

package analysis

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// SanitizeKpiResults 对KPI结果映射做递归消毒
func SanitizeKpiResults(results map[string]interface{}) map[string]interface{} {
	if results == nil {
		return nil
	}
	out := make(map[string]interface{}, len(results))
	for key, value := range results {
		out[key] = sanitizeValue(value)
	}
	return out
}

// sanitizeValue 单值消毒
func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(v)
	case float32:
		return roundFloat(float64(v))
	case float64:
		return roundFloat(v)
	case string:
		return v
	case map[string]interface{}:
		return SanitizeKpiResults(v)
	case map[string]float64:
		out := make(map[string]interface{}, len(v))
		for key, f := range v {
			out[key] = roundFloat(f)
		}
		return out
	case map[string]int:
		out := make(map[string]interface{}, len(v))
		for key, n := range v {
			out[key] = int64(n)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = roundFloat(f)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

// roundFloat 保留两位小数，非有限值转字符串避免序列化失败
func roundFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprintf("%v", f)
	}
	return math.Round(f*100) / 100
}

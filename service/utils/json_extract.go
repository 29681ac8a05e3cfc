/*
 * @module service/utils/json_extract
 * @description 大模型输出解析工具，从自由文本中提取JSON列表/对象并剥离Markdown围栏
 * @architecture 工具层 - 无状态函数集合
 * @stateFlow 模型原始输出 -> 围栏剥离 -> JSON定位 -> 反序列化
 * @rules 模型输出视为不可信外部输入，解析失败返回错误而非panic
 * @dependencies encoding/json, regexp
 * @refs service/analysis, service/collection
 */

package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	codeFencePattern = regexp.MustCompile("(?s)```(?:go|sql|python)?\\s*(.*?)\\s*```")
	jsonListPattern  = regexp.MustCompile(`(?s)(\[.*\])`)
	jsonObjPattern   = regexp.MustCompile(`(?s)(\{.*\})`)
)

// StripCodeFence 剥离Markdown代码围栏，无围栏时原样返回
func StripCodeFence(content string) string {
	if m := codeFencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// locateJSON 在模型输出中定位JSON片段
// 优先取```json围栏内的内容，其次按给定模式做贪婪匹配，最后退回整段文本
func locateJSON(content string, pattern *regexp.Regexp) string {
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil {
		inner := strings.TrimSpace(m[1])
		if sub := pattern.FindStringSubmatch(inner); sub != nil {
			return sub[1]
		}
		return inner
	}
	if m := pattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return strings.TrimSpace(content)
}

// ExtractJSONList 从模型输出中提取JSON列表
func ExtractJSONList(content string) ([]map[string]interface{}, error) {
	raw := locateJSON(content, jsonListPattern)

	var items []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("解析JSON列表失败: %w", err)
	}
	return items, nil
}

// ExtractJSONObject 从模型输出中提取JSON对象
func ExtractJSONObject(content string) (map[string]interface{}, error) {
	raw := locateJSON(content, jsonObjPattern)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("解析JSON对象失败: %w", err)
	}
	return obj, nil
}

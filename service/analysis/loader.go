/*
 * @module service/analysis/loader
 * @description 数据识别节点，根据列名用大模型对数据集做主题分类
 * @architecture 服务层 - 图节点
 * @stateFlow 数据集列名 -> 分类提示词 -> 词表内单词 -> data_type
 * @rules 数据集缺失或为空时置data_type=error，由状态机直达终态；分类结果必须落在固定词表内
 * @dependencies recomind-service/service/models
 * @refs state_machine.go
 */

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recomind-service/service/models"
)

// DataIdentifier 识别数据集的主题类型
func (s *Service) DataIdentifier(ctx context.Context, state *models.AnalysisState) error {
	if state.Dataset.IsEmpty() {
		slog.Error("分析入口未收到有效数据集")
		state.DataType = models.DataTypeError
		state.Dataset = nil
		return nil
	}

	prompt := fmt.Sprintf(`You are an expert data classifier. Your task is to analyze a list of
column names and determine the primary topic of the dataset.
You must respond with a single, lowercase word from the following list:
'employees', 'sales', 'customers', 'products', 'marketing', 'finance', 'logistics', 'support', 'unknown'.

Column Names: %s

Return ONLY one word from the allowed list, with no extra text, explanation, or punctuation.`,
		strings.Join(state.Dataset.Columns, ", "))

	content, err := s.llm.Invoke(ctx, prompt)
	if err != nil {
		slog.Warn("数据类型分类调用失败，按unknown处理", "error", err)
		state.DataType = models.DataTypeUnknown
		return nil
	}

	state.DataType = normalizeDataType(content)
	slog.Info("数据类型识别完成", "data_type", state.DataType)
	return nil
}

// normalizeDataType 将模型回复收敛到分类词表内
func normalizeDataType(content string) string {
	word := strings.ToLower(strings.TrimSpace(content))
	word = strings.Trim(word, "'\".")
	for _, allowed := range models.ClassificationVocabulary {
		if word == allowed {
			return allowed
		}
	}
	return models.DataTypeUnknown
}

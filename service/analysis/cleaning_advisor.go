/*
 * @module service/analysis/cleaning_advisor
 * @description 清洗顾问节点，根据数据画像向大模型索要结构化清洗计划
 * @architecture 服务层 - 图节点
 * @stateFlow 去重列 -> 画像采集 -> 提示词 -> 重试解析 -> 清洗计划或nil
 * @rules 计划生成失败属于软失败（清洗尽力而为），重试打满后置计划为nil而非抛错
 * @dependencies recomind-service/service/dataset, recomind-service/service/utils
 * @refs cleaning_executor.go
 */

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

const cleaningPlanPromptTemplate = `You are an expert and meticulous data analyst. Your primary goal is to create a robust and reliable JSON cleaning plan.

Your response MUST be ONLY a valid JSON list of objects, where each object has "action", "details", and "reasoning" keys.

--- AVAILABLE ACTIONS & STRICT DETAILS FORMAT ---
- "action": "remove_duplicates", "details": "Remove fully duplicated rows."
- "action": "drop_column", "details": "Column 'column_name_to_drop'."
- "action": "rename_column", "details": {"old_name": "current_name", "new_name": "suggested_name"}
- "action": "map_text_values", "details": {"column": "col_name", "mapping": {"ny": "new york"}}
- "action": "unify_format", "details": "Replace common null placeholders like '-', 'NA', '' with proper NULL."
- "action": "standardize_text", "details": "Apply lowercase and strip whitespace to all text columns."
- "action": "impute_missing_values", "details": "Impute missing values in all eligible columns."
- "action": "handle_ids", "details": ["ID_Column_1", "ID_Column_2"]
- "action": "handle_dates", "details": ["Date_Column_1", "Date_Column_2"]
- "action": "handle_numeric_values", "details": ["Numeric_Col_1", "Numeric_Col_2"]
- "action": "handle_missing_values", "details": ["Critical_Column_1", "Critical_Column_2"]
- "action": "validate_relationships", "details": {"start_date_col": "OrderDate_col", "end_date_col": "ShipDate_col"}

--- CORE INSTRUCTIONS ---
1. Follow the details format for each action precisely. For actions requiring a list of columns, provide a JSON list of strings.
2. If you find date columns with a logical sequence (e.g., order before ship), use "validate_relationships" with the exact column names.
3. Only suggest "handle_numeric_values" for columns with impossible values, not for plausible but rare outliers.
4. Use the provided summaries to make all decisions dynamically. Do not use fixed column names unless present in the summary.
5. The system automatically handles columns with more than 40%% nulls; do not suggest actions for them.
6. The following columns have only one unique value: [%s]. Only suggest dropping such a column if it provides NO analytical value.

--- DATASET SUMMARY ---
%s
--- FIRST 10 ROWS SAMPLE ---
%s

Now, generate the JSON cleaning plan.`

// CleaningAdvisor 生成清洗计划
func (s *Service) CleaningAdvisor(ctx context.Context, state *models.AnalysisState) error {
	if state.Dataset.IsEmpty() {
		slog.Warn("无数据集可分析，跳过清洗顾问")
		state.CleaningPlan = nil
		return nil
	}

	// 重复列会让按名索引的操作产生歧义，画像前先防御性去重
	ds := state.Dataset
	if ds.HasDuplicateColumns() {
		slog.Warn("检测到重复列名，保留首次出现的列")
		ds = ds.Copy()
		ds.DedupColumns()
	}

	prompt := fmt.Sprintf(cleaningPlanPromptTemplate,
		strings.Join(ds.ConstantColumns(), ", "),
		ds.BuildProfile().Summary(),
		ds.HeadCSV(10))

	content, err := s.invokeWithRetry(ctx, prompt, func(reply string) error {
		_, perr := utils.ExtractJSONList(reply)
		return perr
	})
	if err != nil {
		slog.Error("清洗计划生成失败，跳过清洗阶段", "error", err)
		state.CleaningPlan = nil
		return nil
	}

	items, err := utils.ExtractJSONList(content)
	if err != nil {
		state.CleaningPlan = nil
		return nil
	}

	state.CleaningPlan = decodeCleaningPlan(items)
	slog.Info("清洗计划生成完成", "actions", len(state.CleaningPlan))
	return nil
}

// decodeCleaningPlan 将松散的JSON列表转为清洗动作
func decodeCleaningPlan(items []map[string]interface{}) []models.CleaningAction {
	plan := make([]models.CleaningAction, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var action models.CleaningAction
		if err := json.Unmarshal(raw, &action); err != nil || action.Action == "" {
			continue
		}
		plan = append(plan, action)
	}
	return plan
}

/*
 * @module service/analysis/kpi_advisor
 * @description KPI顾问节点，根据数据类型、列名和用户诉求生成KPI计算计划
 * @architecture 服务层 - 图节点
 * @stateFlow 列名+数据类型+用户诉求 -> 提示词 -> 重试解析 -> KPI计划或nil
 * @rules 计划必须使用数据集中的精确列名；有用户诉求时计划必须围绕该诉求
 * @dependencies recomind-service/service/utils
 * @refs kpi_executor.go
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

const kpiPlanPromptTemplate = `You are a data analyst expert. Your task is to analyze the columns of a cleaned dataset and provide a JSON plan to calculate Key Performance Indicators (KPIs) and identify key trends. The data has been identified as '%s'.

Your response must be ONLY a valid JSON list of objects. Each object must have two keys:
- "kpi_name": A descriptive name for the KPI or trend (e.g., "Total Revenue", "Top 5 Selling Products").
- "calculation_details": A detailed description of the columns to use and the operation to perform, in natural language.

Here are the available columns in the cleaned dataset: [%s].

CRITICAL RULE: You MUST use the exact column names provided in the list above.
Do NOT infer, guess, or change column names.

IMPORTANT: The user's specific request is: "%s".
You MUST generate a KPI plan that is highly relevant to answering this specific request.

Return ONLY the JSON list, with no extra text, explanation, or punctuation.`

// KpiAdvisor 生成KPI计算计划
func (s *Service) KpiAdvisor(ctx context.Context, state *models.AnalysisState) error {
	if state.Dataset == nil {
		slog.Warn("无数据集，跳过KPI顾问")
		state.KpiPlan = nil
		return nil
	}

	userRequest := state.UserRequest
	if userRequest == "" {
		userRequest = "Generate a general analysis."
	}

	prompt := fmt.Sprintf(kpiPlanPromptTemplate,
		state.DataType,
		strings.Join(state.Dataset.Columns, ", "),
		userRequest)

	content, err := s.invokeWithRetry(ctx, prompt, func(reply string) error {
		_, perr := utils.ExtractJSONList(reply)
		return perr
	})
	if err != nil {
		slog.Error("KPI计划生成失败", "error", err)
		state.KpiPlan = nil
		return nil
	}

	items, err := utils.ExtractJSONList(content)
	if err != nil {
		state.KpiPlan = nil
		return nil
	}

	plan := make([]models.KpiSpec, 0, len(items))
	for _, item := range items {
		raw, merr := json.Marshal(item)
		if merr != nil {
			continue
		}
		var spec models.KpiSpec
		if uerr := json.Unmarshal(raw, &spec); uerr != nil || spec.KpiName == "" {
			continue
		}
		plan = append(plan, spec)
	}

	if len(plan) == 0 {
		state.KpiPlan = nil
		return nil
	}
	state.KpiPlan = plan
	slog.Info("KPI计划生成完成", "kpis", len(plan))
	return nil
}

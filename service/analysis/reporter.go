/*
 * @module service/analysis/reporter
 * @description 报告节点，按数据类型套用双段模板（现状分析 + 短中长期建议）生成文字报告
 * @architecture 服务层 - 图节点
 * @stateFlow KPI结果 -> 领域模板提示词 -> 模型生成 -> 报告文本写入状态
 * @rules KPI缺失或带error键时不调用模型，直接给出固定的无法生成说明；
 *        模型重试打满后写入固定失败文案，图谱照常走到终态
 * @dependencies recomind-service/client
 * @refs kpi_executor.go, state_machine.go
 */

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"recomind-service/service/models"
)

const reportUnavailableText = "A report could not be generated because the KPI calculation did not produce usable results."

const reportFailureText = "Report generation failed after all retries."

const salesReportPromptTemplate = `You are a senior business analyst writing for company leadership.

Here are the calculated sales KPIs as JSON:
%s

The user originally asked: "%s"

Write a report with exactly two parts:

Part 1 — Sales Performance Analysis:
Interpret the KPIs above. Describe revenue composition, notable segments or regions, and any concentration risks you can see in the numbers. Reference the actual KPI values.

Part 2 — Recommendations:
Give actionable recommendations split into short-term (next quarter), mid-term (this year) and long-term (1-3 years) horizons, each grounded in the KPIs from Part 1.

Write in clear professional prose. Do not invent numbers that are not present in the KPIs.`

const employeeReportPromptTemplate = `You are a senior HR analyst writing for company leadership.

Here are the calculated workforce KPIs as JSON:
%s

The user originally asked: "%s"

Write a report with exactly two parts:

Part 1 — Workforce Analysis:
Interpret the KPIs above. Describe headcount structure, tenure or compensation patterns, and any imbalances visible in the numbers. Reference the actual KPI values.

Part 2 — Recommendations:
Give actionable recommendations split into short-term (next quarter), mid-term (this year) and long-term (1-3 years) horizons, each grounded in the KPIs from Part 1.

Write in clear professional prose. Do not invent numbers that are not present in the KPIs.`

// SalesReportGenerator 销售报告节点
func (s *Service) SalesReportGenerator(ctx context.Context, state *models.AnalysisState) error {
	return s.generateReport(ctx, state, salesReportPromptTemplate)
}

// EmployeeReportGenerator 人力报告节点
func (s *Service) EmployeeReportGenerator(ctx context.Context, state *models.AnalysisState) error {
	return s.generateReport(ctx, state, employeeReportPromptTemplate)
}

// generateReport 通用报告生成
func (s *Service) generateReport(ctx context.Context, state *models.AnalysisState, template string) error {
	if !usableKpiResults(state.KpiResults) {
		slog.Warn("KPI结果不可用，跳过报告生成", "data_type", state.DataType)
		state.ReportText = reportUnavailableText
		return nil
	}

	kpiJSON, err := json.MarshalIndent(state.KpiResults, "", "  ")
	if err != nil {
		state.ReportText = reportUnavailableText
		return nil
	}

	prompt := fmt.Sprintf(template, string(kpiJSON), state.UserRequest)

	content, err := s.invokeWithRetry(ctx, prompt, nil)
	if err != nil {
		slog.Error("报告生成失败", "data_type", state.DataType, "error", err)
		state.ReportText = reportFailureText
		return nil
	}

	state.ReportText = content
	slog.Info("报告生成完成", "data_type", state.DataType, "chars", len(content))
	return nil
}

// usableKpiResults KPI结果是否足以支撑报告
func usableKpiResults(results map[string]interface{}) bool {
	if len(results) == 0 {
		return false
	}
	if _, failed := results["error"]; failed {
		return false
	}
	return true
}

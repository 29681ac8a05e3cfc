/*
 * @module service/analysis/state_machine
 * @description 分析状态机，按固定图谱串联清洗、KPI与报告阶段，支持条件路由并保证必达终态
 * @architecture 状态机模式 - 节点函数 + 固定边 + 条件边
 * @stateFlow loader -> advisor -> {executor|kpi_advisor} -> kpi_advisor -> kpi_executor -> {sales_report|employee_report|终态} -> 终态
 * @rules 单个阶段的软失败不中断图谱，只有输入数据缺失会直达错误终态
 * @dependencies context, recomind-service/service/models
 * @refs loader.go, cleaning_advisor.go, cleaning_executor.go, kpi_advisor.go, kpi_executor.go, reporter.go
 */

package analysis

import (
	"context"
	"fmt"

	"recomind-service/service/models"
)

// 图节点名称
const (
	NodeLoader         = "loader"
	NodeAdvisor        = "advisor"
	NodeExecutor       = "executor"
	NodeKpiAdvisor     = "kpi_advisor"
	NodeKpiExecutor    = "kpi_executor"
	NodeSalesReport    = "sales_report"
	NodeEmployeeReport = "employee_report"
	NodeEnd            = "__end__"
)

// StageFunc 图节点函数，接收状态并做部分更新
type StageFunc func(ctx context.Context, state *models.AnalysisState) error

// RouteFunc 条件路由函数，返回下一个节点名
type RouteFunc func(state *models.AnalysisState) string

// ProgressFunc 阶段进度回调，用于对外暴露进度标签
type ProgressFunc func(stage string)

// StateMachine 分析状态机
type StateMachine struct {
	entry       string
	nodes       map[string]StageFunc
	edges       map[string]string
	conditional map[string]RouteFunc
}

// NewStateMachine 组装分析图谱
func NewStateMachine(svc *Service) *StateMachine {
	m := &StateMachine{
		entry:       NodeLoader,
		nodes:       make(map[string]StageFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]RouteFunc),
	}

	m.nodes[NodeLoader] = svc.DataIdentifier
	m.nodes[NodeAdvisor] = svc.CleaningAdvisor
	m.nodes[NodeExecutor] = svc.CleaningExecutor
	m.nodes[NodeKpiAdvisor] = svc.KpiAdvisor
	m.nodes[NodeKpiExecutor] = svc.KpiExecutor
	m.nodes[NodeSalesReport] = svc.SalesReportGenerator
	m.nodes[NodeEmployeeReport] = svc.EmployeeReportGenerator

	// 缺失输入直达终态，其余进入清洗顾问
	m.conditional[NodeLoader] = func(state *models.AnalysisState) string {
		if state.DataType == models.DataTypeError {
			return NodeEnd
		}
		return NodeAdvisor
	}

	// 清洗为尽力而为：计划生成失败则跳过执行
	m.conditional[NodeAdvisor] = func(state *models.AnalysisState) string {
		if state.CleaningPlan == nil {
			return NodeKpiAdvisor
		}
		return NodeExecutor
	}

	m.edges[NodeExecutor] = NodeKpiAdvisor
	m.edges[NodeKpiAdvisor] = NodeKpiExecutor

	// 按数据类型分发报告生成器，未识别类型直达无报告终态
	m.conditional[NodeKpiExecutor] = func(state *models.AnalysisState) string {
		switch state.DataType {
		case models.DataTypeSales:
			return NodeSalesReport
		case models.DataTypeEmployees:
			return NodeEmployeeReport
		default:
			return NodeEnd
		}
	}

	m.edges[NodeSalesReport] = NodeEnd
	m.edges[NodeEmployeeReport] = NodeEnd

	return m
}

// Run 执行图谱直至终态
// progress可为nil；节点错误会被吞并并继续路由，保证任何输入都能走到终态
func (m *StateMachine) Run(ctx context.Context, state *models.AnalysisState, progress ProgressFunc) error {
	current := m.entry

	// 图是无环的，步数超过节点数说明路由配置有误
	for steps := 0; steps <= len(m.nodes); steps++ {
		if current == NodeEnd {
			return nil
		}

		node, ok := m.nodes[current]
		if !ok {
			return fmt.Errorf("状态机路由到未知节点: %s", current)
		}

		if progress != nil {
			progress(current)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		// 阶段软失败不终止图谱，阶段自身负责在状态中留下降级标记
		_ = node(ctx, state)

		if route, ok := m.conditional[current]; ok {
			current = route(state)
			continue
		}
		next, ok := m.edges[current]
		if !ok {
			return fmt.Errorf("节点 %s 缺少出边", current)
		}
		current = next
	}

	return fmt.Errorf("状态机超过最大步数仍未到达终态")
}

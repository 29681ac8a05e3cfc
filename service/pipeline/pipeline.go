/*
 * @module service/pipeline/pipeline
 * @description 全流程编排：合成链 -> 源库执行 -> 分析状态机，并负责运行历史、事件与指标
 * @architecture 服务层 - 编排
 * @stateFlow 任务出队 -> 打开租户源库 -> 合成SELECT -> 执行装载 -> 状态机 -> 运行记录落库
 * @rules 合成失败或源库不可用即整体失败；空结果集不算失败，由状态机判定为错误数据直达终态；
 *        运行历史与事件发布的失败只记日志，不影响任务结果
 * @dependencies gorm.io/gorm, recomind-service/service/collection, recomind-service/service/analysis
 * @refs service/taskqueue/queue.go, service/analysis/state_machine.go
 */

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"recomind-service/client"
	"recomind-service/service/analysis"
	"recomind-service/service/collection"
	"recomind-service/service/embedding"
	"recomind-service/service/event"
	"recomind-service/service/models"
	"recomind-service/service/monitoring"
	"recomind-service/service/tenant"
)

// Pipeline 全流程编排器
type Pipeline struct {
	db       *gorm.DB
	chain    *collection.Chain
	analysis *analysis.Service
	machine  *analysis.StateMachine
	tenants  *tenant.Service
	events   *event.Publisher
	llm      client.LLMClient
	embedder client.EmbeddingClient
}

// New 创建编排器
func New(db *gorm.DB, llm client.LLMClient, embedder client.EmbeddingClient, tenants *tenant.Service, events *event.Publisher) *Pipeline {
	analysisSvc := analysis.NewService(llm)
	return &Pipeline{
		db:       db,
		chain:    collection.NewChain(llm, embedder, db),
		analysis: analysisSvc,
		machine:  analysis.NewStateMachine(analysisSvc),
		tenants:  tenants,
		events:   events,
		llm:      llm,
		embedder: embedder,
	}
}

// RunResult 分析运行的对外结果
type RunResult struct {
	DataType     string                  `json:"data_type"`
	SQLQuery     string                  `json:"sql_query"`
	RowCount     int                     `json:"row_count"`
	CleaningPlan []models.CleaningAction `json:"cleaning_plan,omitempty"`
	KpiResults   map[string]interface{}  `json:"kpi_results,omitempty"`
	Report       string                  `json:"report,omitempty"`
}

// RunAnalysis 执行一次完整的分析任务
func (p *Pipeline) RunAnalysis(ctx context.Context, payload models.TaskPayload, progress func(stage string)) (string, error) {
	p.events.Publish(ctx, event.RunEvent{
		Type:      event.EventRunStarted,
		TaskID:    payload.TaskID,
		CompanyID: payload.CompanyID,
	})

	result, err := p.runAnalysis(ctx, payload, progress)
	if err != nil {
		monitoring.RunsTotal.WithLabelValues(models.TaskStatusFailure).Inc()
		p.events.Publish(ctx, event.RunEvent{
			Type:      event.EventRunFailed,
			TaskID:    payload.TaskID,
			CompanyID: payload.CompanyID,
			Error:     err.Error(),
		})
		p.recordRun(payload, models.TaskStatusFailure, nil, err.Error())
		return "", err
	}

	monitoring.RunsTotal.WithLabelValues(models.TaskStatusSuccess).Inc()
	p.events.Publish(ctx, event.RunEvent{
		Type:      event.EventRunSucceeded,
		TaskID:    payload.TaskID,
		CompanyID: payload.CompanyID,
		DataType:  result.DataType,
	})
	p.recordRun(payload, models.TaskStatusSuccess, result, "")

	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("序列化运行结果失败: %w", err)
	}
	return string(raw), nil
}

// runAnalysis 分析任务主体
func (p *Pipeline) runAnalysis(ctx context.Context, payload models.TaskPayload, progress func(stage string)) (*RunResult, error) {
	progress("opening_source_db")
	sourceDB, err := p.tenants.OpenSourceDB(ctx, payload.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("租户源库连接失败: %w", err)
	}
	defer sourceDB.Close()

	progress("query_synthesis")
	synthStart := time.Now()
	sctx := &models.SynthesisContext{
		UserRequest: payload.UserRequest,
		CompanyID:   payload.CompanyID,
	}
	if err := p.chain.Synthesize(ctx, sctx, sourceDB); err != nil {
		return nil, fmt.Errorf("查询合成失败: %w", err)
	}
	monitoring.ObserveStage("query_synthesis", synthStart)

	progress("query_execution")
	execStart := time.Now()
	ds, err := collection.ExecuteQuery(ctx, sourceDB, sctx.SQLQuery)
	if err != nil {
		return nil, fmt.Errorf("查询执行失败: %w", err)
	}
	monitoring.ObserveStage("query_execution", execStart)

	state := &models.AnalysisState{
		UserRequest: payload.UserRequest,
		Dataset:     ds,
	}

	// 空结果集不在这里拦截，状态机的加载节点会判定为错误数据并直达终态
	stageStart := time.Now()
	currentStage := ""
	err = p.machine.Run(ctx, state, func(stage string) {
		if currentStage != "" {
			monitoring.ObserveStage(currentStage, stageStart)
		}
		currentStage = stage
		stageStart = time.Now()
		progress(stage)
	})
	if currentStage != "" {
		monitoring.ObserveStage(currentStage, stageStart)
	}
	if err != nil {
		return nil, fmt.Errorf("分析状态机失败: %w", err)
	}

	return &RunResult{
		DataType:     state.DataType,
		SQLQuery:     sctx.SQLQuery,
		RowCount:     ds.RowCount(),
		CleaningPlan: state.CleaningPlan,
		KpiResults:   state.KpiResults,
		Report:       state.ReportText,
	}, nil
}

// RunIngestion 执行一次租户结构采集任务
func (p *Pipeline) RunIngestion(ctx context.Context, payload models.TaskPayload, progress func(stage string)) (string, error) {
	progress("opening_source_db")
	sourceDB, err := p.tenants.OpenSourceDB(ctx, payload.CompanyID)
	if err != nil {
		monitoring.IngestionsTotal.WithLabelValues(models.TaskStatusFailure).Inc()
		return "", fmt.Errorf("租户源库连接失败: %w", err)
	}
	defer sourceDB.Close()

	progress("schema_ingestion")
	start := time.Now()
	err = embedding.IngestTenantSchema(ctx, p.db, p.llm, p.embedder, payload.CompanyID, sourceDB)
	monitoring.ObserveStage("schema_ingestion", start)
	if err != nil {
		monitoring.IngestionsTotal.WithLabelValues(models.TaskStatusFailure).Inc()
		p.events.Publish(ctx, event.RunEvent{
			Type:      event.EventIngestedFail,
			TaskID:    payload.TaskID,
			CompanyID: payload.CompanyID,
			Error:     err.Error(),
		})
		return "", err
	}

	monitoring.IngestionsTotal.WithLabelValues(models.TaskStatusSuccess).Inc()
	p.events.Publish(ctx, event.RunEvent{
		Type:      event.EventIngestedOK,
		TaskID:    payload.TaskID,
		CompanyID: payload.CompanyID,
	})
	return fmt.Sprintf("schema ingestion completed for %s", payload.CompanyID), nil
}

// recordRun 写入运行历史，失败只记日志
func (p *Pipeline) recordRun(payload models.TaskPayload, status string, result *RunResult, errText string) {
	run := models.AnalysisRun{
		TaskID:      payload.TaskID,
		CompanyID:   payload.CompanyID,
		UserRequest: payload.UserRequest,
		Status:      status,
		Error:       errText,
	}
	if result != nil {
		run.SQLQuery = result.SQLQuery
		run.DataType = result.DataType
		run.CleaningPlan = cleaningPlanJSONB(result.CleaningPlan)
		run.KpiResults = models.JSONB(result.KpiResults)
		run.Report = result.Report
	}
	if err := p.db.Save(&run).Error; err != nil {
		slog.Error("运行历史写入失败", "task_id", payload.TaskID, "error", err)
	}
}

// cleaningPlanJSONB 把清洗计划转成可入库的对象数组
func cleaningPlanJSONB(plan []models.CleaningAction) models.JSONBArray {
	if len(plan) == 0 {
		return nil
	}
	out := make(models.JSONBArray, 0, len(plan))
	for _, action := range plan {
		entry := models.JSONB{"action": action.Action, "details": action.Details}
		if action.Reasoning != "" {
			entry["reasoning"] = action.Reasoning
		}
		out = append(out, entry)
	}
	return out
}

/*
 * @module service/models/task
 * @description 任务队列状态模型与分析运行记录
 * @architecture 数据模型层
 * @stateFlow PENDING -> PROGRESS(阶段标签) -> SUCCESS/FAILURE
 * @rules 对外只暴露粗粒度状态，内部重试与纠错循环不外泄
 * @dependencies gorm.io/gorm
 * @refs service/taskqueue, api/controllers
 */

package models

import "time"

// 任务状态
const (
	TaskStatusPending  = "PENDING"
	TaskStatusProgress = "PROGRESS"
	TaskStatusSuccess  = "SUCCESS"
	TaskStatusFailure  = "FAILURE"
)

// 任务类型
const (
	TaskKindAnalysis  = "analysis"
	TaskKindIngestion = "ingestion"
)

// TaskPayload 队列中的任务载荷
type TaskPayload struct {
	TaskID      string `json:"task_id"`
	Kind        string `json:"kind"`
	CompanyID   string `json:"company_id,omitempty"`
	UserRequest string `json:"user_request,omitempty"`
}

// TaskState 任务状态查询结果
type TaskState struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

// AnalysisRun 分析运行历史记录
type AnalysisRun struct {
	TaskID       string     `json:"task_id" gorm:"primaryKey;type:varchar(64)"`
	CompanyID    string     `json:"company_id" gorm:"type:varchar(64);index"`
	UserRequest  string     `json:"user_request" gorm:"type:text"`
	Status       string     `json:"status" gorm:"type:varchar(32)"`
	SQLQuery     string     `json:"sql_query" gorm:"type:text"`
	DataType     string     `json:"data_type" gorm:"type:varchar(32)"`
	CleaningPlan JSONBArray `json:"cleaning_plan" gorm:"type:jsonb"`
	KpiResults   JSONB      `json:"kpi_results" gorm:"type:jsonb"`
	Report       string     `json:"report" gorm:"type:text"`
	Error        string     `json:"error" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

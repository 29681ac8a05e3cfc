/*
 * @module service/models/analysis
 * @description 分析管线的状态与计划模型：图状态、清洗动作、KPI计划
 * @architecture 数据模型层
 * @stateFlow 管线入口创建空状态 -> 各阶段部分更新 -> 终态后丢弃
 * @rules 清洗计划与KPI计划来自模型输出，均视为不可信输入，消费方需做形状校验
 * @dependencies recomind-service/service/dataset
 * @refs service/analysis
 */

package models

import (
	"recomind-service/service/dataset"
)

// 数据类型分类词表
const (
	DataTypeEmployees = "employees"
	DataTypeSales     = "sales"
	DataTypeCustomers = "customers"
	DataTypeProducts  = "products"
	DataTypeMarketing = "marketing"
	DataTypeFinance   = "finance"
	DataTypeLogistics = "logistics"
	DataTypeSupport   = "support"
	DataTypeUnknown   = "unknown"
	DataTypeError     = "error"
)

// ClassificationVocabulary 允许的分类取值（不含error）
var ClassificationVocabulary = []string{
	DataTypeEmployees, DataTypeSales, DataTypeCustomers, DataTypeProducts,
	DataTypeMarketing, DataTypeFinance, DataTypeLogistics, DataTypeSupport,
	DataTypeUnknown,
}

// CleaningAction 清洗动作
// Details的形状由Action决定（字符串/列名列表/结构对象），执行器按动作逐项防御性解析
type CleaningAction struct {
	Action    string      `json:"action"`
	Details   interface{} `json:"details"`
	Reasoning string      `json:"reasoning,omitempty"`
}

// 清洗动作词表
const (
	ActionRemoveDuplicates    = "remove_duplicates"
	ActionDropColumn          = "drop_column"
	ActionRenameColumn        = "rename_column"
	ActionMapTextValues       = "map_text_values"
	ActionUnifyFormat         = "unify_format"
	ActionStandardizeText     = "standardize_text"
	ActionImputeMissing       = "impute_missing_values"
	ActionHandleIDs           = "handle_ids"
	ActionHandleDates         = "handle_dates"
	ActionHandleNumericValues = "handle_numeric_values"
	ActionHandleMissingValues = "handle_missing_values"
	ActionValidateRelations   = "validate_relationships"
)

// KpiSpec KPI计划项：名称加自然语言的计算说明
type KpiSpec struct {
	KpiName            string `json:"kpi_name"`
	CalculationDetails string `json:"calculation_details"`
}

// AnalysisState 分析图状态
// 各阶段只修改自己产出的字段，未触及的字段保持原值
type AnalysisState struct {
	UserRequest  string                 `json:"user_request,omitempty"`
	DataType     string                 `json:"data_type,omitempty"`
	Dataset      *dataset.Dataset       `json:"-"`
	CleaningPlan []CleaningAction       `json:"cleaning_plan,omitempty"`
	KpiPlan      []KpiSpec              `json:"kpi_plan,omitempty"`
	KpiResults   map[string]interface{} `json:"kpi_results,omitempty"`
	ReportText   string                 `json:"report_text,omitempty"`
}

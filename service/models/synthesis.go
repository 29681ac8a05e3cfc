/*
 * @module service/models/synthesis
 * @description 查询合成链的上下文模型：选表结果、主外键事实、列选择与最终SQL
 * @architecture 数据模型层
 * @stateFlow 检索 -> 选表 -> 取结构 -> 选列 -> 生成 -> 审查，上下文逐级累积
 * @rules KeyInfo是JOIN条件的唯一可信来源，生成阶段不得引入其中不存在的连接列
 * @dependencies encoding/json
 * @refs service/collection
 */

package models

// ForeignKey 外键关系
type ForeignKey struct {
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// TableRelations 单表的主外键事实
type TableRelations struct {
	PK  string       `json:"pk"`
	FKs []ForeignKey `json:"fks"`
}

// SynthesisContext 查询合成链的累积上下文
type SynthesisContext struct {
	UserRequest        string                    `json:"user_request"`
	CompanyID          string                    `json:"company_id"`
	RetrievedContext   string                    `json:"retrieved_context,omitempty"`
	SelectedTables     []string                  `json:"selected_tables,omitempty"`
	KeyInfo            map[string]TableRelations `json:"key_info,omitempty"`
	SelectedColumns    []string                  `json:"selected_columns,omitempty"`
	FullSchemaString   string                    `json:"full_schema_string,omitempty"`
	SQLQuery           string                    `json:"sql_query,omitempty"`
	CorrectionFeedback string                    `json:"correction_feedback,omitempty"`
}

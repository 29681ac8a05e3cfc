/*
 * @module service/models/schema_vector
 * @description 租户表结构向量模型，存储表描述、主外键关系和语义向量
 * @architecture 数据模型层
 * @stateFlow 元数据采集管线写入（按租户整体替换），查询合成管线按相似度读取
 * @rules embedding列为pgvector类型且不固定维度，维度跟随配置的嵌入模型；按字符串形式读写，避免驱动层扩展
 * @dependencies gorm.io/gorm
 * @refs service/embedding/vector_store.go, service/collection/vector_search.go
 */

package models

// ClientSchemaVector 租户表结构向量
type ClientSchemaVector struct {
	ID               int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	CompanyID        string `json:"company_id" gorm:"type:varchar(64);index;not null"`
	TableName        string `json:"table_name" gorm:"type:varchar(256);not null"`
	TableDescription string `json:"table_description" gorm:"type:text"`
	TableRelations   JSONB  `json:"table_relations" gorm:"type:jsonb"`
	Embedding        string `json:"-" gorm:"type:vector"`
}

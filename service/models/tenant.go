/*
 * @module service/models/tenant
 * @description 租户模型，保存租户源数据库的连接配置，口令加密存储
 * @architecture 数据模型层
 * @stateFlow 注册时写入，管线运行时按company_id读取并解密
 * @rules 口令只以密文入库，解密仅发生在建立源库连接的瞬间
 * @dependencies gorm.io/gorm
 * @refs service/tenant/tenant_service.go, service/collection/source_executor.go
 */

package models

import "time"

// Tenant 租户及其源数据库连接配置
type Tenant struct {
	CompanyID         string    `json:"company_id" gorm:"primaryKey;type:varchar(64)"`
	Name              string    `json:"name" gorm:"type:varchar(256)"`
	DBHost            string    `json:"db_host" gorm:"type:varchar(256);not null"`
	DBPort            int       `json:"db_port" gorm:"default:5432"`
	DBName            string    `json:"db_name" gorm:"type:varchar(128);not null"`
	DBUser            string    `json:"db_user" gorm:"type:varchar(128);not null"`
	DBPasswordCipher  string    `json:"-" gorm:"type:text;not null"`
	DBSSLMode         string    `json:"db_sslmode" gorm:"type:varchar(32);default:disable"`
	IngestionCronExpr string    `json:"ingestion_cron_expr" gorm:"type:varchar(64)"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}

// SourceDBSettings 解密后的源库连接参数，仅存在于内存
type SourceDBSettings struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

/*
 * @module service/tenant/tenant_service
 * @description 租户注册表：管理租户源库连接配置，口令加密入库，按需建立源库连接
 * @architecture 服务层 - 注册表
 * @stateFlow 注册时加密口令写库；管线运行时读取、解密并打开database/sql连接
 * @rules 口令明文只存在于注册请求和连接建立的瞬间；源库连接由调用方负责关闭
 * @dependencies gorm.io/gorm, github.com/lib/pq, recomind-service/service/utils
 * @refs service/models/tenant.go, service/pipeline/pipeline.go
 */

package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"recomind-service/service/models"
	"recomind-service/service/utils"
)

// ErrTenantNotFound 租户不存在
var ErrTenantNotFound = errors.New("租户不存在")

// Service 租户注册表服务
type Service struct {
	db     *gorm.DB
	crypto *utils.CryptoUtils
}

// NewService 创建租户服务
func NewService(db *gorm.DB, crypto *utils.CryptoUtils) *Service {
	return &Service{db: db, crypto: crypto}
}

// Register 注册或更新租户及其源库连接配置
func (s *Service) Register(ctx context.Context, companyID, name string, settings models.SourceDBSettings, cronExpr string) error {
	if companyID == "" {
		return fmt.Errorf("company_id不能为空")
	}
	if settings.Host == "" || settings.Database == "" || settings.User == "" {
		return fmt.Errorf("源库连接配置不完整")
	}

	cipher, err := s.crypto.AESEncrypt(settings.Password)
	if err != nil {
		return fmt.Errorf("口令加密失败: %w", err)
	}

	port := settings.Port
	if port == 0 {
		port = 5432
	}
	sslMode := settings.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	t := models.Tenant{
		CompanyID:         companyID,
		Name:              name,
		DBHost:            settings.Host,
		DBPort:            port,
		DBName:            settings.Database,
		DBUser:            settings.User,
		DBPasswordCipher:  cipher,
		DBSSLMode:         sslMode,
		IngestionCronExpr: cronExpr,
	}

	if err := s.db.WithContext(ctx).Save(&t).Error; err != nil {
		return fmt.Errorf("保存租户失败: %w", err)
	}
	slog.Info("租户注册完成", "company_id", companyID)
	return nil
}

// Get 按company_id读取租户
func (s *Service) Get(ctx context.Context, companyID string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取租户失败: %w", err)
	}
	return &t, nil
}

// List 列出全部租户
func (s *Service) List(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := s.db.WithContext(ctx).Order("company_id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("列出租户失败: %w", err)
	}
	return tenants, nil
}

// OpenSourceDB 解密口令并建立租户源库连接，调用方负责Close
func (s *Service) OpenSourceDB(ctx context.Context, companyID string) (*sql.DB, error) {
	t, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}

	password, err := s.crypto.AESDecrypt(t.DBPasswordCipher)
	if err != nil {
		return nil, fmt.Errorf("口令解密失败: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		t.DBHost, t.DBPort, t.DBName, t.DBUser, password, t.DBSSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开源库连接失败: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("源库连接不可用: %w", err)
	}
	return db, nil
}

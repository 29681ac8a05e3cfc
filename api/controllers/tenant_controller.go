/*
 * @module api/controllers/tenant_controller
 * @description 租户控制器：注册租户源库、触发结构采集、列出租户
 * @architecture MVC架构 - 控制器层
 * @stateFlow 注册写库（口令加密）-> 采集任务入队 -> 周期调度按cron表达式接管
 * @rules 口令只出现在注册请求体里，响应与日志不回显
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/tenant/tenant_service.go, service/embedding/ingest.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"recomind-service/service"
	"recomind-service/service/models"
)

// TenantController 租户控制器
type TenantController struct{}

// NewTenantController 创建租户控制器实例
func NewTenantController() *TenantController {
	return &TenantController{}
}

// RegisterTenantRequest 租户注册请求
type RegisterTenantRequest struct {
	CompanyID         string `json:"company_id"`
	Name              string `json:"name"`
	DBHost            string `json:"db_host"`
	DBPort            int    `json:"db_port"`
	DBName            string `json:"db_name"`
	DBUser            string `json:"db_user"`
	DBPassword        string `json:"db_password"`
	DBSSLMode         string `json:"db_sslmode"`
	IngestionCronExpr string `json:"ingestion_cron_expr"`
}

// RegisterTenant 注册或更新租户
// @Summary 注册租户
// @Description 注册租户及其源数据库连接配置，口令加密存储
// @Tags 租户
// @Accept json
// @Produce json
// @Param request body RegisterTenantRequest true "租户配置"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /tenants [post]
func (c *TenantController) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req RegisterTenantRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	settings := models.SourceDBSettings{
		Host:     req.DBHost,
		Port:     req.DBPort,
		Database: req.DBName,
		User:     req.DBUser,
		Password: req.DBPassword,
		SSLMode:  req.DBSSLMode,
	}
	if err := service.GlobalTenantService.Register(r.Context(), req.CompanyID, req.Name, settings, req.IngestionCronExpr); err != nil {
		render.JSON(w, r, BadRequestResponse("租户注册失败", err))
		return
	}

	// 新租户的cron条目在重建调度时生效
	if service.GlobalScheduler != nil {
		_ = service.GlobalScheduler.Reload(r.Context())
	}

	render.JSON(w, r, SuccessResponse("租户注册成功", nil))
}

// ListTenants 列出租户
// @Summary 列出租户
// @Description 列出全部已注册租户
// @Tags 租户
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.Tenant}
// @Router /tenants [get]
func (c *TenantController) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := service.GlobalTenantService.List(r.Context())
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询租户列表失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", tenants))
}

// TriggerIngestion 触发结构采集
// @Summary 触发结构采集
// @Description 为指定租户投递一次表结构采集任务
// @Tags 租户
// @Produce json
// @Param company_id path string true "租户ID"
// @Success 200 {object} APIResponse{data=TriggerAnalysisResponse}
// @Failure 404 {object} APIResponse
// @Router /tenants/{company_id}/ingest [post]
func (c *TenantController) TriggerIngestion(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")
	if companyID == "" {
		render.JSON(w, r, BadRequestResponse("company_id不能为空", nil))
		return
	}

	if _, err := service.GlobalTenantService.Get(r.Context(), companyID); err != nil {
		render.JSON(w, r, NotFoundResponse("租户不存在", err))
		return
	}

	taskID, err := service.GlobalQueue.Submit(r.Context(), models.TaskKindIngestion, companyID, "")
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("采集任务投递失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("采集任务已投递", TriggerAnalysisResponse{
		TaskID:  taskID,
		Status:  models.TaskStatusPending,
		Message: "Schema ingestion task accepted and queued for processing.",
	}))
}

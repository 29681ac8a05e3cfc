/*
 * @module api/controllers/analysis_controller
 * @description 分析控制器：触发分析任务、查询任务状态、查看运行历史
 * @architecture MVC架构 - 控制器层
 * @stateFlow POST触发 -> 任务入队返回task_id -> GET轮询状态 -> SUCCESS后result携带报告
 * @rules 触发接口只做参数校验与入队，重活全部在队列工作协程里执行
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/taskqueue/queue.go, service/pipeline/pipeline.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"recomind-service/service"
	"recomind-service/service/models"
)

// AnalysisController 分析控制器
type AnalysisController struct{}

// NewAnalysisController 创建分析控制器实例
func NewAnalysisController() *AnalysisController {
	return &AnalysisController{}
}

// TriggerAnalysisRequest 触发分析请求
type TriggerAnalysisRequest struct {
	CompanyID   string `json:"company_id"`
	UserRequest string `json:"user_request"`
}

// TriggerAnalysisResponse 触发分析响应
type TriggerAnalysisResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TriggerAnalysis 触发分析任务
// @Summary 触发分析任务
// @Description 提交自然语言分析请求，返回可轮询的任务ID
// @Tags 分析
// @Accept json
// @Produce json
// @Param request body TriggerAnalysisRequest true "分析请求"
// @Success 200 {object} APIResponse{data=TriggerAnalysisResponse}
// @Failure 400 {object} APIResponse
// @Router /analysis/trigger [post]
func (c *AnalysisController) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	var req TriggerAnalysisRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.CompanyID == "" || req.UserRequest == "" {
		render.JSON(w, r, BadRequestResponse("company_id和user_request不能为空", nil))
		return
	}

	taskID, err := service.GlobalQueue.Submit(r.Context(), models.TaskKindAnalysis, req.CompanyID, req.UserRequest)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("分析任务投递失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("分析任务已投递", TriggerAnalysisResponse{
		TaskID:  taskID,
		Status:  models.TaskStatusPending,
		Message: "Analysis task accepted and queued for processing.",
	}))
}

// GetTaskStatus 查询任务状态
// @Summary 查询任务状态
// @Description 按任务ID查询状态与结果
// @Tags 分析
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.TaskState}
// @Failure 404 {object} APIResponse
// @Router /analysis/tasks/{task_id} [get]
func (c *AnalysisController) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		render.JSON(w, r, BadRequestResponse("task_id不能为空", nil))
		return
	}

	state, err := service.GlobalQueue.GetStatus(r.Context(), taskID)
	if err != nil {
		render.JSON(w, r, NotFoundResponse("任务不存在", err))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", state))
}

// ListRuns 查看运行历史
// @Summary 查看运行历史
// @Description 按租户列出最近的分析运行记录
// @Tags 分析
// @Produce json
// @Param company_id query string true "租户ID"
// @Success 200 {object} APIResponse{data=[]models.AnalysisRun}
// @Router /analysis/runs [get]
func (c *AnalysisController) ListRuns(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		render.JSON(w, r, BadRequestResponse("company_id不能为空", nil))
		return
	}

	var runs []models.AnalysisRun
	err := service.DB.WithContext(r.Context()).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(50).
		Find(&runs).Error
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询运行历史失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", runs))
}

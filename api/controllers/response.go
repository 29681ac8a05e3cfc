package controllers

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// BadRequestResponse 请求参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	resp := &APIResponse{Status: 400, Msg: msg}
	if err != nil {
		resp.Data = err.Error()
	}
	return resp
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(msg string, err error) *APIResponse {
	resp := &APIResponse{Status: 404, Msg: msg}
	if err != nil {
		resp.Data = err.Error()
	}
	return resp
}

// InternalErrorResponse 服务器内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	resp := &APIResponse{Status: 500, Msg: msg}
	if err != nil {
		resp.Data = err.Error()
	}
	return resp
}

package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/models"
)

// 触发接口的响应体必须携带task_id、初始状态和提示文案
func TestTriggerAnalysisResponseShape(t *testing.T) {
	raw, err := json.Marshal(TriggerAnalysisResponse{
		TaskID:  "task-1",
		Status:  models.TaskStatusPending,
		Message: "queued",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"task-1","status":"PENDING","message":"queued"}`, string(raw))
}

func TestTriggerAnalysisRejectsMissingFields(t *testing.T) {
	c := NewAnalysisController()

	req := httptest.NewRequest("POST", "/analysis/trigger", strings.NewReader(`{"company_id":"acme"}`))
	rec := httptest.NewRecorder()
	c.TriggerAnalysis(rec, req)
	assert.Contains(t, rec.Body.String(), "user_request")

	req = httptest.NewRequest("POST", "/analysis/trigger", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	c.TriggerAnalysis(rec, req)
	assert.Contains(t, rec.Body.String(), `"status":400`)
}

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/dataset"
	"recomind-service/service/models"
	"recomind-service/testutil"
)

func TestDataIdentifierEmptyDataset(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"sales"}}
	svc := newTestService(llm)

	state := &models.AnalysisState{Dataset: dataset.New(nil, nil)}
	require.NoError(t, svc.DataIdentifier(context.Background(), state))

	assert.Equal(t, models.DataTypeError, state.DataType)
	assert.Nil(t, state.Dataset)
	// 空数据集不浪费模型调用
	assert.Equal(t, 0, llm.Calls)
}

func TestDataIdentifierClassifies(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{" Sales.\n"}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"OrderID", "TotalDue"}, [][]interface{}{{1, 2.0}}),
	}
	require.NoError(t, svc.DataIdentifier(context.Background(), state))
	assert.Equal(t, models.DataTypeSales, state.DataType)
	assert.Contains(t, llm.Prompts[0], "OrderID, TotalDue")
}

func TestDataIdentifierOutOfVocabulary(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"astrology"}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.DataIdentifier(context.Background(), state))
	assert.Equal(t, models.DataTypeUnknown, state.DataType)
}

func TestDataIdentifierModelFailureDegradesToUnknown(t *testing.T) {
	llm := &testutil.FakeLLM{Err: errors.New("down")}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.DataIdentifier(context.Background(), state))
	assert.Equal(t, models.DataTypeUnknown, state.DataType)
}

func TestNormalizeDataType(t *testing.T) {
	assert.Equal(t, "employees", normalizeDataType("'Employees'"))
	assert.Equal(t, "sales", normalizeDataType("SALES."))
	assert.Equal(t, "unknown", normalizeDataType("error"))
	assert.Equal(t, "unknown", normalizeDataType(""))
}

func TestCleaningAdvisorFailOpen(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"not json at all"}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.CleaningAdvisor(context.Background(), state))
	assert.Nil(t, state.CleaningPlan)
	assert.Equal(t, 3, llm.Calls)
}

func TestCleaningAdvisorParsesPlan(t *testing.T) {
	reply := "```json\n[{\"action\": \"remove_duplicates\", \"details\": \"all\", \"reasoning\": \"dupes\"}, {\"action\": \"\"}]\n```"
	llm := &testutil.FakeLLM{Replies: []string{reply}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.CleaningAdvisor(context.Background(), state))
	require.Len(t, state.CleaningPlan, 1)
	assert.Equal(t, models.ActionRemoveDuplicates, state.CleaningPlan[0].Action)
}

func TestKpiAdvisorUsesUserRequest(t *testing.T) {
	reply := `[{"kpi_name": "Total Revenue", "calculation_details": "sum of TotalDue"}]`
	llm := &testutil.FakeLLM{Replies: []string{reply}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		UserRequest: "analyze revenue by region",
		DataType:    models.DataTypeSales,
		Dataset:     dataset.New([]string{"Region", "TotalDue"}, [][]interface{}{{"west", 1.0}}),
	}
	require.NoError(t, svc.KpiAdvisor(context.Background(), state))
	require.Len(t, state.KpiPlan, 1)
	assert.Equal(t, "Total Revenue", state.KpiPlan[0].KpiName)
	assert.Contains(t, llm.Prompts[0], "analyze revenue by region")
}

func TestKpiAdvisorNilDataset(t *testing.T) {
	llm := &testutil.FakeLLM{}
	svc := newTestService(llm)

	state := &models.AnalysisState{}
	require.NoError(t, svc.KpiAdvisor(context.Background(), state))
	assert.Nil(t, state.KpiPlan)
	assert.Equal(t, 0, llm.Calls)
}

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

func salesParams() map[string]interface{} {
	return map[string]interface{}{
		"columns": []string{"Region", "TotalDue"},
		"rows": [][]interface{}{
			{"west", 10.0},
			{"east", 20.0},
			{"west", 5.0},
		},
	}
}

func TestKpiRunnerExecutesGeneratedBody(t *testing.T) {
	runner := NewKpiCodeRunner()

	body := `
	results["Total Revenue"] = sum("TotalDue")
	results["Regions"] = countDistinct("Region")
	results["By Region"] = groupSum("Region", "TotalDue")
`
	results, err := runner.Execute(body, salesParams())
	require.NoError(t, err)

	assert.Equal(t, 35.0, results["Total Revenue"])
	assert.Equal(t, 2, results["Regions"])
	byRegion := results["By Region"].(map[string]float64)
	assert.Equal(t, 15.0, byRegion["west"])
	assert.Equal(t, 20.0, byRegion["east"])
}

// 模板内的辅助函数自带%v格式动词，拼接必须保留它们并把代码体恰好插入一次
func TestKpiRunnerWrapperKeepsFormatVerbsIntact(t *testing.T) {
	runner := NewKpiCodeRunner()

	body := `
	results["Regions"] = countDistinct("Region")
	results["By Region"] = groupSum("Region", "TotalDue")
	results["Label"] = fmt.Sprintf("%d regions", countDistinct("Region"))
`
	results, err := runner.Execute(body, salesParams())
	require.NoError(t, err)

	assert.Equal(t, 2, results["Regions"])
	byRegion := results["By Region"].(map[string]float64)
	assert.Equal(t, 15.0, byRegion["west"])
	assert.Equal(t, "2 regions", results["Label"])
}

func TestKpiRunnerHelpersTolerateBadCells(t *testing.T) {
	runner := NewKpiCodeRunner()
	params := map[string]interface{}{
		"columns": []string{"v"},
		"rows": [][]interface{}{
			{"3.5"}, {nil}, {"oops"}, {1},
		},
	}

	results, err := runner.Execute(`results["total"] = sum("v")`, params)
	require.NoError(t, err)
	assert.Equal(t, 4.5, results["total"])
}

func TestKpiRunnerRejectsInvalidCode(t *testing.T) {
	runner := NewKpiCodeRunner()
	_, err := runner.Execute(`this is not go code`, salesParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "编译失败")
}

func TestKpiRunnerCachesCompiledScripts(t *testing.T) {
	runner := NewKpiCodeRunner()
	body := `results["n"] = len(rows)`

	_, err := runner.Execute(body, salesParams())
	require.NoError(t, err)
	require.Len(t, runner.cache, 1)

	_, err = runner.Execute(body, salesParams())
	require.NoError(t, err)
	assert.Len(t, runner.cache, 1)
}

func TestKpiExecutorNode(t *testing.T) {
	reply := "```go\nresults[\"Total Revenue\"] = sum(\"TotalDue\")\n```"
	llm := &testutil.FakeLLM{Replies: []string{reply}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"Region", "TotalDue"}, [][]interface{}{
			{"west", 10.0},
			{"east", 20.5},
		}),
		KpiPlan: []models.KpiSpec{{KpiName: "Total Revenue", CalculationDetails: "sum of TotalDue"}},
	}

	require.NoError(t, svc.KpiExecutor(context.Background(), state))
	assert.Equal(t, 30.5, state.KpiResults["Total Revenue"])
}

func TestKpiExecutorSkipsWithoutPlan(t *testing.T) {
	llm := &testutil.FakeLLM{}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.KpiExecutor(context.Background(), state))
	assert.Nil(t, state.KpiResults)
	assert.Equal(t, 0, llm.Calls)
}

func TestKpiExecutorGenerationFailureYieldsErrorResult(t *testing.T) {
	llm := &testutil.FakeLLM{Err: errors.New("down")}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
		KpiPlan: []models.KpiSpec{{KpiName: "x"}},
	}
	require.NoError(t, svc.KpiExecutor(context.Background(), state))
	assert.Contains(t, state.KpiResults, "error")
}

func TestKpiExecutorExecutionFailureYieldsErrorResult(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"```go\nnot valid go\n```"}}
	svc := newTestService(llm)

	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
		KpiPlan: []models.KpiSpec{{KpiName: "x"}},
	}
	require.NoError(t, svc.KpiExecutor(context.Background(), state))
	assert.Contains(t, state.KpiResults, "error")
}

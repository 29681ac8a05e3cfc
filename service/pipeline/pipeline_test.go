package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/models"
	"recomind-service/testutil"
)

func TestCleaningPlanJSONB(t *testing.T) {
	assert.Nil(t, cleaningPlanJSONB(nil))

	plan := []models.CleaningAction{
		{Action: models.ActionRemoveDuplicates},
		{Action: models.ActionDropColumn, Details: []interface{}{"Notes"}, Reasoning: "over 40% null"},
	}
	out := cleaningPlanJSONB(plan)
	require.Len(t, out, 2)
	assert.Equal(t, models.ActionRemoveDuplicates, out[0]["action"])
	assert.NotContains(t, out[0], "reasoning")
	assert.Equal(t, models.ActionDropColumn, out[1]["action"])
	assert.Equal(t, "over 40% null", out[1]["reasoning"])
}

func TestRecordRunPersistsPlanAndKpis(t *testing.T) {
	db := testutil.NewSQLiteDB(t, &models.AnalysisRun{})
	p := &Pipeline{db: db}

	payload := models.TaskPayload{TaskID: "t-1", CompanyID: "acme", UserRequest: "monthly sales"}
	result := &RunResult{
		DataType: models.DataTypeSales,
		SQLQuery: "SELECT 1",
		CleaningPlan: []models.CleaningAction{
			{Action: models.ActionRemoveDuplicates},
		},
		KpiResults: map[string]interface{}{"Total Revenue": 45.5},
		Report:     "report text",
	}
	p.recordRun(payload, models.TaskStatusSuccess, result, "")

	var run models.AnalysisRun
	require.NoError(t, db.First(&run, "task_id = ?", "t-1").Error)
	assert.Equal(t, models.TaskStatusSuccess, run.Status)
	assert.Equal(t, models.DataTypeSales, run.DataType)
	require.Len(t, run.CleaningPlan, 1)
	assert.Equal(t, models.ActionRemoveDuplicates, run.CleaningPlan[0]["action"])
	assert.Equal(t, 45.5, run.KpiResults["Total Revenue"])
}

func TestRecordRunFailureLeavesResultFieldsEmpty(t *testing.T) {
	db := testutil.NewSQLiteDB(t, &models.AnalysisRun{})
	p := &Pipeline{db: db}

	p.recordRun(models.TaskPayload{TaskID: "t-2", CompanyID: "acme"}, models.TaskStatusFailure, nil, "source db unreachable")

	var run models.AnalysisRun
	require.NoError(t, db.First(&run, "task_id = ?", "t-2").Error)
	assert.Equal(t, models.TaskStatusFailure, run.Status)
	assert.Equal(t, "source db unreachable", run.Error)
	assert.Empty(t, run.SQLQuery)
	assert.Nil(t, run.CleaningPlan)
}

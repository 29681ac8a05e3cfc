package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/dataset"
	"recomind-service/service/models"
)

func TestApplyAutomaticRules(t *testing.T) {
	ds := dataset.New(
		[]string{"A", "A", "mostly_null", "B"},
		[][]interface{}{
			{1, 10, nil, "x"},
			{2, 20, nil, "y"},
			{3, 30, "v", "z"},
			{4, 40, nil, "w"},
		},
	)

	cleaned, err := newCleaningInterpreter().Apply(ds, nil)
	require.NoError(t, err)

	// 重复列与高空值列即使计划为空也会被处理
	assert.Equal(t, []string{"A", "B"}, cleaned.Columns)
	// 原始数据集保持不动
	assert.Equal(t, []string{"A", "A", "mostly_null", "B"}, ds.Columns)
}

func TestApplyAtomicRollbackOnHandlerError(t *testing.T) {
	ds := dataset.New(
		[]string{"A", "B"},
		[][]interface{}{
			{1, "x"},
			{1, "x"},
			{2, "y"},
		},
	)

	ci := newCleaningInterpreter()
	ci.handlers["boom"] = func(_ *dataset.Dataset, _ interface{}) error {
		return errors.New("boom")
	}

	plan := []models.CleaningAction{
		{Action: models.ActionRemoveDuplicates, Details: "all"},
		{Action: "boom"},
	}

	result, err := ci.Apply(ds, plan)
	require.Error(t, err)
	// 失败返回原始数据集：前面已执行的去重不得泄漏
	assert.Same(t, ds, result)
	assert.Equal(t, 3, result.RowCount())
}

func TestApplyRecoversFromPanic(t *testing.T) {
	ds := dataset.New([]string{"A"}, [][]interface{}{{1}})

	ci := newCleaningInterpreter()
	ci.handlers["explode"] = func(_ *dataset.Dataset, _ interface{}) error {
		panic("kaboom")
	}

	result, err := ci.Apply(ds, []models.CleaningAction{{Action: "explode"}})
	require.Error(t, err)
	assert.Same(t, ds, result)
}

func TestApplySkipsUnknownActionAndBadShapes(t *testing.T) {
	ds := dataset.New(
		[]string{"A"},
		[][]interface{}{{1}, {1}},
	)

	plan := []models.CleaningAction{
		{Action: "no_such_action", Details: "whatever"},
		{Action: models.ActionRenameColumn, Details: 42.0},
		{Action: models.ActionRemoveDuplicates},
	}

	cleaned, err := newCleaningInterpreter().Apply(ds, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned.RowCount())
}

func applyOne(t *testing.T, ds *dataset.Dataset, action string, details interface{}) *dataset.Dataset {
	t.Helper()
	cleaned, err := newCleaningInterpreter().Apply(ds, []models.CleaningAction{
		{Action: action, Details: details},
	})
	require.NoError(t, err)
	return cleaned
}

func TestRemoveDuplicates(t *testing.T) {
	ds := dataset.New(
		[]string{"A", "B"},
		[][]interface{}{{1, "x"}, {1, "x"}, {1, "y"}},
	)
	cleaned := applyOne(t, ds, models.ActionRemoveDuplicates, "remove exact duplicates")
	assert.Equal(t, 2, cleaned.RowCount())
}

func TestDropColumnFromListAndFromQuotedText(t *testing.T) {
	ds := dataset.New(
		[]string{"keep", "gone1", "gone2"},
		[][]interface{}{{1, 2, 3}},
	)
	cleaned := applyOne(t, ds, models.ActionDropColumn, []interface{}{"gone1", "missing"})
	assert.Equal(t, []string{"keep", "gone2"}, cleaned.Columns)

	cleaned = applyOne(t, ds, models.ActionDropColumn, `drop the column "gone2" please`)
	assert.Equal(t, []string{"keep", "gone1"}, cleaned.Columns)
}

func TestRenameColumn(t *testing.T) {
	ds := dataset.New([]string{"old"}, [][]interface{}{{1}})
	cleaned := applyOne(t, ds, models.ActionRenameColumn,
		map[string]interface{}{"old_name": "old", "new_name": "new"})
	assert.Equal(t, []string{"new"}, cleaned.Columns)
}

func TestMapTextValuesPassthrough(t *testing.T) {
	ds := dataset.New(
		[]string{"status"},
		[][]interface{}{{"Y"}, {"N"}, {"maybe"}},
	)
	cleaned := applyOne(t, ds, models.ActionMapTextValues, map[string]interface{}{
		"column":  "status",
		"mapping": map[string]interface{}{"Y": "yes", "N": "no"},
	})
	assert.Equal(t, "yes", cleaned.Value(0, 0))
	assert.Equal(t, "no", cleaned.Value(1, 0))
	// 未命中映射的取值原样保留
	assert.Equal(t, "maybe", cleaned.Value(2, 0))
}

func TestUnifyFormatReplacesPlaceholders(t *testing.T) {
	ds := dataset.New(
		[]string{"v"},
		[][]interface{}{{"-"}, {"NA"}, {" "}, {"real"}},
	)
	cleaned := applyOne(t, ds, models.ActionUnifyFormat, nil)
	assert.Nil(t, cleaned.Value(0, 0))
	assert.Nil(t, cleaned.Value(1, 0))
	assert.Nil(t, cleaned.Value(2, 0))
	assert.Equal(t, "real", cleaned.Value(3, 0))
}

func TestStandardizeText(t *testing.T) {
	ds := dataset.New(
		[]string{"name", "amount"},
		[][]interface{}{{"  Alice ", 10}, {"BOB", 20}},
	)
	cleaned := applyOne(t, ds, models.ActionStandardizeText, nil)
	assert.Equal(t, "alice", cleaned.Value(0, 0))
	assert.Equal(t, "bob", cleaned.Value(1, 0))
	// 数值列不受影响
	assert.Equal(t, 10, cleaned.Value(0, 1))
}

func TestImputeMissingValues(t *testing.T) {
	ds := dataset.New(
		[]string{"num", "cat"},
		[][]interface{}{
			{1.0, "a"},
			{nil, "b"},
			{3.0, "a"},
			{5.0, nil},
		},
	)
	cleaned := applyOne(t, ds, models.ActionImputeMissing, nil)
	// 数值列取中位数
	assert.Equal(t, 3.0, cleaned.Value(1, 0))
	// 文本列取众数
	assert.Equal(t, "a", cleaned.Value(3, 1))
}

func TestHandleIDs(t *testing.T) {
	ds := dataset.New(
		[]string{"id"},
		[][]interface{}{{" A-1 "}, {"#C3#"}, {nil}},
	)
	cleaned := applyOne(t, ds, models.ActionHandleIDs, []interface{}{"id"})
	assert.Equal(t, "A-1", cleaned.Value(0, 0))
	assert.Equal(t, "C3", cleaned.Value(1, 0))
	assert.Nil(t, cleaned.Value(2, 0))
}

func TestHandleDates(t *testing.T) {
	ds := dataset.New(
		[]string{"d"},
		[][]interface{}{{"2024-01-02"}, {"not a date"}, {""}},
	)
	cleaned := applyOne(t, ds, models.ActionHandleDates, []interface{}{"d"})

	parsed, ok := cleaned.Value(0, 0).(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())
	assert.Nil(t, cleaned.Value(1, 0))
	assert.Nil(t, cleaned.Value(2, 0))
}

func TestValidateRelationships(t *testing.T) {
	ds := dataset.New(
		[]string{"start", "end"},
		[][]interface{}{
			{"2024-01-01", "2024-06-01"},
			{"2024-06-01", "2024-01-01"},
			{"garbage", "2024-01-01"},
		},
	)
	cleaned := applyOne(t, ds, models.ActionValidateRelations,
		map[string]interface{}{"start_date_col": "start", "end_date_col": "end"})

	// 仅起始晚于结束的行被删；无法解析的行保留
	require.Equal(t, 2, cleaned.RowCount())
	assert.Equal(t, "2024-01-01", cleaned.Value(0, 0))
	assert.Equal(t, "garbage", cleaned.Value(1, 0))
}

func TestHandleNumericValuesNullsOutliersKeepsRows(t *testing.T) {
	ds := dataset.New(
		[]string{"v"},
		[][]interface{}{{1.0}, {2.0}, {3.0}, {4.0}, {100.0}},
	)
	cleaned := applyOne(t, ds, models.ActionHandleNumericValues, []interface{}{"v"})

	// 离群值置空，行数不变
	assert.Equal(t, 5, cleaned.RowCount())
	assert.Nil(t, cleaned.Value(4, 0))
	assert.Equal(t, 1.0, cleaned.Value(0, 0))
}

func TestHandleMissingValuesDropsRows(t *testing.T) {
	ds := dataset.New(
		[]string{"critical", "other"},
		[][]interface{}{
			{"a", nil},
			{nil, "b"},
			{"c", "d"},
		},
	)
	cleaned := applyOne(t, ds, models.ActionHandleMissingValues, []interface{}{"critical"})
	require.Equal(t, 2, cleaned.RowCount())
	assert.Equal(t, "a", cleaned.Value(0, 0))
	assert.Equal(t, "c", cleaned.Value(1, 0))
}

func TestQuantileAndMedian(t *testing.T) {
	assert.Equal(t, 0.0, quantile(nil, 0.5))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.25))
	assert.InDelta(t, 2.5, quantile([]float64{1, 2, 3, 4}, 0.5), 1e-9)
	assert.InDelta(t, 2.0, median([]float64{3, 1, 2}), 1e-9)
	assert.InDelta(t, 2.5, median([]float64{4, 1, 3, 2}), 1e-9)
}

func TestColumnModeDeterministicTieBreak(t *testing.T) {
	ds := dataset.New(
		[]string{"v"},
		[][]interface{}{{"b"}, {"a"}, {"b"}, {"a"}},
	)
	// 平票时按键名升序取值，结果稳定
	assert.Equal(t, "a", fmt.Sprintf("%v", columnMode(ds, 0)))
}

func TestCleaningExecutorNodeSkipsWithoutPlan(t *testing.T) {
	svc := NewService(nil)
	state := &models.AnalysisState{
		Dataset: dataset.New([]string{"A"}, [][]interface{}{{1}}),
	}
	require.NoError(t, svc.CleaningExecutor(context.Background(), state))
	assert.Equal(t, 1, state.Dataset.RowCount())
}

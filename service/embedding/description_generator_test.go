package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/testutil"
)

func sampleTables() []TableMetadata {
	return []TableMetadata{
		{TableName: "Customer", Columns: []ColumnMetadata{
			{Name: "CustomerID", DataType: "integer"},
			{Name: "Region", DataType: "varchar"},
		}},
		{TableName: "SalesOrderHeader", Columns: []ColumnMetadata{
			{Name: "SalesOrderID", DataType: "integer"},
		}},
	}
}

func TestGenerateDescriptionsFromModel(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{
		`{"Customer": "Customer master data with regions.", "SalesOrderHeader": "Order headers with totals."}`,
	}}

	tables := GenerateDescriptions(context.Background(), llm, sampleTables())
	require.Len(t, tables, 2)
	assert.Equal(t, "Customer master data with regions.", tables[0].Description)
	assert.Equal(t, "Order headers with totals.", tables[1].Description)
	assert.Contains(t, llm.Prompts[0], "CustomerID (integer)")
}

func TestGenerateDescriptionsFallsBackOnModelFailure(t *testing.T) {
	llm := &testutil.FakeLLM{Err: errors.New("down")}

	tables := GenerateDescriptions(context.Background(), llm, sampleTables())
	assert.Contains(t, tables[0].Description, "Customer")
	assert.Contains(t, tables[0].Description, "CustomerID")
}

func TestGenerateDescriptionsPartialReply(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{`{"Customer": "Only one described."}`}}

	tables := GenerateDescriptions(context.Background(), llm, sampleTables())
	assert.Equal(t, "Only one described.", tables[0].Description)
	// 未覆盖的表退化为机械描述
	assert.Contains(t, tables[1].Description, "SalesOrderHeader")
}

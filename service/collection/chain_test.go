package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/models"
	"recomind-service/testutil"
)

func newTestChain(llm *testutil.FakeLLM) *Chain {
	return &Chain{llm: llm, retryDelay: 0}
}

func TestAnalyzeTablesParsesSelection(t *testing.T) {
	reply := "```json\n" + `{
  "selected_tables": ["SalesOrderHeader", "Customer"],
  "key_info": {
    "SalesOrderHeader": {"pk": "SalesOrderID", "fks": [{"from_column": "CustomerID", "to_table": "Customer", "to_column": "CustomerID"}]},
    "Customer": {"pk": "CustomerID", "fks": []}
  }
}` + "\n```"
	llm := &testutil.FakeLLM{Replies: []string{reply}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{UserRequest: "revenue by region", RetrievedContext: "Table: ..."}
	require.NoError(t, c.AnalyzeTables(context.Background(), sctx))

	assert.Equal(t, []string{"SalesOrderHeader", "Customer"}, sctx.SelectedTables)
	require.Contains(t, sctx.KeyInfo, "SalesOrderHeader")
	assert.Equal(t, "CustomerID", sctx.KeyInfo["SalesOrderHeader"].FKs[0].FromColumn)
}

func TestAnalyzeTablesRetriesOnEmptySelection(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{
		`{"selected_tables": [], "key_info": {}}`,
		`{"selected_tables": ["T"], "key_info": {"T": {"pk": "id", "fks": []}}}`,
	}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{UserRequest: "x"}
	require.NoError(t, c.AnalyzeTables(context.Background(), sctx))
	assert.Equal(t, []string{"T"}, sctx.SelectedTables)
	assert.Equal(t, 2, llm.Calls)
}

func TestSelectColumns(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{`{"selected_columns": ["Customer.Region", "SalesOrderHeader.TotalDue"]}`}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{UserRequest: "x", FullSchemaString: "Table Customer:..."}
	require.NoError(t, c.SelectColumns(context.Background(), sctx))
	assert.Equal(t, []string{"Customer.Region", "SalesOrderHeader.TotalDue"}, sctx.SelectedColumns)
}

func TestSelectColumnsFailsAfterRetries(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{`{"selected_columns": []}`}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{UserRequest: "x"}
	err := c.SelectColumns(context.Background(), sctx)
	require.Error(t, err)
	assert.Equal(t, 3, llm.Calls)
}

func TestGenerateQueryValidatesSelect(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{
		"I cannot write SQL today",
		"```sql\nSELECT Region FROM Customer\n```",
	}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{
		UserRequest:     "regions",
		SelectedColumns: []string{"Customer.Region"},
		KeyInfo:         map[string]models.TableRelations{},
	}
	require.NoError(t, c.GenerateQuery(context.Background(), sctx))
	assert.Equal(t, "SELECT Region FROM Customer", sctx.SQLQuery)
	assert.Equal(t, 2, llm.Calls)
}

func TestGenerateQueryPromptRequiresOutputAliasing(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"SELECT 1"}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{
		UserRequest: "x",
		KeyInfo:     map[string]models.TableRelations{},
	}
	require.NoError(t, c.GenerateQuery(context.Background(), sctx))
	assert.Contains(t, llm.Prompts[0], "Alias output columns with AS")
}

func TestGenerateQueryCarriesCorrectionFeedback(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []string{"SELECT 1"}}
	c := newTestChain(llm)

	sctx := &models.SynthesisContext{
		UserRequest:        "x",
		KeyInfo:            map[string]models.TableRelations{},
		CorrectionFeedback: "ERROR: column \"Imaginary\" does not exist",
	}
	require.NoError(t, c.GenerateQuery(context.Background(), sctx))
	assert.Contains(t, llm.Prompts[0], "Imaginary")
	assert.Contains(t, llm.Prompts[0], "previous attempt was rejected")
}

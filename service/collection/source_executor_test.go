package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteQueryRejectsNonSelect(t *testing.T) {
	cases := []string{
		"DROP TABLE users",
		"DELETE FROM orders",
		"UPDATE t SET x = 1",
		"INSERT INTO t VALUES (1)",
		"```sql\nTRUNCATE t\n```",
	}
	for _, query := range cases {
		_, err := ExecuteQuery(context.Background(), nil, query)
		require.Error(t, err, query)
		assert.Contains(t, err.Error(), "SELECT")
	}
}

func TestExecuteQueryStripsFenceBeforeGuard(t *testing.T) {
	// 守卫在围栏剥离之后判断：围栏内的SELECT不应在守卫处被拒
	_, err := ExecuteQuery(context.Background(), nil, "```sql\nDROP TABLE t\n```")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "拒绝执行")
}

func TestNormalizeCell(t *testing.T) {
	assert.Equal(t, "hello", normalizeCell([]byte("hello")))
	assert.Equal(t, 42, normalizeCell(42))
	assert.Nil(t, normalizeCell(nil))
}

package collection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"recomind-service/service/models"
)

func reviewContext(query string) *models.SynthesisContext {
	return &models.SynthesisContext{
		SQLQuery: query,
		FullSchemaString: `Table SalesOrderHeader:
  - SalesOrderID (integer)
  - CustomerID (integer)
  - TotalDue (numeric)
Table Customer:
  - CustomerID (integer)
  - Region (varchar)
  - order (varchar)
`,
		KeyInfo: map[string]models.TableRelations{
			"SalesOrderHeader": {
				PK: "SalesOrderID",
				FKs: []models.ForeignKey{
					{FromColumn: "CustomerID", ToTable: "Customer", ToColumn: "CustomerID"},
				},
			},
			"Customer": {PK: "CustomerID"},
		},
	}
}

func TestReviewAcceptsValidQuery(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT c.Region, SUM(s.TotalDue)
FROM SalesOrderHeader s
JOIN Customer c ON s.CustomerID = c.CustomerID
GROUP BY c.Region`)

	verdict := c.ReviewQuery(sctx)
	assert.False(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
	assert.Equal(t, strings.TrimSpace(sctx.SQLQuery), verdict)
}

func TestReviewRejectsNonSelect(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext("DELETE FROM Customer")
	assert.True(t, strings.HasPrefix(c.ReviewQuery(sctx), reviewErrorPrefix))

	sctx = reviewContext("")
	assert.True(t, strings.HasPrefix(c.ReviewQuery(sctx), reviewErrorPrefix))
}

func TestReviewRejectsUnknownColumn(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT s.Imaginary FROM SalesOrderHeader s`)

	verdict := c.ReviewQuery(sctx)
	assert.True(t, strings.HasPrefix(verdict, reviewErrorPrefix))
	assert.Contains(t, verdict, "Imaginary")
}

func TestReviewRejectsUnknownBareColumn(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT Imaginary FROM Customer`)

	verdict := c.ReviewQuery(sctx)
	assert.True(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
	assert.Contains(t, verdict, "Imaginary")
}

func TestReviewAcceptsBareColumnsInScope(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT Region, SUM(TotalDue) AS total
FROM SalesOrderHeader s
JOIN Customer c ON s.CustomerID = c.CustomerID
GROUP BY Region
ORDER BY total DESC`)

	verdict := c.ReviewQuery(sctx)
	assert.False(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
}

func TestReviewSkipsStringLiteralsInBareScan(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT Region FROM Customer WHERE Region = 'NotAColumn West'`)

	verdict := c.ReviewQuery(sctx)
	assert.False(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
}

func TestReviewRejectsUnbackedJoin(t *testing.T) {
	c := &Chain{}
	// Region不是登记的键对，即使两表都有同名列也不能作为JOIN条件
	sctx := reviewContext(`SELECT s.TotalDue
FROM SalesOrderHeader s
JOIN Customer c ON s.SalesOrderID = c.CustomerID`)

	verdict := c.ReviewQuery(sctx)
	assert.True(t, strings.HasPrefix(verdict, reviewErrorPrefix))
	assert.Contains(t, verdict, "key relationship")
}

func TestReviewAcceptsJoinInEitherDirection(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT s.TotalDue
FROM Customer c
JOIN SalesOrderHeader s ON c.CustomerID = s.CustomerID`)

	verdict := c.ReviewQuery(sctx)
	assert.False(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
}

func TestReviewRejectsUnquotedReservedKeyword(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT c.order FROM Customer c`)

	verdict := c.ReviewQuery(sctx)
	assert.True(t, strings.HasPrefix(verdict, reviewErrorPrefix))
	assert.Contains(t, verdict, "reserved")
}

func TestReviewAcceptsQuotedReservedKeyword(t *testing.T) {
	c := &Chain{}
	sctx := reviewContext(`SELECT c."order" FROM Customer c`)

	verdict := c.ReviewQuery(sctx)
	assert.False(t, strings.HasPrefix(verdict, reviewErrorPrefix), verdict)
}

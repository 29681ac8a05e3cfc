/*
 * @module service/collection/reviewer
 * @description 审查阶段：对生成的SELECT做确定性校验，不合格时产出ERROR:前缀的纠错反馈
 * @architecture 服务层 - 规则校验（无模型参与）
 * @stateFlow sql_query -> 语句类型/列存在性/JOIN键对/保留字转义校验 -> 通过原文或ERROR:反馈
 * @rules 校验依据只有full_schema_string与key_info两份本地事实；
 *        ERROR:前缀是回路的控制信号，其后文字会原样喂回生成阶段
 * @dependencies regexp
 * @refs query_generator.go, chain.go
 */

package collection

import (
	"fmt"
	"regexp"
	"strings"

	"recomind-service/service/models"
)

const reviewErrorPrefix = "ERROR:"

var (
	schemaTablePattern  = regexp.MustCompile(`(?m)^Table (\S+):`)
	schemaColumnPattern = regexp.MustCompile(`(?m)^\s+-\s+(\S+)\s+\(`)
	fromJoinPattern     = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+("?[A-Za-z_][\w]*"?)(?:\s+(?:AS\s+)?("?[A-Za-z_][\w]*"?))?`)
	qualifiedEqPattern  = regexp.MustCompile(`("?[A-Za-z_][\w]*"?)\.("?[A-Za-z_][\w]*"?)\s*=\s*("?[A-Za-z_][\w]*"?)\.("?[A-Za-z_][\w]*"?)`)
	qualifiedColPattern = regexp.MustCompile(`("?[A-Za-z_][\w]*"?)\.("?[A-Za-z_][\w]*"?)`)

	stringLiteralPattern = regexp.MustCompile(`'[^']*'`)
	asAliasPattern       = regexp.MustCompile(`(?i)\bAS\s+("?[A-Za-z_]\w*"?)`)
	bareIdentPattern     = regexp.MustCompile(`"?[A-Za-z_]\w*"?`)
)

// PostgreSQL里作列名时必须转义的常见保留字
var reservedKeywords = map[string]bool{
	"order": true, "group": true, "user": true, "table": true,
	"select": true, "where": true, "from": true, "limit": true,
	"offset": true, "check": true, "default": true, "desc": true,
}

// sqlBareKeywords 裸标识符扫描时跳过的SQL词汇
var sqlBareKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"not": true, "as": true, "on": true, "join": true, "inner": true,
	"left": true, "right": true, "full": true, "outer": true, "cross": true,
	"natural": true, "group": true, "order": true, "by": true, "having": true,
	"limit": true, "offset": true, "distinct": true, "asc": true, "desc": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"null": true, "is": true, "in": true, "like": true, "ilike": true,
	"between": true, "exists": true, "union": true, "all": true, "any": true,
	"using": true, "true": true, "false": true, "interval": true,
	"cast": true, "with": true,
}

// sqlKeywordAliases FROM/JOIN解析里不可当作别名的词
var sqlKeywordAliases = map[string]bool{
	"on": true, "where": true, "inner": true, "left": true, "right": true,
	"full": true, "cross": true, "join": true, "group": true, "order": true,
	"limit": true, "using": true, "as": true,
}

// ReviewQuery 审查阶段
// 通过时返回原查询，不通过时返回ERROR:前缀的反馈
func (c *Chain) ReviewQuery(sctx *models.SynthesisContext) string {
	query := strings.TrimSpace(sctx.SQLQuery)
	if query == "" {
		return reviewErrorPrefix + " the query is empty."
	}
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return reviewErrorPrefix + " only a single SELECT statement is allowed."
	}

	schema := parseSchemaString(sctx.FullSchemaString)
	aliases := parseAliases(query, schema)

	// 列存在性：每个限定列引用都必须落在真实表结构里
	for _, m := range qualifiedColPattern.FindAllStringSubmatch(query, -1) {
		tableRef, columnRef := unquoteIdent(m[1]), unquoteIdent(m[2])
		tableName, ok := aliases[strings.ToLower(tableRef)]
		if !ok {
			// 不是表引用（比如函数调用前缀），跳过
			continue
		}
		if !schemaHasColumn(schema, tableName, columnRef) {
			return fmt.Sprintf("%s column %q does not exist in table %q. Use only columns from the provided schema.",
				reviewErrorPrefix, columnRef, tableName)
		}
		if reservedKeywords[strings.ToLower(columnRef)] && !strings.HasPrefix(m[2], `"`) {
			return fmt.Sprintf("%s column %q is a reserved keyword and must be double-quoted as %s.\"%s\".",
				reviewErrorPrefix, columnRef, tableRef, columnRef)
		}
	}

	// 列存在性：未限定的裸列引用也必须落在范围内某张表里
	if msg := checkBareColumns(query, schema, aliases); msg != "" {
		return msg
	}

	// JOIN完整性：每个跨表等值条件都必须是key_info里登记的键对
	for _, m := range qualifiedEqPattern.FindAllStringSubmatch(query, -1) {
		leftTable, ok1 := aliases[strings.ToLower(unquoteIdent(m[1]))]
		rightTable, ok2 := aliases[strings.ToLower(unquoteIdent(m[3]))]
		if !ok1 || !ok2 || leftTable == rightTable {
			continue
		}
		leftCol, rightCol := unquoteIdent(m[2]), unquoteIdent(m[4])
		if !isKnownJoin(sctx.KeyInfo, leftTable, leftCol, rightTable, rightCol) {
			return fmt.Sprintf("%s join condition %s.%s = %s.%s is not backed by a known key relationship. Join only on the provided key facts.",
				reviewErrorPrefix, leftTable, leftCol, rightTable, rightCol)
		}
	}

	return query
}

// checkBareColumns 校验未带表前缀的列引用
// 扫描前剥掉字符串字面量、限定列引用和AS输出别名；剩下的标识符里，
// 凡是既不是关键字、不是表名/别名、也不是函数名的，都按列名校验存在性
func checkBareColumns(query string, schema map[string]map[string]bool, aliases map[string]string) string {
	if len(aliases) == 0 {
		return ""
	}
	scan := stringLiteralPattern.ReplaceAllString(query, "''")
	scan = qualifiedColPattern.ReplaceAllString(scan, " ")

	// AS定义的输出别名可以在GROUP BY/ORDER BY里被引用
	outputAliases := make(map[string]bool)
	for _, m := range asAliasPattern.FindAllStringSubmatch(scan, -1) {
		outputAliases[strings.ToLower(unquoteIdent(m[1]))] = true
	}
	scan = asAliasPattern.ReplaceAllString(scan, " ")

	for _, loc := range bareIdentPattern.FindAllStringIndex(scan, -1) {
		token := scan[loc[0]:loc[1]]
		if rest := strings.TrimLeft(scan[loc[1]:], " \t"); strings.HasPrefix(rest, "(") {
			// 函数调用
			continue
		}
		name := strings.ToLower(unquoteIdent(token))
		if !strings.HasPrefix(token, `"`) && sqlBareKeywords[name] {
			continue
		}
		if _, isTable := aliases[name]; isTable {
			continue
		}
		if outputAliases[name] {
			continue
		}
		found := false
		for _, tableName := range aliases {
			if schemaHasColumn(schema, tableName, name) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("%s column %q does not exist in any selected table. Use only columns from the provided schema.",
				reviewErrorPrefix, unquoteIdent(token))
		}
		if reservedKeywords[name] && !strings.HasPrefix(token, `"`) {
			return fmt.Sprintf("%s column %q is a reserved keyword and must be double-quoted as \"%s\".",
				reviewErrorPrefix, name, name)
		}
	}
	return ""
}

// parseSchemaString 把结构文本解析为 表名->列集合
func parseSchemaString(schema string) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	currentTable := ""
	for _, line := range strings.Split(schema, "\n") {
		if m := schemaTablePattern.FindStringSubmatch(line); m != nil {
			currentTable = strings.ToLower(m[1])
			out[currentTable] = make(map[string]bool)
			continue
		}
		if currentTable == "" {
			continue
		}
		if m := schemaColumnPattern.FindStringSubmatch(line); m != nil {
			out[currentTable][strings.ToLower(m[1])] = true
		}
	}
	return out
}

// parseAliases 解析FROM/JOIN里的表名与别名，返回 小写引用->真实表名（小写）
func parseAliases(query string, schema map[string]map[string]bool) map[string]string {
	aliases := make(map[string]string)
	for _, m := range fromJoinPattern.FindAllStringSubmatch(query, -1) {
		tableName := strings.ToLower(unquoteIdent(m[1]))
		if _, known := schema[tableName]; !known {
			continue
		}
		aliases[tableName] = tableName
		if m[2] != "" {
			alias := strings.ToLower(unquoteIdent(m[2]))
			if !sqlKeywordAliases[alias] {
				aliases[alias] = tableName
			}
		}
	}
	return aliases
}

func schemaHasColumn(schema map[string]map[string]bool, table, column string) bool {
	cols, ok := schema[strings.ToLower(table)]
	if !ok {
		return false
	}
	return cols[strings.ToLower(column)]
}

// isKnownJoin 键对是否在主外键事实里登记过（方向不敏感）
func isKnownJoin(keyInfo map[string]models.TableRelations, leftTable, leftCol, rightTable, rightCol string) bool {
	if matchesRelation(keyInfo, leftTable, leftCol, rightTable, rightCol) {
		return true
	}
	return matchesRelation(keyInfo, rightTable, rightCol, leftTable, leftCol)
}

func matchesRelation(keyInfo map[string]models.TableRelations, fromTable, fromCol, toTable, toCol string) bool {
	for tableName, rel := range keyInfo {
		if !strings.EqualFold(tableName, fromTable) {
			continue
		}
		for _, fk := range rel.FKs {
			if strings.EqualFold(fk.FromColumn, fromCol) &&
				strings.EqualFold(fk.ToTable, toTable) &&
				strings.EqualFold(fk.ToColumn, toCol) {
				return true
			}
		}
	}
	return false
}

func unquoteIdent(ident string) string {
	return strings.Trim(ident, `"`)
}

/*
 * @module service/dataset/profile
 * @description 数据集画像，生成供清洗顾问使用的结构摘要、统计概览和样本行
 * @architecture 数据层 - 只读分析
 * @stateFlow 数据集 -> 列级统计 -> 文本摘要
 * @rules 画像仅读取数据集，不做任何修改
 * @dependencies sort, strings
 * @refs service/analysis/cleaning_advisor.go
 */

package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnProfile 单列画像
type ColumnProfile struct {
	Name      string     `json:"name"`
	Kind      ColumnKind `json:"kind"`
	NullRatio float64    `json:"null_ratio"`
	Distinct  int        `json:"distinct"`
	Min       float64    `json:"min,omitempty"`
	Max       float64    `json:"max,omitempty"`
	Mean      float64    `json:"mean,omitempty"`
}

// Profile 数据集画像
type Profile struct {
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnProfile `json:"columns"`
}

// BuildProfile 生成数据集画像
func (d *Dataset) BuildProfile() *Profile {
	profile := &Profile{
		RowCount:    d.RowCount(),
		ColumnCount: d.ColumnCount(),
	}
	for i, name := range d.Columns {
		cp := ColumnProfile{
			Name:      name,
			Kind:      d.InferKind(i),
			NullRatio: d.NullRatio(i),
			Distinct:  d.DistinctCount(i),
		}
		if cp.Kind == KindNumeric {
			values := d.NumericValues(i)
			if len(values) > 0 {
				sort.Float64s(values)
				cp.Min = values[0]
				cp.Max = values[len(values)-1]
				sum := 0.0
				for _, v := range values {
					sum += v
				}
				cp.Mean = sum / float64(len(values))
			}
		}
		profile.Columns = append(profile.Columns, cp)
	}
	return profile
}

// ConstantColumns 取唯一取值不超过1的列名
func (d *Dataset) ConstantColumns() []string {
	var constant []string
	for i, name := range d.Columns {
		if d.DistinctCount(i) <= 1 {
			constant = append(constant, name)
		}
	}
	return constant
}

// Summary 画像的文本摘要（用于提示词）
func (p *Profile) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "shape: %d rows x %d columns\n", p.RowCount, p.ColumnCount)
	for _, cp := range p.Columns {
		fmt.Fprintf(&sb, "- %s (%s) null_ratio=%.2f distinct=%d", cp.Name, cp.Kind, cp.NullRatio, cp.Distinct)
		if cp.Kind == KindNumeric {
			fmt.Fprintf(&sb, " min=%.4g max=%.4g mean=%.4g", cp.Min, cp.Max, cp.Mean)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// HeadCSV 取前n行样本，按CSV格式渲染
func (d *Dataset) HeadCSV(n int) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(d.Columns, ","))
	sb.WriteString("\n")
	for i := 0; i < len(d.Rows) && i < n; i++ {
		cells := make([]string, 0, len(d.Columns))
		for j := range d.Columns {
			v := d.Value(i, j)
			if v == nil {
				cells = append(cells, "")
				continue
			}
			s := fmt.Sprintf("%v", v)
			if strings.ContainsAny(s, ",\"\n") {
				s = "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
			}
			cells = append(cells, s)
		}
		sb.WriteString(strings.Join(cells, ","))
		sb.WriteString("\n")
	}
	return sb.String()
}

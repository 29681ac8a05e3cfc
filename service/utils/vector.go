/*
 * @module service/utils/vector
 * @description pgvector字面量工具，在[]float32与数据库向量文本之间转换
 * @architecture 工具层 - 无状态函数集合
 * @stateFlow 嵌入客户端产出浮点数组 -> 文本字面量 -> SQL参数
 * @rules 统一走字面量读写，驱动层不引入pgvector扩展类型
 * @dependencies strconv, strings
 * @refs service/embedding/vector_store.go, service/collection/vector_search.go
 */

package utils

import (
	"strconv"
	"strings"
)

// VectorLiteral 将嵌入向量编码为pgvector文本字面量，形如[0.1,0.2,...]
func VectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

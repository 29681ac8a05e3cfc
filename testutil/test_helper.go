/*
 * @module testutil/test_helper
 * @description 测试辅助：内存sqlite数据库与可编排的模型客户端假实现
 * @architecture 测试支撑层
 * @stateFlow 测试用例构造假客户端 -> 注入被测服务 -> 断言调用序列与结果
 * @rules 假客户端记录全部调用，按预置序列逐条回复，序列耗尽后重复最后一条
 * @dependencies gorm.io/driver/sqlite, github.com/stretchr/testify
 * @refs client/llm_client.go
 */

package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB 创建内存sqlite数据库并迁移给定模型
func NewSQLiteDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	return db
}

// FakeLLM 可编排的模型客户端假实现
type FakeLLM struct {
	Replies []string
	Err     error
	Calls   int
	Prompts []string
}

// Invoke 按预置序列回复，序列耗尽后重复最后一条
func (f *FakeLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	f.Calls++
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	idx := f.Calls - 1
	if idx >= len(f.Replies) {
		idx = len(f.Replies) - 1
	}
	return f.Replies[idx], nil
}

// FakeEmbedder 固定向量的嵌入客户端假实现
type FakeEmbedder struct {
	Vector []float32
	Err    error
	Calls  int
}

// Embed 返回固定向量
func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Vector, nil
}

/*
 * @module service/event/publisher
 * @description 运行生命周期事件发布器：把分析运行的启动/成功/失败投递到Kafka
 * @architecture 事件层 - 可选旁路
 * @stateFlow 管线状态变更 -> JSON事件 -> kafka-go异步写入
 * @rules KAFKA_BROKERS为空时发布器退化为no-op；事件发布失败只记日志不影响主流程
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/pipeline/pipeline.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// 事件类型
const (
	EventRunStarted   = "run.started"
	EventRunSucceeded = "run.succeeded"
	EventRunFailed    = "run.failed"
	EventIngestedOK   = "ingestion.succeeded"
	EventIngestedFail = "ingestion.failed"
)

// RunEvent 运行生命周期事件
type RunEvent struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id"`
	CompanyID string    `json:"company_id,omitempty"`
	DataType  string    `json:"data_type,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher 生命周期事件发布器
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher 创建发布器
// brokers为空时返回no-op发布器
func NewPublisher(brokers, topic string) *Publisher {
	if strings.TrimSpace(brokers) == "" {
		slog.Info("未配置Kafka，事件发布为no-op")
		return &Publisher{}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Publish 发布一个事件，失败只记日志
func (p *Publisher) Publish(ctx context.Context, ev RunEvent) {
	if p.writer == nil {
		return
	}
	ev.Timestamp = time.Now()

	raw, err := json.Marshal(ev)
	if err != nil {
		slog.Error("事件序列化失败", "type", ev.Type, "error", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TaskID),
		Value: raw,
	})
	if err != nil {
		slog.Error("事件发布失败", "type", ev.Type, "error", err)
	}
}

// Close 关闭底层写入器
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

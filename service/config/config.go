/*
 * @module service/config/config
 * @description 环境配置：集中读取服务所需的全部环境变量，带默认值
 * @architecture 配置层
 * @stateFlow 进程启动 -> godotenv加载.env -> 环境变量读取 -> Settings单次构造
 * @rules 配置只在启动时读取一次；缺失的可选项使用默认值，必填项缺失在使用处报错
 * @dependencies github.com/joho/godotenv, github.com/spf13/cast
 * @refs service/init.go, main.go
 */

package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Settings 服务配置
type Settings struct {
	ListenPort string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	KafkaBrokers string
	KafkaTopic   string

	CredentialKey string

	SchedulerEnabled bool
}

// Load 加载配置
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		slog.Debug("未找到.env文件，使用进程环境变量")
	}

	return &Settings{
		ListenPort: getEnvWithDefault("LISTEN_PORT", "80"),

		DatabaseURL: getEnvWithDefault("DATABASE_URL",
			"host=localhost port=5432 dbname=recomind user=postgres password=postgres sslmode=disable"),

		RedisAddr:     getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvWithDefault("REDIS_PASSWORD", ""),
		RedisDB:       cast.ToInt(getEnvWithDefault("REDIS_DB", "0")),

		LLMBaseURL:     getEnvWithDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      getEnvWithDefault("LLM_API_KEY", ""),
		LLMModel:       getEnvWithDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature: cast.ToFloat64(getEnvWithDefault("LLM_TEMPERATURE", "0.1")),

		EmbeddingBaseURL: getEnvWithDefault("EMBEDDING_BASE_URL", getEnvWithDefault("LLM_BASE_URL", "https://api.openai.com/v1")),
		EmbeddingAPIKey:  getEnvWithDefault("EMBEDDING_API_KEY", getEnvWithDefault("LLM_API_KEY", "")),
		EmbeddingModel:   getEnvWithDefault("EMBEDDING_MODEL", "text-embedding-3-small"),

		KafkaBrokers: getEnvWithDefault("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnvWithDefault("KAFKA_TOPIC", "recomind-run-events"),

		CredentialKey: getEnvWithDefault("CREDENTIAL_KEY", ""),

		SchedulerEnabled: cast.ToBool(getEnvWithDefault("SCHEDULER_ENABLED", "true")),
	}
}

// getEnvWithDefault 读取环境变量，缺失时返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

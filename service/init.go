/*
 * @module service/init
 * @description 服务初始化模块，负责数据库、Redis、模型客户端与各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @stateFlow 应用启动时执行初始化流程：配置 -> 数据库 -> 迁移 -> Redis -> 客户端 -> 服务 -> 后台协程
 * @rules 确保所有依赖服务正常启动后才提供API服务；任一核心依赖失败直接退出进程
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/go-redis/redis/v8
 * @refs api/routes.go, main.go
 */

package service

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"recomind-service/client"
	"recomind-service/service/config"
	"recomind-service/service/event"
	"recomind-service/service/models"
	"recomind-service/service/pipeline"
	"recomind-service/service/scheduler"
	"recomind-service/service/taskqueue"
	"recomind-service/service/tenant"
	"recomind-service/service/utils"
)

var (
	Settings *config.Settings
	DB       *gorm.DB
	Redis    *redis.Client

	GlobalTenantService *tenant.Service
	GlobalPipeline      *pipeline.Pipeline
	GlobalQueue         *taskqueue.Queue
	GlobalScheduler     *scheduler.Scheduler
	GlobalEvents        *event.Publisher
)

func init() {
	Settings = config.Load()
	initDatabase()
	runMigrations()
	initRedis()
	initServices()
	startBackground()
}

// initDatabase 初始化应用数据库连接
func initDatabase() {
	var err error
	DB, err = gorm.Open(postgres.Open(Settings.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	log.Println("数据库连接成功")
}

// runMigrations 执行数据库迁移
func runMigrations() {
	// pgvector扩展与向量列类型需要数据库侧预先启用
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Printf("pgvector扩展检查失败（可忽略，若已启用）: %v", err)
	}

	err := DB.AutoMigrate(
		&models.Tenant{},
		&models.ClientSchemaVector{},
		&models.AnalysisRun{},
	)
	if err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库迁移完成")
}

// initRedis 初始化Redis连接
func initRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     Settings.RedisAddr,
		Password: Settings.RedisPassword,
		DB:       Settings.RedisDB,
	})
	if err := Redis.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis连接失败: %v", err)
	}
	log.Println("Redis连接成功")
}

// initServices 装配业务服务
func initServices() {
	llm := client.NewOpenAIClient(Settings.LLMBaseURL, Settings.LLMAPIKey, Settings.LLMModel, float32(Settings.LLMTemperature))
	embedder := client.NewOpenAIEmbeddingClient(Settings.EmbeddingBaseURL, Settings.EmbeddingAPIKey, Settings.EmbeddingModel)

	crypto := utils.NewCryptoUtils(Settings.CredentialKey)
	GlobalTenantService = tenant.NewService(DB, crypto)
	GlobalEvents = event.NewPublisher(Settings.KafkaBrokers, Settings.KafkaTopic)
	GlobalPipeline = pipeline.New(DB, llm, embedder, GlobalTenantService, GlobalEvents)

	GlobalQueue = taskqueue.NewQueue(Redis)
	GlobalQueue.RegisterHandler(models.TaskKindAnalysis, GlobalPipeline.RunAnalysis)
	GlobalQueue.RegisterHandler(models.TaskKindIngestion, GlobalPipeline.RunIngestion)

	GlobalScheduler = scheduler.New(GlobalTenantService, GlobalQueue)
	log.Println("业务服务装配完成")
}

// startBackground 启动后台协程
func startBackground() {
	go GlobalQueue.Run(context.Background())

	if Settings.SchedulerEnabled {
		if err := GlobalScheduler.Start(context.Background()); err != nil {
			log.Printf("调度器启动失败: %v", err)
		}
	}
}

/*
 * @module main
 * @description 服务入口：装配路由、指标与文档端点，以dapr HTTP服务形式启动
 * @architecture 分层架构 - 入口层
 * @stateFlow 进程启动 -> 日志初始化 -> service包init完成依赖装配 -> HTTP服务监听
 * @rules BASE_CONTEXT非空时所有路由挂载到该前缀之下
 * @dependencies github.com/dapr/go-sdk, github.com/go-chi/chi/v5
 * @refs api/routes.go, service/init.go
 */

package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"recomind-service/api"
	_ "recomind-service/docs"
	"recomind-service/logger"
	_ "recomind-service/service"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
)

func init() {
	logger.InitLogger()

	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}
}

// @title RecoMind 分析服务 API
// @version 1.0
// @description 面向多租户的业务数据分析服务，提供查询合成、数据清洗、KPI计算与报告生成功能
// @BasePath /swagger/recomind-service
func main() {
	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(PORT), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}

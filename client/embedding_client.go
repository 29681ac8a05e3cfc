/*
 * @module client/embedding_client
 * @description 文本向量化客户端，封装OpenAI兼容的embeddings接口
 * @architecture 适配器模式 - 封装外部HTTP服务
 * @stateFlow 文本 -> HTTP请求 -> 向量返回
 * @rules 向量维度由远端模型决定，调用方不做假设
 * @dependencies net/http, encoding/json
 * @refs service/collection/vector_search.go, service/embedding/vector_store.go
 */

package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// EmbeddingClient 文本向量化接口
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingRequest embeddings请求体
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingResponse embeddings响应体
type EmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// OpenAIEmbeddingClient OpenAI兼容接口的向量化客户端
type OpenAIEmbeddingClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIEmbeddingClient 创建向量化客户端实例
func NewOpenAIEmbeddingClient(baseURL, apiKey, model string) *OpenAIEmbeddingClient {
	return &OpenAIEmbeddingClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Embed 生成文本向量
func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model: c.model,
		Input: text,
	}

	// 复用chat客户端的HTTP逻辑
	helper := &OpenAIClient{apiKey: c.apiKey, httpClient: c.httpClient}

	var resp EmbeddingResponse
	if err := helper.doRequest(ctx, c.baseURL+"/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("向量化服务返回空data")
	}
	return resp.Data[0].Embedding, nil
}

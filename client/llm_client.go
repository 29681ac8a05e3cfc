/*
 * @module client/llm_client
 * @description 大模型调用客户端，封装OpenAI兼容的chat completions接口
 * @architecture 适配器模式 - 封装外部HTTP服务，核心逻辑只依赖LLMClient接口
 * @stateFlow 提示词 -> HTTP请求 -> 响应解析 -> 纯文本返回
 * @rules 核心管线通过接口注入客户端，测试使用假实现替换
 * @dependencies net/http, encoding/json
 * @refs service/analysis, service/collection, service/embedding
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LLMClient 大模型调用接口
// Invoke接受一段提示词，返回模型的纯文本回复
type LLMClient interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ChatMessage 聊天消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest chat completions请求体
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse chat completions响应体
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// OpenAIClient OpenAI兼容接口的HTTP客户端
// baseURL指向服务根路径（如OpenRouter或自建网关）
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float32
	httpClient  *http.Client
}

// NewOpenAIClient 创建大模型客户端实例
func NewOpenAIClient(baseURL, apiKey, model string, temperature float32) *OpenAIClient {
	return &OpenAIClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Invoke 执行一次chat completion调用
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []ChatMessage{
			{Role: "user", Content: prompt},
		},
	}

	var resp ChatCompletionResponse
	if err := c.doRequest(ctx, c.baseURL+"/chat/completions", reqBody, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("模型返回空choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// doRequest 执行HTTP请求并解析JSON响应
func (c *OpenAIClient) doRequest(ctx context.Context, url string, requestData, responseData interface{}) error {
	requestBody, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("模型服务返回状态码 %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, responseData); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

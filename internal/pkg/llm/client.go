package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"k8s.io/klog/v2"
)

// Client LLM 客户端，兼容 OpenAI chat/completions 协议
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewClient 创建新的 LLM 客户端
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.LLM.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		BaseURL:   strings.TrimRight(cfg.LLM.APIURL, "/"),
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat 发送普通对话请求，返回文本
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	klog.V(6).Infof("Chat 请求: model=%s, messages=%d", c.Model, len(messages))
	resp, err := c.sendRequest(ctx, ChatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", Malformed("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured 强制模型通过指定工具返回结构化结果
// 响应中没有该工具调用时返回 ErrMalformedResponse
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, tool Tool) (*ToolCall, *ChatResponse, error) {
	name := tool.Function.Name
	klog.V(6).Infof("GenerateStructured 请求: model=%s, tool=%s", c.Model, name)
	resp, err := c.sendRequest(ctx, ChatRequest{
		Model: c.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Tools:       []Tool{tool},
		ToolChoice:  ForceTool(name),
		MaxTokens:   c.MaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, nil, err
	}

	call := resp.FindToolCall(name)
	if call == nil {
		klog.Warningf("模型未返回结构化调用: tool=%s, choices=%d", name, len(resp.Choices))
		return nil, resp, Malformed("no %s call in response", name)
	}
	return call, resp, nil
}

// sendRequest 发送 HTTP 请求到 LLM API
func (c *Client) sendRequest(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	req, err := c.newRequest(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, Malformed("failed to unmarshal response: %v", err)
	}

	if chatResp.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    chatResp.Error.Message,
			Type:       chatResp.Error.Type,
			Code:       codeString(chatResp.Error.Code),
		}
	}

	return &chatResp, nil
}

func (c *Client) newRequest(ctx context.Context, reqBody ChatRequest) (*http.Request, error) {
	url := c.BaseURL + "/chat/completions"
	klog.V(6).Infof("发送 LLM 请求: url=%s, model=%s, stream=%v", url, reqBody.Model, reqBody.Stream)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if reqBody.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// checkStatus 非 2xx 响应转换为 APIError
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var parsed struct {
		Error *ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Message = parsed.Error.Message
		apiErr.Type = parsed.Error.Type
		apiErr.Code = codeString(parsed.Error.Code)
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	klog.Warningf("LLM 请求失败: status=%d, message=%s", apiErr.StatusCode, apiErr.Message)
	return apiErr
}

// 不同网关的 code 可能是字符串也可能是数字
func codeString(code any) string {
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stratgen/internal/config"
	"stratgen/internal/logger"
)

// ErrMalformedBody marks a 2xx response whose body is not a chat completion.
var ErrMalformedBody = errors.New("malformed completion body")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.Code, e.Message)
}

// OpenAIChatClient 兼容 OpenAI chat/completions 的客户端；单次请求，不做重试。
type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (ChatResult, error) {
	ctx = ensureCtx(ctx)
	timeout := c.ensureTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.chatCompletionsURL()
	bodyBytes := c.buildChatBodyBytes(payload)
	logger.LogLLMPayload(c.Model, string(bodyBytes))
	logger.Debugf("[AI] 请求: POST %s headers=%v", url, c.headersForLog())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return ChatResult{}, err
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	httpc := c.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return ChatResult{}, err
	}
	if resp.StatusCode/100 != 2 {
		return ChatResult{}, &StatusError{Code: resp.StatusCode, Message: parseError(resp)}
	}
	return decodeChatContent(resp)
}

func ensureCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (c *OpenAIChatClient) ensureTimeout() time.Duration {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c.Timeout
}

func (c *OpenAIChatClient) chatCompletionsURL() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) buildChatBodyBytes(payload ChatPayload) []byte {
	messages := make([]map[string]any, 0, 2)
	if payload.System != "" {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": payload.System,
		})
	}
	messages = append(messages, map[string]any{"role": "user", "content": payload.User})

	maxTokens := payload.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	body := map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": c.Temperature,
		"max_tokens":  maxTokens,
	}
	if payload.ExpectJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	b, _ := json.Marshal(body)
	return b
}

// decodeChatContent 读取失败属于传输错误；读到的 2xx 响应体无法解析时返回 ErrMalformedBody。
func decodeChatContent(resp *http.Response) (ChatResult, error) {
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debugf("[AI] response body close failed: %v", cerr)
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, fmt.Errorf("read completion: %w", err)
	}
	var r struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return ChatResult{}, fmt.Errorf("%w: decode completion: %v", ErrMalformedBody, err)
	}
	if len(r.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("%w: empty choices", ErrMalformedBody)
	}
	return ChatResult{Content: r.Choices[0].Message.Content, TokensUsed: r.Usage.TotalTokens, Model: r.Model}, nil
}

func (c *OpenAIChatClient) headers() map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		out["Authorization"] = fmt.Sprintf("Bearer %s", c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		out[k] = v
	}
	return out
}

func (c *OpenAIChatClient) headersForLog() map[string]string {
	out := map[string]string{}
	for k, v := range c.headers() {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "auth") || strings.Contains(lk, "key") || strings.Contains(lk, "token") {
			if len(v) > 4 {
				out[k] = "****" + v[len(v)-4:]
			} else {
				out[k] = "****"
			}
			continue
		}
		out[k] = v
	}
	return out
}

func parseError(resp *http.Response) string {
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debugf("[AI] response body close failed: %v", cerr)
		}
	}()
	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&eresp); err == nil && strings.TrimSpace(eresp.Error.Message) != "" {
		return eresp.Error.Message
	}
	return resp.Status
}

// OpenAIModelProvider 包装客户端；未配置 API Key 时 Enabled 为 false。
type OpenAIModelProvider struct {
	id      string
	enabled bool
	client  interface {
		Call(ctx context.Context, payload ChatPayload) (ChatResult, error)
	}
}

var _ ModelProvider = (*OpenAIModelProvider)(nil)

// NewOpenAIModelProvider builds the provider from the ai config section.
func NewOpenAIModelProvider(cfg config.AIConfig) *OpenAIModelProvider {
	c := &OpenAIChatClient{
		BaseURL:      cfg.APIURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		ExtraHeaders: cfg.Headers,
	}
	return &OpenAIModelProvider{id: cfg.ID, enabled: cfg.Configured(), client: c}
}

func (p *OpenAIModelProvider) ID() string    { return p.id }
func (p *OpenAIModelProvider) Enabled() bool { return p.enabled }
func (p *OpenAIModelProvider) Call(ctx context.Context, payload ChatPayload) (ChatResult, error) {
	if !p.enabled {
		return ChatResult{}, fmt.Errorf("provider %s 未配置", p.id)
	}
	return p.client.Call(ctx, payload)
}

package provider

import "context"

// ChatPayload 单轮请求：固定系统指令 + 用户提示词。
type ChatPayload struct {
	System     string
	User       string
	MaxTokens  int
	ExpectJSON bool
}

// ChatResult is the first choice of a completion plus its usage.
type ChatResult struct {
	Content    string
	TokensUsed int
	Model      string
}

// ModelProvider is what the AI tier calls. Enabled reports whether a credential is configured.
type ModelProvider interface {
	ID() string
	Enabled() bool
	Call(ctx context.Context, payload ChatPayload) (ChatResult, error)
}

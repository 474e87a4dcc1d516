package decision

import (
	"context"
	"errors"
	"strings"

	"stratgen/internal/gateway/provider"
	"stratgen/internal/logger"
	"stratgen/internal/pkg/jsonutil"
	"stratgen/internal/pkg/text"
	"stratgen/internal/strategy"
)

// AITier asks the model for a JSON plan. One request, no retry.
type AITier struct {
	provider  provider.ModelProvider
	prompts   *PromptBuilder
	validator *strategy.Validator
	maxTokens int
}

func NewAITier(p provider.ModelProvider, prompts *PromptBuilder, v *strategy.Validator, maxTokens int) *AITier {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	if v == nil {
		v = strategy.NewValidator()
	}
	return &AITier{provider: p, prompts: prompts, validator: v, maxTokens: maxTokens}
}

func (t *AITier) Source() Source { return SourceAI }

func (t *AITier) Generate(ctx context.Context, c Context) TierOutcome {
	if t.provider == nil || !t.provider.Enabled() {
		return skipped(SourceAI, "no generative-service credential configured")
	}
	payload := provider.ChatPayload{
		System:     SystemInstruction,
		User:       t.prompts.Build(c),
		MaxTokens:  t.maxTokens,
		ExpectJSON: true,
	}
	res, err := t.provider.Call(ctx, payload)
	if err != nil {
		if errors.Is(err, provider.ErrMalformedBody) {
			return failed(&TierError{Kind: KindMalformedResponse, Source: SourceAI, Err: err}, 0, nil)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("[AI] %s 请求超时: %v", c.Symbol.Code, err)
		}
		return failed(&TierError{Kind: KindTransportFailure, Source: SourceAI, Err: err}, 0, nil)
	}

	raw, ok := jsonutil.ExtractObject(res.Content)
	if !ok {
		return failed(newTierError(SourceAI, KindMalformedResponse, "no JSON object in response: %s", text.Truncate(res.Content, 200)), res.TokensUsed, nil)
	}
	logger.Debugf("[AI] %s 模型输出 JSON:\n%s", c.Symbol.Code, jsonutil.Pretty(raw))
	draft, err := strategy.DecodeDraft([]byte(raw))
	if err != nil {
		return failed(&TierError{Kind: KindSchemaViolation, Source: SourceAI, Err: err}, res.TokensUsed, nil)
	}
	vr := t.validator.Validate(draft)
	if !vr.Success {
		return failed(newTierError(SourceAI, KindSchemaViolation, "unrepairable: %s", joinIssues(vr.Errors)), res.TokensUsed, &vr)
	}
	if vr.Fixed {
		logger.Infof("[AI] %s 输出经自动修复: %v", c.Symbol.Code, vr.FixedFields)
	}
	return TierOutcome{Attempted: true, Strategy: vr.Data, Repaired: vr.Fixed, Validation: &vr, TokensUsed: res.TokensUsed}
}

func joinIssues(issues []strategy.Issue) string {
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		msgs = append(msgs, is.Message)
	}
	return text.Truncate(strings.Join(msgs, "; "), 400)
}

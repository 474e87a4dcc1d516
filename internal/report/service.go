package report

import (
	"context"

	"stratgen/internal/decision"
	"stratgen/internal/history"
	"stratgen/internal/market"
)

// Generator is satisfied by *decision.Generator.
type Generator interface {
	Generate(ctx context.Context, c decision.Context) decision.Result
}

// Report pairs the derived price levels with the generated strategy.
type Report struct {
	Symbol        market.Symbol            `json:"symbol"`
	Horizon       market.Horizon           `json:"horizon"`
	Volatility    market.VolatilityLevel   `json:"volatility"`
	EntryPrice    float64                  `json:"entryPrice"`
	TargetPrice1  float64                  `json:"targetPrice1"`
	TargetPrice2  float64                  `json:"targetPrice2"`
	StopLossPrice float64                  `json:"stopLossPrice"`
	Indicators    market.IndicatorSnapshot `json:"indicators"`
	History       *history.Context         `json:"history,omitempty"`
	Result        decision.Result          `json:"result"`
}

type Service struct {
	builder   *ContextBuilder
	generator Generator
}

func NewService(builder *ContextBuilder, generator Generator) *Service {
	return &Service{builder: builder, generator: generator}
}

// Generate only fails on invalid input; once a Context exists a strategy is always produced.
func (s *Service) Generate(ctx context.Context, req ContextRequest) (Report, error) {
	c, err := s.builder.Build(ctx, req)
	if err != nil {
		return Report{}, err
	}
	res := s.generator.Generate(ctx, c)
	return Report{
		Symbol:        c.Symbol,
		Horizon:       c.Horizon,
		Volatility:    c.Volatility,
		EntryPrice:    c.EntryPrice,
		TargetPrice1:  c.TargetPrice1,
		TargetPrice2:  c.TargetPrice2,
		StopLossPrice: c.StopLossPrice,
		Indicators:    c.Indicators,
		History:       c.History,
		Result:        res,
	}, nil
}

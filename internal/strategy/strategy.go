package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 中文说明：
// InvestmentStrategy 是对外输出的三阶段计划，产出后不再修改。
// Draft 是带校验标签的可空形态，用于解析模型输出、校验与修复；
// 只有通过校验的 Draft 才会转换为 InvestmentStrategy。

// InvestmentStrategy is the validated three-phase plan.
type InvestmentStrategy struct {
	Phase1 Phase1 `json:"phase1"`
	Phase2 Phase2 `json:"phase2"`
	Phase3 Phase3 `json:"phase3"`
}

type Phase1 struct {
	EntryRatio  float64  `json:"entryRatio"`
	EntryTiming string   `json:"entryTiming"`
	Reasoning   string   `json:"reasoning"`
	StopLoss    StopLoss `json:"stopLoss"`
}

type StopLoss struct {
	Price   float64 `json:"price"`
	Percent float64 `json:"percent"`
	Timing  string  `json:"timing"`
	Reason  string  `json:"reason"`
}

type Phase2 struct {
	Bullish  Scenario `json:"bullish"`
	Sideways Scenario `json:"sideways"`
	Bearish  Scenario `json:"bearish"`
}

// Scenario carries at most one of ActionRatio (add) or ExitRatio (reduce).
type Scenario struct {
	Condition   string   `json:"condition"`
	Action      string   `json:"action"`
	ActionRatio *float64 `json:"actionRatio,omitempty"`
	ExitRatio   *float64 `json:"exitRatio,omitempty"`
	Reason      string   `json:"reason"`
}

type Phase3 struct {
	Target1 Target `json:"target1"`
	Target2 Target `json:"target2"`
}

type Target struct {
	Price     string  `json:"price"`
	Action    string  `json:"action"`
	ExitRatio float64 `json:"exitRatio"`
	Reason    string  `json:"reason"`
}

// Ratio returns a pointer for optional scenario ratios.
func Ratio(v float64) *float64 { return &v }

// Draft mirrors InvestmentStrategy with nullable fields and schema constraints.
type Draft struct {
	Phase1 *DraftPhase1 `json:"phase1" validate:"required"`
	Phase2 *DraftPhase2 `json:"phase2" validate:"required"`
	Phase3 *DraftPhase3 `json:"phase3" validate:"required"`
}

type DraftPhase1 struct {
	EntryRatio  *float64       `json:"entryRatio" validate:"required,gte=15,lte=50"`
	EntryTiming string         `json:"entryTiming" validate:"required,min=8"`
	Reasoning   string         `json:"reasoning" validate:"required,min=20"`
	StopLoss    *DraftStopLoss `json:"stopLoss" validate:"required"`
}

type DraftStopLoss struct {
	Price   *float64 `json:"price" validate:"required,gt=0"`
	Percent *float64 `json:"percent" validate:"required,gte=-50,lte=0"`
	Timing  string   `json:"timing" validate:"required,min=4"`
	Reason  string   `json:"reason" validate:"required,min=10"`
}

type DraftPhase2 struct {
	Bullish  *DraftScenario `json:"bullish" validate:"required"`
	Sideways *DraftScenario `json:"sideways" validate:"required"`
	Bearish  *DraftScenario `json:"bearish" validate:"required"`
}

type DraftScenario struct {
	Condition   string   `json:"condition" validate:"required,min=4"`
	Action      string   `json:"action" validate:"required,min=4"`
	ActionRatio *float64 `json:"actionRatio,omitempty" validate:"omitempty,gte=15,lte=50"`
	ExitRatio   *float64 `json:"exitRatio,omitempty" validate:"omitempty,gte=30,lte=100"`
	Reason      string   `json:"reason" validate:"required,min=10"`
}

type DraftPhase3 struct {
	Target1 *DraftTarget `json:"target1" validate:"required"`
	Target2 *DraftTarget `json:"target2" validate:"required"`
}

type DraftTarget struct {
	Price     string   `json:"price" validate:"required,min=1"`
	Action    string   `json:"action" validate:"required,min=4"`
	ExitRatio *float64 `json:"exitRatio" validate:"required,gte=20,lte=100"`
	Reason    string   `json:"reason" validate:"required,min=10"`
}

// DecodeDraft parses one JSON object into a Draft; unknown fields are ignored.
func DecodeDraft(raw []byte) (Draft, error) {
	var d Draft
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&d); err != nil {
		return Draft{}, fmt.Errorf("decode strategy: %w", err)
	}
	return d, nil
}

// Clone deep-copies the draft through its JSON form.
func (d Draft) Clone() Draft {
	buf, err := json.Marshal(d)
	if err != nil {
		return d
	}
	var out Draft
	if err := json.Unmarshal(buf, &out); err != nil {
		return d
	}
	return out
}

// Strategy converts a validated draft. It returns false when any required part is absent.
func (d Draft) Strategy() (InvestmentStrategy, bool) {
	if d.Phase1 == nil || d.Phase1.StopLoss == nil || d.Phase2 == nil || d.Phase3 == nil {
		return InvestmentStrategy{}, false
	}
	p1, p2, p3 := d.Phase1, d.Phase2, d.Phase3
	if p1.EntryRatio == nil || p1.StopLoss.Price == nil || p1.StopLoss.Percent == nil {
		return InvestmentStrategy{}, false
	}
	if p2.Bullish == nil || p2.Sideways == nil || p2.Bearish == nil || p3.Target1 == nil || p3.Target2 == nil {
		return InvestmentStrategy{}, false
	}
	if p3.Target1.ExitRatio == nil || p3.Target2.ExitRatio == nil {
		return InvestmentStrategy{}, false
	}
	return InvestmentStrategy{
		Phase1: Phase1{
			EntryRatio:  *p1.EntryRatio,
			EntryTiming: p1.EntryTiming,
			Reasoning:   p1.Reasoning,
			StopLoss: StopLoss{
				Price:   *p1.StopLoss.Price,
				Percent: *p1.StopLoss.Percent,
				Timing:  p1.StopLoss.Timing,
				Reason:  p1.StopLoss.Reason,
			},
		},
		Phase2: Phase2{
			Bullish:  p2.Bullish.scenario(),
			Sideways: p2.Sideways.scenario(),
			Bearish:  p2.Bearish.scenario(),
		},
		Phase3: Phase3{
			Target1: p3.Target1.target(),
			Target2: p3.Target2.target(),
		},
	}, true
}

func (s *DraftScenario) scenario() Scenario {
	return Scenario{
		Condition:   s.Condition,
		Action:      s.Action,
		ActionRatio: copyFloat(s.ActionRatio),
		ExitRatio:   copyFloat(s.ExitRatio),
		Reason:      s.Reason,
	}
}

func (t *DraftTarget) target() Target {
	return Target{Price: t.Price, Action: t.Action, ExitRatio: *t.ExitRatio, Reason: t.Reason}
}

// Draft converts back for re-validation of locally built strategies.
func (s InvestmentStrategy) Draft() Draft {
	scenario := func(sc Scenario) *DraftScenario {
		return &DraftScenario{
			Condition:   sc.Condition,
			Action:      sc.Action,
			ActionRatio: copyFloat(sc.ActionRatio),
			ExitRatio:   copyFloat(sc.ExitRatio),
			Reason:      sc.Reason,
		}
	}
	target := func(t Target) *DraftTarget {
		return &DraftTarget{Price: t.Price, Action: t.Action, ExitRatio: Ratio(t.ExitRatio), Reason: t.Reason}
	}
	return Draft{
		Phase1: &DraftPhase1{
			EntryRatio:  Ratio(s.Phase1.EntryRatio),
			EntryTiming: s.Phase1.EntryTiming,
			Reasoning:   s.Phase1.Reasoning,
			StopLoss: &DraftStopLoss{
				Price:   Ratio(s.Phase1.StopLoss.Price),
				Percent: Ratio(s.Phase1.StopLoss.Percent),
				Timing:  s.Phase1.StopLoss.Timing,
				Reason:  s.Phase1.StopLoss.Reason,
			},
		},
		Phase2: &DraftPhase2{
			Bullish:  scenario(s.Phase2.Bullish),
			Sideways: scenario(s.Phase2.Sideways),
			Bearish:  scenario(s.Phase2.Bearish),
		},
		Phase3: &DraftPhase3{
			Target1: target(s.Phase3.Target1),
			Target2: target(s.Phase3.Target2),
		},
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

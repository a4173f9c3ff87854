// Package thinking maps a neutral reasoning-effort level to a concrete
// per-family thinking token budget, and back, using configurable
// thresholds so operators can tune depth without a code change.
package thinking

import "github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"

// Thresholds gives the token budget this family should receive for each
// coarse effort level. High must be >= Medium >= Low for ToBudget/FromBudget
// to stay monotonic (a larger requested budget never maps to a lower effort).
type Thresholds struct {
	Low    int
	Medium int
	High   int
}

// DefaultThresholds returns the thresholds used when a deployment sets no
// override. They are deliberately conservative: a LOW budget is enough for
// brief reasoning, MEDIUM covers everyday multi-step prompts, and HIGH is
// large enough for hard problems without approaching typical per-call token
// ceilings.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 1024, Medium: 4096, High: 8192}
}

// ToBudget converts a neutral effort level into a concrete token budget for
// this family. ThinkingNone yields 0 (thinking disabled).
func (t Thresholds) ToBudget(effort neutral.ThinkingEffort) int {
	switch effort {
	case neutral.ThinkingLow:
		return t.Low
	case neutral.ThinkingMedium:
		return t.Medium
	case neutral.ThinkingHigh:
		return t.High
	default:
		return 0
	}
}

// FromBudget converts a concrete upstream token budget back into a neutral
// effort level, picking the highest threshold the budget meets or exceeds.
// A positive budget below Low still maps to low; zero or less maps to none.
func (t Thresholds) FromBudget(budgetTokens int) neutral.ThinkingEffort {
	switch {
	case budgetTokens <= 0:
		return neutral.ThinkingNone
	case budgetTokens >= t.High:
		return neutral.ThinkingHigh
	case t.Medium > 0 && budgetTokens >= t.Medium:
		return neutral.ThinkingMedium
	case budgetTokens >= t.Low:
		return neutral.ThinkingLow
	default:
		return neutral.ThinkingLow
	}
}

// Resolve reconciles a ThinkingSpec that may carry either an Effort or an
// explicit BudgetTokens (set by whichever family the request originated
// from) into the concrete budget this target family's thresholds demand.
func Resolve(spec *neutral.ThinkingSpec, target Thresholds) int {
	if spec == nil {
		return 0
	}
	if spec.BudgetTokens > 0 {
		return target.ToBudget(target.FromBudget(spec.BudgetTokens))
	}
	return target.ToBudget(spec.Effort)
}

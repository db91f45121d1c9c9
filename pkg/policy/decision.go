package policy

import "github.com/llm-dev-ops/policy-engine/pkg/telemetry"

// Decision is the outcome returned by Evaluate. Allowed is derived from
// Decision: true for Allow/Warn/Modify, false for Deny.
type Decision struct {
	Decision         DecisionKind
	Allowed          bool
	Reason           string
	MatchedPolicies  []string
	MatchedRules     []string
	EvaluationTimeMs float64
	Modifications    map[string]Value
	Metadata         map[string]Value
	Trace            *telemetry.Trace
}

// NewAllowDecision returns the zero-value default outcome: Allow, no
// matches, no modifications.
func NewAllowDecision() Decision {
	return Decision{Decision: DecisionAllow, Allowed: true}
}

// Clone returns a deep copy of d, used by the decision cache so that a
// caller mutating a returned Decision (e.g. stamping EvaluationTimeMs)
// never affects the cached value (§4.4 and §3 lifecycle notes).
func (d Decision) Clone() Decision {
	out := d
	out.MatchedPolicies = append([]string(nil), d.MatchedPolicies...)
	out.MatchedRules = append([]string(nil), d.MatchedRules...)
	if d.Modifications != nil {
		out.Modifications = make(map[string]Value, len(d.Modifications))
		for k, v := range d.Modifications {
			out.Modifications[k] = v
		}
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]Value, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	if d.Trace != nil {
		traceCopy := *d.Trace
		out.Trace = &traceCopy
	}
	return out
}

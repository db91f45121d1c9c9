package evaluator

import (
	"testing"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

func contextWithRole(role string) *policy.Context {
	return policy.NewContext().WithUser(policy.UserContext{ID: "u1", Roles: []string{role}})
}

func TestEvaluateAllowWhenNoRuleMatches(t *testing.T) {
	p := policy.NewPolicy("p1", policy.Metadata{Name: "no-op"},
		policy.NewRule("r1", "admin-only", policy.Leaf(policy.OpEquals, "user.id", policy.String("someone-else")), policy.NewDenyAction("nope")),
	)

	decision, err := Evaluate([]policy.Policy{p}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionAllow || !decision.Allowed {
		t.Fatalf("expected Allow, got %+v", decision)
	}
}

func TestEvaluateDenyShortCircuitsRemainingPolicies(t *testing.T) {
	denyPolicy := policy.NewPolicy("deny-policy", policy.Metadata{Name: "deny"},
		policy.NewRule("deny-rule", "block-guests", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewDenyAction("blocked")),
	)
	denyPolicy.Priority = 10

	warnPolicy := policy.NewPolicy("warn-policy", policy.Metadata{Name: "warn"},
		policy.NewRule("warn-rule", "should-not-run", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("should not appear")),
	)
	warnPolicy.Priority = 1

	decision, err := Evaluate([]policy.Policy{warnPolicy, denyPolicy}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionDeny || decision.Allowed {
		t.Fatalf("expected Deny, got %+v", decision)
	}
	if decision.Reason != "blocked" {
		t.Fatalf("expected deny reason, got %q", decision.Reason)
	}
	if len(decision.MatchedPolicies) != 1 || decision.MatchedPolicies[0] != "deny-policy" {
		t.Fatalf("expected only deny-policy to have matched, got %v", decision.MatchedPolicies)
	}
}

func TestEvaluateWarnIsStickyAcrossLaterAllow(t *testing.T) {
	p := policy.NewPolicy("p1", policy.Metadata{Name: "mixed"},
		policy.NewRule("warn-rule", "flag-it", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("suspicious")),
		policy.NewRule("allow-rule", "fallthrough", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewAllowAction()),
	)

	decision, err := Evaluate([]policy.Policy{p}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionWarn {
		t.Fatalf("expected Warn to stick, got %+v", decision)
	}
	if decision.Reason != "suspicious" {
		t.Fatalf("expected the warn reason to survive, got %q", decision.Reason)
	}
}

func TestEvaluateWarnIsStickyAgainstLaterWarn(t *testing.T) {
	p := policy.NewPolicy("p1", policy.Metadata{Name: "mixed"},
		policy.NewRule("warn-rule-1", "first", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("first warning")),
		policy.NewRule("warn-rule-2", "second", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("second warning")),
	)

	decision, err := Evaluate([]policy.Policy{p}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionWarn {
		t.Fatalf("expected Warn, got %+v", decision)
	}
	if decision.Reason != "first warning" {
		t.Fatalf("expected the FIRST matching warn's reason to stick, got %q", decision.Reason)
	}
}

func TestEvaluatePolicyModifyIsNotRegressedByLaterWarn(t *testing.T) {
	p := policy.NewPolicy("p1", policy.Metadata{Name: "mixed"},
		policy.NewRule("modify-rule", "redact", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
			policy.NewModifyAction(policy.Modification{Kind: policy.ModMask, Field: "user.email"})),
		policy.NewRule("warn-rule", "flag-it", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("suspicious")),
	)

	decision, err := EvaluatePolicy(p, contextWithRole("member"))
	if err != nil {
		t.Fatalf("EvaluatePolicy: %v", err)
	}
	if decision.Decision != policy.DecisionModify {
		t.Fatalf("expected a later Warn rule to leave an established intra-policy Modify untouched, got %+v", decision)
	}
	if len(decision.Modifications) != 1 {
		t.Fatalf("expected the Modify rule's field to still be recorded, got %v", decision.Modifications)
	}
}

func TestEvaluateModifyPromotesOverAnEarlierWarnAcrossPolicies(t *testing.T) {
	warnPolicy := policy.NewPolicy("warn-policy", policy.Metadata{Name: "warn"},
		policy.NewRule("warn-rule", "flag-it", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), policy.NewWarnAction("suspicious")),
	)
	warnPolicy.Priority = 10

	modifyPolicy := policy.NewPolicy("modify-policy", policy.Metadata{Name: "modify"},
		policy.NewRule("modify-rule", "redact", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
			policy.NewModifyAction(policy.Modification{Kind: policy.ModMask, Field: "user.email"})),
	)
	modifyPolicy.Priority = 1

	decision, err := Evaluate([]policy.Policy{warnPolicy, modifyPolicy}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionModify {
		t.Fatalf("expected a later Modify policy to promote over an earlier Warn policy, got %+v", decision)
	}
	if len(decision.MatchedPolicies) != 2 {
		t.Fatalf("expected both policies to be recorded as matched, got %v", decision.MatchedPolicies)
	}
}

func TestEvaluateModifyAccumulatesAndLaterOverwrites(t *testing.T) {
	p := policy.NewPolicy("p1", policy.Metadata{Name: "redact"},
		policy.NewRule("r1", "mask-email", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
			policy.NewModifyAction(policy.Modification{Kind: policy.ModMask, Field: "user.email"})),
		policy.NewRule("r2", "cap-tokens", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
			policy.NewModifyAction(policy.Modification{Kind: policy.ModSet, Field: "llm.maxTokens", Value: valuePtr(policy.Integer(100))})),
		policy.NewRule("r3", "cap-tokens-again", policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
			policy.NewModifyAction(policy.Modification{Kind: policy.ModSet, Field: "llm.maxTokens", Value: valuePtr(policy.Integer(50))})),
	)

	decision, err := Evaluate([]policy.Policy{p}, contextWithRole("member"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Decision != policy.DecisionModify {
		t.Fatalf("expected Modify, got %+v", decision)
	}
	if len(decision.Modifications) != 2 {
		t.Fatalf("expected 2 distinct fields, got %v", decision.Modifications)
	}
	got, _ := decision.Modifications["llm.maxTokens"].AsInteger()
	if got != 50 {
		t.Fatalf("expected later write to overwrite earlier one, got %d", got)
	}
}

func TestMatchConditionAndOrNot(t *testing.T) {
	ctx := contextWithRole("admin")
	cond := policy.And(
		policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")),
		policy.Or(
			policy.Leaf(policy.OpEquals, "user.roles", policy.String("member")),
			policy.Not(policy.Leaf(policy.OpEquals, "user.roles", policy.String("guest"))),
		),
	)
	ok, err := matchCondition(cond, ctx)
	if err != nil {
		t.Fatalf("matchCondition: %v", err)
	}
	if !ok {
		t.Fatalf("expected condition to match")
	}
}

func TestMatchConditionMissingFieldNeverMatchesComparison(t *testing.T) {
	ctx := policy.NewContext()
	ok, err := matchCondition(policy.Leaf(policy.OpEquals, "user.id", policy.String("u1")), ctx)
	if err != nil {
		t.Fatalf("matchCondition: %v", err)
	}
	if ok {
		t.Fatalf("expected no match against an absent field")
	}
}

func TestMatchConditionExistsNotExists(t *testing.T) {
	ctx := contextWithRole("member")
	ok, _ := matchCondition(policy.Presence(policy.OpExists, "user.id"), ctx)
	if !ok {
		t.Fatalf("expected user.id to exist")
	}
	ok, _ = matchCondition(policy.Presence(policy.OpNotExists, "project.id"), ctx)
	if !ok {
		t.Fatalf("expected project.id to be absent")
	}
}

func TestValuesEqualNumericPromotion(t *testing.T) {
	if !valuesEqual(policy.Integer(3), policy.Float(3.0)) {
		t.Fatalf("expected Integer(3) to equal Float(3.0)")
	}
	if valuesEqual(policy.Integer(3), policy.Float(3.1)) {
		t.Fatalf("expected Integer(3) to not equal Float(3.1)")
	}
}

func TestCompareNumericOrStringErrorsOnMismatchedKinds(t *testing.T) {
	_, err := compareNumericOrString(policy.String("gpt-4"), policy.Integer(4), func(c int) bool { return c > 0 })
	if err == nil {
		t.Fatalf("expected an error comparing a string against a number, not a silent false")
	}
	if kind, _ := policy.KindOf(err); kind != policy.KindEvaluation {
		t.Fatalf("expected KindEvaluation, got %v", kind)
	}
}

func TestMatchConditionPropagatesNumericComparisonError(t *testing.T) {
	ctx := policy.NewContext().WithLLM(policy.LLMContext{Model: "gpt-4"})
	cond := policy.Leaf(policy.OpGreaterThan, "llm.model", policy.Integer(4))
	if _, err := matchCondition(cond, ctx); err == nil {
		t.Fatalf("expected matchCondition to surface the numeric comparison error, not swallow it")
	}
}

func TestValueContainsArrayUsesStructuralEquality(t *testing.T) {
	arr := policy.Array(policy.String("a"), policy.String("b"))
	if !valueContains(arr, policy.String("b")) {
		t.Fatalf("expected array to contain b")
	}
	if valueContains(arr, policy.String("c")) {
		t.Fatalf("expected array to not contain c")
	}
}

func TestMatchesRegexCachesCompiledPattern(t *testing.T) {
	ok, err := matchesRegex(policy.String("gpt-4-turbo"), policy.String(`^gpt-4`))
	if err != nil {
		t.Fatalf("matchesRegex: %v", err)
	}
	if !ok {
		t.Fatalf("expected pattern to match")
	}
	globalPatterns.mu.RLock()
	_, cached := globalPatterns.cache[`^gpt-4`]
	globalPatterns.mu.RUnlock()
	if !cached {
		t.Fatalf("expected the compiled pattern to be cached")
	}

	_, err = matchesRegex(policy.String("x"), policy.String(`(`))
	if err == nil {
		t.Fatalf("expected invalid pattern to error")
	}
	if kind, _ := policy.KindOf(err); kind != policy.KindExpression {
		t.Fatalf("expected KindExpression, got %v", kind)
	}
}

func valuePtr(v policy.Value) *policy.Value { return &v }

// Package evaluator implements the pure decision algorithm: given a set
// of policies and a context, walk the priority-ordered rules and fold
// their actions into a single Decision (§4.3, §4.4). It depends only on
// the policy package's data model and the standard library; it has no
// knowledge of caching, telemetry, or concurrency, so it can be tested
// and reasoned about in isolation.
package evaluator

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

// numericEpsilon bounds float comparisons so that Equals/NotEquals on
// mixed Integer/Float values behave the way a document author expects
// (§4.3: "numeric comparisons promote Integer to Float and compare
// within a small epsilon").
const numericEpsilon = 1e-9

// patternCache compiles Matches regular expressions once per pattern and
// reuses them across evaluations, since the operand set is fixed at
// policy-load time, not user-supplied at request time.
type patternCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func newPatternCache() *patternCache {
	return &patternCache{cache: make(map[string]*regexp.Regexp)}
}

func (p *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	p.mu.RLock()
	re, ok := p.cache[pattern]
	p.mu.RUnlock()
	if ok {
		return re, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if re, ok := p.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	p.cache[pattern] = re
	return re, nil
}

var globalPatterns = newPatternCache()

// Evaluate walks enabled policies in priority order and folds each
// policy's own Decision (from EvaluatePolicy) into an overall result per
// the inter-policy accumulation rules of §4.4:
//
//   - Deny short-circuits immediately: the overall result becomes that
//     policy's Decision verbatim, matched down to just that one policy.
//   - The first policy whose Decision is Warn replaces the (still-Allow)
//     running result; later Warn policies contribute their id to
//     MatchedPolicies but do not touch Decision/Reason again.
//   - Every Modify policy promotes the running Decision to Modify
//     unconditionally — even over an already-set Warn, whose reason it
//     replaces with its own — and its modifications are merged into the
//     running set.
//   - Absent any match, the outcome is Allow.
//
// This mirrors two distinct folds, not one: the rule-level fold inside
// EvaluatePolicy and this policy-level fold are different algorithms,
// because Modify is sticky-over-Warn at the policy level but not at the
// rule level (see EvaluatePolicy).
func Evaluate(policies []policy.Policy, ctx *policy.Context) (policy.Decision, error) {
	result := policy.NewAllowDecision()
	var matchedPolicies []string
	var matchedRules []string

	sorted := policy.SortPoliciesByPriority(policies, true)
	for _, p := range sorted {
		policyResult, err := EvaluatePolicy(p, ctx)
		if err != nil {
			return policy.Decision{}, policy.Wrap(policy.KindEvaluation,
				fmt.Sprintf("policy %q", p.ID), err)
		}

		if policyResult.Decision == policy.DecisionDeny {
			result = policyResult
			result.MatchedPolicies = []string{p.ID}
			return result, nil
		}

		if policyResult.Decision == policy.DecisionWarn {
			if result.Decision == policy.DecisionAllow {
				result = policyResult
			}
			matchedPolicies = appendUnique(matchedPolicies, p.ID)
		}

		if policyResult.Decision == policy.DecisionModify {
			result.Decision = policy.DecisionModify
			result.Allowed = true
			result.Reason = policyResult.Reason
			if result.Modifications == nil {
				result.Modifications = make(map[string]policy.Value)
			}
			for field, v := range policyResult.Modifications {
				result.Modifications[field] = v
			}
			matchedPolicies = appendUnique(matchedPolicies, p.ID)
		}

		matchedRules = append(matchedRules, policyResult.MatchedRules...)
	}

	if len(matchedPolicies) > 0 {
		result.MatchedPolicies = matchedPolicies
	}
	if len(matchedRules) > 0 {
		result.MatchedRules = matchedRules
	}

	return result, nil
}

// EvaluatePolicy folds a single policy's enabled rules, in rule-priority
// order, into a Decision per the intra-policy algorithm of §4.3:
//
//   - Each matching rule produces a fresh Decision fragment from its
//     Action alone (not accumulated with prior rules).
//   - A Deny fragment returns immediately: the policy's Decision becomes
//     that fragment, matched down to the rules seen so far.
//   - The first non-Allow fragment becomes the running result.
//   - A later Modify fragment only merges into the running result when
//     the running result is already Modify; it does NOT promote a
//     running Warn to Modify (contrast with the policy-level fold in
//     Evaluate, where Modify always promotes over Warn).
func EvaluatePolicy(p policy.Policy, ctx *policy.Context) (policy.Decision, error) {
	result := policy.NewAllowDecision()
	var matchedRules []string

	for _, r := range p.EnabledSortedRules() {
		matched, err := matchCondition(r.Condition, ctx)
		if err != nil {
			return policy.Decision{}, policy.Wrap(policy.KindEvaluation,
				fmt.Sprintf("policy %q rule %q", p.ID, r.ID), err)
		}
		if !matched {
			continue
		}
		matchedRules = append(matchedRules, r.ID)

		fragment := ruleFragment(r)

		if fragment.Decision == policy.DecisionDeny {
			result = fragment
			result.MatchedRules = matchedRules
			return result, nil
		}

		if result.Decision == policy.DecisionAllow {
			result = fragment
		} else if result.Decision == policy.DecisionModify && fragment.Decision == policy.DecisionModify {
			mergeModifications(&result, fragment.Modifications)
		}
	}

	result.MatchedRules = matchedRules
	return result, nil
}

// ruleFragment builds the standalone Decision a single rule's Action
// produces, with no knowledge of any other rule's outcome.
func ruleFragment(r policy.Rule) policy.Decision {
	switch r.Action.Decision {
	case policy.DecisionDeny:
		d := policy.Decision{
			Decision: policy.DecisionDeny,
			Allowed:  false,
			Reason:   reasonOrDefault(r.Action.Reason, "Denied by rule: "+r.Name),
		}
		mergeMetadata(&d, r.Action.Metadata)
		return d

	case policy.DecisionWarn:
		d := policy.Decision{
			Decision: policy.DecisionWarn,
			Allowed:  true,
			Reason:   reasonOrDefault(r.Action.Reason, "Warning from rule: "+r.Name),
		}
		mergeMetadata(&d, r.Action.Metadata)
		return d

	case policy.DecisionModify:
		d := policy.Decision{Decision: policy.DecisionModify, Allowed: true}
		d.Modifications = make(map[string]policy.Value, len(r.Action.Modifications))
		for _, mod := range r.Action.Modifications {
			if mod.Value != nil {
				d.Modifications[mod.Field] = *mod.Value
			} else {
				d.Modifications[mod.Field] = policy.Null
			}
		}
		mergeMetadata(&d, r.Action.Metadata)
		return d

	default:
		return policy.NewAllowDecision()
	}
}

func mergeModifications(decision *policy.Decision, mods map[string]policy.Value) {
	if len(mods) == 0 {
		return
	}
	if decision.Modifications == nil {
		decision.Modifications = make(map[string]policy.Value, len(mods))
	}
	for field, v := range mods {
		decision.Modifications[field] = v
	}
}

func mergeMetadata(decision *policy.Decision, md map[string]policy.Value) {
	if len(md) == 0 {
		return
	}
	if decision.Metadata == nil {
		decision.Metadata = make(map[string]policy.Value, len(md))
	}
	for k, v := range md {
		decision.Metadata[k] = v
	}
}

func reasonOrDefault(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

func appendUnique(ss []string, s string) []string {
	for _, existing := range ss {
		if existing == s {
			return ss
		}
	}
	return append(ss, s)
}

// matchCondition evaluates a condition tree against ctx, dispatching
// composite operators recursively and leaf operators to field
// comparisons (§4.3).
func matchCondition(c policy.Condition, ctx *policy.Context) (bool, error) {
	switch c.Operator {
	case policy.OpAnd:
		for _, child := range c.Conditions {
			ok, err := matchCondition(child, ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case policy.OpOr:
		for _, child := range c.Conditions {
			ok, err := matchCondition(child, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case policy.OpNot:
		ok, err := matchCondition(c.Conditions[0], ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case policy.OpExists:
		_, ok := ctx.Get(c.Field)
		return ok, nil

	case policy.OpNotExists:
		_, ok := ctx.Get(c.Field)
		return !ok, nil

	default:
		actual, ok := ctx.Get(c.Field)
		if !ok {
			// A missing field never satisfies a comparison operator; it
			// is neither equal, greater, nor a match (§4.3 edge case).
			return false, nil
		}
		return matchLeaf(c.Operator, actual, *c.Value)
	}
}

// matchLeaf evaluates a single comparison operator between the field
// value actual and the condition's literal expected value.
func matchLeaf(op policy.Operator, actual, expected policy.Value) (bool, error) {
	switch op {
	case policy.OpEquals:
		return valuesEqual(actual, expected), nil
	case policy.OpNotEquals:
		return !valuesEqual(actual, expected), nil
	case policy.OpGreaterThan:
		return compareNumericOrString(actual, expected, func(c int) bool { return c > 0 })
	case policy.OpGreaterThanOrEquals:
		return compareNumericOrString(actual, expected, func(c int) bool { return c >= 0 })
	case policy.OpLessThan:
		return compareNumericOrString(actual, expected, func(c int) bool { return c < 0 })
	case policy.OpLessThanOrEquals:
		return compareNumericOrString(actual, expected, func(c int) bool { return c <= 0 })
	case policy.OpIn:
		return valueIn(actual, expected), nil
	case policy.OpNotIn:
		return !valueIn(actual, expected), nil
	case policy.OpContains:
		return valueContains(actual, expected), nil
	case policy.OpStartsWith:
		return stringPredicate(actual, expected, strings.HasPrefix)
	case policy.OpEndsWith:
		return stringPredicate(actual, expected, strings.HasSuffix)
	case policy.OpMatches:
		return matchesRegex(actual, expected)
	default:
		return false, &policy.Error{Kind: policy.KindEvaluation, Message: fmt.Sprintf("unsupported operator %q", op)}
	}
}

// valuesEqual implements Equals' numeric-promotion rule: an Integer and
// a Float compare as equal when within numericEpsilon; everything else
// falls back to Value's structural equality.
func valuesEqual(a, b policy.Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		af, _ := a.Float64()
		bf, _ := b.Float64()
		diff := af - bf
		if diff < 0 {
			diff = -diff
		}
		return diff <= numericEpsilon
	}
	return a.Equal(b)
}

// compareNumericOrString orders two values and reports whether the
// resulting three-way comparison (negative/zero/positive) satisfies
// pred. Numeric operands promote to float64; string operands compare
// lexically. A mismatched or otherwise unorderable pair (e.g. a string
// compared against a number) is not a "no match" — it is an evaluation
// error that aborts the call (§4.3 failure semantics), matching the
// original evaluator's compare_numeric, which errors rather than
// silently returning false for a non-numeric operand.
func compareNumericOrString(a, b policy.Value, pred func(int) bool) (bool, error) {
	if a.IsNumeric() && b.IsNumeric() {
		af, _ := a.Float64()
		bf, _ := b.Float64()
		switch {
		case af < bf:
			return pred(-1), nil
		case af > bf:
			return pred(1), nil
		default:
			return pred(0), nil
		}
	}
	as, aok := a.AsString()
	bs, bok := b.AsString()
	if aok && bok {
		return pred(strings.Compare(as, bs)), nil
	}
	return false, &policy.Error{
		Kind:    policy.KindEvaluation,
		Message: fmt.Sprintf("cannot order a %s against a %s: ordering operators require both operands numeric or both string", a.Kind(), b.Kind()),
	}
}

// valueIn reports whether needle equals one of haystack's elements when
// haystack is an Array, or equals haystack itself otherwise.
func valueIn(needle, haystack policy.Value) bool {
	items, ok := haystack.AsArray()
	if !ok {
		return valuesEqual(needle, haystack)
	}
	for _, item := range items {
		if valuesEqual(needle, item) {
			return true
		}
	}
	return false
}

// valueContains implements Contains. Per the resolved design decision
// (§9 of the originating spec), Contains against an Array field uses
// the same structural-equality membership test as In; Contains against
// a String field tests substring containment.
func valueContains(actual, expected policy.Value) bool {
	if items, ok := actual.AsArray(); ok {
		for _, item := range items {
			if valuesEqual(item, expected) {
				return true
			}
		}
		return false
	}
	as, aok := actual.AsString()
	es, eok := expected.AsString()
	if aok && eok {
		return strings.Contains(as, es)
	}
	return false
}

func stringPredicate(a, b policy.Value, pred func(s, prefix string) bool) (bool, error) {
	as, aok := a.AsString()
	bs, bok := b.AsString()
	if !aok || !bok {
		return false, nil
	}
	return pred(as, bs), nil
}

// matchesRegex compiles (or reuses) expected's string payload as a
// regular expression and reports whether it matches actual's string
// payload. A non-string operand on either side never matches.
func matchesRegex(actual, expected policy.Value) (bool, error) {
	as, aok := actual.AsString()
	pattern, pok := expected.AsString()
	if !aok || !pok {
		return false, nil
	}
	re, err := globalPatterns.compile(pattern)
	if err != nil {
		return false, &policy.Error{Kind: policy.KindExpression, Message: "invalid regular expression", Pattern: pattern, Err: err}
	}
	return re.MatchString(as), nil
}

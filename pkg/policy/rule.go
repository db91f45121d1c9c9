package policy

import "fmt"

// Rule pairs a Condition with an Action. Priority orders rules within a
// policy; higher values are evaluated first. Equal priorities preserve
// declaration order (the evaluator's sort is stable).
type Rule struct {
	ID          string
	Name        string
	Description string
	Condition   Condition
	Action      Action
	Enabled     bool
	Priority    int
}

// NewRule returns a Rule with Enabled defaulted to true.
func NewRule(id, name string, cond Condition, action Action) Rule {
	return Rule{ID: id, Name: name, Condition: cond, Action: action, Enabled: true}
}

// Validate checks the Rule's own invariants (§3: id and name non-empty)
// and recursively validates its Condition.
func (r Rule) Validate() error {
	if r.ID == "" {
		return &Error{Kind: KindValidation, Message: "rule id must not be empty"}
	}
	if r.Name == "" {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("rule %q: name must not be empty", r.ID), Rule: r.ID}
	}
	if err := r.Condition.Validate(); err != nil {
		if perr, ok := err.(*Error); ok {
			perr.Rule = r.ID
			return perr
		}
		return err
	}
	return nil
}

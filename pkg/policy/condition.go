package policy

import "fmt"

// Operator is the closed set of condition operators (§4.3). No other
// operator can be expressed: conditions are data, not user-supplied code.
type Operator string

// The enumerated operator set.
const (
	OpEquals              Operator = "Equals"
	OpNotEquals           Operator = "NotEquals"
	OpGreaterThan         Operator = "GreaterThan"
	OpGreaterThanOrEquals Operator = "GreaterThanOrEquals"
	OpLessThan            Operator = "LessThan"
	OpLessThanOrEquals    Operator = "LessThanOrEquals"
	OpIn                  Operator = "In"
	OpNotIn               Operator = "NotIn"
	OpContains            Operator = "Contains"
	OpStartsWith          Operator = "StartsWith"
	OpEndsWith            Operator = "EndsWith"
	OpMatches             Operator = "Matches"
	OpExists              Operator = "Exists"
	OpNotExists           Operator = "NotExists"
	OpAnd                 Operator = "And"
	OpOr                  Operator = "Or"
	OpNot                 Operator = "Not"
)

// Condition is a recursive boolean node. Composite operators (And, Or,
// Not) populate Conditions; leaf operators populate Field and, except
// for Exists/NotExists, Value.
type Condition struct {
	Operator   Operator
	Field      string
	Value      *Value
	Conditions []Condition
}

// Leaf returns a leaf comparison condition for the given operator, field,
// and literal value.
func Leaf(op Operator, field string, value Value) Condition {
	return Condition{Operator: op, Field: field, Value: &value}
}

// Presence returns an Exists or NotExists condition.
func Presence(op Operator, field string) Condition {
	return Condition{Operator: op, Field: field}
}

// And returns a composite And condition over the given children.
func And(children ...Condition) Condition {
	return Condition{Operator: OpAnd, Conditions: children}
}

// Or returns a composite Or condition over the given children.
func Or(children ...Condition) Condition {
	return Condition{Operator: OpOr, Conditions: children}
}

// Not returns a composite Not condition over a single child.
func Not(child Condition) Condition {
	return Condition{Operator: OpNot, Conditions: []Condition{child}}
}

// isComposite reports whether op combines child conditions rather than
// comparing a field.
func isComposite(op Operator) bool {
	switch op {
	case OpAnd, OpOr, OpNot:
		return true
	default:
		return false
	}
}

// isPresenceOnly reports whether op takes only a field, no value.
func isPresenceOnly(op Operator) bool {
	return op == OpExists || op == OpNotExists
}

// Validate runs a post-order traversal of the condition tree and fails
// with a Validation error the first time a structural invariant (§4.2)
// is violated. It does not evaluate anything; it is run once at load
// time, never per evaluation.
func (c Condition) Validate() error {
	return c.validate(0)
}

// maxConditionDepth bounds recursive Condition trees; depth comes from
// document structure, not runtime user input, so this is a sanity limit
// rather than a security control (§9 suggests 64).
const maxConditionDepth = 64

func (c Condition) validate(depth int) error {
	if depth > maxConditionDepth {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("condition nesting exceeds max depth %d", maxConditionDepth)}
	}

	if isComposite(c.Operator) {
		for i := range c.Conditions {
			if err := c.Conditions[i].validate(depth + 1); err != nil {
				return err
			}
		}
	}

	switch c.Operator {
	case OpAnd, OpOr:
		if len(c.Conditions) == 0 {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("operator %s requires at least one child condition", c.Operator)}
		}
	case OpNot:
		if len(c.Conditions) != 1 {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("operator %s requires exactly one child condition, got %d", c.Operator, len(c.Conditions))}
		}
	case OpExists, OpNotExists:
		if c.Field == "" {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("operator %s requires a field", c.Operator), Field: c.Field}
		}
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterThanOrEquals, OpLessThan, OpLessThanOrEquals,
		OpIn, OpNotIn, OpContains, OpStartsWith, OpEndsWith, OpMatches:
		if c.Field == "" {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("operator %s requires a field", c.Operator)}
		}
		if c.Value == nil {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("operator %s requires a value", c.Operator), Field: c.Field}
		}
	default:
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown operator %q", c.Operator)}
	}
	return nil
}

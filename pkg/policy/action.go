package policy

// DecisionKind is the closed set of outcomes a rule's Action (or the
// overall Evaluate call) can produce.
type DecisionKind string

// The four decision kinds.
const (
	DecisionAllow  DecisionKind = "Allow"
	DecisionDeny   DecisionKind = "Deny"
	DecisionWarn   DecisionKind = "Warn"
	DecisionModify DecisionKind = "Modify"
)

// Allowed reports whether kind permits the request to proceed
// (Allow/Warn/Modify) or blocks it (Deny).
func (k DecisionKind) Allowed() bool {
	return k != DecisionDeny
}

// ModificationKind is the closed set of field-patch instructions a
// Modify action can carry.
type ModificationKind string

// The five modification kinds.
const (
	ModSet      ModificationKind = "Set"
	ModRemove   ModificationKind = "Remove"
	ModAppend   ModificationKind = "Append"
	ModMask     ModificationKind = "Mask"
	ModTruncate ModificationKind = "Truncate"
)

// Modification is a single field-level patch instruction. Value is
// required for Set/Append and omitted for Remove/Mask/Truncate.
type Modification struct {
	Kind  ModificationKind
	Field string
	Value *Value
}

// Action is what a matching rule produces: a decision kind, an optional
// human-readable reason, an ordered list of modifications, and free-form
// metadata carried through to the resulting Decision.
type Action struct {
	Decision      DecisionKind
	Reason        string
	Modifications []Modification
	Metadata      map[string]Value
}

// NewAllowAction returns an Allow action.
func NewAllowAction() Action {
	return Action{Decision: DecisionAllow}
}

// NewDenyAction returns a Deny action with the given reason.
func NewDenyAction(reason string) Action {
	return Action{Decision: DecisionDeny, Reason: reason}
}

// NewWarnAction returns a Warn action with the given reason.
func NewWarnAction(reason string) Action {
	return Action{Decision: DecisionWarn, Reason: reason}
}

// NewModifyAction returns a Modify action carrying the given modifications.
func NewModifyAction(mods ...Modification) Action {
	return Action{Decision: DecisionModify, Modifications: mods}
}

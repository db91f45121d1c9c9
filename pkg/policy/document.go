package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultAPIVersion and defaultKind are applied when PolicyDocument's
// corresponding wire fields are absent (§6.1).
const (
	defaultAPIVersion = "policy.llm-dev-ops.io/v1"
	defaultKind       = "PolicyDocument"
)

// PolicyDocument is the top-level container serialized to and from
// YAML or JSON (§3, §6.1).
type PolicyDocument struct {
	APIVersion string
	Kind       string
	Policies   []Policy
}

// NewPolicyDocument returns a PolicyDocument with the default
// apiVersion/kind and the given policies.
func NewPolicyDocument(policies ...Policy) *PolicyDocument {
	return &PolicyDocument{APIVersion: defaultAPIVersion, Kind: defaultKind, Policies: policies}
}

// Validate checks policy-id uniqueness and every policy's own
// invariants. apiVersion and kind are not checked.
func (d *PolicyDocument) Validate() error {
	seen := make(map[string]bool, len(d.Policies))
	for _, p := range d.Policies {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("duplicate policy id %q", p.ID), Policy: p.ID}
		}
		seen[p.ID] = true
	}
	return nil
}

// FromYAML parses a PolicyDocument from a YAML string.
func FromYAML(s string) (*PolicyDocument, error) {
	var w documentWire
	if err := yaml.Unmarshal([]byte(s), &w); err != nil {
		return nil, &Error{Kind: KindParse, Message: "invalid YAML policy document", Err: err}
	}
	return w.toDomain()
}

// FromJSON parses a PolicyDocument from a JSON string.
func FromJSON(s string) (*PolicyDocument, error) {
	var w documentWire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, &Error{Kind: KindParse, Message: "invalid JSON policy document", Err: err}
	}
	return w.toDomain()
}

// FromFile loads a PolicyDocument from disk. The extension selects the
// parser: .yaml/.yml use YAML; .json uses JSON; anything else tries
// YAML first, then JSON (§6.1).
func FromFile(path string) (*PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindIo, Message: fmt.Sprintf("read policy document %s", path), Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(string(data))
	case ".json":
		return FromJSON(string(data))
	default:
		if doc, err := FromYAML(string(data)); err == nil {
			return doc, nil
		}
		return FromJSON(string(data))
	}
}

// ToYAML serializes the document to YAML.
func (d *PolicyDocument) ToYAML() (string, error) {
	out, err := yaml.Marshal(d.toWire())
	if err != nil {
		return "", &Error{Kind: KindSerialization, Message: "marshal policy document to YAML", Err: err}
	}
	return string(out), nil
}

// ToJSON serializes the document to JSON.
func (d *PolicyDocument) ToJSON() (string, error) {
	out, err := json.MarshalIndent(d.toWire(), "", "  ")
	if err != nil {
		return "", &Error{Kind: KindSerialization, Message: "marshal policy document to JSON", Err: err}
	}
	return string(out), nil
}

// --- wire DTOs: a bidirectional shape decoupled from the domain types so
// that operator aliasing, defaulting, and Value<->any conversion happen
// in one place (§6.1, §6.2). ---

type documentWire struct {
	APIVersion string        `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	Kind       string        `yaml:"kind,omitempty" json:"kind,omitempty"`
	Policies   []policyWire  `yaml:"policies,omitempty" json:"policies,omitempty"`
}

type policyWire struct {
	ID       string       `yaml:"id" json:"id"`
	Metadata metadataWire `yaml:"metadata" json:"metadata"`
	Enabled  *bool        `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Priority int          `yaml:"priority,omitempty" json:"priority,omitempty"`
	Rules    []ruleWire   `yaml:"rules,omitempty" json:"rules,omitempty"`
}

type metadataWire struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string            `yaml:"version,omitempty" json:"version,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Tags        []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   *time.Time        `yaml:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   *time.Time        `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

type ruleWire struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     *bool         `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Priority    int           `yaml:"priority,omitempty" json:"priority,omitempty"`
	Condition   conditionWire `yaml:"condition" json:"condition"`
	Action      actionWire    `yaml:"action" json:"action"`
}

type conditionWire struct {
	Operator   string          `yaml:"operator" json:"operator"`
	Field      string          `yaml:"field,omitempty" json:"field,omitempty"`
	Value      any             `yaml:"value,omitempty" json:"value,omitempty"`
	Conditions []conditionWire `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

type actionWire struct {
	Type          string             `yaml:"type,omitempty" json:"type,omitempty"`
	Decision      string             `yaml:"decision" json:"decision"`
	Reason        string             `yaml:"reason,omitempty" json:"reason,omitempty"`
	Modifications []modificationWire `yaml:"modifications,omitempty" json:"modifications,omitempty"`
	Metadata      map[string]any     `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

type modificationWire struct {
	Type  string `yaml:"type" json:"type"`
	Field string `yaml:"field" json:"field"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func (d *PolicyDocument) toWire() documentWire {
	w := documentWire{APIVersion: d.APIVersion, Kind: d.Kind}
	for _, p := range d.Policies {
		w.Policies = append(w.Policies, policyToWire(p))
	}
	return w
}

func policyToWire(p Policy) policyWire {
	pw := policyWire{
		ID: p.ID,
		Metadata: metadataWire{
			Name:        p.Metadata.Name,
			Description: p.Metadata.Description,
			Version:     p.Metadata.Version,
			Namespace:   p.Metadata.Namespace,
			Tags:        p.Metadata.Tags,
			CreatedAt:   p.Metadata.CreatedAt,
			UpdatedAt:   p.Metadata.UpdatedAt,
			Labels:      p.Metadata.Labels,
		},
		Enabled:  boolPtr(p.Enabled),
		Priority: p.Priority,
	}
	for _, r := range p.Rules {
		pw.Rules = append(pw.Rules, ruleToWire(r))
	}
	return pw
}

func ruleToWire(r Rule) ruleWire {
	return ruleWire{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Enabled:     boolPtr(r.Enabled),
		Priority:    r.Priority,
		Condition:   conditionToWire(r.Condition),
		Action:      actionToWire(r.Action),
	}
}

func conditionToWire(c Condition) conditionWire {
	// Emit the SCREAMING_SNAKE wire spelling (NotExists -> NOT_EXISTS) so
	// that normalizeOperator accepts it on the way back in.
	var op strings.Builder
	for i, r := range string(c.Operator) {
		if i > 0 && r >= 'A' && r <= 'Z' {
			op.WriteByte('_')
		}
		op.WriteRune(r)
	}
	cw := conditionWire{Operator: strings.ToUpper(op.String()), Field: c.Field}
	if c.Value != nil {
		cw.Value = c.Value.ToAny()
	}
	for _, child := range c.Conditions {
		cw.Conditions = append(cw.Conditions, conditionToWire(child))
	}
	return cw
}

func actionToWire(a Action) actionWire {
	aw := actionWire{Decision: strings.ToLower(string(a.Decision)), Reason: a.Reason}
	for _, m := range a.Modifications {
		mw := modificationWire{Type: strings.ToLower(string(m.Kind)), Field: m.Field}
		if m.Value != nil {
			mw.Value = m.Value.ToAny()
		}
		aw.Modifications = append(aw.Modifications, mw)
	}
	if len(a.Metadata) > 0 {
		aw.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			aw.Metadata[k] = v.ToAny()
		}
	}
	return aw
}

func (w documentWire) toDomain() (*PolicyDocument, error) {
	d := &PolicyDocument{APIVersion: w.APIVersion, Kind: w.Kind}
	if d.APIVersion == "" {
		d.APIVersion = defaultAPIVersion
	}
	if d.Kind == "" {
		d.Kind = defaultKind
	}
	for _, pw := range w.Policies {
		p, err := pw.toDomain()
		if err != nil {
			return nil, err
		}
		d.Policies = append(d.Policies, p)
	}
	return d, nil
}

func (pw policyWire) toDomain() (Policy, error) {
	p := Policy{
		ID: pw.ID,
		Metadata: Metadata{
			Name:        pw.Metadata.Name,
			Description: pw.Metadata.Description,
			Version:     pw.Metadata.Version,
			Namespace:   pw.Metadata.Namespace,
			Tags:        pw.Metadata.Tags,
			CreatedAt:   pw.Metadata.CreatedAt,
			UpdatedAt:   pw.Metadata.UpdatedAt,
			Labels:      pw.Metadata.Labels,
		},
		Enabled:  pw.Enabled == nil || *pw.Enabled,
		Priority: pw.Priority,
	}
	if p.Metadata.Version == "" {
		p.Metadata.Version = defaultVersion
	}
	for _, rw := range pw.Rules {
		r, err := rw.toDomain()
		if err != nil {
			return Policy{}, err
		}
		p.Rules = append(p.Rules, r)
	}
	return p, nil
}

func (rw ruleWire) toDomain() (Rule, error) {
	cond, err := rw.Condition.toDomain()
	if err != nil {
		return Rule{}, err
	}
	action, err := rw.Action.toDomain()
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		ID:          rw.ID,
		Name:        rw.Name,
		Description: rw.Description,
		Enabled:     rw.Enabled == nil || *rw.Enabled,
		Priority:    rw.Priority,
		Condition:   cond,
		Action:      action,
	}, nil
}

func (cw conditionWire) toDomain() (Condition, error) {
	op, err := normalizeOperator(cw.Operator)
	if err != nil {
		return Condition{}, err
	}
	c := Condition{Operator: op, Field: cw.Field}
	if cw.Value != nil {
		v, err := ValueFromAny(cw.Value)
		if err != nil {
			return Condition{}, &Error{Kind: KindParse, Message: "condition value", Err: err}
		}
		c.Value = &v
	}
	for _, childWire := range cw.Conditions {
		child, err := childWire.toDomain()
		if err != nil {
			return Condition{}, err
		}
		c.Conditions = append(c.Conditions, child)
	}
	return c, nil
}

func (aw actionWire) toDomain() (Action, error) {
	decision, err := normalizeDecisionKind(aw.Decision)
	if err != nil {
		return Action{}, err
	}
	a := Action{Decision: decision, Reason: aw.Reason}
	for _, mw := range aw.Modifications {
		m, err := mw.toDomain()
		if err != nil {
			return Action{}, err
		}
		a.Modifications = append(a.Modifications, m)
	}
	if len(aw.Metadata) > 0 {
		a.Metadata = make(map[string]Value, len(aw.Metadata))
		for k, raw := range aw.Metadata {
			v, err := ValueFromAny(raw)
			if err != nil {
				return Action{}, &Error{Kind: KindParse, Message: fmt.Sprintf("action metadata %q", k), Err: err}
			}
			a.Metadata[k] = v
		}
	}
	return a, nil
}

func (mw modificationWire) toDomain() (Modification, error) {
	kind, err := normalizeModificationKind(mw.Type)
	if err != nil {
		return Modification{}, err
	}
	m := Modification{Kind: kind, Field: mw.Field}
	if mw.Value != nil {
		v, err := ValueFromAny(mw.Value)
		if err != nil {
			return Modification{}, &Error{Kind: KindParse, Message: fmt.Sprintf("modification value for field %q", mw.Field), Err: err}
		}
		m.Value = &v
	}
	return m, nil
}

// normalizeOperator accepts SCREAMING_SNAKE or snake_case wire spellings
// (§6.1: "implementations must accept EQUALS, GREATER_THAN, IN, AND,
// NOT, etc.") and maps them onto the closed Operator set.
func normalizeOperator(raw string) (Operator, error) {
	switch strings.ToUpper(raw) {
	case "EQUALS":
		return OpEquals, nil
	case "NOT_EQUALS":
		return OpNotEquals, nil
	case "GREATER_THAN":
		return OpGreaterThan, nil
	case "GREATER_THAN_OR_EQUALS":
		return OpGreaterThanOrEquals, nil
	case "LESS_THAN":
		return OpLessThan, nil
	case "LESS_THAN_OR_EQUALS":
		return OpLessThanOrEquals, nil
	case "IN":
		return OpIn, nil
	case "NOT_IN":
		return OpNotIn, nil
	case "CONTAINS":
		return OpContains, nil
	case "STARTS_WITH":
		return OpStartsWith, nil
	case "ENDS_WITH":
		return OpEndsWith, nil
	case "MATCHES":
		return OpMatches, nil
	case "EXISTS":
		return OpExists, nil
	case "NOT_EXISTS":
		return OpNotExists, nil
	case "AND":
		return OpAnd, nil
	case "OR":
		return OpOr, nil
	case "NOT":
		return OpNot, nil
	default:
		return "", &Error{Kind: KindParse, Message: fmt.Sprintf("unknown condition operator %q", raw)}
	}
}

// normalizeDecisionKind accepts the lowercase wire spellings from §6.1.
// "log" and "rate_limit" are legacy wire action types outside the core
// four-kind set; they are not valid values for the "decision" field and
// are rejected here rather than silently coerced.
func normalizeDecisionKind(raw string) (DecisionKind, error) {
	switch strings.ToLower(raw) {
	case "allow":
		return DecisionAllow, nil
	case "deny":
		return DecisionDeny, nil
	case "warn":
		return DecisionWarn, nil
	case "modify":
		return DecisionModify, nil
	default:
		return "", &Error{Kind: KindParse, Message: fmt.Sprintf("unknown action decision %q", raw)}
	}
}

func normalizeModificationKind(raw string) (ModificationKind, error) {
	switch strings.ToLower(raw) {
	case "set":
		return ModSet, nil
	case "remove":
		return ModRemove, nil
	case "append":
		return ModAppend, nil
	case "mask":
		return ModMask, nil
	case "truncate":
		return ModTruncate, nil
	default:
		return "", &Error{Kind: KindParse, Message: fmt.Sprintf("unknown modification type %q", raw)}
	}
}

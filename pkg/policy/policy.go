package policy

import (
	"fmt"
	"time"
)

// Metadata describes a Policy: its name, documentation, version, and
// organizational tags.
type Metadata struct {
	Name        string
	Description string
	Version     string
	Namespace   string
	Tags        []string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	Labels      map[string]string
}

// defaultVersion is applied when Metadata.Version is left empty (§3).
const defaultVersion = "1.0.0"

// Policy is a named, versioned, priority-ranked collection of rules.
type Policy struct {
	ID       string
	Metadata Metadata
	Rules    []Rule
	Enabled  bool
	Priority int
}

// NewPolicy returns a Policy with Enabled defaulted to true and
// Metadata.Version defaulted when left empty.
func NewPolicy(id string, metadata Metadata, rules ...Rule) Policy {
	if metadata.Version == "" {
		metadata.Version = defaultVersion
	}
	return Policy{ID: id, Metadata: metadata, Rules: rules, Enabled: true}
}

// Validate checks the Policy's own invariants (§3: id and metadata.name
// non-empty) and validates every rule.
func (p Policy) Validate() error {
	if p.ID == "" {
		return &Error{Kind: KindValidation, Message: "policy id must not be empty"}
	}
	if p.Metadata.Name == "" {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("policy %q: metadata.name must not be empty", p.ID), Policy: p.ID}
	}
	for i := range p.Rules {
		if err := p.Rules[i].Validate(); err != nil {
			if perr, ok := err.(*Error); ok {
				perr.Policy = p.ID
				return perr
			}
			return err
		}
	}
	return nil
}

// EnabledSortedRules returns a copy of p.Rules, filtered to enabled
// rules and stable-sorted by Priority descending. Equal priorities
// preserve original declaration order.
func (p Policy) EnabledSortedRules() []Rule {
	return sortRulesByPriority(p.Rules, true)
}

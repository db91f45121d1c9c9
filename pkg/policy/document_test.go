package policy

import "testing"

const sampleYAML = `
apiVersion: policy.llm-dev-ops.io/v1
kind: PolicyDocument
policies:
  - id: block-experimental
    metadata:
      name: Block experimental models
    priority: 100
    rules:
      - id: r1
        name: deny-experimental
        priority: 10
        condition:
          operator: EQUALS
          field: llm.model
          value: gpt-experimental
        action:
          decision: deny
          reason: experimental models are not allowed
`

func TestFromYAMLParsesDocument(t *testing.T) {
	doc, err := FromYAML(sampleYAML)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if len(doc.Policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(doc.Policies))
	}
	p := doc.Policies[0]
	if p.ID != "block-experimental" || p.Priority != 100 {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if len(p.Rules) != 1 || p.Rules[0].Condition.Operator != OpEquals {
		t.Fatalf("unexpected rule: %+v", p.Rules)
	}
	if p.Rules[0].Action.Decision != DecisionDeny {
		t.Fatalf("expected deny decision, got %v", p.Rules[0].Action.Decision)
	}
}

func TestFromYAMLDefaultsAPIVersionAndKind(t *testing.T) {
	doc, err := FromYAML(`policies: []`)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if doc.APIVersion != defaultAPIVersion || doc.Kind != defaultKind {
		t.Fatalf("expected defaulted apiVersion/kind, got %q/%q", doc.APIVersion, doc.Kind)
	}
}

func TestFromYAMLRejectsUnknownOperator(t *testing.T) {
	_, err := FromYAML(`
policies:
  - id: p1
    metadata: {name: n}
    rules:
      - id: r1
        name: n
        condition: {operator: BOGUS, field: a, value: b}
        action: {decision: allow}
`)
	if err == nil {
		t.Fatalf("expected an error for an unknown operator")
	}
}

func TestDocumentRoundTripYAML(t *testing.T) {
	original := NewPolicyDocument(
		NewPolicy("p1", Metadata{Name: "n"},
			NewRule("r1", "n", Leaf(OpIn, "user.roles", Array(String("admin"), String("owner"))), NewAllowAction()),
		),
	)

	yamlText, err := original.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	roundTripped, err := FromYAML(yamlText)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if len(roundTripped.Policies) != 1 || roundTripped.Policies[0].ID != "p1" {
		t.Fatalf("unexpected round trip result: %+v", roundTripped)
	}
	items, ok := roundTripped.Policies[0].Rules[0].Condition.Value.AsArray()
	if !ok || len(items) != 2 {
		t.Fatalf("expected the In condition's array value to survive the round trip, got %+v", roundTripped.Policies[0].Rules[0].Condition.Value)
	}
}

func TestDocumentRoundTripJSON(t *testing.T) {
	original := NewPolicyDocument(
		NewPolicy("p1", Metadata{Name: "n"},
			NewRule("r1", "n", Presence(OpNotExists, "team.id"), NewWarnAction("no team assigned")),
		),
	)
	jsonText, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	roundTripped, err := FromJSON(jsonText)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if roundTripped.Policies[0].Rules[0].Condition.Operator != OpNotExists {
		t.Fatalf("unexpected operator after JSON round trip: %+v", roundTripped.Policies[0].Rules[0].Condition)
	}
}

func TestDocumentValidateRejectsDuplicateIDs(t *testing.T) {
	doc := NewPolicyDocument(
		NewPolicy("p1", Metadata{Name: "a"}),
		NewPolicy("p1", Metadata{Name: "b"}),
	)
	expectValidationErr(t, doc.Validate())
}

func TestNormalizeOperatorAcceptsSnakeAndScreamingCase(t *testing.T) {
	for _, raw := range []string{"greater_than", "GREATER_THAN", "Greater_Than"} {
		op, err := normalizeOperator(raw)
		if err != nil {
			t.Fatalf("normalizeOperator(%q): %v", raw, err)
		}
		if op != OpGreaterThan {
			t.Fatalf("normalizeOperator(%q) = %v, want %v", raw, op, OpGreaterThan)
		}
	}
}

package policy

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestContextGetDottedPath(t *testing.T) {
	ctx := NewContext().
		WithLLM(LLMContext{Provider: "openai", MaxTokens: 256}).
		WithUser(UserContext{ID: "u1", Roles: []string{"admin"}})

	v, ok := ctx.Get("llm.provider")
	if !ok {
		t.Fatalf("expected llm.provider to resolve")
	}
	if s, _ := v.AsString(); s != "openai" {
		t.Fatalf("expected provider openai, got %q", s)
	}

	if _, ok := ctx.Get("team.id"); ok {
		t.Fatalf("expected team.id to be absent when Team is nil")
	}
}

func TestContextGetCamelAndSnakeCaseAliasing(t *testing.T) {
	ctx := NewContext().WithLLM(LLMContext{MaxTokens: 512})

	camel, ok := ctx.Get("llm.maxTokens")
	if !ok {
		t.Fatalf("expected llm.maxTokens to resolve")
	}
	snake, ok := ctx.Get("llm.max_tokens")
	if !ok {
		t.Fatalf("expected llm.max_tokens to resolve")
	}
	if !camel.Equal(snake) {
		t.Fatalf("expected camelCase and snake_case aliases to resolve to the same value")
	}
}

func TestContextGetMetadata(t *testing.T) {
	ctx := NewContext().WithMetadata("tenant", String("acme"))
	v, ok := ctx.Get("metadata.tenant")
	if !ok {
		t.Fatalf("expected metadata.tenant to resolve")
	}
	if s, _ := v.AsString(); s != "acme" {
		t.Fatalf("expected tenant acme, got %q", s)
	}
}

func TestContextGetEmptyOrUnknownPath(t *testing.T) {
	ctx := NewContext()
	if _, ok := ctx.Get(""); ok {
		t.Fatalf("expected empty path to fail")
	}
	if _, ok := ctx.Get("bogus.field"); ok {
		t.Fatalf("expected unknown top-level segment to fail")
	}
	if _, ok := ctx.Get("llm"); ok {
		t.Fatalf("expected a path with no field segment to fail")
	}
}

func TestContextCanonicalSortsMetadataKeys(t *testing.T) {
	a := NewContext().WithMetadata("z", String("1")).WithMetadata("a", String("2"))
	view := a.Canonical()
	keys := make([]string, 0, len(view.Metadata))
	for k := range view.Metadata {
		keys = append(keys, k)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 metadata keys, got %d", len(keys))
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(data)
	if strings.Index(body, `"a"`) > strings.Index(body, `"z"`) {
		t.Fatalf("expected metadata keys in sorted order, got %s", body)
	}
}

func TestContextWithGeneratedRequestAssignsIDAndTimestamp(t *testing.T) {
	ctx := NewContext().WithGeneratedRequest("10.0.0.1", "test-agent")
	if ctx.Request == nil || ctx.Request.ID == "" {
		t.Fatalf("expected a generated request id, got %+v", ctx.Request)
	}
	if ctx.Request.Timestamp.IsZero() {
		t.Fatalf("expected a non-zero timestamp")
	}
	if ctx.Request.IPAddress != "10.0.0.1" || ctx.Request.UserAgent != "test-agent" {
		t.Fatalf("unexpected request fields: %+v", ctx.Request)
	}
}

func TestContextCanonicalOmitsNilSubRecords(t *testing.T) {
	ctx := NewContext()
	view := ctx.Canonical()
	if view.LLM != nil || view.User != nil || view.Team != nil || view.Project != nil || view.Request != nil {
		t.Fatalf("expected all sub-records to be nil in canonical view of an empty context")
	}
}

func TestContextCanonicalMarshalsCamelCaseFieldNames(t *testing.T) {
	ctx := NewContext().
		WithLLM(LLMContext{Model: "gpt-4", MaxTokens: 100}).
		WithUser(UserContext{ID: "u1"})

	data, err := json.Marshal(ctx.Canonical())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"maxTokens"`) {
		t.Fatalf("expected camelCase maxTokens field, got %s", body)
	}
	if strings.Contains(body, `"MaxTokens"`) || strings.Contains(body, `"Model"`) || strings.Contains(body, `"ID"`) {
		t.Fatalf("expected no capitalized Go field names in canonical JSON, got %s", body)
	}
}

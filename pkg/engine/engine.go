// Package engine ties the policy, evaluator, cache, and telemetry
// packages together into the concurrency-safe façade embedders use.
// Its snapshot/mutex split is grounded on the donor's PolicyService
// (internal/service/policy_service.go): a sync.RWMutex guards the
// authoritative policy map for writers, while readers take a lock-free
// atomic.Value snapshot on the hot Evaluate path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/llm-dev-ops/policy-engine/pkg/cache"
	"github.com/llm-dev-ops/policy-engine/pkg/evaluator"
	"github.com/llm-dev-ops/policy-engine/pkg/policy"
	"github.com/llm-dev-ops/policy-engine/pkg/telemetry"
)

// snapshot is the immutable value published via atomic.Value. Engine
// readers load it without taking mu.
type snapshot struct {
	policies []policy.Policy
	byID     map[string]policy.Policy
}

func emptySnapshot() *snapshot {
	return &snapshot{byID: make(map[string]policy.Policy)}
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCache attaches a Decision cache. Without this option, Evaluate
// always runs the evaluator and never caches results.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithCollector attaches a Prometheus collector backing Metrics().
func WithCollector(collector *telemetry.Collector) Option {
	return func(e *Engine) { e.collector = collector }
}

// WithTracerProvider attaches an OpenTelemetry tracer provider; every
// Evaluate call then stamps the resulting Decision's Trace field. The
// default is the no-op provider, so tracing is off unless configured.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = telemetry.NewTracer(provider)
		e.tracingEnabled = true
	}
}

// WithLogger attaches a structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is the concurrency-safe entry point embedders call Evaluate
// against. The zero value is not usable; construct with New.
type Engine struct {
	mu             sync.RWMutex
	snap           atomic.Value // *snapshot
	cache          *cache.Cache
	collector      *telemetry.Collector
	tracer         *telemetry.Tracer
	tracingEnabled bool
	logger         *slog.Logger
}

// New returns an Engine with no policies loaded. Tracing is off by
// default: the tracer is a no-op provider so StartEvaluation is always
// safe to call, but Decision.Trace is only populated once
// WithTracerProvider supplies a real provider.
func New(opts ...Option) *Engine {
	e := &Engine{
		tracer: telemetry.NewTracer(noop.NewTracerProvider()),
		logger: slog.Default(),
	}
	e.snap.Store(emptySnapshot())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) loadSnapshot() *snapshot {
	return e.snap.Load().(*snapshot)
}

// Evaluate runs ctx through every loaded policy, honoring the cache
// when one is configured, and records telemetry when configured.
func (e *Engine) Evaluate(goCtx context.Context, ctx *policy.Context) (policy.Decision, error) {
	start := time.Now()

	var span trace.Span
	var tr *telemetry.Trace
	if e.tracingEnabled {
		_, span, tr = e.tracer.StartEvaluation(goCtx)
		defer span.End()
	}

	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx)
		switch {
		case err != nil:
			e.logger.Warn("decision cache get failed, evaluating without cache", "error", err)
		case ok:
			e.collector.RecordCacheHit()
			cached.EvaluationTimeMs = float64(time.Since(start).Microseconds()) / 1000
			if tr != nil {
				cached.Trace = &telemetry.Trace{TraceID: tr.TraceID, SpanID: tr.SpanID, StartedAt: tr.StartedAt, Cached: true}
			}
			e.collector.RecordDecision(string(cached.Decision), time.Since(start).Seconds())
			return cached, nil
		default:
			e.collector.RecordCacheMiss()
		}
	}

	snap := e.loadSnapshot()
	decision, err := evaluator.Evaluate(snap.policies, ctx)
	if err != nil {
		return policy.Decision{}, err
	}
	decision.EvaluationTimeMs = float64(time.Since(start).Microseconds()) / 1000
	decision.Trace = tr

	if e.cache != nil {
		// Cache is recoverable (KindCache): a failed write must not fail
		// the call, since the decision itself was computed correctly.
		if err := e.cache.Put(ctx, decision); err != nil {
			e.logger.Warn("decision cache put failed, continuing without caching", "error", err)
		}
	}
	e.collector.RecordDecision(string(decision.Decision), time.Since(start).Seconds())
	return decision, nil
}

// LoadDocument validates and loads every policy in doc, returning the
// loaded policy ids. Loading clears the cache (§4.5): a document load
// may add, replace, or remove rules, and any previously cached Decision
// could now be stale.
func (e *Engine) LoadDocument(doc *policy.PolicyDocument) ([]string, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.loadSnapshot()
	next := &snapshot{byID: make(map[string]policy.Policy, len(cur.byID)+len(doc.Policies))}
	for id, p := range cur.byID {
		next.byID[id] = p
	}
	ids := make([]string, 0, len(doc.Policies))
	for _, p := range doc.Policies {
		next.byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	next.policies = policiesFromMap(next.byID)

	e.publish(next)
	return ids, nil
}

// LoadPolicy validates and loads a single policy, replacing any prior
// policy with the same id. Clears the cache.
func (e *Engine) LoadPolicy(p policy.Policy) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.loadSnapshot()
	next := &snapshot{byID: make(map[string]policy.Policy, len(cur.byID)+1)}
	for id, existing := range cur.byID {
		next.byID[id] = existing
	}
	next.byID[p.ID] = p
	next.policies = policiesFromMap(next.byID)

	e.publish(next)
	return p.ID, nil
}

// UnloadPolicy removes the policy with the given id, if present.
// Clears the cache.
func (e *Engine) UnloadPolicy(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.loadSnapshot()
	if _, ok := cur.byID[id]; !ok {
		return &policy.Error{Kind: policy.KindValidation, Message: fmt.Sprintf("policy %q is not loaded", id), Policy: id}
	}

	next := &snapshot{byID: make(map[string]policy.Policy, len(cur.byID)-1)}
	for existingID, existing := range cur.byID {
		if existingID == id {
			continue
		}
		next.byID[existingID] = existing
	}
	next.policies = policiesFromMap(next.byID)

	e.publish(next)
	return nil
}

// publish stores next, clears the cache, and sets the policy-count gauge
// to the new policy count. Must be called with mu held.
func (e *Engine) publish(next *snapshot) {
	e.snap.Store(next)
	cacheCleared := false
	if e.cache != nil {
		e.cache.Clear()
		cacheCleared = true
	}
	e.collector.SetPolicyCount(len(next.policies))
	e.logger.Info("policy engine reloaded",
		"policies", len(next.policies),
		"cache_cleared", cacheCleared,
	)
}

// GetPolicy returns the loaded policy with the given id.
func (e *Engine) GetPolicy(id string) (policy.Policy, bool) {
	snap := e.loadSnapshot()
	p, ok := snap.byID[id]
	return p, ok
}

// ListPolicies returns every loaded policy, priority-sorted.
func (e *Engine) ListPolicies() []policy.Policy {
	snap := e.loadSnapshot()
	return policy.SortPoliciesByPriority(snap.policies, false)
}

// PolicyCount returns the number of loaded policies.
func (e *Engine) PolicyCount() int {
	return len(e.loadSnapshot().policies)
}

// CacheStats returns the Decision cache's current statistics, or the
// zero value if no cache is configured.
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

// Metrics returns the Prometheus collector attached with WithCollector,
// or nil when none was attached.
func (e *Engine) Metrics() *telemetry.Collector {
	return e.collector
}

// ClearCache empties the Decision cache, if one is configured.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

func policiesFromMap(m map[string]policy.Policy) []policy.Policy {
	out := make([]policy.Policy, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

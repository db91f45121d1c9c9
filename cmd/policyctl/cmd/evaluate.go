package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llm-dev-ops/policy-engine/pkg/engine"
	"github.com/llm-dev-ops/policy-engine/pkg/policy"
	"github.com/llm-dev-ops/policy-engine/pkg/sqlitestore"
	"github.com/llm-dev-ops/policy-engine/pkg/telemetry"
)

var (
	evaluateDBPath     string
	evaluatePolicyPath string
	evaluateCtxPath    string
	evaluateTrace      bool
)

func init() {
	evaluateCmd.Flags().StringVar(&evaluateDBPath, "db", "", "path to a sqlite policy store")
	evaluateCmd.Flags().StringVar(&evaluatePolicyPath, "policies", "", "path to a policy document (YAML or JSON)")
	evaluateCmd.Flags().StringVar(&evaluateCtxPath, "context", "", "path to a JSON-encoded context object")
	evaluateCmd.Flags().BoolVar(&evaluateTrace, "trace", false, "print an OpenTelemetry span for the evaluation to stderr")
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a context against a stored or in-line policy document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evaluateDBPath == "" && evaluatePolicyPath == "" {
			return fmt.Errorf("evaluate: one of --db or --policies is required")
		}
		if evaluateCtxPath == "" {
			return fmt.Errorf("evaluate: --context is required")
		}

		goCtx := context.Background()

		var opts []engine.Option
		if evaluateTrace {
			provider, err := telemetry.NewStdoutTracerProvider(os.Stderr)
			if err != nil {
				return fmt.Errorf("start tracer: %w", err)
			}
			defer telemetry.ShutdownTracerProvider(goCtx, provider)
			opts = append(opts, engine.WithTracerProvider(provider))
		}
		e := engine.New(opts...)

		if evaluatePolicyPath != "" {
			doc, err := policy.FromFile(evaluatePolicyPath)
			if err != nil {
				return err
			}
			if _, err := e.LoadDocument(doc); err != nil {
				return err
			}
		}
		if evaluateDBPath != "" {
			store, err := sqlitestore.Open(evaluateDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.ToDocument(goCtx)
			if err != nil {
				return err
			}
			if _, err := e.LoadDocument(doc); err != nil {
				return err
			}
		}

		ctx, err := loadContext(evaluateCtxPath)
		if err != nil {
			return err
		}

		decision, err := e.Evaluate(goCtx, ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(decisionView{
			Decision:         string(decision.Decision),
			Allowed:          decision.Allowed,
			Reason:           decision.Reason,
			MatchedPolicies:  decision.MatchedPolicies,
			MatchedRules:     decision.MatchedRules,
			EvaluationTimeMs: decision.EvaluationTimeMs,
		})
	},
}

// decisionView is the CLI's plain JSON rendering of a Decision; it
// drops the internal Value-typed Modifications/Metadata maps in favor
// of the fields a human operator cares about at the terminal.
type decisionView struct {
	Decision         string   `json:"decision"`
	Allowed          bool     `json:"allowed"`
	Reason           string   `json:"reason,omitempty"`
	MatchedPolicies  []string `json:"matchedPolicies,omitempty"`
	MatchedRules     []string `json:"matchedRules,omitempty"`
	EvaluationTimeMs float64  `json:"evaluationTimeMs"`
}

// contextWire is the JSON shape accepted by --context, mirroring the
// policy.Context sub-records by name.
type contextWire struct {
	LLM      *policy.LLMContext     `json:"llm,omitempty"`
	User     *policy.UserContext    `json:"user,omitempty"`
	Team     *policy.TeamContext    `json:"team,omitempty"`
	Project  *policy.ProjectContext `json:"project,omitempty"`
	Request  *policy.RequestContext `json:"request,omitempty"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}

func loadContext(path string) (*policy.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &policy.Error{Kind: policy.KindIo, Message: fmt.Sprintf("read context %s", path), Err: err}
	}

	var wire contextWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &policy.Error{Kind: policy.KindParse, Message: "invalid context JSON", Err: err}
	}

	ctx := policy.NewContext()
	if wire.LLM != nil {
		ctx.WithLLM(*wire.LLM)
	}
	if wire.User != nil {
		ctx.WithUser(*wire.User)
	}
	if wire.Team != nil {
		ctx.WithTeam(*wire.Team)
	}
	if wire.Project != nil {
		ctx.WithProject(*wire.Project)
	}
	if wire.Request != nil {
		ctx.WithRequest(*wire.Request)
	} else {
		ctx.WithGeneratedRequest("", "")
	}
	for k, raw := range wire.Metadata {
		v, err := policy.ValueFromAny(raw)
		if err != nil {
			return nil, &policy.Error{Kind: policy.KindParse, Message: fmt.Sprintf("context metadata %q", k), Err: err}
		}
		ctx.WithMetadata(k, v)
	}
	return ctx, nil
}

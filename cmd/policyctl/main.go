// Command policyctl is a thin CLI wrapper around the policy engine
// library: validate policy documents, load them into a sqlite-backed
// store, and evaluate a context against a loaded policy set. It has no
// evaluation logic of its own — every subcommand delegates to pkg/policy,
// pkg/engine, and pkg/sqlitestore.
package main

import "github.com/llm-dev-ops/policy-engine/cmd/policyctl/cmd"

func main() {
	cmd.Execute()
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check a policy document for structural errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := policy.FromFile(args[0])
		if err != nil {
			return err
		}
		if err := doc.Validate(); err != nil {
			return err
		}
		fmt.Printf("%s: %d polic%s valid\n", args[0], len(doc.Policies), plural(len(doc.Policies)))
		return nil
	},
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

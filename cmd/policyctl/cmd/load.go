package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
	"github.com/llm-dev-ops/policy-engine/pkg/sqlitestore"
)

var loadDBPath string

func init() {
	loadCmd.Flags().StringVar(&loadDBPath, "db", "policies.db", "path to the sqlite policy store")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load a policy document into a sqlite-backed store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := policy.FromFile(args[0])
		if err != nil {
			return err
		}
		if err := doc.Validate(); err != nil {
			return err
		}

		store, err := sqlitestore.Open(loadDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		for _, p := range doc.Policies {
			if err := store.SavePolicy(ctx, p); err != nil {
				return fmt.Errorf("save policy %q: %w", p.ID, err)
			}
		}

		fmt.Printf("loaded %d polic%s into %s\n", len(doc.Policies), plural(len(doc.Policies)), loadDBPath)
		return nil
	},
}

// Package cmd provides the CLI commands for policyctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "policyctl - policy decision engine CLI",
	Long: `policyctl loads, validates, and evaluates policy documents for the
LLM operations policy decision engine.

Commands:
  validate   Check a policy document for structural errors
  load       Load a policy document into a sqlite-backed store
  evaluate   Evaluate a context against a stored or in-line policy document`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./policyctl.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("policyctl")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("POLICY_ENGINE")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

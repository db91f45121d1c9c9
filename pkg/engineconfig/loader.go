package engineconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from path (if non-empty) plus any
// POLICY_ENGINE_-prefixed environment variables, applies defaults, and
// validates the result. cmd/policyctl does not call it; its root command
// reads its own config file through viper directly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POLICY_ENGINE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

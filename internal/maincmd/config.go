package maincmd

import "github.com/caarlos0/env/v6"

// envConfig holds the subset of Cmd's behavior that can also be set from
// the environment (ZEPHYR_* variables), for use in CI or container
// environments where passing flags through every invocation is awkward.
// It is only consulted when --env is passed, so a bare CLI invocation's
// behavior never depends on ambient environment state.
type envConfig struct {
	Verbose bool `env:"ZEPHYR_VERBOSE" envDefault:"false"`
}

func loadEnvConfig() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, err
	}
	return cfg, nil
}

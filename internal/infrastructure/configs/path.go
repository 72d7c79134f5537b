package configs

import (
	"flag"
	"os"

	"github.com/hearthlabs/hearth/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location: --config flag,
// then HEARTH_CONFIG, then well-known candidates. An empty result means
// run on defaults and env overrides only.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("HEARTH_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/hearth/config.yaml",
			"/app/config.yaml",
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}

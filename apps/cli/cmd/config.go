package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/env"
	"github.com/uv1406/harness/packages/logging"
)

// loadConfig resolves configuration from, lowest first: defaults, the YAML
// file, .env files and HARNESS_* variables, then flags.
func loadConfig() (*config.Config, error) {
	if _, err := env.LoadDefaults(".", env.Select(envFlag)); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	fileProps, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	overrides, err := flagProperties()
	if err != nil {
		return nil, err
	}

	props := fileProps.
		Merge(config.FromEnviron(os.Environ())).
		Merge(overrides)
	return config.Resolve(props, strings.ToLower(envFlag))
}

// flagProperties converts flags into config keys.
func flagProperties() (config.Properties, error) {
	props := config.Properties{}
	for _, kv := range setFlags {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, exitWith(ExitUsageError, fmt.Errorf("invalid --set %q, want key=value", kv))
		}
		props[strings.TrimSpace(key)] = value
	}
	if browserFlag != "" {
		props[config.KeyBrowser] = browserFlag
	}
	if verboseFlag > 1 {
		props[config.KeyLogLevel] = "debug"
	}
	return props, nil
}

// configFiles lists the files whose contents feed loadConfig.
func configFiles(cfg *config.Config) []string {
	var files []string
	if configFlag != "" {
		files = append(files, configFlag)
	} else if path := config.FindConfigFile("."); path != "" {
		files = append(files, path)
	} else {
		files = append(files, config.ConfigFilenames[0])
	}
	files = append(files, ".env", ".env."+cfg.Environment)
	return files
}

func newLogger(cfg *config.Config, quiet bool) *slog.Logger {
	level := logging.ParseLevel(cfg.LogLevel)
	if quiet && level < slog.LevelError {
		level = slog.LevelError
	}
	return logging.New(logging.Options{Level: level, NoColor: noColorFlag})
}

package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file and returns key-value pairs.
// Note: This does NOT export to OS environment. Use LoadAndExportDotEnv if you
// need ${VAR} syntax to work in config files loaded after the .env file.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file: %w", err)
	}
	return vars, nil
}

// LoadAndExportDotEnv parses a .env file, returns key-value pairs,
// and exports them to the OS environment for ${VAR} resolution.
// Variables are only exported if not already set in the OS environment.
func LoadAndExportDotEnv(path string) (map[string]string, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}

	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			_ = os.Setenv(k, v) // Error ignored: only fails for invalid key names
		}
	}

	return vars, nil
}

// LoadDefaults exports .env.<name> and then .env from dir. Missing files are
// skipped. The environment-specific file is read first so it wins.
func LoadDefaults(dir, name string) ([]string, error) {
	candidates := []string{".env"}
	if name != "" {
		candidates = []string{".env." + name, ".env"}
	}

	var loaded []string
	for _, c := range candidates {
		path := filepath.Join(dir, c)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if _, err := LoadAndExportDotEnv(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

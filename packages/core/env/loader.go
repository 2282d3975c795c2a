package env

import (
	"os"
	"strings"
)

// Default is used when no environment is named anywhere.
const Default = "qa"

// VarName is the process variable consulted for the environment name.
const VarName = "HARNESS_ENVIRONMENT"

// Select picks the environment name: an explicit value wins, then the
// HARNESS_ENVIRONMENT variable, then Default. Names are lower-cased so
// QA and qa select the same api.*.qa keys.
func Select(explicit string) string {
	for _, candidate := range []string{explicit, os.Getenv(VarName)} {
		if v := strings.TrimSpace(candidate); v != "" {
			return strings.ToLower(v)
		}
	}
	return Default
}

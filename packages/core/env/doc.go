// Package env loads dotenv files and selects the target environment.
//
// Values from .env files are exported to the process environment without
// overriding anything already set, so HARNESS_* overrides and ${VAR}
// references in config files see them.
package env

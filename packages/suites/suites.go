package suites

import (
	"context"
	"fmt"
	"sort"

	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
)

// Suite builds its tests from the resolved configuration.
type Suite struct {
	Name        string
	Description string
	Build       func(ctx context.Context, cfg *config.Config) ([]runner.Test, error)
}

var suites = map[string]Suite{
	"ui": {
		Name:        "ui",
		Description: "text box form and check box pages",
		Build:       UI,
	},
	"api": {
		Name:        "api",
		Description: "user registration, update and fetch",
		Build:       API,
	},
}

// Names lists the bundled suites in order.
func Names() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Suite, error) {
	s, ok := suites[name]
	if !ok {
		return Suite{}, fmt.Errorf("unknown suite %q (available: %v)", name, Names())
	}
	return s, nil
}

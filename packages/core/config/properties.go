package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override properties.
// HARNESS_RUN_MODE overrides run.mode.
const EnvPrefix = "HARNESS_"

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"harness.yaml",
	"harness.yml",
	".harness.yaml",
	".harness.yml",
}

// Properties is a flat set of dotted configuration keys.
type Properties map[string]string

// Get returns the raw value for key.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the value for key or def when unset or blank.
func (p Properties) String(key, def string) string {
	if v, ok := p[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool parses key as a boolean.
func (p Properties) Bool(key string, def bool) (bool, error) {
	v := p.String(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, invalid(key, v, "not a boolean")
	}
	return b, nil
}

// Int parses key as an integer.
func (p Properties) Int(key string, def int) (int, error) {
	v := p.String(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, invalid(key, v, "not an integer")
	}
	return n, nil
}

// WithPrefix returns the keys under prefix with the prefix stripped.
func (p Properties) WithPrefix(prefix string) Properties {
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	out := Properties{}
	for k, v := range p {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out[rest] = v
		}
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge merges other into a copy of p, with other taking precedence.
// Blank values in other do not override.
func (p Properties) Merge(other Properties) Properties {
	result := make(Properties, len(p)+len(other))
	for k, v := range p {
		result[k] = v
	}
	for k, v := range other {
		if strings.TrimSpace(v) == "" {
			continue
		}
		result[k] = v
	}
	return result
}

// LoadConfig loads properties from path, or searches the working directory
// when path is empty. A missing file yields empty properties.
func LoadConfig(path string) (Properties, error) {
	if path != "" {
		return LoadFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (Properties, error) {
	if path := FindConfigFile(dir); path != "" {
		return LoadFile(path)
	}
	return Properties{}, nil
}

// FindConfigFile returns the first config file present in dir, if any.
func FindConfigFile(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

// LoadFile reads a YAML file and flattens it into dotted keys.
// Environment references such as ${API_KEY} are expanded first.
func LoadFile(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return Flatten(raw), nil
}

// Flatten turns nested maps into dotted keys. Both
// {api: {base: {url: {qa: x}}}} and {"api.base.url.qa": x} yield api.base.url.qa=x.
func Flatten(raw map[string]any) Properties {
	out := Properties{}
	flattenInto(out, "", raw)
	return out
}

func flattenInto(out Properties, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flattenInto(out, join(prefix, k), child)
		}
	case map[any]any:
		for k, child := range val {
			flattenInto(out, join(prefix, fmt.Sprint(k)), child)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(val)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// FromEnviron extracts HARNESS_* overrides from an environ slice.
func FromEnviron(environ []string) Properties {
	out := Properties{}
	for _, e := range environ {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok || name == "" {
			continue
		}
		out[strings.ReplaceAll(strings.ToLower(name), "_", ".")] = value
	}
	return out
}

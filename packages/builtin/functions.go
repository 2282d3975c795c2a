// Package builtin expands generator placeholders in test data. A value such
// as "user-{{$randomString(6)}}@{{$randomString(4)}}.test" becomes unique on
// every expansion, so one data row can be reused across runs.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current UTC time, RFC 3339
//   - date(layout): current UTC date, default 2006-01-02
//   - timestamp(), timestampMs(): Unix time
//   - random(min, max): integer in range, default 0..100
//   - randomString(n), randomAlphanumeric(n): alphanumeric text
//   - randomEmail(): address at a random .com domain
//   - base64(value), urlEncode(value): encoded argument
//
// Unknown functions and malformed calls are left in place.
package builtin

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Func func(args []string) any

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.registerDefaults()
	return r
}

var defaultRegistry = NewRegistry()

// Expand replaces placeholders in s using the default functions.
func Expand(s string) string { return defaultRegistry.Expand(s) }

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = func([]string) any { return uuid.NewString() }
	r.funcs["now"] = func([]string) any { return time.Now().UTC().Format(time.RFC3339) }
	r.funcs["timestamp"] = func([]string) any { return time.Now().Unix() }
	r.funcs["timestampMs"] = func([]string) any { return time.Now().UnixMilli() }
	r.funcs["date"] = funcDate
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomAlphanumeric"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = func(args []string) any { return base64.StdEncoding.EncodeToString([]byte(first(args))) }
	r.funcs["urlEncode"] = func(args []string) any { return url.QueryEscape(first(args)) }
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*\$([^{}]+?)\s*\}\}`)
	funcCallPattern    = regexp.MustCompile(`^(\w+)\((.*)\)$`)
)

// Expand replaces every {{$fn(args)}} placeholder in s.
func (r *Registry) Expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		expr := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := r.Call(expr)
		if !ok {
			return m
		}
		return fmt.Sprint(v)
	})
}

// Call evaluates a single expression like "random(1, 6)".
func (r *Registry) Call(expr string) (any, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return nil, false
	}
	fn, ok := r.funcs[matches[1]]
	if !ok {
		return nil, false
	}
	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}
	return fn(args), true
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func intArg(args []string, i, def int) int {
	if len(args) <= i {
		return def
	}
	if v, err := strconv.Atoi(args[i]); err == nil {
		return v
	}
	return def
}

func funcDate(args []string) any {
	layout := "2006-01-02"
	if len(args) > 0 && args[0] != "" {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout)
}

func funcRandom(args []string) any {
	lo, hi := intArg(args, 0, 0), intArg(args, 1, 100)
	if hi < lo {
		lo, hi = hi, lo
	}
	return rand.IntN(hi-lo+1) + lo
}

const (
	lowercase    = "abcdefghijklmnopqrstuvwxyz"
	alphanumeric = lowercase + "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func funcRandomString(args []string) any {
	return randomString(intArg(args, 0, 16), alphanumeric)
}

func funcRandomEmail([]string) any {
	return fmt.Sprintf("%s@%s.com", randomString(8, lowercase), randomString(6, lowercase))
}

func randomString(length int, charset string) string {
	if length < 0 {
		length = 0
	}
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.IntN(len(charset))]
	}
	return string(result)
}

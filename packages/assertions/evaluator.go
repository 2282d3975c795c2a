package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/uv1406/harness/packages/http"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

type Evaluator struct {
	response  *http.Response
	bodyJSON  gjson.Result
	schemaDir string
}

type EvaluatorOption func(*Evaluator)

// WithSchemaDir resolves relative schema paths against dir. Paths may not
// escape it.
func WithSchemaDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.schemaDir = dir
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{response: resp}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(a *Assertion) *Result {
	result := &Result{
		Subject:  a.Subject,
		Operator: a.Operator.String(),
		Expected: a.Expected,
	}

	actual, err := e.actual(a.Subject)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	result.Passed, result.Message = e.compare(actual, a.Operator, a.Expected)
	if a.Operator == Length {
		result.Actual = computeLength(actual)
	}
	return result
}

// EvaluateAll runs every assertion against resp.
func EvaluateAll(resp *http.Response, asserts []*Assertion, opts ...EvaluatorOption) []*Result {
	e := NewEvaluator(resp, opts...)
	results := make([]*Result, len(asserts))
	for i, a := range asserts {
		results[i] = e.Evaluate(a)
	}
	return results
}

// Check returns a *Failure listing every assertion that did not pass, or nil.
func Check(resp *http.Response, asserts ...*Assertion) error {
	if resp == nil {
		return fmt.Errorf("%w: no response", ErrAssertion)
	}
	var failed []*Result
	for _, r := range EvaluateAll(resp, asserts) {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		return &Failure{Results: failed}
	}
	return nil
}

func (e *Evaluator) actual(subject string) (any, error) {
	switch {
	case subject == "status":
		return e.response.StatusCode, nil
	case subject == "duration":
		return e.response.DurationMs(), nil
	case strings.HasPrefix(subject, "header"):
		name := strings.TrimSpace(strings.TrimPrefix(subject, "header"))
		if name == "" {
			return e.response.Headers, nil
		}
		return e.response.Header(name), nil
	case strings.HasPrefix(subject, "body"):
		return e.body(strings.TrimPrefix(subject, "body"))
	default:
		return e.body("." + subject)
	}
}

func (e *Evaluator) body(path string) (any, error) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), nil
		}
		return nil, fmt.Errorf("response body is not JSON")
	}
	if path == "" {
		return e.bodyJSON.Value(), nil
	}

	path = strings.TrimPrefix(bracketIndex.ReplaceAllString(strings.TrimPrefix(path, "."), ".$1"), ".")
	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case Equals:
		return equals(actual, expected)
	case NotEquals:
		return negate(equals(actual, expected))("expected not to equal %v", expected)
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual:
		return compareNumeric(actual, expected, op.String())
	case Contains:
		return contains(actual, expected)
	case NotContains:
		return negate(contains(actual, expected))("expected not to contain %v", expected)
	case StartsWith:
		return check(strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(expected)), "expected '%v' to start with '%v'", actual, expected)
	case EndsWith:
		return check(strings.HasSuffix(fmt.Sprint(actual), fmt.Sprint(expected)), "expected '%v' to end with '%v'", actual, expected)
	case Matches:
		return matches(actual, expected)
	case Exists:
		return check(actual != nil, "expected to exist")
	case NotExists:
		return check(actual == nil, "expected not to exist, got %v", actual)
	case Length:
		return length(actual, expected)
	case Includes:
		return includes(actual, expected)
	case In:
		return in(actual, expected)
	case Type:
		return typeCheck(actual, expected)
	case Schema:
		return e.schema(actual, expected)
	case Each:
		return each(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func check(ok bool, format string, args ...any) (bool, string) {
	if ok {
		return true, ""
	}
	return false, fmt.Sprintf(format, args...)
}

func negate(passed bool, _ string) func(format string, args ...any) (bool, string) {
	return func(format string, args ...any) (bool, string) {
		return check(!passed, format, args...)
	}
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	a, aOk := toFloat64(actual)
	b, bOk := toFloat64(expected)
	if aOk && bOk && a == b {
		return true, ""
	}
	if fmt.Sprint(actual) == fmt.Sprint(expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual, expected any, op string) (bool, string) {
	a, aOk := toFloat64(actual)
	b, bOk := toFloat64(expected)
	if !aOk || !bOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = a > b
	case ">=":
		passed = a >= b
	case "<":
		passed = a < b
	case "<=":
		passed = a <= b
	}
	return check(passed, "expected %v %s %v", actual, op, expected)
}

func contains(actual, expected any) (bool, string) {
	return check(strings.Contains(fmt.Sprint(actual), fmt.Sprint(expected)), "expected '%v' to contain '%v'", actual, expected)
}

func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprint(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	return check(re.MatchString(fmt.Sprint(actual)), "expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns -1 when actual has no length.
func computeLength(actual any) int {
	if actual == nil {
		return -1
	}
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func length(actual, expected any) (bool, string) {
	want, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}
	got := computeLength(actual)
	if got == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}
	return check(got == want, "expected length %d, got %d", want, got)
}

func includes(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	for _, item := range arr {
		if passed, _ := equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func in(actual, expected any) (bool, string) {
	rv := reflect.ValueOf(expected)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	for i := 0; i < rv.Len(); i++ {
		if passed, _ := equals(actual, rv.Index(i).Interface()); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func typeCheck(actual, expected any) (bool, string) {
	var got string
	switch actual.(type) {
	case nil:
		got = "null"
	case bool:
		got = "boolean"
	case float64, float32, int, int64, int32:
		got = "number"
	case string:
		got = "string"
	case []any:
		got = "array"
	case map[string]any:
		got = "object"
	default:
		got = reflect.TypeOf(actual).String()
	}
	want := fmt.Sprint(expected)
	return check(got == want, "expected type %s, got %s", want, got)
}

// each applies expected to every element. expected is either a plain value
// (equality) or an *Assertion whose Subject is ignored.
func each(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'each' operator, got %T", actual)
	}
	inner, isAssertion := expected.(*Assertion)
	e := &Evaluator{}
	for i, item := range arr {
		var passed bool
		var msg string
		if isAssertion {
			passed, msg = e.compare(item, inner.Operator, inner.Expected)
		} else {
			passed, msg = equals(item, expected)
		}
		if !passed {
			return false, fmt.Sprintf("item[%d]: %s", i, msg)
		}
	}
	return true, ""
}

func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaLoader, err := e.schemaLoader(expected)
	if err != nil {
		return false, err.Error()
	}

	doc, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

// schemaLoader accepts an inline JSON document (string or []byte), a
// decoded schema (map), or a path to a schema file.
func (e *Evaluator) schemaLoader(expected any) (gojsonschema.JSONLoader, error) {
	switch v := expected.(type) {
	case []byte:
		return gojsonschema.NewBytesLoader(v), nil
	case map[string]any:
		return gojsonschema.NewGoLoader(v), nil
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			return gojsonschema.NewStringLoader(v), nil
		}
		path := v
		if !filepath.IsAbs(path) && e.schemaDir != "" {
			path = filepath.Join(e.schemaDir, path)
		}
		if err := validatePathWithinBase(path, e.schemaDir); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %v", err)
		}
		return gojsonschema.NewBytesLoader(data), nil
	default:
		return nil, fmt.Errorf("unsupported schema value %T", expected)
	}
}

// validatePathWithinBase rejects paths that resolve outside baseDir.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}
	if !strings.HasPrefix(target, base+string(filepath.Separator)) && target != base {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

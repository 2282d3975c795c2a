package capture

import (
	"github.com/tidwall/gjson"

	"github.com/uv1406/harness/packages/http"
)

type Source int

const (
	Body Source = iota
	Header
	Status
	Duration
)

// Capture names one value to extract.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

// FromBody captures a gjson path of the body under name.
func FromBody(name, path string) *Capture {
	return &Capture{Name: name, Source: Body, Path: path}
}

// FromHeader captures a response header under name.
func FromHeader(name, header string) *Capture {
	return &Capture{Name: name, Source: Header, Path: header}
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{response: resp}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(c *Capture) (any, bool) {
	switch c.Source {
	case Body:
		return e.extractFromBody(c.Path)
	case Header:
		v := e.response.Header(c.Path)
		return v, v != ""
	case Status:
		return e.response.StatusCode, true
	case Duration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}
	if path == "" {
		return e.bodyJSON.Value(), true
	}
	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// ExtractAll returns every capture that resolved; missing ones are omitted.
func ExtractAll(resp *http.Response, captures ...*Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)
	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}
	return results
}

// Setter receives captured values; *session.Session implements it.
type Setter interface {
	Set(key string, v any)
}

// Store extracts captures from resp into dst and returns the names that
// did not resolve.
func Store(dst Setter, resp *http.Response, captures ...*Capture) []string {
	values := ExtractAll(resp, captures...)
	var missing []string
	for _, c := range captures {
		v, ok := values[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		dst.Set(c.Name, v)
	}
	return missing
}

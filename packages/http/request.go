package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        string
	Timeout     time.Duration
	QueryParams map[string]string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// SetJSON encodes v as the body and sets a JSON content type. Strings and
// byte slices are taken as already-encoded JSON.
func (r *Request) SetJSON(v any) error {
	switch b := v.(type) {
	case nil:
		r.Body = ""
		return nil
	case string:
		r.Body = b
	case []byte:
		r.Body = string(b)
	case json.RawMessage:
		r.Body = string(b)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		r.Body = string(data)
	}
	r.SetHeader("Content-Type", "application/json")
	return nil
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	if r.QueryParams == nil {
		r.QueryParams = make(map[string]string)
	}
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetBearer(token string) *Request {
	return r.SetHeader("Authorization", "Bearer "+token)
}

func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// MaxBodyBytes bounds request bodies read by ReadFields.
const MaxBodyBytes = 64 << 10

var ErrBodyTooLarge = errors.New("request body too large")

// Fields are the flat string values posted in a request body, already
// cleaned of control characters and surrounding whitespace.
type Fields map[string]string

// Get returns the value for key, or "" when absent.
func (f Fields) Get(key string) string { return f[key] }

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Keys returns the posted names sorted, so callers apply them in a
// stable order.
func (f Fields) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// ReadFields decodes the request body as a JSON object or as
// url-encoded form data. JSON is chosen by content type or by a body
// starting with '{'. Scalars in JSON are converted to their text form;
// nested values read as "". An empty body yields no fields.
func ReadFields(r *http.Request) (Fields, error) {
	if r.Body == nil {
		return Fields{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Fields{}, nil
	}
	if isJSONBody(r, text) {
		return decodeJSONFields(raw)
	}

	form, err := url.ParseQuery(text)
	if err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	out := make(Fields, len(form))
	for k := range form {
		out[k] = clean(form.Get(k))
	}
	return out, nil
}

func isJSONBody(r *http.Request, text string) bool {
	if strings.HasPrefix(text, "{") {
		return true
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func decodeJSONFields(raw []byte) (Fields, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	out := make(Fields, len(obj))
	for k, v := range obj {
		out[k] = clean(scalarText(v))
	}
	return out, nil
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// clean drops control characters other than tab and line breaks.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// RequireMethod returns a 405 response when r.Method is not one of
// methods, nil otherwise.
func RequireMethod(r *http.Request, methods ...string) *Response {
	if slices.Contains(methods, r.Method) {
		return nil
	}
	return MethodNotAllowed(strings.Join(methods, ", "))
}

func RequirePOST(r *http.Request) *Response {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET allows GET and HEAD.
func RequireGET(r *http.Request) *Response {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

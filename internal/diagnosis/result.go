package diagnosis

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a response body is not a JSON object.
var ErrNotObject = errors.New("response is not a JSON object")

// Result is the diagnosis returned by the inference backend for one image.
// Every field is optional; a zero value means the backend did not send it.
type Result struct {
	Classification    string
	Detail            string
	Ratio             *float64
	AnnotatedImageURL string

	// Raw is the response body as received, kept for the raw response view.
	Raw json.RawMessage
}

// Parse decodes a backend response body. Field lookups are best effort:
// missing or mistyped values are left empty instead of failing the parse.
func Parse(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, ErrNotObject
	}

	res := &Result{
		Classification:    firstString(fields, "classification", "final_classification"),
		Detail:            firstString(fields, "detail", "details"),
		AnnotatedImageURL: strings.TrimSpace(firstString(fields, "annotated_image_url")),
		Raw:               append(json.RawMessage(nil), trimmed...),
	}
	for _, key := range []string{"ratio", "cdr"} {
		if v, ok := number(fields[key]); ok {
			res.Ratio = &v
			break
		}
	}
	return res, nil
}

// HasImage reports whether the annotated image URL is an absolute http(s) URL.
func (r *Result) HasImage() bool {
	if r == nil || r.AnnotatedImageURL == "" {
		return false
	}
	u, err := url.Parse(r.AnnotatedImageURL)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Label returns the classification, or "Unknown" when none was sent.
func (r *Result) Label() string {
	if r == nil || strings.TrimSpace(r.Classification) == "" {
		return "Unknown"
	}
	return r.Classification
}

// FormatRatio renders the cup-to-disc ratio with two decimals.
func (r *Result) FormatRatio() string {
	if r == nil || r.Ratio == nil {
		return "—"
	}
	return strconv.FormatFloat(*r.Ratio, 'f', 2, 64)
}

// PrettyRaw returns the raw body indented for display.
func (r *Result) PrettyRaw() string {
	if r == nil || len(r.Raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Raw, "", "  "); err != nil {
		return string(r.Raw)
	}
	return buf.String()
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, finite(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, finite(f)
		}
	}
	return 0, false
}

// finite rejects the NaN and Inf spellings ParseFloat accepts in strings;
// neither can be encoded back to JSON.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

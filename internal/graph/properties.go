package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	dErrors "smarttracing/pkg/domain-errors"
)

// TimeLayout is the encoding used for every timestamp property.
const TimeLayout = time.RFC3339Nano

// DateLayout is the encoding used for calendar date properties.
const DateLayout = "2006-01-02"

// FormatTime encodes t for storage as a property value.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// PropertyMap maps a property name to its values, like a Gremlin valueMap.
// Single cardinality properties hold one value. A name that is not in the map
// was never written, which is different from a written empty value.
type PropertyMap map[string][]any

// Has reports whether key was written.
func (p PropertyMap) Has(key string) bool {
	return len(p[key]) > 0
}

// Value returns the first value of key.
func (p PropertyMap) Value(key string) (any, bool) {
	values := p[key]
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Matches reports whether every filter entry equals the property's first value.
func (p PropertyMap) Matches(filter map[string]any) bool {
	for k, want := range filter {
		got, ok := p.Value(k)
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of p.
func (p PropertyMap) Clone() PropertyMap {
	out := make(PropertyMap, len(p))
	for k, v := range p {
		out[k] = append([]any(nil), v...)
	}
	return out
}

// ToPropertyMap expands a property bag into the read shape. []string values
// become multi-valued properties.
func ToPropertyMap(props map[string]any) PropertyMap {
	out := make(PropertyMap, len(props))
	for k, v := range props {
		out[k] = expand(v)
	}
	return out
}

func expand(v any) []any {
	switch typed := v.(type) {
	case []string:
		values := make([]any, len(typed))
		for i, s := range typed {
			values[i] = s
		}
		return values
	case []any:
		return append([]any(nil), typed...)
	default:
		return []any{v}
	}
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Decoder reads typed values out of a PropertyMap for one record. Missing
// required properties and values of the wrong type are remembered; Err reports
// the first one as a corrupt record error.
type Decoder struct {
	label string
	id    string
	props PropertyMap
	err   error
}

// NewDecoder starts decoding the vertex label/id.
func NewDecoder(label, id string, props PropertyMap) *Decoder {
	return &Decoder{label: label, id: id, props: props}
}

// Err returns the first decoding failure.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) fail(key, reason string) {
	if d.err == nil {
		d.err = dErrors.Newf(dErrors.CodeCorruptRecord, "corrupt %s record %s: property %s %s", d.label, d.id, key, reason)
	}
}

// String returns a required string property.
func (d *Decoder) String(key string) string {
	v, ok := d.props.Value(key)
	if !ok {
		d.fail(key, "is missing")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, fmt.Sprintf("has type %T", v))
	}
	return s
}

// OptionalString returns a string property or "" when it was never written.
func (d *Decoder) OptionalString(key string) string {
	if !d.props.Has(key) {
		return ""
	}
	return d.String(key)
}

// Bool returns a required boolean property.
func (d *Decoder) Bool(key string) bool {
	v, ok := d.props.Value(key)
	if !ok {
		d.fail(key, "is missing")
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, fmt.Sprintf("has type %T", v))
	}
	return b
}

// OptionalFloat returns a numeric property or nil when it was never written.
func (d *Decoder) OptionalFloat(key string) *float64 {
	v, ok := d.props.Value(key)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		d.fail(key, fmt.Sprintf("has type %T", v))
		return nil
	}
	return &f
}

// Time returns a required timestamp property.
func (d *Decoder) Time(key string) time.Time {
	s := d.String(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		d.fail(key, "is not a timestamp")
		return time.Time{}
	}
	return t
}

// Date returns a required calendar date property.
func (d *Decoder) Date(key string) time.Time {
	s := d.String(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		d.fail(key, "is not a date")
		return time.Time{}
	}
	return t
}

// Strings returns every value of a multi-valued string property; a property
// that was never written decodes as nil.
func (d *Decoder) Strings(key string) []string {
	values := d.props[key]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			d.fail(key, fmt.Sprintf("has type %T", v))
			return nil
		}
		out = append(out, s)
	}
	return out
}

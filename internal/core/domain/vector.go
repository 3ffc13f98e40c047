package domain

import (
	"fmt"
	"reflect"
)

// Metric is a vector similarity measure.
type Metric string

// MetricCosine is the only metric collections are created with.
const MetricCosine Metric = "cosine"

// IndexedPoint is a single record stored in a vector collection.
type IndexedPoint struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// SearchHit is a transient search result.
type SearchHit struct {
	Text     string
	Score    float64
	Metadata map[string]any
}

// Filename returns the hit's filename metadata, if present.
func (h SearchHit) Filename() (string, bool) {
	v, ok := h.Metadata[MetaFilename]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), true
	}
	return s, true
}

// Page returns the hit's page metadata, if present.
// Backends that round-trip through JSON hand back float64, so both are accepted.
func (h SearchHit) Page() (int, bool) {
	v, ok := h.Metadata[MetaPage]
	if !ok || v == nil {
		return 0, false
	}
	switch p := v.(type) {
	case int:
		return p, true
	case int64:
		return int(p), true
	case float64:
		return int(p), true
	case float32:
		return int(p), true
	default:
		return 0, false
	}
}

// Filter is a set of equality conditions that must all match.
type Filter map[string]any

// Matches reports whether metadata satisfies every condition.
func (f Filter) Matches(metadata map[string]any) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares metadata values across the int/float64 split that
// JSON-backed stores introduce.
func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

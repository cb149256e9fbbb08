package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/provex/internal/engine"
	"github.com/roach88/provex/internal/ir"
)

// marshalTuple converts a tuple to canonical JSON TEXT ("[1,2,0,0]").
func marshalTuple(t ir.Tuple) (string, error) {
	if t == nil {
		t = ir.Tuple{}
	}
	data, err := ir.MarshalCanonical(t)
	if err != nil {
		return "", fmt.Errorf("marshal tuple: %w", err)
	}
	return string(data), nil
}

// unmarshalTuple parses a stored tuple, rejecting words outside 32 bits.
func unmarshalTuple(data string) (ir.Tuple, error) {
	var words []int64
	if err := json.Unmarshal([]byte(data), &words); err != nil {
		return nil, fmt.Errorf("unmarshal tuple: %w", err)
	}
	t := make(ir.Tuple, len(words))
	for i, w := range words {
		if w < math.MinInt32 || w > math.MaxInt32 {
			return nil, fmt.Errorf("unmarshal tuple: word %d out of range: %d", i, w)
		}
		t[i] = ir.Domain(w)
	}
	return t, nil
}

func marshalBody(body []string) (string, error) {
	if body == nil {
		body = []string{}
	}
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

func unmarshalBody(data string) ([]string, error) {
	var body []string
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	if body == nil {
		body = []string{}
	}
	return body, nil
}

// marshalReport converts a run report to JSON TEXT.
// Report is a struct, so it goes through json.Encoder with HTML escaping
// disabled; field order is fixed by the struct.
func marshalReport(r *engine.Report) (string, error) {
	if r == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalReport(data string) (*engine.Report, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var r engine.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func typeString(tags []ir.TypeTag) string {
	b := make([]byte, len(tags))
	for i, t := range tags {
		b[i] = byte(t)
	}
	return string(b)
}

// parseTypeString is the inverse of typeString.
func parseTypeString(s string) ([]ir.TypeTag, error) {
	tags := make([]ir.TypeTag, len(s))
	for i := 0; i < len(s); i++ {
		tag := ir.TypeTag(s[i])
		if !ir.ValidTypeTags[tag] {
			return nil, fmt.Errorf("unknown type tag %q at position %d", s[i], i)
		}
		tags[i] = tag
	}
	return tags, nil
}

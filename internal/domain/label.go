package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label is the two-way verdict for a single review.
type Label string

const (
	LabelFake    Label = "fake"
	LabelGenuine Label = "genuine"
)

// DefaultFakeThreshold is applied to probability-like model outputs.
const DefaultFakeThreshold = 0.5

var textualLabels = map[string]Label{
	"fake":    LabelFake,
	"1":       LabelFake,
	"true":    LabelFake,
	"cg":      LabelFake,
	"genuine": LabelGenuine,
	"real":    LabelGenuine,
	"0":       LabelGenuine,
	"false":   LabelGenuine,
	"or":      LabelGenuine,
}

// IsFake reports whether the label marks a fabricated review.
func (l Label) IsFake() bool {
	return l == LabelFake
}

// ParseLabel decodes a raw model output with the default threshold.
func ParseLabel(raw any) (Label, error) {
	return DecodeLabel(raw, DefaultFakeThreshold)
}

// DecodeLabel normalizes textual, integer and probability encodings into a Label.
// Probabilities at or above threshold are fake.
func DecodeLabel(raw any, threshold float64) (Label, error) {
	switch v := raw.(type) {
	case Label:
		if v == LabelFake || v == LabelGenuine {
			return v, nil
		}
		return decodeText(string(v), threshold)
	case string:
		return decodeText(v, threshold)
	case bool:
		if v {
			return LabelFake, nil
		}
		return LabelGenuine, nil
	case int:
		return decodeNumber(float64(v), threshold)
	case int64:
		return decodeNumber(float64(v), threshold)
	case float32:
		return decodeNumber(float64(v), threshold)
	case float64:
		return decodeNumber(v, threshold)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownLabel, v.String())
		}
		return decodeNumber(f, threshold)
	default:
		return "", fmt.Errorf("%w: %v (%T)", ErrUnknownLabel, raw, raw)
	}
}

func decodeText(value string, threshold float64) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if label, ok := textualLabels[key]; ok {
		return label, nil
	}
	if f, err := strconv.ParseFloat(key, 64); err == nil {
		return decodeNumber(f, threshold)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, value)
}

func decodeNumber(value, threshold float64) (Label, error) {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return "", fmt.Errorf("%w: %v", ErrUnknownLabel, value)
	}
	if value >= threshold {
		return LabelFake, nil
	}
	return LabelGenuine, nil
}

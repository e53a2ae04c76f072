package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// preferredStatistics is the key preference order when extracting a number
// from a depth interval's value set. The mean is the best single estimate,
// followed by the median under either of its spellings, then the outer
// quantiles.
var preferredStatistics = []string{"mean", "Q0.5", "median", "Q0.05", "Q0.95"}

// depthLabelRe matches SoilGrids depth interval labels such as "0-5cm" or
// "0–30cm". Some layer metadata uses an en dash instead of a hyphen.
var depthLabelRe = regexp.MustCompile(`(\d+\.?\d*)\s*[-–]\s*(\d+\.?\d*)`)

// QueryResponse mirrors the provider's properties/query envelope. Layers
// stays raw because the provider has served it both as an object keyed by
// property code and as an array of named layer objects.
type QueryResponse struct {
	Properties struct {
		Layers json.RawMessage `json:"layers"`
	} `json:"properties"`
}

// Layer is one property's layered depth data.
type Layer struct {
	Name        string          `json:"name"`
	UnitMeasure UnitMeasure     `json:"unit_measure"`
	Depths      []DepthInterval `json:"depths"`
}

// DepthInterval is one depth slice of a layer, e.g. 0-5 cm.
type DepthInterval struct {
	Label  string   `json:"label"`
	Values ValueSet `json:"values"`
}

// UnitMeasure carries a layer's unit metadata. DFactor is a pointer so an
// absent factor (which defaults to 1) is distinguishable from an explicit
// zero.
type UnitMeasure struct {
	TargetUnits string   `json:"target_units"`
	MappedUnits string   `json:"mapped_units"`
	Unit        string   `json:"unit"`
	DFactor     *float64 `json:"d_factor"`
}

// ValueSet holds one depth interval's statistics in the order the provider
// serialized them. A plain map would lose that order, and the last-resort
// extraction path takes the first parseable entry in document order.
type ValueSet struct {
	keys   []string
	values map[string]any
}

// UnmarshalJSON decodes a JSON object while recording key order. Non-object
// input (null, arrays, scalars) decodes to an empty set rather than an
// error; a malformed value set is simply one with nothing usable in it.
func (vs *ValueSet) UnmarshalJSON(data []byte) error {
	vs.keys = nil
	vs.values = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return err
	}
	vs.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("value set: unexpected key token %v", tok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		vs.keys = append(vs.keys, key)
		vs.values[key] = val
	}
	return nil
}

// FindLayer locates a property's layer in the provider's layers value, which
// may be an object keyed by property code or an array of named layers.
func FindLayer(layers json.RawMessage, prop Property) (Layer, bool) {
	var byName map[string]Layer
	if err := json.Unmarshal(layers, &byName); err == nil {
		layer, ok := byName[string(prop)]
		return layer, ok
	}

	var list []Layer
	if err := json.Unmarshal(layers, &list); err == nil {
		for _, layer := range list {
			if layer.Name == string(prop) {
				return layer, true
			}
		}
	}

	return Layer{}, false
}

// ExtractLayerValue pulls a single numeric estimate and unit from a layer.
// Depth intervals are scanned in provider order and the first one yielding a
// number wins. The unit is reported even when no interval yields a value.
func ExtractLayerValue(layer Layer) Observation {
	obs := Observation{Unit: extractUnit(layer.UnitMeasure)}
	dFactor := scaleFactor(layer.UnitMeasure)

	for _, depth := range layer.Depths {
		if v := extractNumeric(depth.Values, dFactor); v != nil {
			obs.Value = v
			obs.DepthLabel = depth.Label
			return obs
		}
	}
	return obs
}

// extractNumeric selects one number from a value set, scaled by dFactor.
// Preferred statistics are tried first; failing those, the first parseable
// non-null entry in document order is used. A zero dFactor makes every
// candidate unusable. Returns nil when nothing parses.
func extractNumeric(values ValueSet, dFactor float64) *float64 {
	if dFactor == 0 {
		return nil
	}

	for _, key := range preferredStatistics {
		if v, ok := coerceFloat(values.values[key]); ok {
			scaled := v / dFactor
			return &scaled
		}
	}
	for _, key := range values.keys {
		if v, ok := coerceFloat(values.values[key]); ok {
			scaled := v / dFactor
			return &scaled
		}
	}
	return nil
}

// coerceFloat attempts a lenient numeric conversion: JSON numbers pass
// through, numeric strings are trimmed and parsed, everything else is
// skipped.
func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// extractUnit returns the first non-empty unit field. Target units are the
// human-readable form, mapped units the stored form.
func extractUnit(um UnitMeasure) string {
	if um.TargetUnits != "" {
		return um.TargetUnits
	}
	if um.MappedUnits != "" {
		return um.MappedUnits
	}
	return um.Unit
}

// scaleFactor returns the layer's scale divisor, defaulting to 1 when absent.
func scaleFactor(um UnitMeasure) float64 {
	if um.DFactor == nil {
		return 1
	}
	return *um.DFactor
}

// ParseDepthLabel extracts the numeric bounds from a depth interval label
// such as "0-5cm". Reports false when the label has no recognizable range.
func ParseDepthLabel(label string) (float64, float64, bool) {
	matches := depthLabelRe.FindStringSubmatch(label)
	if len(matches) != 3 {
		return 0, 0, false
	}

	top, errTop := strconv.ParseFloat(matches[1], 64)
	bottom, errBottom := strconv.ParseFloat(matches[2], 64)
	if errTop != nil || errBottom != nil {
		return 0, 0, false
	}
	return top, bottom, true
}

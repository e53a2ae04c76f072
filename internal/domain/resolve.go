package domain

import (
	"context"
	"log/slog"
)

// Resolution sources.
const (
	SourcePrimary = "primary" // value found at the requested coordinate
	SourceNearby  = "nearby"  // value found at a perturbed coordinate
	SourceDefault = "default" // static default after every lookup missed
)

// perturbationDeltas are the offsets applied independently to latitude and
// longitude when the primary coordinate has no data. The nested scan order
// (latitude outer, longitude inner) is fixed so retries are deterministic.
var perturbationDeltas = [4]float64{0.01, -0.01, 0.02, -0.02}

// Observation is a single provider lookup result. A nil Value means the
// provider had no usable number at that coordinate; Unit may still carry the
// layer's unit metadata.
type Observation struct {
	Value      *float64
	Unit       string
	DepthLabel string
}

// Source fetches one property's observation at a coordinate.
type Source interface {
	FetchProperty(ctx context.Context, coord Coordinate, prop Property) (Observation, error)
}

// Resolution is one property's resolved value after the fallback chain.
type Resolution struct {
	Property   Property
	Value      float64
	Unit       string
	Source     string
	DepthLabel string
	Attempts   int
}

// Resolver resolves soil property values with nearby-point and default
// fallbacks.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by the given source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve produces a value for one property at a coordinate. The primary
// coordinate is tried first, then the 16 perturbed neighbors in fixed
// order; when every lookup misses, the static default is returned with an
// empty unit. Lookup failures of any kind count as misses; Resolve never
// fails.
func (r *Resolver) Resolve(ctx context.Context, coord Coordinate, prop Property) Resolution {
	attempts := 1
	if obs, ok := r.lookup(ctx, coord, prop); ok {
		return resolution(prop, obs, SourcePrimary, attempts)
	}

	for _, dlat := range perturbationDeltas {
		for _, dlon := range perturbationDeltas {
			nearby := Coordinate{Lat: coord.Lat + dlat, Lon: coord.Lon + dlon}
			attempts++
			if obs, ok := r.lookup(ctx, nearby, prop); ok {
				return resolution(prop, obs, SourceNearby, attempts)
			}
		}
	}

	r.logger.Warn("all lookups missed, using default value",
		"property", prop,
		"lat", coord.Lat,
		"lon", coord.Lon,
		"attempts", attempts,
	)
	return Resolution{
		Property: prop,
		Value:    DefaultValues[prop],
		Source:   SourceDefault,
		Attempts: attempts,
	}
}

// ResolveAll resolves every configured property sequentially, in the fixed
// order of Properties.
func (r *Resolver) ResolveAll(ctx context.Context, coord Coordinate) []Resolution {
	resolutions := make([]Resolution, 0, len(Properties))
	for _, prop := range Properties {
		resolutions = append(resolutions, r.Resolve(ctx, coord, prop))
	}
	return resolutions
}

// lookup performs one provider fetch, treating errors and nil values alike
// as a miss.
func (r *Resolver) lookup(ctx context.Context, coord Coordinate, prop Property) (Observation, bool) {
	obs, err := r.source.FetchProperty(ctx, coord, prop)
	if err != nil {
		r.logger.Debug("property lookup failed",
			"property", prop,
			"lat", coord.Lat,
			"lon", coord.Lon,
			"error", err,
		)
		return Observation{}, false
	}
	if obs.Value == nil {
		r.logger.Debug("no value at coordinate",
			"property", prop,
			"lat", coord.Lat,
			"lon", coord.Lon,
		)
		return Observation{}, false
	}
	return obs, true
}

func resolution(prop Property, obs Observation, source string, attempts int) Resolution {
	return Resolution{
		Property:   prop,
		Value:      *obs.Value,
		Unit:       obs.Unit,
		Source:     source,
		DepthLabel: obs.DepthLabel,
		Attempts:   attempts,
	}
}

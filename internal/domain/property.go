package domain

import (
	"context"
	"time"
)

// Property identifies one of the SoilGrids soil properties this service
// resolves.
type Property string

const (
	PropertySOC  Property = "soc"   // soil organic carbon content
	PropertyPH   Property = "phh2o" // pH in water suspension
	PropertySand Property = "sand"
	PropertySilt Property = "silt"
	PropertyClay Property = "clay"
	PropertyBDOD Property = "bdod" // bulk density of fine earth
	PropertyOCS  Property = "ocs"  // organic carbon stock
)

// Properties lists every resolved property in the order queries are issued.
var Properties = []Property{
	PropertySOC,
	PropertyPH,
	PropertySand,
	PropertySilt,
	PropertyClay,
	PropertyBDOD,
	PropertyOCS,
}

// DefaultValues maps each property to the fallback used when neither the
// requested coordinate nor any nearby one yields data. The values
// approximate a generic loam topsoil.
var DefaultValues = map[Property]float64{
	PropertySOC:  15.0, // g/kg
	PropertyPH:   6.5,
	PropertySand: 30.0, // %
	PropertySilt: 40.0, // %
	PropertyClay: 30.0, // %
	PropertyBDOD: 1.3,  // kg/dm³
	PropertyOCS:  4.0,  // kg/m²
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PropertyResult is the value/unit pair served for one property. Value is
// always populated by the fallback chain; Unit is empty when the value is a
// static default.
type PropertyResult struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// SoilReport is the soil-data response for one coordinate.
type SoilReport struct {
	Lat            float64                     `json:"lat"`
	Lon            float64                     `json:"lon"`
	SoilProperties map[Property]PropertyResult `json:"soil_properties"`
}

// PropertyDetail extends PropertyResult with resolution provenance for
// enriched site records.
type PropertyDetail struct {
	Value         float64  `json:"value"`
	Unit          string   `json:"unit"`
	Source        string   `json:"source"`
	DepthLabel    string   `json:"depth_label,omitempty"`
	DepthTopCm    *float64 `json:"depth_top_cm,omitempty"`
	DepthBottomCm *float64 `json:"depth_bottom_cm,omitempty"`
}

// RawSiteRecord represents the flat JSON structure produced by the site
// ingest service.
type RawSiteRecord struct {
	SiteID     string  `json:"site_id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RecordedAt string  `json:"recorded_at"` // RFC 3339, optional
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// SiteRecord is the domain-rich representation of a monitoring site after
// parsing and soil enrichment.
type SiteRecord struct {
	ID     string `json:"id"`
	SiteID string `json:"site_id"`
	Coordinate
	RecordedAt     time.Time                   `json:"recorded_at"`
	SoilProperties map[Property]PropertyDetail `json:"soil_properties,omitempty"`
	ResolvedAt     time.Time                   `json:"resolved_at"`

	RawPayload []byte `json:"-"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

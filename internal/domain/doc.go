// Package domain models soil property data resolved from ISRIC SoilGrids.
//
// # Data Source
//
// Soil properties come from SoilGrids v2.0, ISRIC's global 250 m gridded
// soil information system, queried through the REST endpoint at
// https://rest.isric.org/soilgrids/v2.0/properties/query. One query returns
// one property's layered depth data for a single WGS-84 coordinate.
//
// # SoilGrids Data Conventions
//
// Property codes:
//
//	soc    soil organic carbon content   g/kg
//	phh2o  pH in water suspension        pH
//	sand   sand fraction                 %
//	silt   silt fraction                 %
//	clay   clay fraction                 %
//	bdod   bulk density of fine earth    kg/dm³
//	ocs    organic carbon stock          kg/m²
//
// Layer shape:
//
//	Each property arrives as a layer holding a unit_measure block and a
//	depths list. The layers container has been observed both as an object
//	keyed by property code and as an array of named layer objects;
//	[FindLayer] handles both. Standard depth intervals are 0-5, 5-15, 15-30,
//	30-60, 60-100 and 100-200 cm; ocs is served for 0-30 cm only.
//
// Statistics:
//
//	Depth values are keyed by statistic: mean, Q0.05, Q0.5, Q0.95 and an
//	uncertainty band. Extraction prefers mean, then the median under either
//	spelling (Q0.5, median), then the outer quantiles; failing those, the
//	first parseable entry in document order is used. Masked cells (ocean,
//	urban areas, bare rock) serve null for every statistic.
//
// Scale factors:
//
//	Values are stored as scaled integers and divided by the layer's d_factor
//	to reach the target unit:
//
//	  soc    dg/kg    ÷10   → g/kg
//	  phh2o  pH*10    ÷10   → pH
//	  sand   g/kg     ÷10   → %
//	  silt   g/kg     ÷10   → %
//	  clay   g/kg     ÷10   → %
//	  bdod   cg/cm³   ÷100  → kg/dm³
//	  ocs    t/ha     ÷10   → kg/m²
//
//	A missing d_factor defaults to 1.
//
// # Missing Data
//
// A coordinate on a masked cell yields no numeric value. Resolution then
// retries the 16 neighbors offset by ±0.01° and ±0.02° in latitude and
// longitude, and finally falls back to the static defaults in
// [DefaultValues] with an empty unit string. See [Resolver.Resolve].
//
// # ID Generation
//
// Enriched site records carry deterministic SHA-256 ids derived from
// site|lat|lon|time. Reprocessing the same raw record produces the same id,
// which keeps downstream upserts idempotent under replay. See [generateSiteID].
package domain

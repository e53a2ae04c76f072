// Command genmock regenerates the JSON fixtures under data/mock. It builds
// the raw site reading rows from an embedded seed table, derives the
// enriched records by running the rows through the real parse and enrich
// code under a frozen clock, and renders one canned SoilGrids response
// envelope per property, so the fixtures stay consistent with the domain
// logic they exercise.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
)

// resolvedAt is the frozen enrichment timestamp stamped on every generated
// record.
const resolvedAt = "2025-05-04T12:30:45Z"

// maxResolveAttempts is the full fallback sweep: the primary coordinate plus
// sixteen perturbed neighbors.
const maxResolveAttempts = 17

type siteRow struct {
	SiteID     string `json:"SiteID"`
	Lat        string `json:"Lat"`
	Lon        string `json:"Lon"`
	RecordedAt string `json:"RecordedAt"`
	Crop       string `json:"Crop"`
	Notes      string `json:"Notes"`
}

// seedRows are the monitoring sites the fixtures describe. Coordinates are
// real agricultural locations so the rows double as smoke test input.
var seedRows = []siteRow{
	{SiteID: "us-ia-0042", Lat: "42.0308", Lon: "-93.6319", RecordedAt: "2025-05-04T06:00:00Z", Crop: "maize", Notes: "central Iowa trial strip"},
	{SiteID: "nl-ut-0007", Lat: "52.0907", Lon: "5.1214", RecordedAt: "2025-05-04T06:25:00Z", Crop: "potato", Notes: "Utrecht polder plot"},
	{SiteID: "br-df-0113", Lat: "-15.6014", Lon: "-47.7128", RecordedAt: "2025-05-04T06:50:00Z", Crop: "soybean", Notes: "cerrado expansion field"},
	{SiteID: "in-pb-0029", Lat: "30.9010", Lon: "75.8573", RecordedAt: "2025-05-04T07:15:00Z", Crop: "wheat", Notes: "Ludhiana district sensor"},
	{SiteID: "ke-nk-0054", Lat: "-0.4167", Lon: "36.9500", RecordedAt: "2025-05-04T07:40:00Z", Crop: "tea", Notes: "Nyeri highland terrace"},
	{SiteID: "au-wa-0081", Lat: "-31.9505", Lon: "117.8500", RecordedAt: "2025-05-04T08:05:00Z", Crop: "barley", Notes: "wheatbelt paddock east"},
	{SiteID: "ua-kh-0016", Lat: "49.9935", Lon: "36.2304", RecordedAt: "2025-05-04T08:30:00Z", Crop: "sunflower", Notes: "Kharkiv chernozem block"},
	{SiteID: "cn-hl-0068", Lat: "45.7567", Lon: "126.6424", RecordedAt: "2025-05-04T08:55:00Z", Crop: "rice", Notes: "Heilongjiang paddy edge"},
	{SiteID: "fr-cl-0033", Lat: "48.4439", Lon: "1.4890", RecordedAt: "2025-05-04T09:20:00Z", Crop: "rapeseed", Notes: "Beauce plain parcel"},
	{SiteID: "ca-sk-0090", Lat: "50.4452", Lon: "-104.6189", RecordedAt: "2025-05-04T10:00:00Z", Crop: "canola", Notes: "Regina plains quarter"},
}

// envelopeMeans holds the scaled layer means in the canned provider
// envelopes. With a d_factor of 10 they extract to 12.3 g/kg soc, 6.5 pH,
// and so on.
var envelopeMeans = map[domain.Property]int{
	domain.PropertySOC:  123,
	domain.PropertyPH:   65,
	domain.PropertySand: 300,
	domain.PropertySilt: 400,
	domain.PropertyClay: 250,
	domain.PropertyBDOD: 13,
	domain.PropertyOCS:  40,
}

var envelopeUnits = map[domain.Property]string{
	domain.PropertySOC:  "g/kg",
	domain.PropertyPH:   "pH",
	domain.PropertySand: "%",
	domain.PropertySilt: "%",
	domain.PropertyClay: "%",
	domain.PropertyBDOD: "kg/dm³",
	domain.PropertyOCS:  "kg/m²",
}

const envelopeTemplate = `{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"layers":[{"name":%q,"unit_measure":{"d_factor":10,"mapped_units":"scaled","target_units":%q},"depths":[{"range":{"top_depth":0,"bottom_depth":5,"unit_depth":"cm"},"label":"0-5cm","values":{"mean":%d}}]}]}}`

func main() {
	outDir := flag.String("out-dir", "data/mock", "directory to write fixtures into")
	flag.Parse()

	if err := run(*outDir); err != nil {
		log.Fatal(err)
	}
}

func run(outDir string) error {
	frozen, err := time.Parse(time.RFC3339, resolvedAt)
	if err != nil {
		return fmt.Errorf("parse frozen clock: %w", err)
	}
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	rawPath := filepath.Join(outDir, "site_readings_250504.json")
	if err := writeJSON(rawPath, seedRows); err != nil {
		return err
	}
	log.Printf("wrote %d site reading rows to %s", len(seedRows), rawPath)

	enriched, err := enrichRows(seedRows)
	if err != nil {
		return err
	}

	enrichedPath := filepath.Join(outDir, "site_readings_250504_enriched.json")
	if err := writeJSON(enrichedPath, enriched); err != nil {
		return err
	}
	log.Printf("wrote %d enriched records to %s", len(enriched), enrichedPath)

	envelopePath := filepath.Join(outDir, "soilgrids_envelopes.json")
	if err := writeJSON(envelopePath, buildEnvelopes()); err != nil {
		return err
	}
	log.Printf("wrote %d provider envelopes to %s", len(domain.Properties), envelopePath)

	printStats(enriched)
	return nil
}

// buildEnvelopes renders one canned provider response per property.
func buildEnvelopes() map[domain.Property]json.RawMessage {
	envelopes := make(map[domain.Property]json.RawMessage, len(domain.Properties))
	for _, prop := range domain.Properties {
		raw := fmt.Sprintf(envelopeTemplate, prop, envelopeUnits[prop], envelopeMeans[prop])
		envelopes[prop] = json.RawMessage(raw)
	}
	return envelopes
}

// enrichRows runs each seed row through parse and enrich with every property
// falling back to its static default, which is what a fully offline
// environment produces.
func enrichRows(rows []siteRow) ([]domain.SiteRecord, error) {
	records := make([]domain.SiteRecord, 0, len(rows))
	for _, row := range rows {
		lat, err := strconv.ParseFloat(row.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("row %s: parse lat: %w", row.SiteID, err)
		}
		lon, err := strconv.ParseFloat(row.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("row %s: parse lon: %w", row.SiteID, err)
		}

		payload, err := json.Marshal(domain.RawSiteRecord{
			SiteID:     row.SiteID,
			Lat:        lat,
			Lon:        lon,
			RecordedAt: row.RecordedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("row %s: marshal payload: %w", row.SiteID, err)
		}

		record, err := domain.ParseRawSite(domain.RawEvent{
			Value: payload,
			Topic: "raw-site-readings",
		})
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.SiteID, err)
		}

		records = append(records, domain.EnrichSiteRecord(record, defaultResolutions()))
	}
	return records, nil
}

// defaultResolutions builds the resolution set for a coordinate where every
// lookup missed.
func defaultResolutions() []domain.Resolution {
	resolutions := make([]domain.Resolution, 0, len(domain.Properties))
	for _, prop := range domain.Properties {
		resolutions = append(resolutions, domain.Resolution{
			Property: prop,
			Value:    domain.DefaultValues[prop],
			Source:   domain.SourceDefault,
			Attempts: maxResolveAttempts,
		})
	}
	return resolutions
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// printStats prints a short summary useful when updating test assertions.
func printStats(records []domain.SiteRecord) {
	if len(records) == 0 {
		return
	}
	first, last := records[0], records[len(records)-1]
	log.Printf("first record: id=%s site_id=%s resolved_at=%s",
		first.ID, first.SiteID, first.ResolvedAt.UTC().Format(time.RFC3339))
	log.Printf("last record:  id=%s site_id=%s resolved_at=%s",
		last.ID, last.SiteID, last.ResolvedAt.UTC().Format(time.RFC3339))
	log.Printf("properties per record: %d", len(first.SoilProperties))
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseRawSite deserializes a RawEvent's value into a SiteRecord. It expects
// the flat JSON produced by the site ingest service.
func ParseRawSite(raw RawEvent) (SiteRecord, error) {
	var rec RawSiteRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return SiteRecord{}, fmt.Errorf("parse raw site: %w", err)
	}

	recordedAt := parseRecordedAt(raw.Timestamp, rec.RecordedAt)

	return SiteRecord{
		ID:         generateSiteID(rec.SiteID, rec.Lat, rec.Lon, recordedAt),
		SiteID:     rec.SiteID,
		Coordinate: Coordinate{Lat: rec.Lat, Lon: rec.Lon},
		RecordedAt: recordedAt,
		RawPayload: raw.Value,
	}, nil
}

// parseRecordedAt parses an RFC 3339 timestamp, falling back to the message
// timestamp when the field is absent or malformed.
func parseRecordedAt(fallback time.Time, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// generateSiteID produces a deterministic ID from the record's key fields.
// Reprocessing the same raw record yields the same ID, so downstream
// consumers can upsert idempotently under replay.
func generateSiteID(siteID string, lat, lon float64, recordedAt time.Time) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", siteID, lat, lon, recordedAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return "soil-" + hex.EncodeToString(hash[:8])
}

// EnrichSiteRecord attaches resolved soil properties to a parsed site record
// and stamps the resolution time. Depth labels are parsed into numeric
// bounds when the provider supplied them.
func EnrichSiteRecord(record SiteRecord, resolutions []Resolution) SiteRecord {
	details := make(map[Property]PropertyDetail, len(resolutions))
	for _, res := range resolutions {
		detail := PropertyDetail{
			Value:      res.Value,
			Unit:       res.Unit,
			Source:     res.Source,
			DepthLabel: res.DepthLabel,
		}
		if top, bottom, ok := ParseDepthLabel(res.DepthLabel); ok {
			detail.DepthTopCm = &top
			detail.DepthBottomCm = &bottom
		}
		details[res.Property] = detail
	}

	record.SoilProperties = details
	record.ResolvedAt = clock.Now()
	return record
}

// BuildSoilReport shapes resolutions into the soil-data response for a
// coordinate.
func BuildSoilReport(coord Coordinate, resolutions []Resolution) SoilReport {
	properties := make(map[Property]PropertyResult, len(resolutions))
	for _, res := range resolutions {
		properties[res.Property] = PropertyResult{Value: res.Value, Unit: res.Unit}
	}
	return SoilReport{Lat: coord.Lat, Lon: coord.Lon, SoilProperties: properties}
}

// SerializeSiteRecord converts an enriched record into its sink topic form.
// The record ID becomes the message key so records for the same site and
// time land in the same partition.
func SerializeSiteRecord(record SiteRecord) (OutputEvent, error) {
	value, err := json.Marshal(record)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize site record: %w", err)
	}

	return OutputEvent{
		Key:   []byte(record.ID),
		Value: value,
		Headers: map[string]string{
			"site_id":     record.SiteID,
			"resolved_at": record.ResolvedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

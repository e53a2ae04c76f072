package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSiteID = "field-7"

func TestParseRawSite(t *testing.T) {
	messageTime := time.Date(2025, 5, 4, 8, 0, 0, 0, time.UTC)

	t.Run("well-formed record", func(t *testing.T) {
		data := []byte(`{"site_id":"field-7","lat":42.36,"lon":-71.06,"recorded_at":"2025-05-04T09:30:00Z"}`)
		raw := RawEvent{Value: data, Timestamp: messageTime}

		record, err := ParseRawSite(raw)

		require.NoError(t, err)
		assert.Equal(t, testSiteID, record.SiteID)
		assert.Equal(t, 42.36, record.Lat)
		assert.Equal(t, -71.06, record.Lon)
		assert.Equal(t, time.Date(2025, 5, 4, 9, 30, 0, 0, time.UTC), record.RecordedAt)
		assert.True(t, strings.HasPrefix(record.ID, "soil-"))
		assert.Equal(t, data, record.RawPayload)
	})

	t.Run("missing recorded_at falls back to message timestamp", func(t *testing.T) {
		data := []byte(`{"site_id":"field-7","lat":42.36,"lon":-71.06}`)
		raw := RawEvent{Value: data, Timestamp: messageTime}

		record, err := ParseRawSite(raw)

		require.NoError(t, err)
		assert.Equal(t, messageTime, record.RecordedAt)
	})

	t.Run("malformed recorded_at falls back to message timestamp", func(t *testing.T) {
		data := []byte(`{"site_id":"field-7","lat":42.36,"lon":-71.06,"recorded_at":"yesterday"}`)
		raw := RawEvent{Value: data, Timestamp: messageTime}

		record, err := ParseRawSite(raw)

		require.NoError(t, err)
		assert.Equal(t, messageTime, record.RecordedAt)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		raw := RawEvent{Value: []byte("{invalid json")}

		_, err := ParseRawSite(raw)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse raw site")
	})

	t.Run("deterministic ID", func(t *testing.T) {
		data := []byte(`{"site_id":"field-7","lat":42.36,"lon":-71.06,"recorded_at":"2025-05-04T09:30:00Z"}`)
		raw := RawEvent{Value: data, Timestamp: messageTime}

		record1, err := ParseRawSite(raw)
		require.NoError(t, err)
		record2, err := ParseRawSite(raw)
		require.NoError(t, err)

		assert.Equal(t, record1.ID, record2.ID)
	})
}

func TestGenerateSiteID(t *testing.T) {
	recordedAt := time.Date(2025, 5, 4, 9, 30, 0, 0, time.UTC)

	t.Run("soil prefix", func(t *testing.T) {
		id := generateSiteID(testSiteID, 42.36, -71.06, recordedAt)
		assert.True(t, strings.HasPrefix(id, "soil-"))
	})

	t.Run("deterministic", func(t *testing.T) {
		id1 := generateSiteID(testSiteID, 42.36, -71.06, recordedAt)
		id2 := generateSiteID(testSiteID, 42.36, -71.06, recordedAt)
		assert.Equal(t, id1, id2)
	})

	t.Run("coordinate changes the ID", func(t *testing.T) {
		id1 := generateSiteID(testSiteID, 42.36, -71.06, recordedAt)
		id2 := generateSiteID(testSiteID, 42.37, -71.06, recordedAt)
		assert.NotEqual(t, id1, id2)
	})

	t.Run("time changes the ID", func(t *testing.T) {
		id1 := generateSiteID(testSiteID, 42.36, -71.06, recordedAt)
		id2 := generateSiteID(testSiteID, 42.36, -71.06, recordedAt.Add(time.Minute))
		assert.NotEqual(t, id1, id2)
	})
}

func TestEnrichSiteRecord(t *testing.T) {
	fixedTime := time.Date(2025, 5, 4, 12, 30, 45, 0, time.UTC)
	mockClock := clockwork.NewFakeClockAt(fixedTime)
	SetClock(mockClock)
	defer SetClock(nil)

	record := SiteRecord{
		ID:         "soil-abc12345",
		SiteID:     testSiteID,
		Coordinate: Coordinate{Lat: 42.36, Lon: -71.06},
	}
	resolutions := []Resolution{
		{Property: PropertySOC, Value: 12.3, Unit: testUnitSOC, Source: SourcePrimary, DepthLabel: "0-5cm", Attempts: 1},
		{Property: PropertyPH, Value: 6.5, Source: SourceDefault, Attempts: 17},
	}

	enriched := EnrichSiteRecord(record, resolutions)

	t.Run("resolved property with depth bounds", func(t *testing.T) {
		detail, ok := enriched.SoilProperties[PropertySOC]
		require.True(t, ok)
		assert.Equal(t, 12.3, detail.Value)
		assert.Equal(t, testUnitSOC, detail.Unit)
		assert.Equal(t, SourcePrimary, detail.Source)
		assert.Equal(t, "0-5cm", detail.DepthLabel)
		require.NotNil(t, detail.DepthTopCm)
		require.NotNil(t, detail.DepthBottomCm)
		assert.Equal(t, 0.0, *detail.DepthTopCm)
		assert.Equal(t, 5.0, *detail.DepthBottomCm)
	})

	t.Run("defaulted property carries no depth", func(t *testing.T) {
		detail, ok := enriched.SoilProperties[PropertyPH]
		require.True(t, ok)
		assert.Equal(t, 6.5, detail.Value)
		assert.Empty(t, detail.Unit)
		assert.Equal(t, SourceDefault, detail.Source)
		assert.Nil(t, detail.DepthTopCm)
		assert.Nil(t, detail.DepthBottomCm)
	})

	t.Run("resolution time stamped from clock", func(t *testing.T) {
		assert.Equal(t, fixedTime, enriched.ResolvedAt)
	})
}

func TestBuildSoilReport(t *testing.T) {
	coord := Coordinate{Lat: 10, Lon: 20}
	resolutions := []Resolution{
		{Property: PropertySOC, Value: 12.3, Unit: testUnitSOC, Source: SourcePrimary},
		{Property: PropertyClay, Value: 30.0, Source: SourceDefault},
	}

	report := BuildSoilReport(coord, resolutions)

	assert.Equal(t, 10.0, report.Lat)
	assert.Equal(t, 20.0, report.Lon)
	require.Len(t, report.SoilProperties, 2)
	assert.Equal(t, PropertyResult{Value: 12.3, Unit: testUnitSOC}, report.SoilProperties[PropertySOC])
	assert.Equal(t, PropertyResult{Value: 30.0, Unit: ""}, report.SoilProperties[PropertyClay])
}

func TestSerializeSiteRecord(t *testing.T) {
	fixedTime := time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)
	record := SiteRecord{
		ID:         "soil-abc12345",
		SiteID:     testSiteID,
		Coordinate: Coordinate{Lat: 42.36, Lon: -71.06},
		RecordedAt: fixedTime.Add(-2 * time.Hour),
		SoilProperties: map[Property]PropertyDetail{
			PropertySOC: {Value: 12.3, Unit: testUnitSOC, Source: SourcePrimary},
		},
		ResolvedAt: fixedTime,
	}

	out, err := SerializeSiteRecord(record)

	require.NoError(t, err)
	assert.Equal(t, []byte("soil-abc12345"), out.Key)
	assert.Equal(t, testSiteID, out.Headers["site_id"])
	assert.Equal(t, "2025-05-04T12:00:00Z", out.Headers["resolved_at"])

	t.Run("coordinate flattens onto the record", func(t *testing.T) {
		var fields map[string]any
		require.NoError(t, json.Unmarshal(out.Value, &fields))
		assert.Equal(t, 42.36, fields["lat"])
		assert.Equal(t, -71.06, fields["lon"])
		assert.NotContains(t, fields, "coordinate")
	})

	t.Run("round trip", func(t *testing.T) {
		var decoded SiteRecord
		require.NoError(t, json.Unmarshal(out.Value, &decoded))
		assert.Equal(t, record.ID, decoded.ID)
		assert.Equal(t, record.SiteID, decoded.SiteID)
		assert.Equal(t, record.Lat, decoded.Lat)
		assert.Equal(t, record.Lon, decoded.Lon)
		assert.Equal(t, 12.3, decoded.SoilProperties[PropertySOC].Value)
	})
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		mockClock := clockwork.NewFakeClockAt(fixedTime)

		SetClock(mockClock)
		assert.Equal(t, fixedTime, clock.Now())

		SetClock(nil) // reset
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		// Real clock should return current time (within a small window)
		now := clock.Now()
		assert.True(t, time.Since(now) < time.Second)
	})
}

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/http"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubResolver struct {
	resolutions []domain.Resolution
	lastCoord   domain.Coordinate
}

func (s *stubResolver) ResolveAll(_ context.Context, coord domain.Coordinate) []domain.Resolution {
	s.lastCoord = coord
	return s.resolutions
}

func newTestServer(resolver httpadapter.PropertyResolver, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", resolver, &mockReadiness{err: readyErr}, observability.NewMetricsForTesting(), slog.Default())
}

func TestSoilDataReturnsReport(t *testing.T) {
	resolver := &stubResolver{resolutions: []domain.Resolution{
		{Property: domain.PropertySOC, Value: 12.3, Unit: "g/kg", Source: domain.SourcePrimary, DepthLabel: "0-5cm", Attempts: 1},
		{Property: domain.PropertyPH, Value: 6.5, Unit: "", Source: domain.SourceDefault, Attempts: 17},
	}}
	srv := newTestServer(resolver, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/soil-data?lat=10&lon=20", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, domain.Coordinate{Lat: 10, Lon: 20}, resolver.lastCoord)

	var report domain.SoilReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 10.0, report.Lat)
	assert.Equal(t, 20.0, report.Lon)
	assert.Equal(t, domain.PropertyResult{Value: 12.3, Unit: "g/kg"}, report.SoilProperties[domain.PropertySOC])
	assert.Equal(t, domain.PropertyResult{Value: 6.5, Unit: ""}, report.SoilProperties[domain.PropertyPH])
}

func TestSoilDataResponseShape(t *testing.T) {
	resolver := &stubResolver{resolutions: []domain.Resolution{
		{Property: domain.PropertyBDOD, Value: 1.3, Unit: "kg/dm³", Source: domain.SourceDefault, Attempts: 17},
	}}
	srv := newTestServer(resolver, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/soil-data?lat=-33.9&lon=18.4", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, -33.9, body["lat"])
	assert.Equal(t, 18.4, body["lon"])

	props, ok := body["soil_properties"].(map[string]any)
	require.True(t, ok)
	bdod, ok := props["bdod"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.3, bdod["value"])
	assert.Equal(t, "kg/dm³", bdod["unit"])
}

func TestSoilDataRejectsBadParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{name: "missing lat", query: "lon=20", wantErr: `"lat"`},
		{name: "missing lon", query: "lat=10", wantErr: `"lon"`},
		{name: "missing both", query: "", wantErr: `"lat"`},
		{name: "non-numeric lat", query: "lat=abc&lon=20", wantErr: "must be a finite number"},
		{name: "non-numeric lon", query: "lat=10&lon=north", wantErr: "must be a finite number"},
		{name: "non-finite lat", query: "lat=NaN&lon=20", wantErr: "must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubResolver{}, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/soil-data?"+tt.query, nil)

			srv.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.wantErr)
		})
	}
}

func TestHealthReportsWrapperStatus(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "SoilGrids API wrapper running", body["message"])
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&stubResolver{}, fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestReadyzWithNilCheckerReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &stubResolver{}, nil, observability.NewMetricsForTesting(), slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

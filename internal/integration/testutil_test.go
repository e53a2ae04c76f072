//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/soilgrids"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/pipeline"
)

// startKafka starts a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("soil-data-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker addresses")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic with a single partition on the container's
// controller broker.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// stubMeans holds the scaled layer means the SoilGrids stub serves. With a
// d_factor of 10 they resolve to 12.3 g/kg soc, 6.5 pH, and so on.
var stubMeans = map[domain.Property]int{
	domain.PropertySOC:  123,
	domain.PropertyPH:   65,
	domain.PropertySand: 300,
	domain.PropertySilt: 400,
	domain.PropertyClay: 250,
	domain.PropertyBDOD: 13,
	domain.PropertyOCS:  40,
}

var stubUnits = map[domain.Property]string{
	domain.PropertySOC:  "g/kg",
	domain.PropertyPH:   "pH",
	domain.PropertySand: "%",
	domain.PropertySilt: "%",
	domain.PropertyClay: "%",
	domain.PropertyBDOD: "kg/dm³",
	domain.PropertyOCS:  "kg/m²",
}

const stubEnvelope = `{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"layers":[{"name":%q,"unit_measure":{"d_factor":10,"mapped_units":"scaled","target_units":%q},"depths":[{"range":{"top_depth":0,"bottom_depth":5,"unit_depth":"cm"},"label":"0-5cm","values":{"mean":%d}}]}]}}`

// newSoilGridsStub serves a fixed layer for whichever property is requested,
// so every resolution succeeds on the first attempt.
func newSoilGridsStub(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prop := domain.Property(r.URL.Query().Get("property"))
		mean, ok := stubMeans[prop]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, stubEnvelope, prop, stubUnits[prop], mean)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newStubEnricher builds an enricher whose resolver talks to a local
// SoilGrids stub.
func newStubEnricher(t *testing.T, metrics *observability.Metrics) *pipeline.SoilEnricher {
	t.Helper()

	stub := newSoilGridsStub(t)
	client := soilgrids.NewClient(soilgrids.Config{
		BaseURL:          stub.URL,
		Timeout:          10 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}, metrics, discardLogger())
	resolver := domain.NewResolver(client, discardLogger())
	return pipeline.NewEnricher(resolver, metrics, discardLogger())
}

// loadSiteRows loads the mock site reading rows and converts them into the
// flat payload shape published on the source topic.
func loadSiteRows(t *testing.T) []domain.RawSiteRecord {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "site_readings_250504.json"))
	require.NoError(t, err, "read mock site readings")

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.NotEmpty(t, rows)

	records := make([]domain.RawSiteRecord, 0, len(rows))
	for _, row := range rows {
		lat, err := strconv.ParseFloat(row["Lat"], 64)
		require.NoError(t, err, "parse Lat for %s", row["SiteID"])
		lon, err := strconv.ParseFloat(row["Lon"], 64)
		require.NoError(t, err, "parse Lon for %s", row["SiteID"])

		records = append(records, domain.RawSiteRecord{
			SiteID:     row["SiteID"],
			Lat:        lat,
			Lon:        lon,
			RecordedAt: row["RecordedAt"],
		})
	}
	return records
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Command probe resolves soil properties for one coordinate against the live
// SoilGrids API and prints the fallback outcome per property. It exits
// non-zero when every property fell back to its static default, which
// usually means the API is unreachable or the point is open water.
//
// Usage:
//
//	go run ./cmd/probe -lat 42.0308 -lon -93.6319
//	go run ./cmd/probe -lat 52.0907 -lon 5.1214 -property phh2o -verbose
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/soilgrids"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

func main() {
	lat := flag.Float64("lat", math.NaN(), "latitude of the point to probe")
	lon := flag.Float64("lon", math.NaN(), "longitude of the point to probe")
	property := flag.String("property", "", "probe a single property instead of all of them")
	baseURL := flag.String("base-url", "", "SoilGrids base URL (default https://rest.isric.org)")
	timeout := flag.Duration("timeout", 25*time.Second, "per-request timeout")
	rateLimit := flag.Float64("rate-limit", 2, "max requests per second (0 = unlimited)")
	verbose := flag.Bool("verbose", false, "log every lookup attempt")
	flag.Parse()

	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		flag.Usage()
		os.Exit(1)
	}

	props, err := selectProperties(*property)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(*lat, *lon, props, *baseURL, *timeout, *rateLimit, *verbose))
}

func run(lat, lon float64, props []domain.Property, baseURL string, timeout time.Duration, rateLimit float64, verbose bool) int {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(level, "text")
	metrics := observability.NewMetrics()

	client := soilgrids.NewClient(soilgrids.Config{
		BaseURL:          baseURL,
		Timeout:          timeout,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
		RateLimit:        rateLimit,
	}, metrics, logger)
	resolver := domain.NewResolver(client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	fmt.Printf("Probing soil properties at (%g, %g)\n\n", lat, lon)
	fmt.Printf("  %-8s %10s  %-10s %-8s %8s  %s\n", "PROPERTY", "VALUE", "UNIT", "SOURCE", "ATTEMPTS", "DEPTH")

	start := time.Now()
	fromProvider := 0
	for _, prop := range props {
		res := resolver.Resolve(ctx, coord, prop)
		if res.Source != domain.SourceDefault {
			fromProvider++
		}

		unit := res.Unit
		if unit == "" {
			unit = "-"
		}
		depth := res.DepthLabel
		if depth == "" {
			depth = "-"
		}
		fmt.Printf("  %-8s %10.2f  %-10s %s%-8s%s %8d  %s\n",
			res.Property, res.Value, unit, sourceColor(res.Source), res.Source, colorReset, res.Attempts, depth)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	fmt.Printf("\n%d/%d properties resolved from the provider in %s\n", fromProvider, len(props), elapsed)
	if fromProvider == 0 {
		return 1
	}
	return 0
}

// selectProperties returns the full property list, or just the named one.
func selectProperties(name string) ([]domain.Property, error) {
	if name == "" {
		return domain.Properties, nil
	}
	for _, prop := range domain.Properties {
		if string(prop) == name {
			return []domain.Property{prop}, nil
		}
	}
	return nil, fmt.Errorf("unknown property %q (valid: %v)", name, domain.Properties)
}

func sourceColor(source string) string {
	switch source {
	case domain.SourcePrimary:
		return colorGreen
	case domain.SourceNearby:
		return colorYellow
	default:
		return colorRed
	}
}

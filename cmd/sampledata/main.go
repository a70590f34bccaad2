// Command sampledata writes synthetic weather and production CSV files
// shaped like real panel telemetry, for exercising the upload endpoints.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const hoursPerYear = 365 * 24

var (
	weatherHeader = []string{
		"timestamp", "temperature", "humidity", "wind_speed",
		"cloud_cover", "solar_irradiance", "precipitation",
		"is_forecast", "location",
	}
	productionHeader = []string{
		"timestamp", "energy_output_kwh", "panel_id",
		"system_capacity_kw", "efficiency",
	}
)

func main() {
	days := flag.Int("days", 365, "number of days to generate")
	start := flag.String("start", "2024-01-01", "first day (YYYY-MM-DD)")
	outDir := flag.String("out-dir", ".", "directory for the generated files")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	startDay, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("invalid -start value: %v", err)
	}

	gen := newGenerator(startDay, *days*24, *seed)

	weatherPath := filepath.Join(*outDir, "weather_data.csv")
	count, err := writeCSV(weatherPath, weatherHeader, gen.weatherRows())
	if err != nil {
		log.Fatalf("write %s: %v", weatherPath, err)
	}
	fmt.Printf("Generated %d weather records in %s\n", count, weatherPath)

	productionPath := filepath.Join(*outDir, "production_data.csv")
	count, err = writeCSV(productionPath, productionHeader, gen.productionRows())
	if err != nil {
		log.Fatalf("write %s: %v", productionPath, err)
	}
	fmt.Printf("Generated %d production records in %s\n", count, productionPath)
}

// generator produces hourly telemetry with a yearly temperature cycle, a
// daily cycle on every solar-driven column, and gaussian measurement noise.
type generator struct {
	start time.Time
	hours int
	noise distuv.Normal
	rain  distuv.Exponential
}

func newGenerator(start time.Time, hours int, seed uint64) *generator {
	src := rand.NewSource(seed)
	return &generator{
		start: start,
		hours: hours,
		noise: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		rain:  distuv.Exponential{Rate: 2, Src: src},
	}
}

func (g *generator) weatherRows() [][]string {
	rows := make([][]string, 0, g.hours)
	for i := 0; i < g.hours; i++ {
		ts := g.start.Add(time.Duration(i) * time.Hour)
		seasonal := 10 * math.Sin(float64(i)*2*math.Pi/hoursPerYear)
		diurnal := math.Sin(float64(i) * 2 * math.Pi / 24)

		temperature := clamp(20+seasonal+5*diurnal+3*g.noise.Rand(), 0, 40)
		humidity := clamp(50+20*diurnal+10*g.noise.Rand(), 0, 100)
		windSpeed := clamp(5+3*g.noise.Rand(), 0, 20)
		cloudCover := clamp(30+20*diurnal+15*g.noise.Rand(), 0, 100)
		irradiance := clamp(500+300*diurnal+50*g.noise.Rand(), 0, 1000)
		precipitation := clamp(g.rain.Rand(), 0, 50)

		rows = append(rows, []string{
			ts.Format("2006-01-02T15:04:05"),
			num(temperature),
			num(humidity),
			num(windSpeed),
			num(cloudCover),
			num(irradiance),
			num(precipitation),
			"false",
			"Solar Farm A",
		})
	}
	return rows
}

func (g *generator) productionRows() [][]string {
	rows := make([][]string, 0, g.hours)
	for i := 0; i < g.hours; i++ {
		ts := g.start.Add(time.Duration(i) * time.Hour)
		irradiance := 500 + 300*math.Sin(float64(i)*2*math.Pi/24)
		energy := math.Max(irradiance*0.2+10*g.noise.Rand(), 0)

		rows = append(rows, []string{
			ts.Format("2006-01-02T15:04:05"),
			num(energy),
			"panel_001",
			"10.0",
			"20.0",
		})
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return 0, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return 0, err
	}
	return len(rows), f.Close()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

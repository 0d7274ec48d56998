// Command genmock generates a mock vehicle-telemetry CSV export with the same
// defects real exports carry: "Null" sentinels, negative speeds, unparsable
// timestamps, blank identifiers, and malformed geolocation strings. It is the
// fixture source for manual runs and for sizing test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out data/vehicle_data.csv -rows 500 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var baseTime = time.Date(2023, time.December, 25, 8, 0, 0, 0, time.UTC)

var companies = []string{"Acme Logistics", "Globex Freight", "Initech Fleet", "Umbrella Transit"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/vehicle_data.csv", "output CSV path")
	rows := flag.Int("rows", 500, "number of data rows to generate")
	vehicles := flag.Int("vehicles", 20, "number of distinct vehicles")
	seed := flag.Int64("seed", 42, "random seed for reproducible output")
	flag.Parse()

	if *rows < 1 || *vehicles < 1 {
		flag.Usage()
		return fmt.Errorf("-rows and -vehicles must be positive")
	}

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"vin", "company", "datehour", "geolocation", "mileage", "chargingpower", "remainingelectricalrange", "enginestatus", "speed"}
	if err := w.Write(header); err != nil {
		return err
	}

	stats := map[string]int{}
	for i := 0; i < *rows; i++ {
		if err := w.Write(genRow(rng, i, *vehicles, stats)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	log.Printf("wrote %d rows to %s", *rows, *out)
	log.Printf("defects: blank_vin=%d bad_timestamp=%d null_sentinel=%d negative_speed=%d malformed_geo=%d",
		stats["blank_vin"], stats["bad_timestamp"], stats["null_sentinel"], stats["negative_speed"], stats["malformed_geo"])
	return nil
}

// genRow produces one CSV row, injecting defects at the rates real exports
// show. The stats map counts injections so the log can report expected drop
// counts for test assertions.
func genRow(rng *rand.Rand, i, vehicles int, stats map[string]int) []string {
	vehicle := rng.Intn(vehicles)
	vin := fmt.Sprintf("WVWZZZ1JZ%07d", vehicle+1)
	company := companies[vehicle%len(companies)]
	recorded := baseTime.Add(time.Duration(i) * 5 * time.Minute)

	datehour := recorded.Format("02/01/2006 15:04:05")
	lat := 48.0 + rng.Float64()*4.0
	lon := 2.0 + rng.Float64()*6.0
	geo := fmt.Sprintf("%.5f,%.5f", lat, lon)
	mileage := fmt.Sprintf("%d", 10000+vehicle*1000+i*2)
	power := fmt.Sprintf("%.1f", rng.Float64()*22)
	rangeKM := fmt.Sprintf("%d", 50+rng.Intn(300))
	engine := []string{"ON", "OFF", "1", "0", "on"}[rng.Intn(5)]
	speed := fmt.Sprintf("%d", rng.Intn(130))

	switch roll := rng.Float64(); {
	case roll < 0.02:
		vin = ""
		stats["blank_vin"]++
	case roll < 0.05:
		datehour = recorded.Format("2006-01-02T15:04:05") // wrong layout, row gets dropped
		stats["bad_timestamp"]++
	case roll < 0.15:
		mileage = "Null"
		stats["null_sentinel"]++
	case roll < 0.18:
		speed = fmt.Sprintf("-%d", 1+rng.Intn(20))
		stats["negative_speed"]++
	case roll < 0.21:
		geo = "unknown"
		stats["malformed_geo"]++
	case roll < 0.24:
		power = "Null"
		stats["null_sentinel"]++
	}

	return []string{vin, company, datehour, geo, mileage, power, rangeKM, engine, speed}
}

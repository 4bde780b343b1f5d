// Command epoch-sim generates a synthetic scenario for exercising the
// multilateration pipeline: a random station registry and an observation
// stream with physically exact flight-time receive timestamps, optionally
// jittered.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/ingest"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
	"github.com/qrqiuren/lonepseudoranger/internal/units"
)

var (
	registryOut = flag.String("registry", "stations.json", "output path for the station registry")
	obsOut      = flag.String("observations", "observations.csv", "output path for the observation stream")
	numStations = flag.Int("stations", 6, "number of ground stations")
	numEpochs   = flag.Int("epochs", 10, "number of transmit epochs")
	emitterID   = flag.String("emitter", "sim-1", "emitter id")
	noisePico   = flag.Float64("noise-ps", 0, "gaussian timing jitter sigma in picoseconds")
	seed        = flag.Int64("seed", 1, "random seed")
)

func main() {
	flag.Parse()

	if *numStations < 4 {
		log.Fatalf("need at least 4 stations, got %d", *numStations)
	}
	rng := rand.New(rand.NewSource(*seed))

	stations := make([]ingest.RegistryStation, *numStations)
	for i := range stations {
		stations[i] = ingest.RegistryStation{
			ID: fmt.Sprintf("gs-%d", i+1),
			// Ground stations scattered over a ~20 km patch with mild relief.
			X:     rng.Float64()*20000 - 10000,
			Y:     rng.Float64()*20000 - 10000,
			Z:     rng.Float64() * 500,
			Delay: 0.005 + rng.Float64()*0.02,
		}
	}
	if err := writeRegistry(*registryOut, stations); err != nil {
		log.Fatalf("write registry: %v", err)
	}

	f, err := os.Create(*obsOut)
	if err != nil {
		log.Fatalf("create observation stream: %v", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# synthetic scenario: emitter=%s stations=%d epochs=%d noise=%.0fps seed=%d\n",
		*emitterID, *numStations, *numEpochs, *noisePico, *seed)
	fmt.Fprintln(f, "# emitterID,transmitTime,stationID,receiveTime")

	// Emitter starts above the patch and moves on a straight track, one
	// epoch per second.
	start := geom.Point{X: -8000, Y: -5000, Z: 9000}
	velocity := geom.Point{X: 220, Y: 150, Z: -5}
	base := timebase.New(1700000000, 0)

	for e := 0; e < *numEpochs; e++ {
		t0 := timebase.New(base.Unix()+int64(e), 0)
		pos := start.Add(velocity.Scale(float64(e)))
		for _, st := range stations {
			d := geom.Distance(pos, geom.Point{X: st.X, Y: st.Y, Z: st.Z})
			flightPico := units.FlightSecondsFromRange(d) * 1e12
			if *noisePico > 0 {
				flightPico += rng.NormFloat64() * *noisePico
			}
			rx := timebase.New(t0.Unix(), int64(math.Round(flightPico)))
			fmt.Fprintf(f, "%s,%s,%s,%s\n", *emitterID, t0, st.ID, rx)
		}
		log.Printf("epoch %d: emitter at (%.0f, %.0f, %.0f)", e, pos.X, pos.Y, pos.Z)
	}
	log.Printf("wrote %s and %s", *registryOut, *obsOut)
}

func writeRegistry(path string, stations []ingest.RegistryStation) error {
	data, err := json.MarshalIndent(map[string]interface{}{"stations": stations}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

package main

import (
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
)

func main() {
	var (
		baseURL    = flag.String("base-url", "http://localhost:8080", "dMRV engine base URL")
		fleetSize  = flag.Int("fleet-size", 10, "number of inverters to register")
		fraudulent = flag.Int("fraudulent", 0, "number of inverters reporting impossible output")
		days       = flag.Int("days", 7, "days of readings to generate, ending yesterday")
		verify     = flag.Bool("verify", false, "calculate and verify a credit per inverter per day")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if *fraudulent > *fleetSize {
		logger.Fatal("Fraudulent count exceeds fleet size",
			zap.Int("fraudulent", *fraudulent), zap.Int("fleet_size", *fleetSize))
	}

	sim := NewSimulator(*baseURL, logger)

	logger.Info("Registering fleet",
		zap.Int("fleet_size", *fleetSize),
		zap.Int("fraudulent", *fraudulent),
	)
	fleet, err := sim.RegisterFleet(*fleetSize, *fraudulent)
	if err != nil {
		logger.Fatal("Failed to register fleet", zap.Error(err))
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -*days)
	if err := sim.StreamReadings(fleet, start, end); err != nil {
		logger.Fatal("Failed to stream readings", zap.Error(err))
	}

	if *verify {
		sim.VerifyFleet(fleet, start, end)
	}

	logger.Info("Simulation complete")
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// loadSampleFile reads samples in the POST /api/v1/samples body format.
// Invalid entries are skipped and counted.
func loadSampleFile(path string) ([]models.HealthSample, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var req models.IngestSamplesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	samples := make([]models.HealthSample, 0, len(req.Samples))
	skipped := 0
	for _, in := range req.Samples {
		s, err := in.ToSample("")
		if err != nil {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// parseAsOf parses a YYYY-MM-DD reference day, defaulting to now
func parseAsOf(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(models.DayKeyLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

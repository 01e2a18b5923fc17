package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Client sample ID rejections
var (
	ErrInvalidSampleID = errors.New("sample id is not a UUID")
	ErrSampleIDVersion = errors.New("sample id must be a UUIDv7")
	ErrSampleIDFuture  = errors.New("sample id was issued in the future")
)

// SampleIDClockSkew is how far ahead of the server clock a client ID may be issued
const SampleIDClockSkew = time.Minute

// validateSampleID checks a client-generated sample ID. The ID must be a UUIDv7
// whose embedded issue time is no later than now plus SampleIDClockSkew.
func validateSampleID(id string, now time.Time) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSampleID, id)
	}
	if v := parsed.Version(); v != 7 {
		return fmt.Errorf("%w, got version %d", ErrSampleIDVersion, v)
	}

	sec, nsec := parsed.Time().UnixTime()
	if issued := time.Unix(sec, nsec); issued.After(now.Add(SampleIDClockSkew)) {
		return fmt.Errorf("%w: issued %s", ErrSampleIDFuture, issued.UTC().Format(time.RFC3339))
	}
	return nil
}

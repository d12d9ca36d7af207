// internal/va500/reading.go
package va500

import (
	"bytes"
	"math"
	"strconv"
	"time"
)

// Reading is one decoded range measurement. Readings are handed around by
// value; consumers never share a reference with the producer.
type Reading struct {
	DistanceMeters float64   `json:"distance_meters"`
	Timestamp      time.Time `json:"timestamp"`
	Valid          bool      `json:"valid"`
}

// DecodeReading parses one measurement line into a Reading stamped with now.
//
// The instrument emits range lines of the form "$012.345,M" ('$' header,
// range, unit) or, in bare output mode, just the decimal range. A line that
// does not decode yields Reading{Valid: false}; the caller's next scheduled
// read is the recovery path, so no error is returned.
func DecodeReading(line []byte, now time.Time) Reading {
	invalid := Reading{Timestamp: now, Valid: false}

	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return invalid
	}

	if trimmed[0] == dataHeader {
		trimmed = trimmed[1:]
	}

	// Drop the unit field, if present
	if idx := bytes.IndexByte(trimmed, ','); idx >= 0 {
		unit := bytes.TrimSpace(trimmed[idx+1:])
		if len(unit) != 1 || (unit[0] != 'm' && unit[0] != 'M') {
			return invalid
		}
		trimmed = trimmed[:idx]
	}

	distance, err := strconv.ParseFloat(string(bytes.TrimSpace(trimmed)), 64)
	if err != nil {
		return invalid
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return invalid
	}

	return Reading{
		DistanceMeters: distance,
		Timestamp:      now,
		Valid:          true,
	}
}

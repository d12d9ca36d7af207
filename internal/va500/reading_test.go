// internal/va500/reading_test.go
package va500

import (
	"testing"
	"time"
)

func TestDecodeReading(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		line         string
		wantValid    bool
		wantDistance float64
	}{
		{name: "data line with unit", line: "$012.345,M", wantValid: true, wantDistance: 12.345},
		{name: "data line lowercase unit", line: "$7.5,m", wantValid: true, wantDistance: 7.5},
		{name: "bare decimal", line: "23.456", wantValid: true, wantDistance: 23.456},
		{name: "surrounding whitespace", line: "  4.20  ", wantValid: true, wantDistance: 4.2},
		{name: "zero range", line: "$0.000,M", wantValid: true, wantDistance: 0},
		{name: "empty line", line: "", wantValid: false},
		{name: "garbage", line: "not-a-number", wantValid: false},
		{name: "wrong unit", line: "$12.3,ft", wantValid: false},
		{name: "negative range", line: "$-1.0,M", wantValid: false},
		{name: "nan", line: "$NaN,M", wantValid: false},
		{name: "infinity", line: "$+Inf,M", wantValid: false},
		{name: "reply frame", line: "#839;500", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := DecodeReading([]byte(tt.line), now)

			if reading.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", reading.Valid, tt.wantValid)
			}
			if !reading.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", reading.Timestamp, now)
			}
			if tt.wantValid && reading.DistanceMeters != tt.wantDistance {
				t.Errorf("DistanceMeters = %v, want %v", reading.DistanceMeters, tt.wantDistance)
			}
		})
	}
}

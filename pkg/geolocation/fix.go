package geolocation

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Priority trades battery and time cost against fix accuracy.
type Priority int

const (
	// PriorityBalancedPower favors power usage over accuracy.
	PriorityBalancedPower Priority = iota
	// PriorityHighAccuracy requests the most accurate fix available.
	PriorityHighAccuracy
)

// PriorityFor returns PriorityHighAccuracy iff highAccuracy is set.
func PriorityFor(highAccuracy bool) Priority {
	if highAccuracy {
		return PriorityHighAccuracy
	}
	return PriorityBalancedPower
}

func (p Priority) String() string {
	if p == PriorityHighAccuracy {
		return "high_accuracy"
	}
	return "balanced_power"
}

// Location is a raw fix as produced by a LocationProvider.
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	// Accuracy is the horizontal accuracy in meters, at single precision.
	Accuracy float32
}

// LocationProvider produces one-shot fixes.
//
// CurrentFix returns (nil, nil) when the provider completes without a fix,
// for example on a cold start with nothing cached.
type LocationProvider interface {
	CurrentFix(ctx context.Context, priority Priority) (*Location, error)
}

// LocationFix is the payload returned to the script layer. All values are
// decimal strings.
type LocationFix struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Altitude  string `json:"altitude"`
	Accuracy  string `json:"accuracy"`
}

// NewLocationFix renders loc the way the native runtime renders its doubles:
// shortest round-trip digits, always with a fractional part.
func NewLocationFix(loc Location) LocationFix {
	return LocationFix{
		Latitude:  formatDecimal(loc.Latitude, 64),
		Longitude: formatDecimal(loc.Longitude, 64),
		Altitude:  formatDecimal(loc.Altitude, 64),
		Accuracy:  formatDecimal(float64(loc.Accuracy), 32),
	}
}

// formatDecimal renders v with the shortest digits that round-trip at
// bitSize. Magnitudes in [1e-3, 1e7) and zero are written as plain decimals,
// anything else as d.dddE<exp>. There is always at least one fractional
// digit.
func formatDecimal(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	if abs := math.Abs(v); v == 0 || (abs >= 1e-3 && abs < 1e7) {
		return withFraction(strconv.FormatFloat(v, 'f', -1, bitSize))
	}

	// 'E' gives e.g. "-4.2E-04" or "1E+07".
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'E', -1, bitSize), "E")
	e, _ := strconv.Atoi(exp)
	return withFraction(mantissa) + "E" + strconv.Itoa(e)
}

func withFraction(s string) string {
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

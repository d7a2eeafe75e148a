package sh

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownToolkit is returned when a toolkit name or value is not one of
// the supported conventions.
var ErrUnknownToolkit = errors.New("unknown SH toolkit convention")

// Toolkit selects the normalization and sign convention used to map SH
// coefficients to basis functions. Coefficient files written by FSL and by
// MRtrix are not interchangeable.
type Toolkit int

const (
	// FSL evaluates the Legendre function at cos(theta); negative orders
	// carry the cosine terms.
	FSL Toolkit = iota

	// MRTRIX evaluates the Legendre function at -cos(theta); positive
	// orders carry the cosine terms.
	MRTRIX
)

func (t Toolkit) String() string {
	switch t {
	case FSL:
		return "FSL"
	case MRTRIX:
		return "MRTRIX"
	default:
		return fmt.Sprintf("Toolkit(%d)", int(t))
	}
}

// Valid reports whether t is a supported convention.
func (t Toolkit) Valid() bool {
	return t == FSL || t == MRTRIX
}

// ParseToolkit maps a case-insensitive name to a Toolkit.
func ParseToolkit(name string) (Toolkit, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FSL":
		return FSL, nil
	case "MRTRIX", "MRTRIX3":
		return MRTRIX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownToolkit, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Toolkit) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToolkit, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Toolkit) UnmarshalText(text []byte) error {
	parsed, err := ParseToolkit(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// eval returns the real SH basis function of degree l and order m at the
// given spherical angles under convention t.
func (t Toolkit) eval(l, m int, theta, phi float64) float64 {
	am := m
	if am < 0 {
		am = -am
	}

	switch t {
	case FSL:
		mag := normalization(l, am) * AssociatedLegendre(l, am, math.Cos(theta))
		switch {
		case m < 0:
			return math.Sqrt2 * mag * math.Cos(float64(-m)*phi)
		case m == 0:
			return mag
		default:
			return parity(m) * math.Sqrt2 * mag * math.Sin(float64(m)*phi)
		}
	case MRTRIX:
		mag := normalization(l, am) * AssociatedLegendre(l, am, -math.Cos(theta))
		switch {
		case m > 0:
			return mag * math.Cos(float64(m)*phi)
		case m == 0:
			return mag
		default:
			return mag * math.Sin(float64(-m)*phi)
		}
	default:
		return math.NaN()
	}
}

// normalization is sqrt((2l+1)/(4π) · (l-|m|)!/(l+|m|)!).
func normalization(l, am int) float64 {
	return math.Sqrt(float64(2*l+1) / (4.0 * math.Pi) * Factorial(l-am) / Factorial(l+am))
}

// parity returns (-1)^m.
func parity(m int) float64 {
	if m%2 != 0 {
		return -1
	}
	return 1
}

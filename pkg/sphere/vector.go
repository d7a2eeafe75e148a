// Package sphere provides the fixed direction sets on which orientation
// distribution functions are sampled, and the conversion of those
// directions to spherical coordinates.
package sphere

import (
	"math"
)

// Epsilon is the magnitude below which a direction is treated as degenerate.
const Epsilon = 1e-6

// Vector3 is a direction or point in 3D space.
type Vector3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dot returns the scalar product of v and w.
func (v Vector3) Dot(w Vector3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Scale returns v multiplied by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// Add returns v + w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Normalize returns v scaled to unit length. Degenerate vectors are
// returned unchanged.
func (v Vector3) Normalize() Vector3 {
	n := v.Norm()
	if n < Epsilon {
		return v
	}
	return v.Scale(1 / n)
}

// Coord is a direction in spherical coordinates. Theta is the polar angle
// measured from the z-axis, Phi the azimuth in the xy-plane.
type Coord struct {
	Theta float64
	Phi   float64
}

// ToSpherical converts a Cartesian direction to spherical coordinates.
// Directions shorter than Epsilon map to (π/2, π/2).
func ToSpherical(v Vector3) Coord {
	mag := v.Norm()
	if mag < Epsilon {
		return Coord{Theta: math.Pi / 2, Phi: math.Pi / 2}
	}
	return Coord{
		Theta: math.Acos(clamp(v.Z/mag, -1, 1)),
		Phi:   math.Atan2(v.Y, v.X),
	}
}

// FromSpherical returns the unit vector pointing along c.
func FromSpherical(c Coord) Vector3 {
	st, ct := math.Sincos(c.Theta)
	sp, cp := math.Sincos(c.Phi)
	return Vector3{st * cp, st * sp, ct}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

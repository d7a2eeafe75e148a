// Package phantom generates synthetic SH coefficient images with known
// ODFs.
package phantom

import (
	"fmt"
	"math"

	"shodf/internal/models"
	"shodf/pkg/sh"
	"shodf/pkg/sphere"
)

// VoxelFunc returns the coefficient vector of voxel (a,b,c).
type VoxelFunc func(a, b, c int) []float64

// Build allocates a coefficient image of geometry g and fills every voxel
// from f. Each vector must have g.Size[3] entries.
func Build(g models.Geometry4, f VoxelFunc) (*models.Volume4D, error) {
	if _, err := sh.OrderFor(g.Size[3]); err != nil {
		return nil, err
	}
	vol, err := models.NewVolume4D(g)
	if err != nil {
		return nil, err
	}
	for c := 0; c < g.Size[2]; c++ {
		for b := 0; b < g.Size[1]; b++ {
			for a := 0; a < g.Size[0]; a++ {
				coeffs := f(a, b, c)
				if len(coeffs) != g.Size[3] {
					return nil, fmt.Errorf("voxel (%d,%d,%d) has %d coefficients, want %d", a, b, c, len(coeffs), g.Size[3])
				}
				for d, v := range coeffs {
					vol.Set(a, b, c, d, v)
				}
			}
		}
	}
	return vol, nil
}

// Uniform repeats coeffs in every voxel.
func Uniform(g models.Geometry4, coeffs []float64) (*models.Volume4D, error) {
	return Build(g, func(a, b, c int) []float64 { return coeffs })
}

// IsotropicCoefficients returns the coefficient vector of a flat ODF equal
// to value in every direction. Both toolkits share the l = 0 term.
func IsotropicCoefficients(order int, value float64) ([]float64, error) {
	if err := sh.ValidateOrder(order); err != nil {
		return nil, err
	}
	coeffs := make([]float64, sh.NumCoefficients(order))
	coeffs[0] = value * math.Sqrt(4*math.Pi)
	return coeffs, nil
}

// Isotropic fills g with flat ODFs of the given value.
func Isotropic(g models.Geometry4, value float64) (*models.Volume4D, error) {
	order, err := sh.OrderFor(g.Size[3])
	if err != nil {
		return nil, err
	}
	coeffs, err := IsotropicCoefficients(order, value)
	if err != nil {
		return nil, err
	}
	return Uniform(g, coeffs)
}

// FiberCoefficients fits SH coefficients to a sum of Watson lobes
// exp(kappa·((u·d)²-1)), one per fiber direction d, sampled on set.
func FiberCoefficients(order int, toolkit sh.Toolkit, set *sphere.DirectionSet, kappa float64, dirs ...sphere.Vector3) ([]float64, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("at least one fiber direction is required")
	}
	if kappa < 0 {
		return nil, fmt.Errorf("concentration must be non-negative, got %g", kappa)
	}

	samples := make([]float64, set.Len())
	for _, d := range dirs {
		dn := d.Normalize()
		if dn.Norm() < sphere.Epsilon {
			return nil, fmt.Errorf("fiber direction %+v is degenerate", d)
		}
		for i := range samples {
			cos := set.At(i).Dot(dn)
			samples[i] += math.Exp(kappa * (cos*cos - 1))
		}
	}

	basis, err := sh.NewBasis(order, toolkit, set.Spherical())
	if err != nil {
		return nil, err
	}
	return sh.Fit(basis, samples, 0)
}

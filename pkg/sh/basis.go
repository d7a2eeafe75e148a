// Package sh builds real, symmetric spherical harmonic bases and converts
// between SH coefficient vectors and discretely sampled ODFs.
package sh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"shodf/pkg/sphere"
)

// ErrInvalidOrder is returned for SH orders that are negative or odd.
var ErrInvalidOrder = errors.New("SH order must be a non-negative even integer")

// NumCoefficients returns the number of even-degree real SH terms up to and
// including the given order: (order+1)(order+2)/2.
func NumCoefficients(order int) int {
	return (order + 1) * (order + 2) / 2
}

// ValidateOrder checks that order is usable for a symmetric basis.
func ValidateOrder(order int) error {
	if order < 0 || order%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	return nil
}

// OrderFor returns the SH order whose coefficient count is n.
func OrderFor(n int) (int, error) {
	for order := 0; NumCoefficients(order) <= n; order += 2 {
		if NumCoefficients(order) == n {
			return order, nil
		}
	}
	return 0, fmt.Errorf("%w: no order has %d coefficients", ErrInvalidOrder, n)
}

// Degrees returns the degree l of every basis column, in column order.
func Degrees(order int) []int {
	degrees := make([]int, 0, NumCoefficients(order))
	for l := 0; l <= order; l += 2 {
		for m := -l; m <= l; m++ {
			degrees = append(degrees, l)
		}
	}
	return degrees
}

// NewBasis evaluates the SH basis of the given order at each sampling
// direction. Row p holds direction p; columns run over l = 0, 2, ..., order
// and, within each degree, m = -l ... l.
func NewBasis(order int, toolkit Toolkit, coords []sphere.Coord) (*mat.Dense, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}
	if !toolkit.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToolkit, int(toolkit))
	}
	if len(coords) == 0 {
		return nil, sphere.ErrEmptyDirections
	}

	basis := mat.NewDense(len(coords), NumCoefficients(order), nil)
	for p, c := range coords {
		j := 0
		for l := 0; l <= order; l += 2 {
			for m := -l; m <= l; m++ {
				basis.Set(p, j, toolkit.eval(l, m, c.Theta, c.Phi))
				j++
			}
		}
	}
	return basis, nil
}

// Reconstruct samples the ODF described by coeffs, writing basis·coeffs
// into dst. dst must have one entry per basis row.
func Reconstruct(dst []float64, basis mat.Matrix, coeffs []float64) error {
	rows, cols := basis.Dims()
	if len(coeffs) != cols {
		return fmt.Errorf("coefficient vector has %d entries, basis expects %d", len(coeffs), cols)
	}
	if len(dst) != rows {
		return fmt.Errorf("output has %d entries, basis has %d directions", len(dst), rows)
	}
	out := mat.NewVecDense(rows, dst)
	out.MulVec(basis, mat.NewVecDense(cols, coeffs))
	return nil
}

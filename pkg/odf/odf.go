// Package odf provides per-voxel measures on discretely sampled orientation
// distribution functions.
package odf

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"shodf/internal/models"
	"shodf/pkg/sphere"
)

// ErrEmptyODF is returned for ODFs without samples.
var ErrEmptyODF = errors.New("odf has no samples")

// GFA returns the generalized fractional anisotropy of the samples:
// std(ψ)/rms(ψ), using the unbiased standard deviation. It is 0 for an
// isotropic or all-zero ODF and 1 for a single nonzero sample.
func GFA(samples []float64) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}
	sumSq := floats.Dot(samples, samples)
	if sumSq == 0 {
		return 0
	}
	std := stat.StdDev(samples, nil)
	rms := math.Sqrt(sumSq / float64(n))
	gfa := std / rms
	if gfa > 1 {
		return 1
	}
	return gfa
}

// Normalize scales the samples in place so that they sum to one. An ODF
// summing to zero is left unchanged.
func Normalize(samples []float64) {
	sum := floats.Sum(samples)
	if sum == 0 {
		return
	}
	floats.Scale(1/sum, samples)
}

// MinMaxNormalize maps the samples in place onto [0, 1]. A constant ODF
// becomes all zeros.
func MinMaxNormalize(samples []float64) {
	if len(samples) == 0 {
		return
	}
	lo, hi := floats.Min(samples), floats.Max(samples)
	if hi == lo {
		for i := range samples {
			samples[i] = 0
		}
		return
	}
	floats.AddConst(-lo, samples)
	floats.Scale(1/(hi-lo), samples)
}

// PeakIndex returns the index of the largest sample.
func PeakIndex(samples []float64) (int, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyODF
	}
	return floats.MaxIdx(samples), nil
}

// PrincipalDirection returns the sampling direction of the largest sample.
func PrincipalDirection(set *sphere.DirectionSet, samples []float64) (sphere.Vector3, error) {
	if len(samples) != set.Len() {
		return sphere.Vector3{}, errors.New("odf length does not match direction set")
	}
	idx, err := PeakIndex(samples)
	if err != nil {
		return sphere.Vector3{}, err
	}
	return set.At(idx), nil
}

// GFAMap computes the GFA of every voxel of an ODF image.
func GFAMap(odfs *models.VectorVolume) *models.ScalarVolume {
	g := odfs.Geometry()
	out := models.NewScalarVolume(g)
	for c := 0; c < g.Size[2]; c++ {
		for b := 0; b < g.Size[1]; b++ {
			for a := 0; a < g.Size[0]; a++ {
				out.Set(a, b, c, GFA(odfs.Vector(a, b, c)))
			}
		}
	}
	return out
}

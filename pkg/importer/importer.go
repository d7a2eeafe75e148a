// Package importer turns 4D spherical harmonic coefficient images into a
// per-voxel coefficient image and a per-voxel ODF image sampled on a fixed
// direction set.
package importer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"shodf/internal/models"
	"shodf/pkg/odf"
	"shodf/pkg/sh"
	"shodf/pkg/sphere"
)

// ErrDimensionMismatch is returned when the fourth axis of the input does
// not hold exactly one entry per SH coefficient.
var ErrDimensionMismatch = errors.New("coefficient-count mismatch")

// Params holds the importer configuration.
type Params struct {
	// Order is the maximum even SH degree of the input coefficients.
	Order int

	// Toolkit is the convention the coefficients were written in.
	Toolkit sh.Toolkit

	// NumCores bounds the number of voxel slabs processed concurrently.
	// Zero or less means all available CPUs.
	NumCores int

	// Directions is the ODF sampling scheme. Nil selects sphere.Default().
	Directions *sphere.DirectionSet

	// Logger receives progress messages. Nil discards them.
	Logger *zap.Logger
}

// Metrics summarizes the last reconstruction.
type Metrics struct {
	// Voxels is the number of reconstructed voxels
	Voxels int

	// OdfMin and OdfMax bound all reconstructed ODF samples
	OdfMin float64
	OdfMax float64

	// MeanGFA and MaxGFA describe the generalized fractional anisotropy map
	MeanGFA float64
	MaxGFA  float64

	// Elapsed is the wall time of GenerateData
	Elapsed time.Duration
}

type basisKey struct {
	order   int
	toolkit sh.Toolkit
}

// Importer reconstructs ODF images from SH coefficient images. The SH basis
// is built on first use and reused until the order, toolkit or direction
// set changes. An Importer is not safe for concurrent use.
type Importer struct {
	order      int
	toolkit    sh.Toolkit
	numCores   int
	directions *sphere.DirectionSet
	logger     *zap.Logger

	input *models.Volume4D

	basis    *mat.Dense
	basisFor basisKey

	coefficients *models.VectorVolume
	odfs         *models.VectorVolume
	gfa          *models.ScalarVolume
	metrics      Metrics
}

// NewImporter creates an importer from params.
func NewImporter(params *Params) (*Importer, error) {
	if params == nil {
		params = &Params{}
	}
	if err := sh.ValidateOrder(params.Order); err != nil {
		return nil, err
	}
	if !params.Toolkit.Valid() {
		return nil, fmt.Errorf("%w: %d", sh.ErrUnknownToolkit, int(params.Toolkit))
	}

	im := &Importer{
		order:      params.Order,
		toolkit:    params.Toolkit,
		numCores:   params.NumCores,
		directions: params.Directions,
		logger:     params.Logger,
	}
	if im.numCores <= 0 {
		im.numCores = runtime.NumCPU()
	}
	if im.directions == nil {
		im.directions = sphere.Default()
	}
	if im.logger == nil {
		im.logger = zap.NewNop()
	}
	return im, nil
}

// Order returns the configured SH order.
func (im *Importer) Order() int { return im.order }

// Toolkit returns the configured SH convention.
func (im *Importer) Toolkit() sh.Toolkit { return im.toolkit }

// Directions returns the ODF sampling scheme.
func (im *Importer) Directions() *sphere.DirectionSet { return im.directions }

// NumCoefficients returns the expected length of the input's fourth axis.
func (im *Importer) NumCoefficients() int { return sh.NumCoefficients(im.order) }

// SetInput sets the 4D coefficient image. Nil clears it.
func (im *Importer) SetInput(input *models.Volume4D) {
	im.input = input
}

// SetOrder changes the SH order and drops the cached basis.
func (im *Importer) SetOrder(order int) error {
	if err := sh.ValidateOrder(order); err != nil {
		return err
	}
	if order != im.order {
		im.order = order
		im.invalidate()
	}
	return nil
}

// SetToolkit changes the SH convention and drops the cached basis.
func (im *Importer) SetToolkit(toolkit sh.Toolkit) error {
	if !toolkit.Valid() {
		return fmt.Errorf("%w: %d", sh.ErrUnknownToolkit, int(toolkit))
	}
	if toolkit != im.toolkit {
		im.toolkit = toolkit
		im.invalidate()
	}
	return nil
}

// SetDirections changes the sampling scheme and drops the cached basis.
func (im *Importer) SetDirections(set *sphere.DirectionSet) error {
	if set == nil || set.Len() == 0 {
		return sphere.ErrEmptyDirections
	}
	if set != im.directions {
		im.directions = set
		im.invalidate()
	}
	return nil
}

func (im *Importer) invalidate() {
	im.basis = nil
}

// Basis returns the SH basis for the current order and toolkit, building it
// if it is not cached.
func (im *Importer) Basis() (*mat.Dense, error) {
	key := basisKey{order: im.order, toolkit: im.toolkit}
	if im.basis != nil && im.basisFor == key {
		return im.basis, nil
	}

	basis, err := sh.NewBasis(im.order, im.toolkit, im.directions.Spherical())
	if err != nil {
		return nil, fmt.Errorf("failed to build SH basis: %w", err)
	}
	im.basis = basis
	im.basisFor = key

	rows, cols := basis.Dims()
	im.logger.Debug("built SH basis",
		zap.Int("order", im.order),
		zap.Stringer("toolkit", im.toolkit),
		zap.Int("directions", rows),
		zap.Int("coefficients", cols))
	return basis, nil
}

// GenerateData reconstructs the coefficient and ODF images from the input.
// Without an input it does nothing and returns nil.
func (im *Importer) GenerateData(ctx context.Context) error {
	start := time.Now()

	basis, err := im.Basis()
	if err != nil {
		return err
	}
	if im.input == nil {
		im.logger.Debug("no input image set, skipping reconstruction")
		return nil
	}

	g4 := im.input.Geometry
	numCoeffs := sh.NumCoefficients(im.order)
	if g4.Size[3] != numCoeffs {
		return fmt.Errorf("%w: input has %d entries along axis 3, order %d needs %d",
			ErrDimensionMismatch, g4.Size[3], im.order, numCoeffs)
	}
	if len(im.input.Data) != g4.Size[0]*g4.Size[1]*g4.Size[2]*g4.Size[3] {
		return fmt.Errorf("%w: input buffer holds %d values for size %v",
			ErrDimensionMismatch, len(im.input.Data), g4.Size)
	}

	g3 := g4.Project()
	coefficients, err := models.NewVectorVolume(g3, numCoeffs)
	if err != nil {
		return fmt.Errorf("failed to allocate coefficient image: %w", err)
	}
	odfs, err := models.NewVectorVolume(g3, im.directions.Len())
	if err != nil {
		return fmt.Errorf("failed to allocate ODF image: %w", err)
	}

	im.logger.Info("reconstructing ODF image",
		zap.Ints("size", g3.Size[:]),
		zap.Int("order", im.order),
		zap.Stringer("toolkit", im.toolkit),
		zap.Int("workers", im.numCores))

	// Each slab a = const is independent; slabs share only the read-only basis.
	var completed atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(im.numCores)
	for a := 0; a < g3.Size[0]; a++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := im.reconstructSlab(a, basis, coefficients, odfs); err != nil {
				return err
			}
			done := completed.Add(1)
			im.logger.Debug("slab reconstructed",
				zap.Int("slab", a),
				zap.Int64("completed", done),
				zap.Int("total", g3.Size[0]))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("ODF reconstruction failed: %w", err)
	}

	im.coefficients = coefficients
	im.odfs = odfs
	im.gfa = odf.GFAMap(odfs)
	im.metrics = computeMetrics(odfs, im.gfa)
	im.metrics.Elapsed = time.Since(start)

	im.logger.Info("ODF reconstruction complete",
		zap.Int("voxels", im.metrics.Voxels),
		zap.Float64("meanGFA", im.metrics.MeanGFA),
		zap.Duration("elapsed", im.metrics.Elapsed))
	return nil
}

func (im *Importer) reconstructSlab(a int, basis *mat.Dense, coefficients, odfs *models.VectorVolume) error {
	g := coefficients.Geometry()
	for c := 0; c < g.Size[2]; c++ {
		for b := 0; b < g.Size[1]; b++ {
			coeffs := coefficients.Vector(a, b, c)
			for d := range coeffs {
				coeffs[d] = im.input.At(a, b, c, d)
			}
			if err := sh.Reconstruct(odfs.Vector(a, b, c), basis, coeffs); err != nil {
				return fmt.Errorf("voxel (%d,%d,%d): %w", a, b, c, err)
			}
		}
	}
	return nil
}

func computeMetrics(odfs *models.VectorVolume, gfa *models.ScalarVolume) Metrics {
	data := odfs.Data()
	return Metrics{
		Voxels:  odfs.Geometry().NumVoxels(),
		OdfMin:  floats.Min(data),
		OdfMax:  floats.Max(data),
		MeanGFA: stat.Mean(gfa.Data, nil),
		MaxGFA:  floats.Max(gfa.Data),
	}
}

// CoefficientImage returns the per-voxel coefficient image of the last
// reconstruction, or nil.
func (im *Importer) CoefficientImage() *models.VectorVolume { return im.coefficients }

// OdfImage returns the per-voxel ODF image of the last reconstruction, or nil.
func (im *Importer) OdfImage() *models.VectorVolume { return im.odfs }

// GFAImage returns the generalized fractional anisotropy map of the last
// reconstruction, or nil.
func (im *Importer) GFAImage() *models.ScalarVolume { return im.gfa }

// GetMetrics returns statistics of the last reconstruction.
func (im *Importer) GetMetrics() Metrics { return im.metrics }

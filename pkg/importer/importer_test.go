package importer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodf/internal/models"
	"shodf/pkg/sh"
	"shodf/pkg/sphere"
)

// createTestInput builds a 4D coefficient image where every voxel holds
// the vector returned by coeffs.
func createTestInput(t *testing.T, g models.Geometry4, coeffs func(a, b, c int) []float64) *models.Volume4D {
	t.Helper()
	vol, err := models.NewVolume4D(g)
	require.NoError(t, err)
	for c := 0; c < g.Size[2]; c++ {
		for b := 0; b < g.Size[1]; b++ {
			for a := 0; a < g.Size[0]; a++ {
				for d, v := range coeffs(a, b, c) {
					vol.Set(a, b, c, d, v)
				}
			}
		}
	}
	return vol
}

func newTestImporter(t *testing.T, order int, tk sh.Toolkit, cores int) *Importer {
	t.Helper()
	im, err := NewImporter(&Params{Order: order, Toolkit: tk, NumCores: cores})
	require.NoError(t, err)
	return im
}

// TestIdenticalVoxels reconstructs a 2×2×2 volume of identical coefficient vectors
func TestIdenticalVoxels(t *testing.T) {
	order := 4
	n := sh.NumCoefficients(order)
	rng := rand.New(rand.NewSource(7))
	shared := make([]float64, n)
	for i := range shared {
		shared[i] = rng.Float64() - 0.5
	}

	input := createTestInput(t, models.IdentityGeometry4(2, 2, 2, n), func(a, b, c int) []float64 { return shared })

	for _, tk := range []sh.Toolkit{sh.FSL, sh.MRTRIX} {
		im := newTestImporter(t, order, tk, 4)
		im.SetInput(input)
		require.NoError(t, im.GenerateData(context.Background()))

		odfs := im.OdfImage()
		require.NotNil(t, odfs)
		assert.Equal(t, sphere.DefaultSamplingSize, odfs.Components())

		ref := odfs.Vector(0, 0, 0)
		for c := 0; c < 2; c++ {
			for b := 0; b < 2; b++ {
				for a := 0; a < 2; a++ {
					got := odfs.Vector(a, b, c)
					for i := range ref {
						if math.Abs(got[i]-ref[i]) > 1e-10 {
							t.Fatalf("%v: voxel (%d,%d,%d) sample %d = %g, want %g", tk, a, b, c, i, got[i], ref[i])
						}
					}
					assert.Equal(t, shared, im.CoefficientImage().Vector(a, b, c))
				}
			}
		}
		assert.Equal(t, 8, im.GetMetrics().Voxels)
	}
}

func TestZeroCoefficientsGiveZeroODF(t *testing.T) {
	n := sh.NumCoefficients(6)
	input := createTestInput(t, models.IdentityGeometry4(3, 2, 1, n), func(a, b, c int) []float64 { return make([]float64, n) })

	im := newTestImporter(t, 6, sh.MRTRIX, 2)
	im.SetInput(input)
	require.NoError(t, im.GenerateData(context.Background()))

	for i, v := range im.OdfImage().Data() {
		if v != 0 {
			t.Fatalf("sample %d = %g, want 0", i, v)
		}
	}
	assert.Equal(t, 0.0, im.GetMetrics().MaxGFA)
}

// TestIsotropicVoxel verifies that an l=0-only coefficient vector gives a flat ODF
func TestIsotropicVoxel(t *testing.T) {
	order := 8
	n := sh.NumCoefficients(order)
	c0 := math.Sqrt(1 / (4 * math.Pi))
	input := createTestInput(t, models.IdentityGeometry4(1, 1, 1, n), func(a, b, c int) []float64 {
		v := make([]float64, n)
		v[0] = c0
		return v
	})

	im := newTestImporter(t, order, sh.FSL, 1)
	im.SetInput(input)
	require.NoError(t, im.GenerateData(context.Background()))

	samples := im.OdfImage().Vector(0, 0, 0)
	for i := range samples {
		assert.InDelta(t, samples[0], samples[i], 1e-15)
	}
	assert.InDelta(t, 0, im.GetMetrics().MeanGFA, 1e-12)
}

// TestGeometryProjection checks that both outputs carry the first three axes of the input metadata
func TestGeometryProjection(t *testing.T) {
	n := sh.NumCoefficients(2)
	g := models.Geometry4{
		Size:    [4]int{3, 4, 2, n},
		Spacing: [4]float64{0.5, 1.25, 2.5, 9},
		Origin:  [4]float64{-10.5, 3.25, 7, 100},
		Direction: [4][4]float64{
			{0, -1, 0, 0.1},
			{1, 0, 0, 0.2},
			{0, 0, -1, 0.3},
			{0.4, 0.5, 0.6, 1},
		},
	}
	input := createTestInput(t, g, func(a, b, c int) []float64 {
		return []float64{float64(a), float64(b), float64(c), 1, 2, 3}
	})

	im := newTestImporter(t, 2, sh.FSL, 3)
	im.SetInput(input)
	require.NoError(t, im.GenerateData(context.Background()))

	want := models.Geometry3{
		Size:      [3]int{3, 4, 2},
		Spacing:   [3]float64{0.5, 1.25, 2.5},
		Origin:    [3]float64{-10.5, 3.25, 7},
		Direction: [3][3]float64{{0, -1, 0}, {1, 0, 0}, {0, 0, -1}},
	}
	assert.Equal(t, want, im.OdfImage().Geometry())
	assert.Equal(t, want, im.CoefficientImage().Geometry())
	assert.Equal(t, n, im.CoefficientImage().Components())

	assert.Equal(t, []float64{2, 3, 1, 1, 2, 3}, im.CoefficientImage().Vector(2, 3, 1))
}

func TestNilInputIsNoOp(t *testing.T) {
	im := newTestImporter(t, 4, sh.FSL, 1)
	require.NoError(t, im.GenerateData(context.Background()))
	assert.Nil(t, im.OdfImage())
	assert.Nil(t, im.CoefficientImage())

	// the basis is still built
	assert.NotNil(t, im.basis)
}

func TestDimensionMismatch(t *testing.T) {
	input := createTestInput(t, models.IdentityGeometry4(2, 2, 2, 6), func(a, b, c int) []float64 { return make([]float64, 6) })

	im := newTestImporter(t, 4, sh.FSL, 2)
	im.SetInput(input)
	err := im.GenerateData(context.Background())
	require.Error(t, err)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	assert.Nil(t, im.OdfImage())

	input.Data = input.Data[:10]
	require.NoError(t, im.SetOrder(2))
	assert.ErrorIs(t, im.GenerateData(context.Background()), ErrDimensionMismatch)
}

// TestBasisCache verifies compute-if-absent caching and explicit invalidation
func TestBasisCache(t *testing.T) {
	im := newTestImporter(t, 2, sh.FSL, 1)

	first, err := im.Basis()
	require.NoError(t, err)
	second, err := im.Basis()
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, im.SetOrder(2))
	same, err := im.Basis()
	require.NoError(t, err)
	assert.Same(t, first, same)

	require.NoError(t, im.SetOrder(4))
	rebuilt, err := im.Basis()
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	_, cols := rebuilt.Dims()
	assert.Equal(t, 15, cols)

	require.NoError(t, im.SetToolkit(sh.MRTRIX))
	mr, err := im.Basis()
	require.NoError(t, err)
	assert.NotSame(t, rebuilt, mr)

	set, err := sphere.Geodesic(2)
	require.NoError(t, err)
	require.NoError(t, im.SetDirections(set))
	small, err := im.Basis()
	require.NoError(t, err)
	rows, _ := small.Dims()
	assert.Equal(t, 42, rows)

	assert.ErrorIs(t, im.SetOrder(3), sh.ErrInvalidOrder)
	assert.ErrorIs(t, im.SetToolkit(sh.Toolkit(9)), sh.ErrUnknownToolkit)
	assert.ErrorIs(t, im.SetDirections(nil), sphere.ErrEmptyDirections)
	assert.Equal(t, 4, im.Order())
	assert.Equal(t, sh.MRTRIX, im.Toolkit())
}

// TestParallelMatchesSequential checks that the worker count does not change results
func TestParallelMatchesSequential(t *testing.T) {
	order := 6
	n := sh.NumCoefficients(order)
	rng := rand.New(rand.NewSource(3))
	g := models.IdentityGeometry4(5, 4, 3, n)
	input, err := models.NewVolume4D(g)
	require.NoError(t, err)
	for i := range input.Data {
		input.Data[i] = rng.NormFloat64()
	}

	seq := newTestImporter(t, order, sh.MRTRIX, 1)
	seq.SetInput(input)
	require.NoError(t, seq.GenerateData(context.Background()))

	par := newTestImporter(t, order, sh.MRTRIX, 8)
	par.SetInput(input)
	require.NoError(t, par.GenerateData(context.Background()))

	assert.Equal(t, seq.OdfImage().Data(), par.OdfImage().Data())
	assert.Equal(t, seq.CoefficientImage().Data(), par.CoefficientImage().Data())
}

func TestGenerateDataCancelled(t *testing.T) {
	n := sh.NumCoefficients(2)
	input := createTestInput(t, models.IdentityGeometry4(4, 2, 2, n), func(a, b, c int) []float64 { return make([]float64, n) })

	im := newTestImporter(t, 2, sh.FSL, 2)
	im.SetInput(input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := im.GenerateData(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, im.OdfImage())
}

func TestNewImporterValidation(t *testing.T) {
	_, err := NewImporter(&Params{Order: 5})
	assert.ErrorIs(t, err, sh.ErrInvalidOrder)

	_, err = NewImporter(&Params{Toolkit: sh.Toolkit(4)})
	assert.ErrorIs(t, err, sh.ErrUnknownToolkit)

	im, err := NewImporter(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, im.Order())
	assert.Equal(t, 1, im.NumCoefficients())
	assert.Same(t, sphere.Default(), im.Directions())
}

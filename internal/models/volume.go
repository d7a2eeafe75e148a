package models

import (
	"fmt"
)

// Geometry4 holds the spatial metadata of a 4D image. The fourth axis of a
// coefficient image indexes SH coefficients rather than space.
type Geometry4 struct {
	// Size is the extent of each axis in voxels
	Size [4]int

	// Spacing is the physical voxel size along each axis in mm
	Spacing [4]float64

	// Origin is the physical position of voxel (0,0,0,0)
	Origin [4]float64

	// Direction holds the direction cosines, row-major
	Direction [4][4]float64
}

// Geometry3 holds the spatial metadata of a 3D image.
type Geometry3 struct {
	Size      [3]int
	Spacing   [3]float64
	Origin    [3]float64
	Direction [3][3]float64
}

// IdentityGeometry4 returns a geometry of the given size with unit spacing,
// zero origin and identity direction cosines.
func IdentityGeometry4(x, y, z, n int) Geometry4 {
	g := Geometry4{Size: [4]int{x, y, z, n}}
	for i := 0; i < 4; i++ {
		g.Spacing[i] = 1
		g.Direction[i][i] = 1
	}
	return g
}

// Project returns the metadata of the first three axes. The fourth axis is
// dropped entirely.
func (g Geometry4) Project() Geometry3 {
	var g3 Geometry3
	for i := 0; i < 3; i++ {
		g3.Size[i] = g.Size[i]
		g3.Spacing[i] = g.Spacing[i]
		g3.Origin[i] = g.Origin[i]
		for j := 0; j < 3; j++ {
			g3.Direction[i][j] = g.Direction[i][j]
		}
	}
	return g3
}

// NumVoxels returns the number of voxels in the 3D grid.
func (g Geometry3) NumVoxels() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// Volume4D is a scalar 4D image stored as a flat array with axis 0 varying
// fastest.
type Volume4D struct {
	Geometry Geometry4
	Data     []float64
}

// NewVolume4D allocates a zero-filled 4D image.
func NewVolume4D(g Geometry4) (*Volume4D, error) {
	n := 1
	for i, s := range g.Size {
		if s <= 0 {
			return nil, fmt.Errorf("axis %d has non-positive size %d", i, s)
		}
		n *= s
	}
	return &Volume4D{Geometry: g, Data: make([]float64, n)}, nil
}

func (v *Volume4D) index(a, b, c, d int) int {
	s := v.Geometry.Size
	return ((d*s[2]+c)*s[1]+b)*s[0] + a
}

// At returns the value at index (a,b,c,d).
func (v *Volume4D) At(a, b, c, d int) float64 {
	return v.Data[v.index(a, b, c, d)]
}

// Set stores a value at index (a,b,c,d).
func (v *Volume4D) Set(a, b, c, d int, value float64) {
	v.Data[v.index(a, b, c, d)] = value
}

// VectorVolume is a 3D image where every voxel holds a vector of the same
// length. Vectors are stored contiguously, voxels with axis 0 fastest.
type VectorVolume struct {
	geometry   Geometry3
	components int
	data       []float64
}

// NewVectorVolume allocates a zero-filled vector image.
func NewVectorVolume(g Geometry3, components int) (*VectorVolume, error) {
	if components <= 0 {
		return nil, fmt.Errorf("vector length must be positive, got %d", components)
	}
	for i, s := range g.Size {
		if s <= 0 {
			return nil, fmt.Errorf("axis %d has non-positive size %d", i, s)
		}
	}
	return &VectorVolume{
		geometry:   g,
		components: components,
		data:       make([]float64, g.NumVoxels()*components),
	}, nil
}

// Geometry returns the spatial metadata of the image.
func (v *VectorVolume) Geometry() Geometry3 { return v.geometry }

// Components returns the per-voxel vector length.
func (v *VectorVolume) Components() int { return v.components }

// Data exposes the underlying buffer.
func (v *VectorVolume) Data() []float64 { return v.data }

func (v *VectorVolume) offset(a, b, c int) int {
	s := v.geometry.Size
	return ((c*s[1]+b)*s[0] + a) * v.components
}

// Vector returns the vector stored at (a,b,c). The returned slice aliases
// the image buffer.
func (v *VectorVolume) Vector(a, b, c int) []float64 {
	off := v.offset(a, b, c)
	return v.data[off : off+v.components : off+v.components]
}

// SetVector copies vec into voxel (a,b,c).
func (v *VectorVolume) SetVector(a, b, c int, vec []float64) error {
	if len(vec) != v.components {
		return fmt.Errorf("vector length %d does not match image components %d", len(vec), v.components)
	}
	copy(v.Vector(a, b, c), vec)
	return nil
}

// ScalarVolume is a 3D image of scalars, axis 0 fastest.
type ScalarVolume struct {
	Geometry Geometry3
	Data     []float64
}

// NewScalarVolume allocates a zero-filled scalar image.
func NewScalarVolume(g Geometry3) *ScalarVolume {
	return &ScalarVolume{Geometry: g, Data: make([]float64, g.NumVoxels())}
}

// At returns the value at (a,b,c).
func (v *ScalarVolume) At(a, b, c int) float64 {
	s := v.Geometry.Size
	return v.Data[(c*s[1]+b)*s[0]+a]
}

// Set stores a value at (a,b,c).
func (v *ScalarVolume) Set(a, b, c int, value float64) {
	s := v.Geometry.Size
	v.Data[(c*s[1]+b)*s[0]+a] = value
}

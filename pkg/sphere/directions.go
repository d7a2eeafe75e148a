package sphere

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultFrequency is the geodesic subdivision frequency of the default
// sampling scheme.
const DefaultFrequency = 5

// DefaultSamplingSize is the number of directions in the default set.
const DefaultSamplingSize = 10*DefaultFrequency*DefaultFrequency + 2

// ErrEmptyDirections is returned when a direction set has no members.
var ErrEmptyDirections = errors.New("direction set is empty")

// DirectionSet is an immutable ordered set of sampling directions.
type DirectionSet struct {
	dirs []Vector3

	treeOnce sync.Once
	tree     *kdtree.Tree
}

// NewDirectionSet wraps a caller supplied direction table. The table is
// copied; entries are used as given and are not normalized.
func NewDirectionSet(dirs []Vector3) (*DirectionSet, error) {
	if len(dirs) == 0 {
		return nil, ErrEmptyDirections
	}
	cp := make([]Vector3, len(dirs))
	copy(cp, dirs)
	return &DirectionSet{dirs: cp}, nil
}

var (
	defaultOnce sync.Once
	defaultSet  *DirectionSet
)

// Default returns the shared 252-direction geodesic set.
func Default() *DirectionSet {
	defaultOnce.Do(func() {
		set, err := Geodesic(DefaultFrequency)
		if err != nil {
			panic(err)
		}
		defaultSet = set
	})
	return defaultSet
}

// Len returns the number of directions.
func (s *DirectionSet) Len() int { return len(s.dirs) }

// At returns direction i.
func (s *DirectionSet) At(i int) Vector3 { return s.dirs[i] }

// Vectors returns a copy of the directions.
func (s *DirectionSet) Vectors() []Vector3 {
	cp := make([]Vector3, len(s.dirs))
	copy(cp, s.dirs)
	return cp
}

// Spherical converts every direction to spherical coordinates, in order.
func (s *DirectionSet) Spherical() []Coord {
	coords := make([]Coord, len(s.dirs))
	for i, d := range s.dirs {
		coords[i] = ToSpherical(d)
	}
	return coords
}

// Nearest returns the index of the direction closest to v. Directions are
// axial, so v and -v are treated as the same orientation.
func (s *DirectionSet) Nearest(v Vector3) int {
	s.treeOnce.Do(s.buildTree)

	u := v.Normalize()
	best, bestDist := -1, math.Inf(1)
	for _, q := range []Vector3{u, u.Scale(-1)} {
		c, d := s.tree.Nearest(node{Vector3: q, idx: -1})
		if c == nil {
			continue
		}
		if n := c.(node); d < bestDist || (d == bestDist && n.idx < best) {
			best, bestDist = n.idx, d
		}
	}
	return best
}

func (s *DirectionSet) buildTree() {
	pts := make(nodes, len(s.dirs))
	for i, d := range s.dirs {
		pts[i] = node{Vector3: d.Normalize(), idx: i}
	}
	s.tree = kdtree.New(pts, false)
}

// Geodesic builds a class I geodesic sphere by subdividing every face of an
// icosahedron into frequency² triangles and projecting the lattice points
// onto the unit sphere. The result has 10·frequency²+2 directions, emitted
// face by face with shared points kept at their first occurrence.
func Geodesic(frequency int) (*DirectionSet, error) {
	if frequency < 1 {
		return nil, fmt.Errorf("geodesic frequency must be at least 1, got %d", frequency)
	}

	ico := icosahedronVertices()
	seen := make(map[latticeKey]bool)
	dirs := make([]Vector3, 0, 10*frequency*frequency+2)

	for _, f := range icosahedronFaces {
		for i := 0; i <= frequency; i++ {
			for j := 0; j <= frequency-i; j++ {
				k := frequency - i - j
				key := newLatticeKey(f, [3]int{k, i, j})
				if seen[key] {
					continue
				}
				seen[key] = true

				var p Vector3
				for _, t := range key {
					if t.weight > 0 {
						p = p.Add(ico[t.vertex].Scale(float64(t.weight)))
					}
				}
				dirs = append(dirs, p.Normalize())
			}
		}
	}

	return &DirectionSet{dirs: dirs}, nil
}

type latticeTerm struct {
	vertex int
	weight int
}

// latticeKey identifies a subdivision point by its integer barycentric
// weights on icosahedron vertices, sorted so shared edge points match.
type latticeKey [3]latticeTerm

func newLatticeKey(face [3]int, w [3]int) latticeKey {
	var key latticeKey
	for i := range key {
		if w[i] == 0 {
			key[i] = latticeTerm{vertex: math.MaxInt, weight: 0}
			continue
		}
		key[i] = latticeTerm{vertex: face[i], weight: w[i]}
	}
	sort.Slice(key[:], func(a, b int) bool { return key[a].vertex < key[b].vertex })
	return key
}

func icosahedronVertices() []Vector3 {
	t := (1 + math.Sqrt(5)) / 2
	raw := []Vector3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range raw {
		raw[i] = raw[i].Normalize()
	}
	return raw
}

var icosahedronFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// node is a direction tagged with its index in the set, so that lookups
// survive the reordering done by the k-d tree.
type node struct {
	Vector3
	idx int
}

// Compare implements the kdtree.Comparable interface
func (p node) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(node)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p node) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p node) Distance(c kdtree.Comparable) float64 {
	q := c.(node)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

type nodes []node

func (p nodes) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodes) Len() int                              { return len(p) }
func (p nodes) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p nodes) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{nodes: p, Dim: d}, kdtree.MedianOfRandoms(plane{nodes: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for nodes
type plane struct {
	nodes
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.nodes[i].X < p.nodes[j].X
	case 1:
		return p.nodes[i].Y < p.nodes[j].Y
	case 2:
		return p.nodes[i].Z < p.nodes[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{nodes: p.nodes[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i]
}

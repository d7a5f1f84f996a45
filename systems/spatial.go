package systems

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// Hash primes for HashCell.
const (
	hashK1 = 73856093
	hashK2 = 19349663
)

// seenKeys is the stack capacity for per-query key de-duplication; a 5x5
// block fits without allocating.
const seenKeys = 25

// RangeRunner runs fn over [0, n) split into chunks.
// fn receives the chunk bounds and the index of the worker executing it.
// Run returns only after every chunk has finished.
type RangeRunner interface {
	Run(n int, fn func(start, end, worker int))
}

// Serial is a RangeRunner that runs everything on the calling goroutine.
type Serial struct{}

// Run calls fn once with the full range.
func (Serial) Run(n int, fn func(start, end, worker int)) {
	if n > 0 {
		fn(0, n, 0)
	}
}

// Entry pairs a particle with the key of the cell it occupies.
type Entry struct {
	ParticleIndex int32
	CellKey       uint32
}

// PositionToCellCoord returns the integer cell containing point.
func PositionToCellCoord(point r2.Vec, cellSize float64) (int, int) {
	return int(math.Floor(point.X / cellSize)), int(math.Floor(point.Y / cellSize))
}

// HashCell maps a cell coordinate to a key. Distinct cells may collide.
func HashCell(cellX, cellY int) uint32 {
	return uint32(cellX)*hashK1 ^ uint32(cellY)*hashK2
}

// SpatialHash answers fixed-radius neighbour queries over a set of points.
// It is rebuilt from scratch every step and is read-only between builds.
type SpatialHash struct {
	cellSize float64
	points   []r2.Vec

	Entries    []Entry
	StartIndex map[uint32]int32
}

// NewSpatialHash creates a grid sized for n points.
func NewSpatialHash(n int) *SpatialHash {
	return &SpatialHash{
		Entries:    make([]Entry, n),
		StartIndex: make(map[uint32]int32, 2*n),
	}
}

// CellSize returns the cell size of the last build.
func (g *SpatialHash) CellSize() float64 {
	return g.cellSize
}

// Build indexes points with the given cell size. The grid keeps a reference
// to points; callers must not mutate them until the next Build.
func (g *SpatialHash) Build(points []r2.Vec, cellSize float64, runner RangeRunner) {
	g.cellSize = cellSize
	g.points = points

	n := len(points)
	if cap(g.Entries) < n {
		g.Entries = make([]Entry, n)
	}
	g.Entries = g.Entries[:n]

	runner.Run(n, func(start, end, _ int) {
		for i := start; i < end; i++ {
			cx, cy := PositionToCellCoord(points[i], cellSize)
			g.Entries[i] = Entry{ParticleIndex: int32(i), CellKey: HashCell(cx, cy)}
		}
	})

	slices.SortFunc(g.Entries, func(a, b Entry) int {
		if c := cmp.Compare(a.CellKey, b.CellKey); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticleIndex, b.ParticleIndex)
	})

	clear(g.StartIndex)
	for i, e := range g.Entries {
		if i == 0 || e.CellKey != g.Entries[i-1].CellKey {
			g.StartIndex[e.CellKey] = int32(i)
		}
	}
}

// Query calls visit for every indexed point within radius of point.
// It scans ceil(radius/cellSize) rings of cells around the point's cell, so
// with radius <= cellSize that is the 3x3 block. Cells whose keys collide are
// scanned once, so no point is visited twice.
func (g *SpatialHash) Query(point r2.Vec, radius float64, visit func(j int)) {
	g.query(point, radius, visit, nil)
}

// query is Query that also counts scanned points rejected by the distance
// test into rejected when it is non-nil.
func (g *SpatialHash) query(point r2.Vec, radius float64, visit func(j int), rejected *int) {
	if len(g.Entries) == 0 || !(radius >= 0) || math.IsInf(radius, 1) {
		return
	}
	cx, cy := PositionToCellCoord(point, g.cellSize)
	rings := max(int(math.Ceil(radius/g.cellSize)), 1)
	sqrRadius := radius * radius

	var buf [seenKeys]uint32
	seen := buf[:0]

	for dy := -rings; dy <= rings; dy++ {
	cells:
		for dx := -rings; dx <= rings; dx++ {
			key := HashCell(cx+dx, cy+dy)
			for _, k := range seen {
				if k == key {
					continue cells
				}
			}
			seen = append(seen, key)

			start, ok := g.StartIndex[key]
			if !ok {
				continue
			}
			for i := int(start); i < len(g.Entries); i++ {
				e := g.Entries[i]
				if e.CellKey != key {
					break
				}
				j := int(e.ParticleIndex)
				if r2.Norm2(r2.Sub(g.points[j], point)) <= sqrRadius {
					visit(j)
				} else if rejected != nil {
					*rejected++
				}
			}
		}
	}
}

// QueryInto appends the indices within radius of point to dst.
func (g *SpatialHash) QueryInto(dst []int, point r2.Vec, radius float64) []int {
	g.Query(point, radius, func(j int) {
		dst = append(dst, j)
	})
	return dst
}

// GridStats summarises occupancy of the last build.
type GridStats struct {
	OccupiedKeys int
	LargestRun   int
}

// Stats reports how the last build distributed points over keys.
func (g *SpatialHash) Stats() GridStats {
	s := GridStats{OccupiedKeys: len(g.StartIndex)}
	run := 0
	for i, e := range g.Entries {
		if i > 0 && e.CellKey == g.Entries[i-1].CellKey {
			run++
		} else {
			run = 1
		}
		if run > s.LargestRun {
			s.LargestRun = run
		}
	}
	return s
}

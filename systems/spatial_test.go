package systems

import (
	"math/rand"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func randomPoints(n int, half float64, seed int64) []r2.Vec {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]r2.Vec, n)
	for i := range pts {
		pts[i] = r2.Vec{X: (rng.Float64()*2 - 1) * half, Y: (rng.Float64()*2 - 1) * half}
	}
	return pts
}

func bruteForce(pts []r2.Vec, point r2.Vec, radius float64) []int {
	var out []int
	for j, p := range pts {
		if r2.Norm2(r2.Sub(p, point)) <= radius*radius {
			out = append(out, j)
		}
	}
	return out
}

func TestPositionToCellCoordFloors(t *testing.T) {
	tests := []struct {
		point r2.Vec
		wantX int
		wantY int
	}{
		{r2.Vec{X: 0.5, Y: 0.5}, 0, 0},
		{r2.Vec{X: -0.5, Y: 0.5}, -1, 0},
		{r2.Vec{X: -1.0, Y: -1.01}, -1, -2},
		{r2.Vec{X: 2.99, Y: 3}, 2, 3},
	}
	for _, tt := range tests {
		x, y := PositionToCellCoord(tt.point, 1)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("PositionToCellCoord(%v) = (%d, %d), want (%d, %d)", tt.point, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestBuildEntriesSortedAndContiguous(t *testing.T) {
	pts := randomPoints(300, 4, 1)
	g := NewSpatialHash(len(pts))
	g.Build(pts, 0.7, Serial{})

	for i := 1; i < len(g.Entries); i++ {
		a, b := g.Entries[i-1], g.Entries[i]
		if a.CellKey > b.CellKey || (a.CellKey == b.CellKey && a.ParticleIndex > b.ParticleIndex) {
			t.Fatalf("entries not sorted at %d: %v then %v", i, a, b)
		}
	}

	// Each key's run starts at StartIndex and is not seen again after it ends.
	for key, start := range g.StartIndex {
		if g.Entries[start].CellKey != key {
			t.Errorf("StartIndex[%d] = %d points at key %d", key, start, g.Entries[start].CellKey)
		}
		if start > 0 && g.Entries[start-1].CellKey == key {
			t.Errorf("StartIndex[%d] = %d is not the first entry of its run", key, start)
		}
	}

	seen := make(map[int32]bool)
	for _, e := range g.Entries {
		if seen[e.ParticleIndex] {
			t.Fatalf("particle %d indexed twice", e.ParticleIndex)
		}
		seen[e.ParticleIndex] = true
	}
	if len(seen) != len(pts) {
		t.Errorf("indexed %d particles, want %d", len(seen), len(pts))
	}
}

func TestQueryMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		half     float64
		cellSize float64
		radius   float64
	}{
		{"sparse", 50, 5, 0.8, 0.8},
		{"dense", 600, 2, 0.35, 0.35},
		{"tiny radius", 200, 3, 0.05, 0.05},
		{"query smaller than cell", 400, 3, 0.6, 0.3},
		{"query wider than cell", 400, 3, 0.25, 0.7},
		{"query many rings wide", 300, 3, 0.1, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := randomPoints(tt.n, tt.half, 7)
			g := NewSpatialHash(len(pts))
			g.Build(pts, tt.cellSize, Serial{})

			queries := append(randomPoints(40, tt.half+0.5, 11), pts[:10]...)
			for _, q := range queries {
				got := g.QueryInto(nil, q, tt.radius)
				slices.Sort(got)
				want := bruteForce(pts, q, tt.radius)
				if !slices.Equal(got, want) {
					t.Fatalf("query at %v returned %v, want %v", q, got, want)
				}
			}
		})
	}
}

func TestQueryRadiusLargerThanCell(t *testing.T) {
	pts := []r2.Vec{{X: 0.1, Y: 0.1}, {X: 1.3, Y: 0.1}, {X: 3, Y: 3}}
	g := NewSpatialHash(len(pts))
	g.Build(pts, 0.5, Serial{})

	got := g.QueryInto(nil, pts[0], 1.5)
	slices.Sort(got)
	if want := []int{0, 1}; !slices.Equal(got, want) {
		t.Errorf("QueryInto(radius 1.5, cell 0.5) = %v, want %v", got, want)
	}
}

// rejectedShare returns the fraction of scanned points that failed the
// distance test over a set of query points.
func rejectedShare(g *SpatialHash, queries []r2.Vec, radius float64) float64 {
	var accepted, rejected int
	for _, p := range queries {
		g.query(p, radius, func(int) { accepted++ }, &rejected)
	}
	return float64(rejected) / float64(accepted+rejected)
}

func TestRejectedShareFallsWithResolution(t *testing.T) {
	pts := randomPoints(3000, 5, 21)
	queries := randomPoints(300, 4, 22)
	const radius = 0.5

	prev := 1.0
	for _, cellSize := range []float64{radius, radius / 2, radius / 4} {
		g := NewSpatialHash(len(pts))
		g.Build(pts, cellSize, Serial{})

		share := rejectedShare(g, queries, radius)
		if share >= prev {
			t.Errorf("cell %f: rejected share %f, want below %f", cellSize, share, prev)
		}
		prev = share
	}
}

func TestQueryVisitsEachParticleOnce(t *testing.T) {
	pts := []r2.Vec{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.15}, {X: -0.1, Y: -0.2}}
	g := NewSpatialHash(len(pts))
	g.Build(pts, 1, Serial{})

	counts := make(map[int]int)
	g.Query(r2.Vec{}, 1, func(j int) { counts[j]++ })
	for j, c := range counts {
		if c != 1 {
			t.Errorf("particle %d visited %d times, want 1", j, c)
		}
	}
	if len(counts) != len(pts) {
		t.Errorf("visited %d particles, want %d", len(counts), len(pts))
	}
}

func TestQueryEmptyGrid(t *testing.T) {
	g := NewSpatialHash(0)
	g.Build(nil, 1, Serial{})
	called := false
	g.Query(r2.Vec{X: 1, Y: 2}, 1, func(int) { called = true })
	if called {
		t.Error("visit called on empty grid")
	}
	if got := g.QueryInto(nil, r2.Vec{}, 1); len(got) != 0 {
		t.Errorf("QueryInto on empty grid = %v, want empty", got)
	}
}

func TestBuildClearsPreviousKeys(t *testing.T) {
	g := NewSpatialHash(2)
	g.Build([]r2.Vec{{X: 10, Y: 10}, {X: 10.1, Y: 10}}, 1, Serial{})
	g.Build([]r2.Vec{{X: -5, Y: -5}, {X: -5, Y: -5.1}}, 1, Serial{})

	if got := g.QueryInto(nil, r2.Vec{X: 10, Y: 10}, 1); len(got) != 0 {
		t.Errorf("stale query result %v after rebuild", got)
	}
	if s := g.Stats(); s.OccupiedKeys != 2 || s.LargestRun != 1 {
		t.Errorf("Stats() = %+v, want 2 keys with run 1", s)
	}
}

func TestStats(t *testing.T) {
	pts := []r2.Vec{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}, {X: 0.3, Y: 0.3}, {X: 5.5, Y: 5.5}}
	g := NewSpatialHash(len(pts))
	g.Build(pts, 1, Serial{})

	s := g.Stats()
	if s.OccupiedKeys != 2 {
		t.Errorf("OccupiedKeys = %d, want 2", s.OccupiedKeys)
	}
	if s.LargestRun != 3 {
		t.Errorf("LargestRun = %d, want 3", s.LargestRun)
	}
}

func BenchmarkSpatialHashBuild(b *testing.B) {
	pts := randomPoints(4000, 10, 3)
	g := NewSpatialHash(len(pts))

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		g.Build(pts, 0.6, Serial{})
	}
}

func BenchmarkSpatialHashQuery(b *testing.B) {
	pts := randomPoints(4000, 10, 3)
	g := NewSpatialHash(len(pts))
	g.Build(pts, 0.6, Serial{})

	b.ResetTimer()
	count := 0
	for n := 0; n < b.N; n++ {
		g.Query(pts[n%len(pts)], 0.6, func(int) { count++ })
	}
	_ = count
}

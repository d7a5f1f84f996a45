package systems

import "gonum.org/v1/gonum/spatial/r2"

// FieldSampler evaluates the density field on a regular grid spanning the box.
// Values are stored row-major with row 0 at the bottom.
type FieldSampler struct {
	Cols, Rows int
	Values     []float64

	min, cell r2.Vec
}

// NewFieldSampler creates a sampler with cols x rows cells over the box.
func NewFieldSampler(cols, rows int, halfBounds r2.Vec) *FieldSampler {
	cols = max(cols, 1)
	rows = max(rows, 1)
	return &FieldSampler{
		Cols:   cols,
		Rows:   rows,
		Values: make([]float64, cols*rows),
		min:    r2.Scale(-1, halfBounds),
		cell:   r2.Vec{X: 2 * halfBounds.X / float64(cols), Y: 2 * halfBounds.Y / float64(rows)},
	}
}

// CellCentre returns the world position sampled for a cell.
func (f *FieldSampler) CellCentre(col, row int) r2.Vec {
	return r2.Vec{
		X: f.min.X + (float64(col)+0.5)*f.cell.X,
		Y: f.min.Y + (float64(row)+0.5)*f.cell.Y,
	}
}

// CellSize returns the world size of one cell.
func (f *FieldSampler) CellSize() r2.Vec {
	return f.cell
}

// At returns the sample for a cell.
func (f *FieldSampler) At(col, row int) float64 {
	return f.Values[row*f.Cols+col]
}

// SampleDensity fills Values with the density field, one row per work item.
func (f *FieldSampler) SampleDensity(s *Solver, runner RangeRunner) {
	runner.Run(f.Rows, func(start, end, _ int) {
		for row := start; row < end; row++ {
			for col := 0; col < f.Cols; col++ {
				f.Values[row*f.Cols+col] = s.DensityAt(f.CellCentre(col, row))
			}
		}
	})
}

// SampleValues fills Values by interpolating a per-particle quantity.
func (f *FieldSampler) SampleValues(s *Solver, values []float64, runner RangeRunner) {
	runner.Run(f.Rows, func(start, end, _ int) {
		for row := start; row < end; row++ {
			for col := 0; col < f.Cols; col++ {
				f.Values[row*f.Cols+col] = s.InterpolateAt(f.CellCentre(col, row), values)
			}
		}
	})
}

// Package grid implements pure spatial reasoning over a cell grid: occupancy,
// drop checks, resize with boundary clamping, cell regeneration, reflow after
// a dimension change and pixel to cell mapping. Nothing in this package
// mutates its inputs.
package grid

import (
	"math"

	"github.com/pitabwire/designer/model"
)

// Dimensions is the size of a grid in cells.
type Dimensions struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// Contains reports whether (row, col) is a cell of the grid.
func (d Dimensions) Contains(row, col int) bool {
	return row >= 0 && col >= 0 && row < d.Rows && col < d.Cols
}

// CellSize is the pixel size of one grid cell.
type CellSize struct {
	Width  float64 `json:"width"  yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DefaultCellSize is the pixel size used when none is configured.
var DefaultCellSize = CellSize{Width: 100, Height: 60}

// Direction is a resize handle. Only the east and south components have an
// effect because resizing is anchored at the top-left corner.
type Direction string

// Resize handles.
const (
	North     Direction = "n"
	South     Direction = "s"
	East      Direction = "e"
	West      Direction = "w"
	NorthEast Direction = "ne"
	NorthWest Direction = "nw"
	SouthEast Direction = "se"
	SouthWest Direction = "sw"
)

// Valid reports whether d is one of the eight handles.
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest:
		return true
	}
	return false
}

func (d Direction) hasEast() bool  { return d == East || d == NorthEast || d == SouthEast }
func (d Direction) hasSouth() bool { return d == South || d == SouthEast || d == SouthWest }

// IsCellOccupied reports whether any placed component covers (row, col).
func IsCellOccupied(row, col int, components []*model.Component) bool {
	for _, c := range components {
		if pos, ok := c.Position(); ok && pos.Covers(row, col) {
			return true
		}
	}
	return false
}

// Occupants returns every component covering (row, col), in input order.
func Occupants(row, col int, components []*model.Component) []*model.Component {
	var out []*model.Component
	for _, c := range components {
		if pos, ok := c.Position(); ok && pos.Covers(row, col) {
			out = append(out, c)
		}
	}
	return out
}

// ComponentsInCell returns the components whose origin is exactly
// (row, col). Cells covered by a span but not its origin yield nothing.
func ComponentsInCell(row, col int, components []*model.Component) []*model.Component {
	var out []*model.Component
	for _, c := range components {
		if pos, ok := c.Position(); ok && pos.Row == row && pos.Col == col {
			out = append(out, c)
		}
	}
	return out
}

// ComponentAt returns the component anchored at (row, col). When a loaded
// configuration places several components on the same origin the last one
// wins.
func ComponentAt(row, col int, components []*model.Component) *model.Component {
	in := ComponentsInCell(row, col, components)
	if len(in) == 0 {
		return nil
	}
	return in[len(in)-1]
}

// CanDrop reports whether a component may be dropped on (row, col).
func CanDrop(row, col int, components []*model.Component) bool {
	return !IsCellOccupied(row, col, components)
}

// CanDropExcept is CanDrop ignoring the component with id ignoreID, used
// when an already placed component is dragged to a new cell.
func CanDropExcept(row, col int, components []*model.Component, ignoreID string) bool {
	for _, c := range components {
		if c.ID == ignoreID {
			continue
		}
		if pos, ok := c.Position(); ok && pos.Covers(row, col) {
			return false
		}
	}
	return true
}

// Resize computes the new rectangle after dragging handle dir by
// (dx, dy) pixels. Width grows by round(dx / cell width) when dir has an
// east component and height by round(dy / cell height) when it has a south
// component. Both are clamped to at least 1 and to the grid's far edge.
// Row and col never change for a rectangle inside the grid; one that
// starts outside it is clamped first.
func Resize(pos model.GridPosition, dir Direction, dx, dy float64, cell CellSize, dims Dimensions) model.GridPosition {
	out := pos
	if dims.Rows > 0 && dims.Cols > 0 && !Fits(pos, dims) {
		out = Clamp(pos, dims)
	}
	if dir.hasEast() && cell.Width > 0 {
		out.Width = clampSpan(out.Width+roundHalfUp(dx/cell.Width), dims.Cols-out.Col)
	}
	if dir.hasSouth() && cell.Height > 0 {
		out.Height = clampSpan(out.Height+roundHalfUp(dy/cell.Height), dims.Rows-out.Row)
	}
	return out
}

// RegenerateCells returns every cell of a rows by cols grid in row-major
// order.
func RegenerateCells(rows, cols int) []model.GridCell {
	if rows <= 0 || cols <= 0 {
		return []model.GridCell{}
	}
	cells := make([]model.GridCell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cells = append(cells, model.GridCell{Row: r, Col: c})
		}
	}
	return cells
}

// Clamp repairs a rectangle so that it lies inside dims.
func Clamp(pos model.GridPosition, dims Dimensions) model.GridPosition {
	out := pos
	out.Col = max(0, min(pos.Col, dims.Cols-1))
	out.Row = max(0, min(pos.Row, dims.Rows-1))
	out.Width = clampSpan(pos.Width, dims.Cols-out.Col)
	out.Height = clampSpan(pos.Height, dims.Rows-out.Row)
	return out
}

// Reflow computes the repaired rectangles of every placed component that
// no longer fits after a dimension change, keyed by component id.
// Components that already fit are omitted. Overlaps are not resolved.
func Reflow(components []*model.Component, dims Dimensions) map[string]model.GridPosition {
	out := make(map[string]model.GridPosition)
	for _, c := range components {
		pos, ok := c.Position()
		if !ok {
			continue
		}
		if fixed := Clamp(pos, dims); fixed != pos {
			out[c.ID] = fixed
		}
	}
	return out
}

// Fits reports whether pos lies fully inside dims.
func Fits(pos model.GridPosition, dims Dimensions) bool {
	return pos.Row >= 0 && pos.Col >= 0 && pos.Width >= 1 && pos.Height >= 1 &&
		pos.Row+pos.Height <= dims.Rows && pos.Col+pos.Width <= dims.Cols
}

// CellAt maps a pixel offset inside the grid to a cell.
func CellAt(x, y float64, cell CellSize, dims Dimensions) (row, col int, ok bool) {
	if cell.Width <= 0 || cell.Height <= 0 || x < 0 || y < 0 {
		return 0, 0, false
	}
	col = int(math.Floor(x / cell.Width))
	row = int(math.Floor(y / cell.Height))
	return row, col, dims.Contains(row, col)
}

// CellOrigin returns the pixel offset of the top-left corner of a cell.
func CellOrigin(row, col int, cell CellSize) (x, y float64) {
	return float64(col) * cell.Width, float64(row) * cell.Height
}

// Occupancy returns, for every cell in row-major order, the id of the
// last component covering it or "" when the cell is free.
func Occupancy(components []*model.Component, dims Dimensions) [][]string {
	out := make([][]string, max(dims.Rows, 0))
	for r := range out {
		out[r] = make([]string, max(dims.Cols, 0))
	}
	for _, c := range components {
		pos, ok := c.Position()
		if !ok {
			continue
		}
		for r := max(pos.Row, 0); r < pos.Row+pos.Height && r < dims.Rows; r++ {
			for col := max(pos.Col, 0); col < pos.Col+pos.Width && col < dims.Cols; col++ {
				out[r][col] = c.ID
			}
		}
	}
	return out
}

func clampSpan(span, limit int) int {
	return max(1, min(span, limit))
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

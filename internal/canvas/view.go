package canvas

import (
	"slices"

	"github.com/pitabwire/designer/internal/grid"
)

// CellView describes one grid cell for display.
type CellView struct {
	Row        int      `json:"row"`
	Col        int      `json:"col"`
	IsDragOver bool     `json:"isDragOver"`
	Occupant   string   `json:"occupant,omitempty"`
	Anchored   []string `json:"anchored,omitempty"`
}

// GridView is the full state of the canvas grid.
type GridView struct {
	ParentID   string     `json:"parentId,omitempty"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	CellWidth  float64    `json:"cellWidth"`
	CellHeight float64    `json:"cellHeight"`
	Dragging   bool       `json:"dragging"`
	Cells      []CellView `json:"cells"`
}

// Grid returns the cells with their occupants and the components whose
// top-left corner sits in each cell.
func (c *Controller) Grid() GridView {
	c.mu.Lock()
	cells, dims, dragging := slices.Clone(c.cells), c.dims, c.dragging
	c.mu.Unlock()

	components := c.Components()
	occupancy := grid.Occupancy(components, dims)

	v := GridView{
		ParentID:   c.parentID,
		Rows:       dims.Rows,
		Cols:       dims.Cols,
		CellWidth:  c.cell.Width,
		CellHeight: c.cell.Height,
		Dragging:   dragging,
		Cells:      make([]CellView, 0, len(cells)),
	}
	for _, cell := range cells {
		cv := CellView{Row: cell.Row, Col: cell.Col, IsDragOver: cell.IsDragOver}
		if cell.Row < len(occupancy) && cell.Col < len(occupancy[cell.Row]) {
			cv.Occupant = occupancy[cell.Row][cell.Col]
		}
		for _, comp := range grid.ComponentsInCell(cell.Row, cell.Col, components) {
			cv.Anchored = append(cv.Anchored, comp.ID)
		}
		v.Cells = append(v.Cells, cv)
	}
	return v
}

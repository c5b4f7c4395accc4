// Package canvas implements the designer canvas gestures: dragging
// components onto grid cells, resizing them by their handles, and
// repairing placements when the grid dimensions change. Every structural
// effect goes through the store.
package canvas

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/model"
)

// Operation names passed to the store.
const (
	OpDrop   = "drop"
	OpResize = "resize"
	OpReflow = "reflow"
)

// Editor is the part of the store the controller writes through.
type Editor interface {
	Config() *model.Configuration
	AddComponent(c *model.Component, parentID string, index int) (string, error)
	Transform(op string, fn func(cfg *model.Configuration) error) error
}

// DragSource is what is being dragged: an existing component by id, or a
// palette template that becomes a new component on drop.
type DragSource struct {
	ComponentID string           `json:"componentId,omitempty"`
	Template    *model.Component `json:"template,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithCellSize sets the pixel size of one grid cell.
func WithCellSize(cs grid.CellSize) Option {
	return func(c *Controller) {
		if cs.Width > 0 && cs.Height > 0 {
			c.cell = cs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPointerHub shares a hub between controllers.
func WithPointerHub(h *PointerHub) Option {
	return func(c *Controller) { c.pointers = h }
}

// Controller manages the grid of one container. An empty parent id scopes
// it to the root components.
type Controller struct {
	editor   Editor
	parentID string
	cell     grid.CellSize
	pointers *PointerHub
	logger   *zap.Logger

	mu       sync.Mutex
	dims     grid.Dimensions
	cells    []model.GridCell
	dragging bool
	source   DragSource
	resize   *resizeSession
}

type resizeSession struct {
	id      string
	dir     grid.Direction
	startX  float64
	startY  float64
	start   model.GridPosition
	current model.GridPosition
	offs    []func()
	err     error
}

// NewController creates a controller for the children of parentID on a
// grid of dims.
func NewController(editor Editor, parentID string, dims grid.Dimensions, opts ...Option) *Controller {
	c := &Controller{
		editor:   editor,
		parentID: parentID,
		cell:     grid.DefaultCellSize,
		logger:   zap.NewNop(),
		dims:     dims,
		cells:    grid.RegenerateCells(dims.Rows, dims.Cols),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pointers == nil {
		c.pointers = NewPointerHub()
	}
	return c
}

// ParentID returns the container the controller is scoped to.
func (c *Controller) ParentID() string { return c.parentID }

// Pointers returns the hub gesture listeners are installed on.
func (c *Controller) Pointers() *PointerHub { return c.pointers }

// Dimensions returns the current grid size.
func (c *Controller) Dimensions() grid.Dimensions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dims
}

// CellSize returns the pixel size of one cell.
func (c *Controller) CellSize() grid.CellSize { return c.cell }

// Cells returns a copy of the grid cells with their drag-over flags.
func (c *Controller) Cells() []model.GridCell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cells)
}

// Components returns the components placed in the controller's container,
// read from the live configuration.
func (c *Controller) Components() []*model.Component {
	return scope(c.editor.Config(), c.parentID)
}

func scope(cfg *model.Configuration, parentID string) []*model.Component {
	if cfg == nil {
		return nil
	}
	if parentID == "" {
		return cfg.Components
	}
	if p := cfg.FindByID(parentID); p != nil {
		return p.Children
	}
	return nil
}

// IsDragActive reports whether a drag is in progress.
func (c *Controller) IsDragActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// StartDrag begins dragging src.
func (c *Controller) StartDrag(src DragSource) error {
	switch {
	case src.ComponentID != "":
		if c.editor.Config().FindByID(src.ComponentID) == nil {
			return model.NewComponentNotFoundError(src.ComponentID)
		}
	case src.Template != nil:
		if src.Template.Type == "" {
			return model.NewBadRequestError("drag template requires a type")
		}
	default:
		return model.NewBadRequestError("drag source requires a component id or a template")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetDragLocked()
	c.dragging = true
	c.source = src
	return nil
}

// DragOver marks (row, col) as hovered and reports whether a drop there
// would be accepted.
func (c *Controller) DragOver(row, col int) bool {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return false
	}
	for i := range c.cells {
		c.cells[i].IsDragOver = c.cells[i].Row == row && c.cells[i].Col == col
	}
	src, dims := c.source, c.dims
	c.mu.Unlock()

	if !dims.Contains(row, col) {
		return false
	}
	return grid.CanDropExcept(row, col, c.Components(), src.ComponentID)
}

// DragLeave clears the hover flag of (row, col).
func (c *Controller) DragLeave(row, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cells {
		if c.cells[i].Row == row && c.cells[i].Col == col {
			c.cells[i].IsDragOver = false
		}
	}
}

// EndDrag abandons the drag and clears every hover flag.
func (c *Controller) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetDragLocked()
}

// Drop places the dragged component at (row, col). It returns false
// without touching the configuration when no drag is active, the cell is
// outside the grid, or the cell is occupied, and false with the store's
// error when the edit fails. Drag state is reset in every case.
func (c *Controller) Drop(row, col int) (bool, error) {
	c.mu.Lock()
	active, src, dims := c.dragging, c.source, c.dims
	c.mu.Unlock()
	defer c.EndDrag()

	if !active {
		return false, nil
	}
	if !dims.Contains(row, col) {
		c.logger.Debug("drop outside grid", zap.Int("row", row), zap.Int("col", col))
		return false, nil
	}
	if !grid.CanDropExcept(row, col, c.Components(), src.ComponentID) {
		c.logger.Debug("drop rejected, cell occupied",
			zap.Int("row", row), zap.Int("col", col), zap.String("component_id", src.ComponentID))
		return false, nil
	}

	var err error
	if src.ComponentID == "" {
		err = c.dropTemplate(src.Template, row, col, dims)
	} else {
		err = c.dropExisting(src.ComponentID, row, col, dims)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) dropTemplate(tmpl *model.Component, row, col int, dims grid.Dimensions) error {
	node := tmpl.Clone()
	if node.Props == nil {
		node.Props = model.Props{}
	}
	pos := model.GridPosition{Row: row, Col: col, Width: 1, Height: 1}
	if p, ok := node.Position(); ok {
		pos.Width, pos.Height = p.Width, p.Height
	}
	node.SetPosition(grid.Clamp(pos, dims))
	_, err := c.editor.AddComponent(node, c.parentID, -1)
	return err
}

func (c *Controller) dropExisting(id string, row, col int, dims grid.Dimensions) error {
	return c.editor.Transform(OpDrop, func(cfg *model.Configuration) error {
		node := cfg.FindByID(id)
		if node == nil {
			return model.NewComponentNotFoundError(id)
		}
		if c.parentID != "" && (c.parentID == id || model.IsDescendant(node, c.parentID)) {
			return model.NewInvalidMoveError(fmt.Sprintf("cannot drop %q into itself", id))
		}
		if err := reparent(cfg, node, c.parentID); err != nil {
			return err
		}
		pos := model.GridPosition{Row: row, Col: col, Width: 1, Height: 1}
		if p, ok := node.Position(); ok {
			pos.Width, pos.Height = p.Width, p.Height
		}
		node.SetPosition(grid.Clamp(pos, dims))
		return nil
	})
}

// reparent moves node to the end of parentID's children unless it is
// already there.
func reparent(cfg *model.Configuration, node *model.Component, parentID string) error {
	parent, index, ok := cfg.ParentOf(node.ID)
	if !ok {
		return model.NewComponentNotFoundError(node.ID)
	}
	currentID := ""
	if parent != nil {
		currentID = parent.ID
	}
	if currentID == parentID {
		return nil
	}

	var target *model.Component
	if parentID != "" {
		if target = cfg.FindByID(parentID); target == nil {
			return model.NewComponentNotFoundError(parentID)
		}
	}
	if parent == nil {
		cfg.Components = slices.Delete(cfg.Components, index, index+1)
	} else {
		parent.Children = slices.Delete(parent.Children, index, index+1)
	}
	if target == nil {
		cfg.Components = append(cfg.Components, node)
	} else {
		target.Children = append(target.Children, node)
	}
	return nil
}

func (c *Controller) resetDragLocked() {
	c.dragging = false
	c.source = DragSource{}
	for i := range c.cells {
		c.cells[i].IsDragOver = false
	}
}

// SetGridDimensions resizes the grid, regenerates its cells and clamps
// every component that no longer fits. It returns the number of repaired
// components.
func (c *Controller) SetGridDimensions(rows, cols int) (int, error) {
	if rows < 1 || cols < 1 {
		return 0, model.NewBadRequestError(fmt.Sprintf("grid dimensions must be positive, got %dx%d", rows, cols))
	}
	dims := grid.Dimensions{Rows: rows, Cols: cols}

	c.mu.Lock()
	c.dims = dims
	c.cells = grid.RegenerateCells(rows, cols)
	c.resetDragLocked()
	c.mu.Unlock()

	if len(grid.Reflow(c.Components(), dims)) == 0 {
		return 0, nil
	}

	repaired := 0
	err := c.editor.Transform(OpReflow, func(cfg *model.Configuration) error {
		repaired = 0
		for id, pos := range grid.Reflow(scope(cfg, c.parentID), dims) {
			if node := cfg.FindByID(id); node != nil {
				node.SetPosition(pos)
				repaired++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.logger.Debug("grid reflowed", zap.Int("rows", rows), zap.Int("cols", cols), zap.Int("repaired", repaired))
	return repaired, nil
}

// Close abandons any drag and releases the listeners of an active resize.
func (c *Controller) Close() {
	c.mu.Lock()
	c.resetDragLocked()
	sess := c.resize
	c.resize = nil
	c.mu.Unlock()
	if sess != nil {
		release(sess)
	}
}

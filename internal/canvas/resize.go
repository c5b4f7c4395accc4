package canvas

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/model"
)

// BeginResize starts a resize gesture on component id from the pointer
// position (x, y). Move and up listeners are installed on the pointer hub
// for the duration of the gesture and removed on pointer-up or Close. A
// gesture already in progress is abandoned.
func (c *Controller) BeginResize(id string, dir grid.Direction, x, y float64) error {
	if !dir.Valid() {
		return model.NewBadRequestError(fmt.Sprintf("invalid resize direction %q", dir))
	}
	node := c.editor.Config().FindByID(id)
	if node == nil {
		return model.NewComponentNotFoundError(id)
	}
	pos, ok := node.Position()
	if !ok {
		return model.NewBadRequestError(fmt.Sprintf("component %q has no grid position", id))
	}

	sess := &resizeSession{
		id:      id,
		dir:     dir,
		startX:  x,
		startY:  y,
		start:   pos,
		current: pos,
	}

	sess.offs = []func(){
		c.pointers.On(PointerMove, func(ev PointerEvent) { c.resizeMove(sess, ev) }),
		c.pointers.On(PointerUp, func(ev PointerEvent) { c.resizeUp(sess, ev) }),
	}

	c.mu.Lock()
	prev := c.resize
	c.resize = sess
	c.mu.Unlock()
	if prev != nil {
		release(prev)
	}
	return nil
}

// Resizing returns the component and rectangle of the gesture in
// progress.
func (c *Controller) Resizing() (string, model.GridPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resize == nil {
		return "", model.GridPosition{}, false
	}
	return c.resize.id, c.resize.current, true
}

// Resize runs a complete gesture on id: press, move by (dx, dy) and
// release. It returns the committed rectangle.
func (c *Controller) Resize(id string, dir grid.Direction, dx, dy float64) (model.GridPosition, error) {
	if err := c.BeginResize(id, dir, 0, 0); err != nil {
		return model.GridPosition{}, err
	}
	c.mu.Lock()
	sess := c.resize
	c.mu.Unlock()

	c.pointers.Dispatch(PointerEvent{Type: PointerMove, X: dx, Y: dy})
	c.pointers.Dispatch(PointerEvent{Type: PointerUp, X: dx, Y: dy})
	if sess == nil {
		return model.GridPosition{}, model.NewConflictError("resize gesture was interrupted")
	}
	return sess.current, sess.err
}

func (c *Controller) resizeMove(sess *resizeSession, ev PointerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resize != sess {
		return
	}
	sess.current = grid.Resize(sess.start, sess.dir, ev.X-sess.startX, ev.Y-sess.startY, c.cell, c.dims)
}

func (c *Controller) resizeUp(sess *resizeSession, ev PointerEvent) {
	c.mu.Lock()
	if c.resize != sess {
		c.mu.Unlock()
		return
	}
	sess.current = grid.Resize(sess.start, sess.dir, ev.X-sess.startX, ev.Y-sess.startY, c.cell, c.dims)
	c.resize = nil
	c.mu.Unlock()
	release(sess)

	if sess.current == sess.start {
		return
	}
	final := sess.current
	sess.err = c.editor.Transform(OpResize, func(cfg *model.Configuration) error {
		node := cfg.FindByID(sess.id)
		if node == nil {
			return model.NewComponentNotFoundError(sess.id)
		}
		node.SetPosition(final)
		return nil
	})
	if sess.err != nil {
		c.logger.Debug("resize not committed", zap.String("component_id", sess.id), zap.Error(sess.err))
	}
}

func release(sess *resizeSession) {
	for _, off := range sess.offs {
		off()
	}
}

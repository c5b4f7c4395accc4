// Package store owns the live configuration of one designer session. Every
// structural edit goes through a Store command, which copies the current
// tree, applies the edit, pushes the result to a bounded undo/redo history
// and broadcasts it to subscribers.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/model"
)

// Operation names reported to subscribers and the mutation hook.
const (
	OpLoad           = "load"
	OpAdd            = "add"
	OpUpdate         = "update"
	OpUpdateProperty = "update_property"
	OpDelete         = "delete"
	OpMove           = "move"
	OpDuplicate      = "duplicate"
	OpTransform      = "transform"
	OpUndo           = "undo"
	OpRedo           = "redo"
	OpSelect         = "select"
	OpMarkSaved      = "mark_saved"
	OpSnapshot       = "snapshot"
)

// Change is delivered to subscribers after every committed command.
// Config is a private copy owned by the subscriber.
type Change struct {
	Op       string
	Config   *model.Configuration
	Selected string
	Unsaved  bool
	CanUndo  bool
	CanRedo  bool
}

// Alters reports whether the change replaced or edited the configuration.
// Selection, save marks and subscription snapshots do not.
func (c Change) Alters() bool {
	switch c.Op {
	case OpSelect, OpMarkSaved, OpSnapshot:
		return false
	default:
		return true
	}
}

// Listener receives changes. It runs synchronously on the committing
// goroutine after the store lock is released.
type Listener func(Change)

// MutationHook is notified once per command with its outcome.
type MutationHook func(op string, err error)

// IDGenerator returns a fresh component id for a component of the given
// type.
type IDGenerator func(componentType string) string

// NewComponentID is the default IDGenerator: "<type>-<uuid>".
func NewComponentID(componentType string) string {
	if componentType == "" {
		componentType = "component"
	}
	return componentType + "-" + uuid.NewString()
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit bounds the undo history.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.history = NewHistory(n) }
}

// WithIDGenerator replaces NewComponentID.
func WithIDGenerator(fn IDGenerator) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMutationHook registers a hook called once per command.
func WithMutationHook(fn MutationHook) Option {
	return func(s *Store) { s.hook = fn }
}

// Store is the single writer of a configuration. Commands are atomic: a
// failing command leaves the configuration, selection and history
// untouched.
type Store struct {
	mu        sync.Mutex
	current   *model.Configuration
	selected  string
	unsaved   bool
	history   *History
	listeners map[int]Listener
	nextSub   int

	newID  IDGenerator
	logger *zap.Logger
	hook   MutationHook
}

// New creates a Store holding an empty configuration.
func New(opts ...Option) *Store {
	s := &Store{
		current:   model.NewConfiguration(),
		history:   NewHistory(DefaultHistoryLimit),
		listeners: make(map[int]Listener),
		newID:     NewComponentID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history.Reset(s.current)
	return s
}

// Subscribe registers fn and immediately delivers the current state to it.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	change := s.changeLocked(OpSnapshot)
	s.mu.Unlock()

	fn(change)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Config returns a copy of the live configuration.
func (s *Store) Config() *model.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Component returns a copy of the component with the given id.
func (s *Store) Component(id string) (*model.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.current.FindByID(id)
	if c == nil {
		return nil, model.NewComponentNotFoundError(id)
	}
	return c.Clone(), nil
}

// Selected returns the selected component id, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Unsaved reports whether the live configuration differs from the last
// load or save.
func (s *Store) Unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

// CanUndo reports whether Undo would change the configuration.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change the configuration.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// State returns the current state without subscribing.
func (s *Store) State() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeLocked(OpSnapshot)
}

// Load validates cfg and replaces the live configuration with it. The
// selection is cleared, the unsaved flag reset and a new history chain
// started. An invalid cfg leaves the previous configuration active.
func (s *Store) Load(cfg *model.Configuration) error {
	valid, err := definition.Validate(cfg)
	if err != nil {
		s.report(OpLoad, err)
		return err
	}

	s.mu.Lock()
	s.current = valid
	s.selected = ""
	s.unsaved = false
	s.history.Reset(valid)
	change := s.changeLocked(OpLoad)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Info("configuration loaded", zap.Int("components", len(valid.IDs())))
	s.report(OpLoad, nil)
	notify(listeners, change)
	return nil
}

// MarkSaved clears the unsaved flag after a successful save.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	s.unsaved = false
	change := s.changeLocked(OpMarkSaved)
	listeners := s.listenersLocked()
	s.mu.Unlock()
	notify(listeners, change)
}

// Select marks id as selected. An empty id clears the selection.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if id != "" && s.current.FindByID(id) == nil {
		s.mu.Unlock()
		return model.NewComponentNotFoundError(id)
	}
	s.selected = id
	change := s.changeLocked(OpSelect)
	listeners := s.listenersLocked()
	s.mu.Unlock()
	notify(listeners, change)
	return nil
}

// AddComponent inserts c into the children of parentID, or at the root
// when parentID is empty. A negative or out-of-range index appends. A
// component without an id gets a generated one. The new component is
// selected and its id returned.
func (s *Store) AddComponent(c *model.Component, parentID string, index int) (string, error) {
	if c == nil {
		return "", model.NewBadRequestError("component is required")
	}
	node := c.Clone()
	if node.ID == "" {
		node.ID = s.newID(node.Type)
	}
	if err := definition.ValidateComponent(node); err != nil {
		s.report(OpAdd, err)
		return "", err
	}

	err := s.commit(OpAdd, func(cfg *model.Configuration) error {
		if err := checkFreshIDs(cfg, node, ""); err != nil {
			return err
		}
		if err := insert(cfg, node, parentID, index); err != nil {
			return err
		}
		s.selected = node.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return node.ID, nil
}

// UpdateComponent replaces the component whose id matches c.ID wherever it
// occurs in the tree.
func (s *Store) UpdateComponent(c *model.Component) error {
	if c == nil {
		return model.NewBadRequestError("component is required")
	}
	node := c.Clone()
	if err := definition.ValidateComponent(node); err != nil {
		s.report(OpUpdate, err)
		return err
	}
	return s.commit(OpUpdate, func(cfg *model.Configuration) error {
		return replace(cfg, node.ID, node)
	})
}

// UpdateComponentProperty assigns value at a dotted path relative to the
// component, creating intermediate objects as needed.
func (s *Store) UpdateComponentProperty(id, path string, value any) error {
	return s.commit(OpUpdateProperty, func(cfg *model.Configuration) error {
		old := cfg.FindByID(id)
		if old == nil {
			return model.NewComponentNotFoundError(id)
		}
		updated, err := setComponentPath(old, path, value)
		if err != nil {
			return err
		}
		if err := definition.ValidateComponent(updated); err != nil {
			return err
		}
		if err := replace(cfg, id, updated); err != nil {
			return err
		}
		if s.selected == id {
			s.selected = updated.ID
		}
		return nil
	})
}

// DeleteComponent removes the component and its subtree. The selection is
// cleared when it pointed into the removed subtree.
func (s *Store) DeleteComponent(id string) error {
	return s.commit(OpDelete, func(cfg *model.Configuration) error {
		removed, err := remove(cfg, id)
		if err != nil {
			return err
		}
		if s.selected != "" && model.IsDescendant(removed, s.selected) {
			s.selected = ""
		}
		return nil
	})
}

// MoveComponent detaches the component and re-inserts it under
// newParentID (root when empty) at index, counted after the detach. The
// component keeps its id and state. Moving a component into its own
// subtree is rejected.
func (s *Store) MoveComponent(id, newParentID string, index int) error {
	return s.commit(OpMove, func(cfg *model.Configuration) error {
		node := cfg.FindByID(id)
		if node == nil {
			return model.NewComponentNotFoundError(id)
		}
		if newParentID != "" && model.IsDescendant(node, newParentID) {
			return model.NewInvalidMoveError(fmt.Sprintf("cannot move %q into its own subtree", id))
		}
		if newParentID != "" && cfg.FindByID(newParentID) == nil {
			return model.NewComponentNotFoundError(newParentID)
		}
		if _, err := remove(cfg, id); err != nil {
			return err
		}
		return insert(cfg, node, newParentID, index)
	})
}

// DuplicateComponent inserts a deep copy of the component immediately
// after it. The copy and every descendant receive fresh ids. The new root
// id is returned.
func (s *Store) DuplicateComponent(id string) (string, error) {
	var newID string
	err := s.commit(OpDuplicate, func(cfg *model.Configuration) error {
		parent, index, ok := cfg.ParentOf(id)
		if !ok {
			return model.NewComponentNotFoundError(id)
		}
		clone := cfg.Siblings(parent)[index].Clone()
		model.Walk([]*model.Component{clone}, func(c, _ *model.Component) bool {
			c.ID = s.newID(c.Type)
			return true
		})
		newID = clone.ID

		parentID := ""
		if parent != nil {
			parentID = parent.ID
		}
		return insert(cfg, clone, parentID, index+1)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// Transform applies fn to a copy of the configuration and commits the
// result as one history entry. It is used for batch repairs such as grid
// reflow. The result is validated before commit.
func (s *Store) Transform(op string, fn func(cfg *model.Configuration) error) error {
	if op == "" {
		op = OpTransform
	}
	return s.commit(op, func(cfg *model.Configuration) error {
		if err := fn(cfg); err != nil {
			return err
		}
		_, err := definition.Validate(cfg)
		return err
	})
}

// Undo restores the previous snapshot. It is a no-op returning false at
// the beginning of history.
func (s *Store) Undo() bool {
	return s.move(OpUndo, s.history.Undo)
}

// Redo restores the next snapshot. It is a no-op returning false at the
// end of history.
func (s *Store) Redo() bool {
	return s.move(OpRedo, s.history.Redo)
}

func (s *Store) move(op string, step func() (*model.Configuration, bool)) bool {
	s.mu.Lock()
	cfg, ok := step()
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("history boundary reached", zap.String("op", op))
		return false
	}
	s.current = cfg
	s.unsaved = true
	if s.selected != "" && cfg.FindByID(s.selected) == nil {
		s.selected = ""
	}
	change := s.changeLocked(op)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Debug("history moved", zap.String("op", op), zap.Bool("can_undo", change.CanUndo), zap.Bool("can_redo", change.CanRedo))
	s.report(op, nil)
	notify(listeners, change)
	return true
}

// commit runs apply against a copy of the live configuration. On success
// the copy becomes live, is pushed to history and broadcast; on failure
// nothing changes, including the selection.
func (s *Store) commit(op string, apply func(cfg *model.Configuration) error) error {
	s.mu.Lock()
	next := s.current.Clone()
	prevSelected := s.selected
	if err := apply(next); err != nil {
		s.selected = prevSelected
		s.mu.Unlock()
		s.logger.Debug("mutation rejected", zap.String("op", op), zap.Error(err))
		s.report(op, err)
		return err
	}
	s.current = next
	s.unsaved = true
	s.history.Push(next)
	depth := s.history.Len()
	change := s.changeLocked(op)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Debug("mutation committed", zap.String("op", op), zap.Int("history", depth))
	s.report(op, nil)
	notify(listeners, change)
	return nil
}

func (s *Store) report(op string, err error) {
	if s.hook != nil {
		s.hook(op, err)
	}
}

func (s *Store) changeLocked(op string) Change {
	return Change{
		Op:       op,
		Config:   s.current.Clone(),
		Selected: s.selected,
		Unsaved:  s.unsaved,
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
	}
}

func (s *Store) listenersLocked() []Listener {
	keys := make([]int, 0, len(s.listeners))
	for k := range s.listeners {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Listener, len(keys))
	for i, k := range keys {
		out[i] = s.listeners[k]
	}
	return out
}

// notify gives every listener its own copy of the configuration.
func notify(listeners []Listener, change Change) {
	for i, fn := range listeners {
		c := change
		if i > 0 {
			c.Config = change.Config.Clone()
		}
		fn(c)
	}
}

// insert places node under parentID at index, appending when index is out
// of range.
func insert(cfg *model.Configuration, node *model.Component, parentID string, index int) error {
	if parentID == "" {
		cfg.Components = insertAt(cfg.Components, node, index)
		return nil
	}
	parent := cfg.FindByID(parentID)
	if parent == nil {
		return model.NewComponentNotFoundError(parentID)
	}
	parent.Children = insertAt(parent.Children, node, index)
	return nil
}

func insertAt(list []*model.Component, node *model.Component, index int) []*model.Component {
	if index < 0 || index >= len(list) {
		return append(list, node)
	}
	return slices.Insert(list, index, node)
}

// remove detaches id from wherever it occurs and returns it.
func remove(cfg *model.Configuration, id string) (*model.Component, error) {
	parent, index, ok := cfg.ParentOf(id)
	if !ok {
		return nil, model.NewComponentNotFoundError(id)
	}
	if parent == nil {
		node := cfg.Components[index]
		cfg.Components = slices.Delete(cfg.Components, index, index+1)
		return node, nil
	}
	node := parent.Children[index]
	parent.Children = slices.Delete(parent.Children, index, index+1)
	return node, nil
}

// replace swaps the component with id for node in place.
func replace(cfg *model.Configuration, id string, node *model.Component) error {
	parent, index, ok := cfg.ParentOf(id)
	if !ok {
		return model.NewComponentNotFoundError(id)
	}
	if err := checkFreshIDs(cfg, node, id); err != nil {
		return err
	}
	if parent == nil {
		cfg.Components[index] = node
	} else {
		parent.Children[index] = node
	}
	return nil
}

// checkFreshIDs rejects node when one of its subtree ids already exists in
// cfg outside the subtree rooted at replacing.
func checkFreshIDs(cfg *model.Configuration, node *model.Component, replacing string) error {
	existing := make(map[string]bool)
	var skip *model.Component
	if replacing != "" {
		skip = cfg.FindByID(replacing)
	}
	model.Walk(cfg.Components, func(c, _ *model.Component) bool {
		if skip != nil && model.IsDescendant(skip, c.ID) {
			return true
		}
		existing[c.ID] = true
		return true
	})

	var dup string
	model.Walk([]*model.Component{node}, func(c, _ *model.Component) bool {
		if existing[c.ID] {
			dup = c.ID
			return false
		}
		return true
	})
	if dup != "" {
		return model.NewDuplicateComponentIDError(dup)
	}
	return nil
}

package model

// Walk visits every component depth-first in pre-order. Returning false
// from fn stops the walk.
func Walk(components []*Component, fn func(c *Component, parent *Component) bool) {
	walk(components, nil, fn)
}

func walk(components []*Component, parent *Component, fn func(*Component, *Component) bool) bool {
	for _, c := range components {
		if c == nil {
			continue
		}
		if !fn(c, parent) {
			return false
		}
		if !walk(c.Children, c, fn) {
			return false
		}
	}
	return true
}

// FindByID returns the first component with the given id anywhere in the
// tree, or nil.
func (c *Configuration) FindByID(id string) *Component {
	if c == nil || id == "" {
		return nil
	}
	return FindComponent(c.Components, id)
}

// FindComponent searches components and their descendants for id.
func FindComponent(components []*Component, id string) *Component {
	var found *Component
	Walk(components, func(c, _ *Component) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// ParentOf locates the container holding id. parent is nil when the
// component sits at the root; index is its position among its siblings.
func (c *Configuration) ParentOf(id string) (parent *Component, index int, ok bool) {
	if c == nil || id == "" {
		return nil, -1, false
	}
	for i, comp := range c.Components {
		if comp != nil && comp.ID == id {
			return nil, i, true
		}
	}
	Walk(c.Components, func(node, _ *Component) bool {
		for i, child := range node.Children {
			if child != nil && child.ID == id {
				parent, index, ok = node, i, true
				return false
			}
		}
		return true
	})
	if !ok {
		return nil, -1, false
	}
	return parent, index, true
}

// CollectByType returns every component of type t in pre-order.
func (c *Configuration) CollectByType(t ComponentType) []*Component {
	if c == nil {
		return nil
	}
	var out []*Component
	Walk(c.Components, func(node, _ *Component) bool {
		if node.Type == t {
			out = append(out, node)
		}
		return true
	})
	return out
}

// Siblings returns the slice that holds the children of parent, or the
// root components when parent is nil.
func (c *Configuration) Siblings(parent *Component) []*Component {
	if parent == nil {
		return c.Components
	}
	return parent.Children
}

// IDs returns every component id in pre-order.
func (c *Configuration) IDs() []string {
	if c == nil {
		return nil
	}
	var ids []string
	Walk(c.Components, func(node, _ *Component) bool {
		ids = append(ids, node.ID)
		return true
	})
	return ids
}

// DuplicateIDs returns ids that occur more than once in the tree.
func (c *Configuration) DuplicateIDs() []string {
	seen := make(map[string]int)
	var dups []string
	for _, id := range c.IDs() {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

// IsDescendant reports whether id is ancestor itself or lies beneath it.
func IsDescendant(ancestor *Component, id string) bool {
	if ancestor == nil {
		return false
	}
	if ancestor.ID == id {
		return true
	}
	return FindComponent(ancestor.Children, id) != nil
}

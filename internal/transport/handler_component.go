package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/designer/internal/session"
	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

// mutationResponse is returned by every command that edits the session.
type mutationResponse struct {
	ID      string        `json:"id,omitempty"`
	Applied *bool         `json:"applied,omitempty"`
	State   session.State `json:"state"`
}

// indexOrAppend converts an optional insertion index; a missing index
// appends.
func indexOrAppend(i *int) int {
	if i == nil {
		return -1
	}
	return *i
}

func handleAddComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body struct {
		Component *model.Component `json:"component"`
		ParentID  string           `json:"parentId"`
		Index     *int             `json:"index"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if body.Component == nil {
		WriteError(w, model.NewBadRequestError("component is required"))
		return
	}

	var id string
	err := sess.Edit(r.Context(), store.OpAdd, body.Component.ID, func(st *store.Store) error {
		var err error
		id, err = st.AddComponent(body.Component, body.ParentID, indexOrAppend(body.Index))
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, mutationResponse{ID: id, State: sess.State()})
}

func handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var c model.Component
	if err := decodeJSON(r, &c); err != nil {
		WriteError(w, err)
		return
	}
	c.ID = chi.URLParam(r, "componentId")

	if err := sess.Edit(r.Context(), store.OpUpdate, c.ID, func(st *store.Store) error { return st.UpdateComponent(&c) }); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResponse{ID: c.ID, State: sess.State()})
}

func handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "componentId")
	var body struct {
		Path  string `json:"path"`
		Value any    `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	err := sess.Edit(r.Context(), store.OpUpdateProperty, id, func(st *store.Store) error {
		return st.UpdateComponentProperty(id, body.Path, body.Value)
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResponse{ID: id, State: sess.State()})
}

func handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "componentId")

	if err := sess.Edit(r.Context(), store.OpDelete, id, func(st *store.Store) error { return st.DeleteComponent(id) }); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResponse{ID: id, State: sess.State()})
}

func handleMoveComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "componentId")
	var body struct {
		ParentID string `json:"parentId"`
		Index    *int   `json:"index"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	err := sess.Edit(r.Context(), store.OpMove, id, func(st *store.Store) error {
		return st.MoveComponent(id, body.ParentID, indexOrAppend(body.Index))
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResponse{ID: id, State: sess.State()})
}

func handleDuplicateComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "componentId")

	var copyID string
	err := sess.Edit(r.Context(), store.OpDuplicate, id, func(st *store.Store) error {
		var err error
		copyID, err = st.DuplicateComponent(id)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, mutationResponse{ID: copyID, State: sess.State()})
}

func handleSelectComponent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "componentId")

	if err := sess.Edit(r.Context(), store.OpSelect, id, func(st *store.Store) error { return st.Select(id) }); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mutationResponse{ID: id, State: sess.State()})
}

func handleUndo(w http.ResponseWriter, r *http.Request) {
	historyMove(w, r, store.OpUndo, (*store.Store).Undo)
}

func handleRedo(w http.ResponseWriter, r *http.Request) {
	historyMove(w, r, store.OpRedo, (*store.Store).Redo)
}

// historyMove answers 200 with applied=false when there is nothing to undo
// or redo.
func historyMove(w http.ResponseWriter, r *http.Request, op string, step func(*store.Store) bool) {
	sess := SessionFrom(r.Context())
	var applied bool
	_ = sess.Edit(r.Context(), op, "", func(st *store.Store) error {
		applied = step(st)
		return nil
	})
	WriteJSON(w, http.StatusOK, mutationResponse{Applied: &applied, State: sess.State()})
}

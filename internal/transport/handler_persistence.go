package transport

import (
	"net/http"
)

type persistRequest struct {
	Key string `json:"key"`
}

func handleSave(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body persistRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	if err := sess.Save(r.Context(), body.Key); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"key":   body.Key,
		"state": sess.State(),
	})
}

func handleRestore(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body persistRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	if err := sess.Restore(r.Context(), body.Key); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"key":   body.Key,
		"state": sess.State(),
	})
}

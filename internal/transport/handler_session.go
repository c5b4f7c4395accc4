package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/designer/internal/session"
	"github.com/pitabwire/designer/model"
)

func handleListTemplates(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"data": sessions.Templates(),
		})
	}
}

func handleCreateSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Template string `json:"template"`
		}
		// An empty body starts a blank session.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		sess, err := sessions.Create(body.Template)
		if err != nil {
			WriteError(w, err)
			return
		}
		w.Header().Set("X-Session-Id", sess.ID)
		WriteJSON(w, http.StatusCreated, sess.State())
	}
}

func handleGetSession(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SessionFrom(r.Context()).State())
}

func handleCloseSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Close(SessionFrom(r.Context()).ID); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SessionFrom(r.Context()).Config())
}

func handleLoadConfig(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, model.NewBadRequestError("configuration document is too large"))
			return
		}
		WriteError(w, model.NewBadRequestError("reading request body failed"))
		return
	}
	if err := sess.LoadJSON(data); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess.State())
}

func handleLoadTemplate(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if err := sess.LoadTemplate(chi.URLParam(r, "name")); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess.State())
}

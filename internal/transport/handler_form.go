package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/designer/model"
)

func handleGetFormFields(w http.ResponseWriter, r *http.Request) {
	fc, err := SessionFrom(r.Context()).FormFields(chi.URLParam(r, "componentId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, fc)
}

func handleUpdateFormField(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	formID := chi.URLParam(r, "componentId")

	var field model.FormField
	if err := decodeJSON(r, &field); err != nil {
		WriteError(w, err)
		return
	}
	field.ID = chi.URLParam(r, "fieldId")

	if err := sess.UpdateFormField(formID, field); err != nil {
		WriteError(w, err)
		return
	}
	fc, err := sess.FormFields(formID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, fc)
}

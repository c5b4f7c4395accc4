package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/designer/internal/canvas"
	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/internal/render"
	"github.com/pitabwire/designer/model"
)

// handleRender renders the session. Condition values are passed as
// value[name]=x query parameters; when none are given the values of the
// previous render are reused.
func handleRender(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	q := r.URL.Query()

	var values map[string]any
	if raw := queryMap(r, "value"); len(raw) > 0 {
		values = make(map[string]any, len(raw))
		for k, v := range raw {
			values[k] = v
		}
	}

	out, err := sess.Render(r.Context(), q.Get("mode"), q.Get("viewMode"), values)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func handleGetGrid(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SessionFrom(r.Context()).Grid())
}

func handleSetGrid(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body struct {
		Rows int `json:"rows"`
		Cols int `json:"cols"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	repaired, err := sess.SetGrid(body.Rows, body.Cols)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"repaired": repaired,
		"grid":     sess.Grid(),
	})
}

// handleDrop performs a whole drag gesture. A rejected drop is a normal
// 200 response with accepted=false.
func handleDrop(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body struct {
		ComponentID string           `json:"componentId"`
		Template    *model.Component `json:"template"`
		Row         int              `json:"row"`
		Col         int              `json:"col"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	accepted, err := sess.Drop(canvas.DragSource{ComponentID: body.ComponentID, Template: body.Template}, body.Row, body.Col)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"accepted": accepted,
		"state":    sess.State(),
	})
}

func handleResize(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var body struct {
		ComponentID string  `json:"componentId"`
		Direction   string  `json:"direction"`
		DX          float64 `json:"dx"`
		DY          float64 `json:"dy"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	pos, err := sess.Resize(body.ComponentID, grid.Direction(body.Direction), body.DX, body.DY)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"gridPosition": pos,
		"state":        sess.State(),
	})
}

func handleEvent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var ev render.Event
	if err := decodeJSON(r, &ev); err != nil {
		WriteError(w, err)
		return
	}

	res, err := sess.Dispatch(chi.URLParam(r, "componentId"), ev)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// queryMap extracts all query params with a given prefix as a map.
// e.g., value[role]=admin → {"role": "admin"}
func queryMap(r *http.Request, prefix string) map[string]string {
	result := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(key) > len(prefix)+2 && key[:len(prefix)+1] == prefix+"[" && key[len(key)-1] == ']' {
			field := key[len(prefix)+1 : len(key)-1]
			if len(values) > 0 {
				result[field] = values[0]
			}
		}
	}
	return result
}

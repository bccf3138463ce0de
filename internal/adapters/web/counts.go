package web

import (
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

// apiListCounts handles GET /api/counts?status=&location_id=&limit=.
func (h *Handler) apiListCounts(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	filter := core.CountFilter{
		Status:     core.CountStatus(r.URL.Query().Get("status")),
		LocationID: locationID,
	}
	if limit != nil {
		filter.Limit = *limit
	}
	result, err := h.svc.ListCounts(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiStartCount handles POST /api/counts. Body: { location_id, notes? }
func (h *Handler) apiStartCount(w http.ResponseWriter, r *http.Request) {
	var body app.StartCountRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Actor = actor(r)
	cs, err := h.svc.StartCount(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, cs)
}

func (h *Handler) apiGetCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	cs, err := h.svc.GetCount(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cs)
}

// apiAddCountLine handles POST /api/counts/{id}/lines.
// Body: { item_id, counted_qty, reason_code?, notes? }
func (h *Handler) apiAddCountLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body core.CountLineInput
	if !decodeJSON(w, r, &body) {
		return
	}
	line, err := h.svc.AddCountLine(r.Context(), id, body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, line)
}

func (h *Handler) apiCompleteCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	cs, err := h.svc.CompleteCount(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cs)
}

func (h *Handler) apiCancelCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	cs, err := h.svc.CancelCount(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cs)
}

// apiApplyCount handles POST /api/counts/{id}/apply.
func (h *Handler) apiApplyCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	cs, err := h.svc.ApplyCountVariance(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cs)
}

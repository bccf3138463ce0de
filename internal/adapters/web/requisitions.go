package web

import (
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

// apiListRequisitions handles GET /api/requisitions?status=&location_id=&limit=.
func (h *Handler) apiListRequisitions(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	filter := core.RequisitionFilter{
		Status:     core.RequisitionStatus(r.URL.Query().Get("status")),
		LocationID: locationID,
	}
	if limit != nil {
		filter.Limit = *limit
	}
	result, err := h.svc.ListRequisitions(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateRequisition handles POST /api/requisitions.
// Body: { from_location_id, to_location_id, needed_by?, notes?, lines: [{item_id, quantity}] }
func (h *Handler) apiCreateRequisition(w http.ResponseWriter, r *http.Request) {
	var body core.RequisitionInput
	if !decodeJSON(w, r, &body) {
		return
	}
	body.RequestedBy = actor(r)
	req, err := h.svc.CreateRequisition(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, req)
}

func (h *Handler) apiGetRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.GetRequisition(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiApproveRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.ApproveRequisition(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

// apiDenyRequisition handles POST /api/requisitions/{id}/deny. Body: { reason }
func (h *Handler) apiDenyRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body app.DenyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ID, body.Actor = id, actor(r)
	req, err := h.svc.DenyRequisition(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

// apiPickRequisition handles POST /api/requisitions/{id}/pick.
// A 409 INSUFFICIENT_STOCK response lists every short line; nothing has moved.
func (h *Handler) apiPickRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.PickRequisition(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiCompleteRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.CompleteRequisition(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiCancelRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.CancelRequisition(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

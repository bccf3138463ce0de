package web

import (
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

const defaultProjectionDays = 7

// apiParAlerts handles GET /api/reports/alerts?item_id=&location_id=.
func (h *Handler) apiParAlerts(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	alerts, err := h.svc.GetParAlerts(r.Context(), core.AlertFilter{ItemID: itemID, LocationID: locationID})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, alerts)
}

func (h *Handler) apiListOnHand(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListGlobalOnHand(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetOnHand(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathInt(w, r, "itemID")
	if !ok {
		return
	}
	result, err := h.svc.GetGlobalOnHand(r.Context(), itemID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSuggestOrders handles GET /api/reports/suggestions?vendor_id=&location_id=&lead_time_buffer_days=.
func (h *Handler) apiSuggestOrders(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	buffer, ok := queryInt(w, r, "lead_time_buffer_days")
	if !ok {
		return
	}
	result, err := h.svc.SuggestOrders(r.Context(), core.SuggestionFilter{
		VendorID:           vendorID,
		LocationID:         locationID,
		LeadTimeBufferDays: buffer,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiProjection handles GET /api/reports/projection?item_id=&location_id=&days=.
func (h *Handler) apiProjection(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	if itemID == nil || locationID == nil {
		writeError(w, r, "item_id and location_id are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	req := app.ProjectionRequest{ItemID: *itemID, LocationID: *locationID, DaysAhead: defaultProjectionDays}
	if days != nil {
		req.DaysAhead = *days
	}
	proj, err := h.svc.ProjectUsage(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, proj)
}

package web

import (
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiListItems handles GET /api/items?include_inactive=&category_id=&vendor_id=.
func (h *Handler) apiListItems(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryInt(w, r, "category_id")
	if !ok {
		return
	}
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	result, err := h.svc.ListItems(r.Context(), core.ItemFilter{
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
		CategoryID:      categoryID,
		VendorID:        vendorID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetItem handles GET /api/items/{ref}. ref is an ID or an item code.
func (h *Handler) apiGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiCreateItem handles POST /api/items.
func (h *Handler) apiCreateItem(w http.ResponseWriter, r *http.Request) {
	var body core.ItemInput
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := h.svc.CreateItem(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, item)
}

// apiUpdateItem handles PATCH /api/items/{id}.
func (h *Handler) apiUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body core.ItemUpdate
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), id, body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiDeactivateItem handles DELETE /api/items/{id}. Items are deactivated, never removed.
func (h *Handler) apiDeactivateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateItem(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListCategories(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body app.CreateCategoryRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	cat, err := h.svc.CreateCategory(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, cat)
}

type parentBody struct {
	ParentID *int `json:"parent_id"`
}

// apiSetCategoryParent handles PUT /api/categories/{id}/parent. A null parent_id detaches.
func (h *Handler) apiSetCategoryParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body parentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.SetCategoryParent(r.Context(), id, body.ParentID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListLocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLocations(r.Context(), r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	loc, err := h.svc.GetLocation(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, loc)
}

func (h *Handler) apiCreateLocation(w http.ResponseWriter, r *http.Request) {
	var body core.LocationInput
	if !decodeJSON(w, r, &body) {
		return
	}
	loc, err := h.svc.CreateLocation(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, loc)
}

func (h *Handler) apiSetLocationParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body parentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.SetLocationParent(r.Context(), id, body.ParentID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiDeactivateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateLocation(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiListVendors handles GET /api/vendors.
func (h *Handler) apiListVendors(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListVendors(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateVendor handles POST /api/vendors.
// Body: { code, name, contact_person?, email?, phone? }
func (h *Handler) apiCreateVendor(w http.ResponseWriter, r *http.Request) {
	var body core.VendorInput
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" {
		writeError(w, r, "code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		writeError(w, r, "name is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	vendor, err := h.svc.CreateVendor(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, vendor)
}

// apiGetVendor handles GET /api/vendors/{ref}. ref is an ID or a vendor code.
func (h *Handler) apiGetVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.svc.GetVendor(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

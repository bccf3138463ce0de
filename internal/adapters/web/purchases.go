package web

import (
	"context"
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

// apiListPurchaseRequests handles GET /api/purchase-requests?status=&vendor_id=&limit=.
func (h *Handler) apiListPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	filter := core.PurchaseRequestFilter{
		Status:   core.PurchaseRequestStatus(r.URL.Query().Get("status")),
		VendorID: vendorID,
	}
	if limit != nil {
		filter.Limit = *limit
	}
	result, err := h.svc.ListPurchaseRequests(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreatePurchaseRequest handles POST /api/purchase-requests.
// Body: { vendor_id?, notes?, lines: [{item_id, quantity, unit_cost?}] }
func (h *Handler) apiCreatePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var body core.PurchaseRequestInput
	if !decodeJSON(w, r, &body) {
		return
	}
	body.RequestedBy = actor(r)
	pr, err := h.svc.CreatePurchaseRequest(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, pr)
}

func (h *Handler) apiGetPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.purchaseOp(w, r, h.svc.GetPurchaseRequest)
}

func (h *Handler) apiSubmitPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.purchaseOp(w, r, h.svc.SubmitPurchaseRequest)
}

func (h *Handler) apiCancelPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.purchaseOp(w, r, h.svc.CancelPurchaseRequest)
}

func (h *Handler) apiOrderPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.purchaseOp(w, r, h.svc.OrderPurchaseRequest)
}

func (h *Handler) apiApprovePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	approver := actor(r)
	h.purchaseOp(w, r, func(ctx context.Context, id int) (*app.PurchaseRequestResult, error) {
		return h.svc.ApprovePurchaseRequest(ctx, id, approver)
	})
}

// apiDenyPurchaseRequest handles POST /api/purchase-requests/{id}/deny. Body: { reason }
func (h *Handler) apiDenyPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body app.DenyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ID, body.Actor = id, actor(r)
	pr, err := h.svc.DenyPurchaseRequest(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

// apiReceivePurchaseRequest handles POST /api/purchase-requests/{id}/receive. Body: { location_id }
func (h *Handler) apiReceivePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body app.ReceivePurchaseRequestRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ID, body.Actor = id, actor(r)
	pr, err := h.svc.ReceivePurchaseRequest(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

// purchaseOp runs a body-less purchase request operation addressed by {id}.
func (h *Handler) purchaseOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id int) (*app.PurchaseRequestResult, error)) {

	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	pr, err := op(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

package web

import (
	"context"
	"net/http"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

// apiListStock handles GET /api/stock?item_id=&location_id=&below_par=true.
func (h *Handler) apiListStock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	result, err := h.svc.GetStockLevels(r.Context(), core.StockFilter{
		ItemID:       itemID,
		LocationID:   locationID,
		BelowParOnly: r.URL.Query().Get("below_par") == "true",
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetStockLevel handles GET /api/stock/{itemID}/{locationID}.
func (h *Handler) apiGetStockLevel(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathInt(w, r, "itemID")
	if !ok {
		return
	}
	locationID, ok := pathInt(w, r, "locationID")
	if !ok {
		return
	}
	lvl, err := h.svc.GetStockLevel(r.Context(), itemID, locationID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, lvl)
}

// apiTransfer handles POST /api/stock/transfer.
// Body: { item_id, from_location_id, to_location_id, quantity, notes? }
func (h *Handler) apiTransfer(w http.ResponseWriter, r *http.Request) {
	var body core.TransferRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Actor = actor(r)
	tx, err := h.svc.Transfer(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tx)
}

// apiIssue handles POST /api/stock/issue.
// Body: { item_id, location_id, quantity, notes?, work_order_id? }
func (h *Handler) apiIssue(w http.ResponseWriter, r *http.Request) {
	var body core.IssueRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Actor = actor(r)
	tx, err := h.svc.Issue(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tx)
}

// apiReceive handles POST /api/stock/receive.
// Body: { item_id, location_id, quantity, cost?, notes?, receipt_id? }
func (h *Handler) apiReceive(w http.ResponseWriter, r *http.Request) {
	var body core.ReceiveRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Actor = actor(r)
	body.PurchaseRequestID = nil
	tx, err := h.svc.Receive(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tx)
}

// apiAdjust handles POST /api/stock/adjust. quantity is the new absolute on-hand.
// Body: { item_id, location_id, quantity, reason?, notes? }
func (h *Handler) apiAdjust(w http.ResponseWriter, r *http.Request) {
	var body core.AdjustRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Actor = actor(r)
	tx, err := h.svc.Adjust(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tx)
}

func (h *Handler) apiReserve(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.svc.Reserve)
}

func (h *Handler) apiRelease(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.svc.Release)
}

// apiSetPar handles PUT /api/stock/par. quantity is the new par.
func (h *Handler) apiSetPar(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.svc.SetPar)
}

func (h *Handler) quantityOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, req app.QuantityRequest) (*core.StockLevel, error)) {

	var body app.QuantityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	lvl, err := op(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, lvl)
}

// apiListTransactions handles GET /api/transactions?item_id=&location_id=&type=&since=&until=&limit=.
func (h *Handler) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	since, ok := queryTime(w, r, "since")
	if !ok {
		return
	}
	until, ok := queryTime(w, r, "until")
	if !ok {
		return
	}
	filter := core.TransactionFilter{
		ItemID:     itemID,
		LocationID: locationID,
		Type:       core.TransactionType(q.Get("type")),
		Since:      since,
		Until:      until,
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, r, "invalid type", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if limit != nil {
		filter.Limit = *limit
	}
	result, err := h.svc.ListTransactions(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

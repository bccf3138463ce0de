package web

import (
	"net/http"
	"reflect"
	"sort"
	"strings"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// requestSchemas lists the request bodies published under /api/schemas/{name}.
var requestSchemas = map[string]any{
	"item":             core.ItemInput{},
	"item-update":      core.ItemUpdate{},
	"location":         core.LocationInput{},
	"vendor":           core.VendorInput{},
	"category":         app.CreateCategoryRequest{},
	"transfer":         core.TransferRequest{},
	"issue":            core.IssueRequest{},
	"receive":          core.ReceiveRequest{},
	"adjust":           core.AdjustRequest{},
	"quantity":         app.QuantityRequest{},
	"requisition":      core.RequisitionInput{},
	"count":            app.StartCountRequest{},
	"count-line":       core.CountLineInput{},
	"purchase-request": core.PurchaseRequestInput{},
	"purchase-receive": app.ReceivePurchaseRequestRequest{},
	"deny":             app.DenyRequest{},
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// generateSchema reflects v into a JSON Schema. Decimals are published as
// strings because that is how they round-trip without loss.
func generateSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == decimalType {
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^-?[0-9]+(\.[0-9]+)?$`,
				}
			}
			return nil
		},
	}
	return reflector.Reflect(v)
}

// schema handles GET /api/schemas/{name}. Without a known name it returns the list of names.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "name"))
	v, ok := requestSchemas[name]
	if !ok {
		names := make([]string, 0, len(requestSchemas))
		for n := range requestSchemas {
			names = append(names, n)
		}
		sort.Strings(names)
		writeError(w, r, "unknown schema "+name+"; known: "+strings.Join(names, ", "), "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, generateSchema(v))
}

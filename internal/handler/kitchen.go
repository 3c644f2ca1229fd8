package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/floor/internal/ledger"
)

// KitchenLedger defines the ledger methods needed by the kitchen display.
// Satisfied by *ledger.Ledger.
type KitchenLedger interface {
	KitchenQueue(statuses ...string) ([]ledger.Order, error)
	Warnings() []ledger.Warning
}

// KitchenHandler serves the kitchen display's column view and the integrity
// warnings feed.
type KitchenHandler struct {
	ledger KitchenLedger
}

func NewKitchenHandler(l KitchenLedger) *KitchenHandler {
	return &KitchenHandler{ledger: l}
}

// RegisterRoutes registers kitchen endpoints. Expected to be mounted at /kitchen.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Queue)
}

// Queue handles GET /kitchen/orders?status=A,B. Without a status filter the
// default kitchen columns are returned, oldest activity first.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.KitchenQueue(splitUpper(r.URL.Query().Get("status"))...)
	if err != nil {
		writeLedgerError(w, "kitchen queue", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// Warnings handles GET /warnings.
func (h *KitchenHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	warnings := h.ledger.Warnings()
	if warnings == nil {
		warnings = []ledger.Warning{}
	}
	writeJSON(w, http.StatusOK, warnings)
}

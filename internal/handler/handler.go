// Package handler implements the HTTP surface used by the role views:
// captain, kitchen display, POS terminal and the customer's table device.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/ledger"
)

// --- Shared request / response types ---

type cartLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

// orderResponse is an order snapshot plus the derived predicates role views
// use to enable or disable actions.
type orderResponse struct {
	ledger.Order
	NeedsKOTPrint bool `json:"needs_kot_print"`
	CanCancel     bool `json:"can_cancel"`
	CanBill       bool `json:"can_bill"`
}

func toOrderResponse(o ledger.Order) orderResponse {
	return orderResponse{
		Order:         o,
		NeedsKOTPrint: o.NeedsKOTPrint(),
		CanCancel:     o.CanCancel(),
		CanBill:       o.CanBill(),
	}
}

func toOrderResponses(orders []ledger.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

// --- Helpers ---

// parseCartLines converts request lines to ledger cart lines. Quantity and
// menu item checks are left to the ledger.
func parseCartLines(lines []cartLineRequest) ([]ledger.CartLine, error) {
	out := make([]ledger.CartLine, 0, len(lines))
	for _, ln := range lines {
		id, err := uuid.Parse(ln.MenuItemID)
		if err != nil {
			return nil, errors.New("invalid menu_item_id")
		}
		out = append(out, ledger.CartLine{MenuItemID: id, Quantity: ln.Quantity})
	}
	return out, nil
}

func parseOrderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid order ID")
	}
	return id, nil
}

// splitUpper splits a comma separated query value into upper-cased parts.
func splitUpper(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

// writeLedgerError maps a ledger error kind to its HTTP status. Unknown
// errors are logged and hidden behind a generic 500.
func writeLedgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrGuardViolation):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		slog.Error(op, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}

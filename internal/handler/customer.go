package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/metrics"
	"github.com/kiwari-pos/floor/internal/middleware"
)

// CustomerLedger defines the ledger methods needed by the customer view.
// Satisfied by *ledger.Ledger.
type CustomerLedger interface {
	PlaceOrder(ctx context.Context, req ledger.PlaceOrderRequest) (ledger.Order, error)
	AddItems(ctx context.Context, orderID int64, items []ledger.CartLine) (ledger.Order, error)
	ActiveOrderAt(tableID uuid.UUID) (ledger.Order, bool, error)
	ConsumeRedirect(ctx context.Context, tableID uuid.UUID) (ledger.Order, bool, error)
}

// TableGetter resolves a table by id. Satisfied by *catalog.Tables.
type TableGetter interface {
	Get(id uuid.UUID) (catalog.Table, error)
}

// CustomerHandler serves the customer's table device. Every route runs
// behind middleware.TableLink, so the table comes from the signed link and
// never from the request body.
type CustomerHandler struct {
	ledger  CustomerLedger
	tables  TableGetter
	secret  string
	linkTTL time.Duration
}

func NewCustomerHandler(l CustomerLedger, tables TableGetter, secret string, linkTTL time.Duration) *CustomerHandler {
	return &CustomerHandler{ledger: l, tables: tables, secret: secret, linkTTL: linkTTL}
}

// RegisterRoutes registers customer endpoints. Expected to be mounted at
// /customer/{token} with middleware.TableLink applied.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/order", h.CurrentOrder)
	r.Post("/orders", h.SubmitCart)
}

// --- Request / Response types ---

type submitCartRequest struct {
	Items []cartLineRequest `json:"items"`
}

type customerOrderResponse struct {
	Table     catalog.Table     `json:"table"`
	Order     *orderResponse    `json:"order"`
	Relocated *relocationNotice `json:"relocated,omitempty"`
}

// relocationNotice tells a device anchored to the old table where its order
// went, with a fresh link for the new table.
type relocationNotice struct {
	Table catalog.Table     `json:"table"`
	Link  tableLinkResponse `json:"link"`
}

// --- Handlers ---

// CurrentOrder handles GET /customer/{token}/order. A pending relocation away
// from this table is reported once; after that the table's own active order,
// if any, is shown.
func (h *CustomerHandler) CurrentOrder(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}

	moved, relocated, err := h.ledger.ConsumeRedirect(r.Context(), table.ID)
	metrics.RecordCommand("consume_redirect", err)
	if err != nil {
		writeLedgerError(w, "consume redirect", err)
		return
	}
	if relocated {
		notice, err := h.relocation(moved)
		if err != nil {
			slog.Error("build relocation notice", "order_id", moved.ID, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp := toOrderResponse(moved)
		writeJSON(w, http.StatusOK, customerOrderResponse{Table: table, Order: &resp, Relocated: notice})
		return
	}

	order, found, err := h.ledger.ActiveOrderAt(table.ID)
	if err != nil {
		writeLedgerError(w, "active order", err)
		return
	}
	out := customerOrderResponse{Table: table}
	if found {
		resp := toOrderResponse(order)
		out.Order = &resp
	}
	writeJSON(w, http.StatusOK, out)
}

// SubmitCart handles POST /customer/{token}/orders. The cart is merged into
// the table's active order, or placed as a new dine-in order when the table
// is free.
func (h *CustomerHandler) SubmitCart(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}

	var req submitCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	items, err := parseCartLines(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	order, created, err := h.placeOrMerge(r.Context(), table.ID, items)
	if err != nil {
		writeLedgerError(w, "submit cart", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toOrderResponse(order))
}

// placeOrMerge retries once as a merge when another device seats an order
// between the occupancy read and the placement.
func (h *CustomerHandler) placeOrMerge(ctx context.Context, tableID uuid.UUID, items []ledger.CartLine) (ledger.Order, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		active, found, err := h.ledger.ActiveOrderAt(tableID)
		if err != nil {
			return ledger.Order{}, false, err
		}
		if found {
			order, err := h.ledger.AddItems(ctx, active.ID, items)
			metrics.RecordCommand("add_items", err)
			return order, false, err
		}

		order, err := h.ledger.PlaceOrder(ctx, ledger.PlaceOrderRequest{
			TableID:   &tableID,
			OrderType: enum.OrderTypeDineIn,
			Items:     items,
		})
		metrics.RecordCommand("place_order", err)
		if errors.Is(err, ledger.ErrTableOccupied) {
			continue
		}
		return order, err == nil, err
	}
	return ledger.Order{}, false, ledger.ErrTableOccupied
}

// table resolves the table named by the request's signed link.
func (h *CustomerHandler) table(w http.ResponseWriter, r *http.Request) (catalog.Table, bool) {
	claims := middleware.TableFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid table link"})
		return catalog.Table{}, false
	}
	t, err := h.tables.Get(claims.TableID)
	if err != nil {
		writeCatalogError(w, "customer table", err)
		return catalog.Table{}, false
	}
	return t, true
}

func (h *CustomerHandler) relocation(moved ledger.Order) (*relocationNotice, error) {
	if moved.TableID == nil {
		return nil, errors.New("relocated order has no table")
	}
	t, err := h.tables.Get(*moved.TableID)
	if err != nil {
		return nil, err
	}
	link, err := newTableLink(h.secret, h.linkTTL, t)
	if err != nil {
		return nil, err
	}
	return &relocationNotice{Table: t, Link: link}, nil
}

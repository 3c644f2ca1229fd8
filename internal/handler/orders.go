package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/metrics"
)

// OrderLedger defines the ledger methods needed by order handlers.
// Satisfied by *ledger.Ledger; narrow interface for testability.
type OrderLedger interface {
	PlaceOrder(ctx context.Context, req ledger.PlaceOrderRequest) (ledger.Order, error)
	AddItems(ctx context.Context, orderID int64, items []ledger.CartLine) (ledger.Order, error)
	AdvanceStatus(ctx context.Context, orderID int64, target string) (ledger.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (ledger.Order, error)
	PrintNewItems(ctx context.Context, orderID int64) (ledger.Ticket, error)
	UpdateItemStatus(ctx context.Context, orderID int64, menuItemID uuid.UUID, status string) (ledger.Order, error)
	SwitchTable(ctx context.Context, orderID int64, tableID uuid.UUID) (ledger.Order, error)
	Get(orderID int64) (ledger.Order, error)
	List(f ledger.Filter) ([]ledger.Order, error)
	PreviewNewItems(orderID int64) (ledger.Ticket, error)
	ReprintLatestTicket(orderID int64) (ledger.Ticket, error)
	Bill(orderID int64) (ledger.Bill, error)
}

// OrderHandler handles order endpoints for captain and POS views.
type OrderHandler struct {
	ledger OrderLedger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(l OrderLedger) *OrderHandler {
	return &OrderHandler{ledger: l}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItems)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
	r.Get("/{id}/kot/preview", h.PreviewKOT)
	r.Post("/{id}/kot", h.PrintKOT)
	r.Get("/{id}/kot/latest", h.ReprintKOT)
	r.Get("/{id}/bill", h.Bill)
	r.Patch("/{id}/items/{menuItemId}/status", h.UpdateItemStatus)
	r.Post("/{id}/switch-table", h.SwitchTable)
}

// --- Request types ---

type createOrderRequest struct {
	TableID      string            `json:"table_id"`
	OrderType    string            `json:"order_type"`
	Platform     string            `json:"platform"`
	CustomerName string            `json:"customer_name"`
	Items        []cartLineRequest `json:"items"`
}

type addItemsRequest struct {
	Items []cartLineRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type switchTableRequest struct {
	TableID string `json:"table_id"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := parseCartLines(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	place := ledger.PlaceOrderRequest{
		OrderType:    strings.ToUpper(strings.TrimSpace(req.OrderType)),
		Platform:     req.Platform,
		CustomerName: req.CustomerName,
		Items:        items,
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		place.TableID = &tableID
	}

	order, err := h.ledger.PlaceOrder(r.Context(), place)
	metrics.RecordCommand("place_order", err)
	if err != nil {
		writeLedgerError(w, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /orders?status=A,B&type=&platform=&table=&active=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		Statuses:  splitUpper(q.Get("status")),
		OrderType: strings.ToUpper(q.Get("type")),
		Platform:  q.Get("platform"),
	}
	if s := q.Get("table"); s != "" {
		tableID, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table"})
			return
		}
		f.TableID = &tableID
	}
	if s := q.Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active flag"})
			return
		}
		f.ActiveOnly = active
	}

	orders, err := h.ledger.List(f)
	if err != nil {
		writeLedgerError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	order, err := h.ledger.Get(orderID)
	if err != nil {
		writeLedgerError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// AddItems handles POST /orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	items, err := parseCartLines(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	order, err := h.ledger.AddItems(r.Context(), orderID, items)
	metrics.RecordCommand("add_items", err)
	if err != nil {
		writeLedgerError(w, "add items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.ledger.AdvanceStatus(r.Context(), orderID, strings.ToUpper(req.Status))
	metrics.RecordCommand("advance_status", err)
	if err != nil {
		writeLedgerError(w, "advance status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	order, err := h.ledger.CancelOrder(r.Context(), orderID)
	metrics.RecordCommand("cancel_order", err)
	if err != nil {
		writeLedgerError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// PreviewKOT handles GET /orders/{id}/kot/preview.
func (h *OrderHandler) PreviewKOT(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ticket, err := h.ledger.PreviewNewItems(orderID)
	if err != nil {
		writeLedgerError(w, "preview kot", err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// PrintKOT handles POST /orders/{id}/kot. Printing with nothing new is a
// no-op answered with an empty ticket.
func (h *OrderHandler) PrintKOT(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ticket, err := h.ledger.PrintNewItems(r.Context(), orderID)
	metrics.RecordCommand("print_kot", err)
	if err != nil {
		writeLedgerError(w, "print kot", err)
		return
	}
	if ticket.Empty() {
		writeJSON(w, http.StatusOK, ticket)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// ReprintKOT handles GET /orders/{id}/kot/latest.
func (h *OrderHandler) ReprintKOT(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ticket, err := h.ledger.ReprintLatestTicket(orderID)
	if err != nil {
		writeLedgerError(w, "reprint kot", err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// Bill handles GET /orders/{id}/bill.
func (h *OrderHandler) Bill(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bill, err := h.ledger.Bill(orderID)
	if err != nil {
		writeLedgerError(w, "bill", err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// UpdateItemStatus handles PATCH /orders/{id}/items/{menuItemId}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	menuItemID, err := uuid.Parse(chi.URLParam(r, "menuItemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.ledger.UpdateItemStatus(r.Context(), orderID, menuItemID, strings.ToUpper(req.Status))
	metrics.RecordCommand("update_item_status", err)
	if err != nil {
		writeLedgerError(w, "update item status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// SwitchTable handles POST /orders/{id}/switch-table. An occupied target
// answers 409 and leaves the order where it was.
func (h *OrderHandler) SwitchTable(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req switchTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	order, err := h.ledger.SwitchTable(r.Context(), orderID, tableID)
	metrics.RecordCommand("switch_table", err)
	if err != nil {
		writeLedgerError(w, "switch table", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

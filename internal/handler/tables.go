package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/auth"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/ledger"
)

// TableRegistry defines the registry methods needed by table handlers.
// Satisfied by *catalog.Tables.
type TableRegistry interface {
	List() []catalog.Table
	Get(id uuid.UUID) (catalog.Table, error)
	Create(name string, ordinal int) (catalog.Table, error)
	Rename(id uuid.UUID, name string) (catalog.Table, error)
	Delete(id uuid.UUID) error
}

// OccupancyLedger defines the ledger queries needed by table handlers.
// Satisfied by *ledger.Ledger.
type OccupancyLedger interface {
	Occupancy() (map[uuid.UUID]int64, error)
	OrdersByTable(tableID uuid.UUID) ([]ledger.Order, error)
	RemoveTable(tableID uuid.UUID, remove func(uuid.UUID) error) (int64, error)
}

// TableHandler handles table endpoints for the POS grid.
type TableHandler struct {
	tables  TableRegistry
	ledger  OccupancyLedger
	secret  string
	linkTTL time.Duration
}

// NewTableHandler creates a new TableHandler. secret signs customer table
// links, which stay valid for linkTTL.
func NewTableHandler(tables TableRegistry, l OccupancyLedger, secret string, linkTTL time.Duration) *TableHandler {
	return &TableHandler{tables: tables, ledger: l, secret: secret, linkTTL: linkTTL}
}

// RegisterRoutes registers table endpoints. Expected to be mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Rename)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/link", h.Link)
	r.Get("/{id}/orders", h.Orders)
}

// --- Request / Response types ---

type createTableRequest struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

type renameTableRequest struct {
	Name string `json:"name"`
}

// tableResponse is a table with its derived occupancy.
type tableResponse struct {
	catalog.Table
	Occupied bool   `json:"occupied"`
	OrderID  *int64 `json:"order_id"`
}

type tableLinkResponse struct {
	TableID   uuid.UUID `json:"table_id"`
	Ordinal   int       `json:"ordinal"`
	Token     string    `json:"token"`
	OrderPath string    `json:"order_path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// --- Handlers ---

// List handles GET /tables, ordered by ordinal.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	occ, err := h.ledger.Occupancy()
	if err != nil {
		writeLedgerError(w, "table occupancy", err)
		return
	}

	tables := h.tables.List()
	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{Table: t}
		if id, ok := occ[t.ID]; ok {
			resp[i].Occupied = true
			resp[i].OrderID = &id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	t, err := h.tables.Create(req.Name, req.Ordinal)
	if err != nil {
		writeCatalogError(w, "create table", err)
		return
	}
	writeJSON(w, http.StatusCreated, tableResponse{Table: t})
}

// Rename handles PATCH /tables/{id}.
func (h *TableHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req renameTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	t, err := h.tables.Rename(id, req.Name)
	if err != nil {
		writeCatalogError(w, "rename table", err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Table: t})
}

// Delete handles DELETE /tables/{id}. An occupied table cannot be removed.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if _, err := h.tables.Get(id); err != nil {
		writeCatalogError(w, "delete table", err)
		return
	}
	orderID, err := h.ledger.RemoveTable(id, h.tables.Delete)
	if errors.Is(err, ledger.ErrTableOccupied) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    ledger.ErrTableOccupied.Error(),
			"order_id": orderID,
		})
		return
	}
	if err != nil {
		writeCatalogError(w, "delete table", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Link handles GET /tables/{id}/link: a signed link for the customer's device.
func (h *TableHandler) Link(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	t, err := h.tables.Get(id)
	if err != nil {
		writeCatalogError(w, "table link", err)
		return
	}

	link, err := newTableLink(h.secret, h.linkTTL, t)
	if err != nil {
		slog.Error("generate table link", "table_id", t.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Orders handles GET /tables/{id}/orders: every order that references the
// table, active or not.
func (h *TableHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}
	if _, err := h.tables.Get(id); err != nil {
		writeCatalogError(w, "table orders", err)
		return
	}

	orders, err := h.ledger.OrdersByTable(id)
	if err != nil {
		writeLedgerError(w, "table orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func newTableLink(secret string, ttl time.Duration, t catalog.Table) (tableLinkResponse, error) {
	token, err := auth.GenerateTableToken(secret, t.ID, t.Ordinal, ttl)
	if err != nil {
		return tableLinkResponse{}, err
	}
	return tableLinkResponse{
		TableID:   t.ID,
		Ordinal:   t.Ordinal,
		Token:     token,
		OrderPath: "/customer/" + token + "/order",
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

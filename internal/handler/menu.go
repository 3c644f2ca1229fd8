package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/shopspring/decimal"
)

// MenuCatalog defines the catalog methods needed by menu handlers.
// Satisfied by *catalog.Menu; narrow interface for testability.
type MenuCatalog interface {
	List() []catalog.MenuItem
	Create(it catalog.MenuItem) (catalog.MenuItem, error)
	Update(id uuid.UUID, patch catalog.MenuItemPatch) (catalog.MenuItem, error)
	Delete(id uuid.UUID) error
}

// MenuHandler handles menu CRUD endpoints.
type MenuHandler struct {
	menu MenuCatalog
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(menu MenuCatalog) *MenuHandler {
	return &MenuHandler{menu: menu}
}

// RegisterRoutes registers menu CRUD endpoints. Expected to be mounted at /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request types ---

type createMenuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Available   *bool  `json:"available"`
}

type updateMenuItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Category    *string `json:"category"`
	Available   *bool   `json:"available"`
}

// --- Handlers ---

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.menu.List())
}

// Create handles POST /menu. New items are available unless stated otherwise.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.menu.Create(catalog.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Category:    req.Category,
		Available:   available,
	})
	if err != nil {
		writeCatalogError(w, "create menu item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PATCH /menu/{id}. Price edits apply to future order lines
// only.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patch := catalog.MenuItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Available:   req.Available,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
			return
		}
		patch.Price = &price
	}

	item, err := h.menu.Update(id, patch)
	if err != nil {
		writeCatalogError(w, "update menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.menu.Delete(id); err != nil {
		writeCatalogError(w, "delete menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeCatalogError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrMenuItemNotFound), errors.Is(err, catalog.ErrTableNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidName), errors.Is(err, catalog.ErrNegativePrice),
		errors.Is(err, catalog.ErrInvalidOrdinal):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, catalog.ErrOrdinalTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeLedgerError(w, op, err)
	}
}

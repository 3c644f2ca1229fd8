package catalog

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the catalog.
var (
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrInvalidName      = errors.New("name is required")
	ErrNegativePrice    = errors.New("price must be >= 0")
	ErrTableNotFound    = errors.New("table not found")
	ErrInvalidOrdinal   = errors.New("ordinal must be > 0")
	ErrOrdinalTaken     = errors.New("ordinal already used by another table")
)

// MenuItem is a sellable catalog entry. Orders copy name and price at order
// time, so edits here never reach existing orders.
type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
}

// MenuItemPatch carries optional field updates; nil fields are left as-is.
type MenuItemPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Available   *bool
}

// Menu is the in-memory menu catalog. Safe for concurrent use.
type Menu struct {
	mu    sync.RWMutex
	items map[uuid.UUID]MenuItem
}

// NewMenu creates a Menu holding the given items.
func NewMenu(items ...MenuItem) (*Menu, error) {
	m := &Menu{items: make(map[uuid.UUID]MenuItem, len(items))}
	for _, it := range items {
		if _, err := m.Create(it); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// List returns all items sorted by category, then name.
func (m *Menu) List() []MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]MenuItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns the item with the given id.
func (m *Menu) Get(id uuid.UUID) (MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return MenuItem{}, ErrMenuItemNotFound
	}
	return it, nil
}

// Create validates and stores a new item, assigning an id when it has none.
func (m *Menu) Create(it MenuItem) (MenuItem, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return MenuItem{}, ErrInvalidName
	}
	if it.Price.IsNegative() {
		return MenuItem{}, ErrNegativePrice
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}

	m.mu.Lock()
	m.items[it.ID] = it
	m.mu.Unlock()
	return it, nil
}

// Update applies patch to an existing item.
func (m *Menu) Update(id uuid.UUID, patch MenuItemPatch) (MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return MenuItem{}, ErrMenuItemNotFound
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return MenuItem{}, ErrInvalidName
		}
		it.Name = name
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return MenuItem{}, ErrNegativePrice
		}
		it.Price = *patch.Price
	}
	if patch.Description != nil {
		it.Description = *patch.Description
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	if patch.Available != nil {
		it.Available = *patch.Available
	}
	m.items[id] = it
	return it, nil
}

// Delete removes an item. Orders already holding it keep their copy.
func (m *Menu) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrMenuItemNotFound
	}
	delete(m.items, id)
	return nil
}

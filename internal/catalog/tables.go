package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Table is a physical table. Ordinal drives display order and the number
// printed on the customer ordering link; Name is free text.
type Table struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Ordinal int       `json:"ordinal"`
}

// Tables is the table registry. It holds no occupancy state.
type Tables struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]Table
}

// NewTables creates a registry holding the given tables.
func NewTables(tables ...Table) (*Tables, error) {
	r := &Tables{tables: make(map[uuid.UUID]Table, len(tables))}
	for _, t := range tables {
		if _, err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// List returns all tables ordered by ordinal.
func (r *Tables) List() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func (r *Tables) Get(id uuid.UUID) (Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[id]
	if !ok {
		return Table{}, ErrTableNotFound
	}
	return t, nil
}

func (r *Tables) GetByOrdinal(ordinal int) (Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tables {
		if t.Ordinal == ordinal {
			return t, nil
		}
	}
	return Table{}, ErrTableNotFound
}

// Create registers a new table.
func (r *Tables) Create(name string, ordinal int) (Table, error) {
	return r.add(Table{Name: name, Ordinal: ordinal})
}

func (r *Tables) add(t Table) (Table, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Table{}, ErrInvalidName
	}
	if t.Ordinal <= 0 {
		return Table{}, ErrInvalidOrdinal
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tables {
		if existing.Ordinal == t.Ordinal && existing.ID != t.ID {
			return Table{}, ErrOrdinalTaken
		}
	}
	r.tables[t.ID] = t
	return t, nil
}

// Rename changes a table's display name.
func (r *Tables) Rename(id uuid.UUID, name string) (Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Table{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return Table{}, ErrTableNotFound
	}
	t.Name = name
	r.tables[id] = t
	return t, nil
}

// Delete removes a table. Callers check occupancy first.
func (r *Tables) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[id]; !ok {
		return ErrTableNotFound
	}
	delete(r.tables, id)
	return nil
}

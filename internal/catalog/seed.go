package catalog

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk catalog format:
//
//	menu:
//	  - name: Paneer Tikka
//	    price: "240.00"
//	    category: STARTERS
//	tables:
//	  - name: Window 1
//	    ordinal: 1
type seedFile struct {
	Menu []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Price       string `yaml:"price"`
		Category    string `yaml:"category"`
		Unavailable bool   `yaml:"unavailable"`
	} `yaml:"menu"`
	Tables []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Ordinal int    `yaml:"ordinal"`
	} `yaml:"tables"`
}

// LoadFile builds a Menu and Tables registry from a YAML seed file.
func LoadFile(path string) (*Menu, *Tables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Menu and Tables registry from YAML bytes.
func Parse(raw []byte) (*Menu, *Tables, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	items := make([]MenuItem, 0, len(f.Menu))
	for i, m := range f.Menu {
		price, err := decimal.NewFromString(m.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("menu[%d]: invalid price %q", i, m.Price)
		}
		id, err := parseOptionalID(m.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("menu[%d]: %w", i, err)
		}
		items = append(items, MenuItem{
			ID:          id,
			Name:        m.Name,
			Description: m.Description,
			Price:       price,
			Category:    m.Category,
			Available:   !m.Unavailable,
		})
	}

	tables := make([]Table, 0, len(f.Tables))
	for i, t := range f.Tables {
		id, err := parseOptionalID(t.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("tables[%d]: %w", i, err)
		}
		tables = append(tables, Table{ID: id, Name: t.Name, Ordinal: t.Ordinal})
	}

	menu, err := NewMenu(items...)
	if err != nil {
		return nil, nil, fmt.Errorf("build menu: %w", err)
	}
	registry, err := NewTables(tables...)
	if err != nil {
		return nil, nil, fmt.Errorf("build tables: %w", err)
	}
	return menu, registry, nil
}

func parseOptionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// Demo returns a small built-in catalog used when no seed file is configured.
func Demo() (*Menu, *Tables) {
	menu, _ := NewMenu(
		MenuItem{Name: "Paneer Tikka", Price: decimal.NewFromInt(240), Category: enum.CategoryStarters, Available: true},
		MenuItem{Name: "Veg Manchurian", Price: decimal.NewFromInt(190), Category: enum.CategoryStarters, Available: true},
		MenuItem{Name: "Butter Chicken", Price: decimal.NewFromInt(360), Category: enum.CategoryMains, Available: true},
		MenuItem{Name: "Dal Makhani", Price: decimal.NewFromInt(260), Category: enum.CategoryMains, Available: true},
		MenuItem{Name: "Butter Naan", Price: decimal.NewFromInt(60), Category: enum.CategoryBreads, Available: true},
		MenuItem{Name: "Gulab Jamun", Price: decimal.NewFromInt(110), Category: enum.CategoryDesserts, Available: true},
		MenuItem{Name: "Masala Chaas", Price: decimal.NewFromInt(80), Category: enum.CategoryDrinks, Available: true},
	)

	var tables []Table
	for i := 1; i <= 8; i++ {
		tables = append(tables, Table{Name: fmt.Sprintf("Table %d", i), Ordinal: i})
	}
	registry, _ := NewTables(tables...)
	return menu, registry
}

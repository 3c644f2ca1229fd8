package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/handler"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/store"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

// env wires every handler against a real ledger backed by the memory store.
type env struct {
	router  *chi.Mux
	ledger  *ledger.Ledger
	menu    *catalog.Menu
	tables  *catalog.Tables
	paneer  catalog.MenuItem
	naan    catalog.MenuItem
	table1  catalog.Table
	table2  catalog.Table
	soldOut catalog.MenuItem
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		paneer:  catalog.MenuItem{ID: uuid.New(), Name: "Paneer Tikka", Price: decimal.RequireFromString("250.00"), Category: "STARTERS", Available: true},
		naan:    catalog.MenuItem{ID: uuid.New(), Name: "Butter Naan", Price: decimal.RequireFromString("45.50"), Category: "BREADS", Available: true},
		soldOut: catalog.MenuItem{ID: uuid.New(), Name: "Kulfi", Price: decimal.RequireFromString("90.00"), Category: "DESSERTS", Available: false},
		table1:  catalog.Table{ID: uuid.New(), Name: "Window", Ordinal: 1},
		table2:  catalog.Table{ID: uuid.New(), Name: "Patio", Ordinal: 2},
	}

	var err error
	if e.menu, err = catalog.NewMenu(e.paneer, e.naan, e.soldOut); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if e.tables, err = catalog.NewTables(e.table1, e.table2); err != nil {
		t.Fatalf("tables: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e.ledger = ledger.New(e.menu, e.tables, store.NewMemory(), ledger.WithLogger(logger))
	if err := e.ledger.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	kitchen := handler.NewKitchenHandler(e.ledger)
	r := chi.NewRouter()
	r.Route("/menu", handler.NewMenuHandler(e.menu).RegisterRoutes)
	r.Route("/tables", handler.NewTableHandler(e.tables, e.ledger, testSecret, time.Hour).RegisterRoutes)
	r.Route("/orders", handler.NewOrderHandler(e.ledger).RegisterRoutes)
	r.Route("/kitchen", kitchen.RegisterRoutes)
	r.Get("/warnings", kitchen.Warnings)
	r.Route("/customer/{token}", func(r chi.Router) {
		r.Use(middleware.TableLink(testSecret))
		handler.NewCustomerHandler(e.ledger, e.tables, testSecret, time.Hour).RegisterRoutes(r)
	})
	e.router = r
	return e
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func line(item catalog.MenuItem, qty int) map[string]interface{} {
	return map[string]interface{}{"menu_item_id": item.ID.String(), "quantity": qty}
}

func orderPath(id int64, suffix string) string {
	return "/orders/" + strconv.FormatInt(id, 10) + suffix
}

// placeDineIn places an order at table through the API and returns its id.
func (e *env) placeDineIn(t *testing.T, table catalog.Table, lines ...map[string]interface{}) int64 {
	t.Helper()
	rr := doRequest(t, e.router, "POST", "/orders", map[string]interface{}{
		"table_id":   table.ID.String(),
		"order_type": "DINE_IN",
		"items":      lines,
	})
	expectStatus(t, rr, http.StatusCreated)
	return int64(decodeResponse(t, rr)["id"].(float64))
}

func (e *env) setStatus(t *testing.T, id int64, status string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, e.router, "PATCH", orderPath(id, "/status"), map[string]string{"status": status})
}

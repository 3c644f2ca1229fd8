package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiwari-pos/floor/internal/auth"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/router"
	"github.com/kiwari-pos/floor/internal/store"
	"github.com/kiwari-pos/floor/internal/ws"
)

func newRouter(t *testing.T, load bool) (http.Handler, *config.Config, *catalog.Tables) {
	t.Helper()
	menu, tables := catalog.Demo()
	l := ledger.New(menu, tables, store.NewMemory())
	if load {
		if err := l.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	cfg := &config.Config{
		TableLinkSecret: "router-secret",
		TableLinkTTL:    time.Hour,
		CORSOrigins:     []string{"http://localhost:5173"},
	}
	r := router.New(cfg, router.Deps{Ledger: l, Menu: menu, Tables: tables, Hub: ws.NewHub()})
	return r, cfg, tables
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	r, _, _ := newRouter(t, false)
	if rr := get(r, "/health"); rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "loading") {
		t.Errorf("before load: %d %s", rr.Code, rr.Body.String())
	}

	r, _, _ = newRouter(t, true)
	if rr := get(r, "/health"); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("after load: %d %s", rr.Code, rr.Body.String())
	}
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreUnreachable(t *testing.T) {
	menu, tables := catalog.Demo()
	l := ledger.New(menu, tables, store.NewMemory())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	r := router.New(&config.Config{}, router.Deps{Ledger: l, Menu: menu, Tables: tables, Hub: ws.NewHub(), Store: downStore{}})

	rr := get(r, "/health")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "store_unavailable") {
		t.Errorf("got %d %s", rr.Code, rr.Body.String())
	}
}

func TestNotReadyLedgerAnswers503(t *testing.T) {
	r, _, _ := newRouter(t, false)
	if rr := get(r, "/orders"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("orders before load: got %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _, _ := newRouter(t, true)
	get(r, "/menu")

	rr := get(r, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "floor_http_requests_total") {
		t.Error("expected floor_http_requests_total in exposition")
	}
}

func TestCustomerRoutesRequireTableLink(t *testing.T) {
	r, cfg, tables := newRouter(t, true)

	if rr := get(r, "/customer/garbage/order"); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad link: got %d, want 401", rr.Code)
	}

	table := tables.List()[0]
	token, err := auth.GenerateTableToken(cfg.TableLinkSecret, table.ID, table.Ordinal, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if rr := get(r, "/customer/"+token+"/order"); rr.Code != http.StatusOK {
		t.Errorf("valid link: got %d; body %s", rr.Code, rr.Body.String())
	}
}

func TestTableWebSocketRequiresTableLink(t *testing.T) {
	r, _, _ := newRouter(t, true)
	if rr := get(r, "/ws/tables/garbage"); rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rr.Code)
	}
}

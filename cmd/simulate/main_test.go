package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/router"
	"github.com/kiwari-pos/floor/internal/store"
	"github.com/kiwari-pos/floor/internal/ws"
)

func startServer(t *testing.T) (*httptest.Server, *ledger.Ledger) {
	t.Helper()
	menu, tables := catalog.Demo()
	l := ledger.New(menu, tables, store.NewMemory())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := httptest.NewServer(router.New(&config.Config{TableLinkSecret: "s", TableLinkTTL: time.Hour},
		router.Deps{Ledger: l, Menu: menu, Tables: tables, Hub: ws.NewHub()}))
	t.Cleanup(srv.Close)
	return srv, l
}

func testOptions(addr string, count int) options {
	return options{
		addr:      addr,
		count:     count,
		platforms: []string{"swiggy", "zomato"},
		maxLines:  3,
		maxQty:    2,
		seed:      7,
	}
}

func TestSimulator_PlacesOnlineOrders(t *testing.T) {
	srv, l := startServer(t)
	sim := newSimulator(testOptions(srv.URL, 5), srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	orders, err := l.List(ledger.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 5 {
		t.Fatalf("orders: got %d, want 5", len(orders))
	}
	for _, o := range orders {
		if o.OrderType != enum.OrderTypeOnline || o.TableID != nil {
			t.Errorf("order %d: type %s table %v", o.ID, o.OrderType, o.TableID)
		}
		if !slices.Contains([]string{"SWIGGY", "ZOMATO"}, o.Platform) {
			t.Errorf("order %d: platform %s", o.ID, o.Platform)
		}
		if len(o.Items) == 0 || len(o.Items) > 3 {
			t.Errorf("order %d: %d lines", o.ID, len(o.Items))
		}
		if !o.Total.Equal(o.ComputedTotal()) {
			t.Errorf("order %d: total %s, lines sum %s", o.ID, o.Total, o.ComputedTotal())
		}
	}
}

func TestSimulator_SameSeedSameOrders(t *testing.T) {
	menu := []menuItem{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first := newSimulator(testOptions("", 1), nil, logger)
	second := newSimulator(testOptions("", 1), nil, logger)

	for range 10 {
		a, b := first.randomOrder(menu), second.randomOrder(menu)
		if a.Platform != b.Platform || !slices.Equal(a.Items, b.Items) {
			t.Fatalf("diverged: %+v vs %+v", a, b)
		}
	}
}

func TestSimulator_StopsOnCancel(t *testing.T) {
	srv, _ := startServer(t)
	opts := testOptions(srv.URL, 0)
	opts.interval = time.Hour
	sim := newSimulator(opts, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop")
	}
}

func TestSimulator_MenuUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"x","name":"Off","available":false}]`))
	}))
	defer srv.Close()

	sim := newSimulator(testOptions(srv.URL, 1), srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := sim.Run(context.Background()); err == nil {
		t.Fatal("expected error for a menu with nothing available")
	}
}

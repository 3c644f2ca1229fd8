package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/handler"
	"github.com/kiwari-pos/floor/internal/ledger"
	mw "github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the long-lived components the routes are wired to. Store is
// optional; when set, /health also checks it.
type Deps struct {
	Ledger *ledger.Ledger
	Menu   *catalog.Menu
	Tables *catalog.Tables
	Hub    *ws.Hub
	Store  Pinger
}

// New creates a Chi router with all application routes wired up.
// Customer routes are scoped to one table by the signed link in {token}.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.Metrics)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !deps.Ledger.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"loading","version":"` + version + `"}`))
			return
		}
		if deps.Store != nil {
			if err := deps.Store.Ping(r.Context()); err != nil {
				slog.Warn("health check: store unreachable", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"store_unavailable","version":"` + version + `"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok","version":"` + version + `"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket routes
	r.Get("/ws/staff", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeStaff(deps.Hub, w, r)
	})
	r.With(mw.TableLink(cfg.TableLinkSecret)).Get("/ws/tables/{token}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeTable(deps.Hub, w, r)
	})

	// Catalog
	r.Route("/menu", handler.NewMenuHandler(deps.Menu).RegisterRoutes)
	r.Route("/tables", handler.NewTableHandler(deps.Tables, deps.Ledger, cfg.TableLinkSecret, cfg.TableLinkTTL).RegisterRoutes)

	// Captain, POS and kitchen views
	r.Route("/orders", handler.NewOrderHandler(deps.Ledger).RegisterRoutes)
	kitchenHandler := handler.NewKitchenHandler(deps.Ledger)
	r.Route("/kitchen", kitchenHandler.RegisterRoutes)
	r.Get("/warnings", kitchenHandler.Warnings)

	// Customer view
	customerHandler := handler.NewCustomerHandler(deps.Ledger, deps.Tables, cfg.TableLinkSecret, cfg.TableLinkTTL)
	r.Route("/customer/{token}", func(r chi.Router) {
		r.Use(mw.TableLink(cfg.TableLinkSecret))
		customerHandler.RegisterRoutes(r)
	})

	slog.Info("routes registered", "cors_origins", cfg.CORSOrigins)
	return r
}

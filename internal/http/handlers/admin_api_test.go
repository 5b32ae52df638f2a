package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/http/handlers"
	"github.com/kiz-commit/porchrecords-sub005/internal/jobs"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/retry"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
	"github.com/kiz-commit/porchrecords-sub005/internal/square"
)

// offlineAPI always fails, pushing reads onto the mirror.
type offlineAPI struct{}

func (offlineAPI) ListCatalog(context.Context) ([]square.NormalizedProduct, error) {
	return nil, fiber.ErrBadGateway
}
func (offlineAPI) InventoryCounts(context.Context, []string) (map[string]int, error) {
	return nil, fiber.ErrBadGateway
}
func (offlineAPI) LocationID() string { return "LOC-1" }

func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop().Sugar()
	r := retry.New(logger)
	r.BaseDelay = time.Millisecond
	prodRepo := repos.NewProductRepo(db)
	cacheMgr := cache.NewManager(logger)
	catalogSvc := &services.CatalogService{
		API: offlineAPI{}, Products: prodRepo, Inv: repos.NewInventoryRepo(db),
		Cache: cacheMgr, Retry: r, Logger: logger,
	}
	preorderSvc := services.NewPreorderService(prodRepo, cacheMgr, logger)
	jobMgr := jobs.NewManager(logger)
	_ = jobMgr.Register("catalog-sync", time.Hour, func(context.Context) error { return nil })
	t.Cleanup(jobMgr.StopAll)

	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	deps := handlers.NewDeps(db, catalogSvc, preorderSvc, cacheMgr, jobMgr, "LOC-1")

	app := fiber.New()
	app.Use(requestid.New())

	api := app.Group("/api/v1")
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/:slug", deps.ProductHandler.Detail)

	admin := app.Group("/admin/api", handlers.RequireAdmin(authSvc))
	admin.Get("/cache", deps.AdminHandler.CacheInfo)
	admin.Post("/cache/:region/invalidate", deps.AdminHandler.InvalidateCache)
	admin.Get("/jobs", deps.AdminHandler.ListJobs)
	admin.Post("/jobs/:id/start", deps.AdminHandler.StartJob)
	admin.Post("/jobs/:id/stop", deps.AdminHandler.StopJob)
	admin.Get("/preorders/matured", deps.AdminHandler.MaturedPreorders)

	return app, db
}

func adminCookie(t *testing.T, db *sqlx.DB) *http.Cookie {
	t.Helper()
	if err := repos.NewUserRepo(db).BindSession("sid-admin", "u-admin"); err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: "sid", Value: "sid-admin"}
}

func TestAdminGuard(t *testing.T) {
	app, db := newTestApp(t)

	// Anonymous -> 401
	resp, err := app.Test(httptest.NewRequest("GET", "/admin/api/cache", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}

	// Admin -> 200
	req := httptest.NewRequest("GET", "/admin/api/cache", nil)
	req.AddCookie(adminCookie(t, db))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 for admin, got %d", resp.StatusCode)
	}
}

func TestCacheInvalidateEndpoint(t *testing.T) {
	app, db := newTestApp(t)
	ck := adminCookie(t, db)

	req := httptest.NewRequest("POST", "/admin/api/cache/products/invalidate", nil)
	req.AddCookie(ck)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/admin/api/cache", nil)
	req.AddCookie(ck)
	resp, _ = app.Test(req)
	var info map[string]cache.RegionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info["products"].Valid {
		t.Fatalf("products region should read invalid: %+v", info["products"])
	}

	// Unknown region -> 400
	req = httptest.NewRequest("POST", "/admin/api/cache/bogus/invalidate", nil)
	req.AddCookie(ck)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown region, got %d", resp.StatusCode)
	}
}

func TestJobControlEndpoints(t *testing.T) {
	app, db := newTestApp(t)
	ck := adminCookie(t, db)

	start := func() int {
		req := httptest.NewRequest("POST", "/admin/api/jobs/catalog-sync/start", nil)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode
	}
	if code := start(); code != http.StatusOK {
		t.Fatalf("first start: want 200, got %d", code)
	}
	if code := start(); code != http.StatusConflict {
		t.Fatalf("duplicate start: want 409, got %d", code)
	}

	req := httptest.NewRequest("POST", "/admin/api/jobs/catalog-sync/stop", nil)
	req.AddCookie(ck)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: want 200, got %d", resp.StatusCode)
	}
}

func TestPublicProductsDegradesGracefully(t *testing.T) {
	app, db := newTestApp(t)

	// Mirror has one visible row; the platform is down.
	if err := repos.NewProductRepo(db).UpsertSynced([]domain.Product{{
		ID: "sq-1", Title: "Mirror Row", Price: 20, ProductType: domain.TypeRecord,
		IsVisible: true, AvailableAtLocation: true, IsFromSquare: true,
	}}, time.Now()); err != nil {
		t.Fatal(err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil), 5000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("degraded read must still be 200, got %d", resp.StatusCode)
	}
	if src := resp.Header.Get("X-Catalog-Source"); src != "mirror" {
		t.Fatalf("want mirror source header, got %q", src)
	}
	var products []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].ID != "sq-1" {
		t.Fatalf("mirror contents expected: %+v", products)
	}
}

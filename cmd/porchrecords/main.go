package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/config"
	"github.com/kiz-commit/porchrecords-sub005/internal/http/handlers"
	"github.com/kiz-commit/porchrecords-sub005/internal/jobs"
	applog "github.com/kiz-commit/porchrecords-sub005/internal/log"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/retry"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
	"github.com/kiz-commit/porchrecords-sub005/internal/square"
)

const (
	jobCatalogSync     = "catalog-sync"
	jobPreorderRelease = "preorder-release"
)

func main() {
	cfg := config.Load()

	// Optional file logging alongside stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()
	sugar := zlog.Sugar()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Sync core wiring
	squareClient := square.NewClient(cfg.SquareAPIBase, cfg.SquareAccessToken, cfg.SquareLocationID, cfg.SquareRPM, sugar)
	cacheMgr := cache.NewManager(sugar)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	catalogSvc := &services.CatalogService{
		API:          squareClient,
		Products:     prodRepo,
		Inv:          invRepo,
		Cache:        cacheMgr,
		Retry:        retry.New(sugar),
		Logger:       sugar,
		MaxStaleness: time.Duration(cfg.MirrorMaxStalenessHours) * time.Hour,
	}
	preorderSvc := services.NewPreorderService(prodRepo, cacheMgr, sugar)

	// Background jobs: one recurring catalog sync, one daily preorder pass.
	jobMgr := jobs.NewManager(sugar)
	_ = jobMgr.Register(jobCatalogSync, time.Duration(cfg.SyncIntervalMin)*time.Minute, catalogSvc.SyncNow)
	_ = jobMgr.Register(jobPreorderRelease, 24*time.Hour, func(ctx context.Context) error {
		_, err := preorderSvc.ReleaseMatured()
		return err
	})
	if cfg.AutoStartJobs {
		if err := jobMgr.Start(jobCatalogSync); err != nil {
			sugar.Errorw("could not start catalog sync job", "error", err)
		}
		if err := jobMgr.Start(jobPreorderRelease); err != nil {
			sugar.Errorw("could not start preorder job", "error", err)
		}
	}

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// ---------- Public API ----------
	deps := handlers.NewDeps(db, catalogSvc, preorderSvc, cacheMgr, jobMgr, cfg.SquareLocationID)

	api := app.Group("/api/v1")
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), deps.ProductHandler.Search)
	api.Get("/products/:slug", deps.ProductHandler.Detail)

	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/availability", availLimiter, deps.InventoryHandler.Check)

	// Auth routes (login throttled)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts"})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	// ---------- Admin API ----------
	admin := app.Group("/admin/api", handlers.RequireAdmin(authSvc))
	admin.Get("/products", deps.AdminHandler.Products)
	admin.Post("/products/:id/visibility", deps.AdminHandler.SetVisibility)
	admin.Post("/products/:id/preorder", deps.AdminHandler.SetPreorder)
	admin.Get("/inventory", deps.AdminHandler.Inventory)
	admin.Post("/sync", deps.AdminHandler.SyncNow)
	admin.Get("/cache", deps.AdminHandler.CacheInfo)
	admin.Post("/cache/:region/invalidate", deps.AdminHandler.InvalidateCache)
	admin.Post("/cache/product/:id/invalidate", deps.AdminHandler.InvalidateProductCache)
	admin.Get("/jobs", deps.AdminHandler.ListJobs)
	admin.Get("/jobs/:id", deps.AdminHandler.JobStatus)
	admin.Post("/jobs/:id/start", deps.AdminHandler.StartJob)
	admin.Post("/jobs/:id/stop", deps.AdminHandler.StopJob)
	admin.Post("/jobs/:id/run", deps.AdminHandler.RunJobNow)
	admin.Get("/preorders/matured", deps.AdminHandler.MaturedPreorders)
	admin.Post("/preorders/release", deps.AdminHandler.ReleasePreorders)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	// Stop job timers cleanly on shutdown.
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		sugar.Info("shutting down")
		jobMgr.StopAll()
		_ = app.Shutdown()
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

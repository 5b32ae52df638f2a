package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/jobs"
	applog "github.com/kiz-commit/porchrecords-sub005/internal/log"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
)

type AdminHandler struct {
	Catalog   *services.CatalogService
	Preorders *services.PreorderService
	Cache     *cache.Manager
	Jobs      *jobs.Manager
	ProductRepo *repos.ProductRepo
	Inv         *repos.InventoryRepo
}

// Products lists every mirror row, hidden ones included.
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	products, source, err := h.Catalog.FetchProducts(c.Context(), true)
	if err != nil {
		applog.Error(c, "admin.products.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "catalog unavailable"})
	}
	c.Set("X-Catalog-Source", string(source))
	return c.JSON(products)
}

// SyncNow triggers an out-of-band catalog sync.
func (h *AdminHandler) SyncNow(c *fiber.Ctx) error {
	if err := h.Catalog.SyncNow(c.Context()); err != nil {
		applog.Error(c, "admin.sync.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	applog.Audit(c, "admin.sync.ok", nil)
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Inv.ListAll()
	if err != nil {
		applog.Error(c, "admin.inventory.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "inventory unavailable"})
	}
	return c.JSON(rows)
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

func (h *AdminHandler) SetVisibility(c *fiber.Ctx) error {
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad body"})
	}
	id := c.Params("id")
	if err := h.ProductRepo.SetVisibility(id, req.Visible); err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown product"})
		}
		applog.Error(c, "admin.visibility.fail", err, map[string]any{"product": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}
	h.Cache.InvalidateProduct(id)
	h.Cache.InvalidateProducts()
	applog.Audit(c, "admin.visibility.set", map[string]any{"product": id, "visible": req.Visible})
	return c.JSON(fiber.Map{"ok": true})
}

type preorderRequest struct {
	IsPreorder  bool   `json:"isPreorder"`
	ReleaseDate string `json:"releaseDate"` // YYYY-MM-DD
	Status      string `json:"status"`      // none | active | released
}

// SetPreorder is the explicit authored edit path; unlike the reconciler it
// may move a row in any direction.
func (h *AdminHandler) SetPreorder(c *fiber.Ctx) error {
	var req preorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad body"})
	}
	switch req.Status {
	case "none", "active", "released":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad status"})
	}
	id := c.Params("id")
	if err := h.ProductRepo.SetPreorder(id, req.IsPreorder, req.ReleaseDate, req.Status); err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown product"})
		}
		applog.Error(c, "admin.preorder.fail", err, map[string]any{"product": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}
	h.Cache.InvalidateProduct(id)
	applog.Audit(c, "admin.preorder.set", map[string]any{"product": id, "status": req.Status})
	return c.JSON(fiber.Map{"ok": true})
}

// ---- cache regions ----

func (h *AdminHandler) CacheInfo(c *fiber.Ctx) error {
	return c.JSON(h.Cache.Info())
}

func (h *AdminHandler) InvalidateCache(c *fiber.Ctx) error {
	region := c.Params("region")
	switch region {
	case "products":
		h.Cache.InvalidateProducts()
	case "inventory":
		h.Cache.InvalidateInventory()
	case "all":
		h.Cache.InvalidateAll()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown region"})
	}
	applog.Audit(c, "admin.cache.invalidate", map[string]any{"region": region})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) InvalidateProductCache(c *fiber.Ctx) error {
	id := c.Params("id")
	h.Cache.InvalidateProduct(id)
	applog.Audit(c, "admin.cache.invalidate", map[string]any{"region": cache.RegionProduct(id)})
	return c.JSON(fiber.Map{"ok": true})
}

// ---- background jobs ----

func (h *AdminHandler) ListJobs(c *fiber.Ctx) error {
	return c.JSON(h.Jobs.GetAll())
}

func (h *AdminHandler) JobStatus(c *fiber.Ctx) error {
	st, err := h.Jobs.GetStatus(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(st)
}

func (h *AdminHandler) StartJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Jobs.Start(id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	applog.Audit(c, "admin.job.start", map[string]any{"job": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) StopJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Jobs.Stop(id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	applog.Audit(c, "admin.job.stop", map[string]any{"job": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) RunJobNow(c *fiber.Ctx) error {
	id := c.Params("id")
	res, err := h.Jobs.ExecuteNow(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	applog.Audit(c, "admin.job.run", map[string]any{"job": id, "success": res.Success})
	return c.JSON(res)
}

// ---- preorders ----

// MaturedPreorders previews the rows the reconciler would flip, read-only.
func (h *AdminHandler) MaturedPreorders(c *fiber.Ctx) error {
	out, err := h.Preorders.PreviewMatured()
	if err != nil {
		applog.Error(c, "admin.preorders.preview.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "preview failed"})
	}
	return c.JSON(out)
}

func (h *AdminHandler) ReleasePreorders(c *fiber.Ctx) error {
	res, err := h.Preorders.ReleaseMatured()
	if err != nil {
		applog.Error(c, "admin.preorders.release.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "release failed"})
	}
	applog.Audit(c, "admin.preorders.release", map[string]any{"released": len(res.Released), "failed": len(res.Failed)})
	return c.JSON(res)
}

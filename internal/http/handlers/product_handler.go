package handlers

import (
	"database/sql"
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "github.com/kiz-commit/porchrecords-sub005/internal/log"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
)

type ProductHandler struct {
	Catalog  *services.CatalogService
	Products *repos.ProductRepo
}

// List is the public storefront read: live-preferred, mirror-degraded.
// The X-Catalog-Source header makes degraded mode observable to operators
// without changing the customer-facing payload.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, source, err := h.Catalog.FetchProducts(c.Context(), false)
	if err != nil {
		applog.Error(c, "products.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "catalog unavailable"})
	}
	if source != services.SourceLive {
		applog.Info(c, "products.list.degraded", map[string]any{"source": string(source)})
	}
	c.Set("X-Catalog-Source", string(source))
	return c.JSON(products)
}

// Detail serves one product by slug from the mirror.
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	p, err := h.Products.GetBySlug(c.Params("slug"))
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		applog.Error(c, "products.detail.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if !p.IsVisible || !p.AvailableAtLocation {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return c.JSON(p)
}

// Search queries the mirror's visible rows.
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q required"})
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	const pageSize = 24
	out, err := h.Products.Search(q, pageSize, (page-1)*pageSize)
	if err != nil {
		applog.Error(c, "products.search.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search failed"})
	}
	return c.JSON(out)
}

type InventoryHandler struct {
	Inv *services.InventoryService
}

// Check reports availability for one product from the mirrored counts.
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id := c.Query("product_id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id required"})
	}
	a, err := h.Inv.CheckAvailability(id)
	if err != nil {
		applog.Error(c, "availability.fail", err, map[string]any{"product": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "availability unavailable"})
	}
	return c.JSON(a)
}

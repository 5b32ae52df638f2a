package handlers

import (
	"github.com/jmoiron/sqlx"

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/jobs"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
)

type Deps struct {
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, catalog *services.CatalogService, preorders *services.PreorderService,
	cm *cache.Manager, jm *jobs.Manager, locationID string) *Deps {

	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	invSvc := services.NewInventoryService(invRepo, locationID)

	return &Deps{
		ProductHandler:   &ProductHandler{Catalog: catalog, Products: prodRepo},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		AdminHandler: &AdminHandler{
			Catalog:   catalog,
			Preorders: preorders,
			Cache:     cm,
			Jobs:      jm,
			ProductRepo: prodRepo,
			Inv:         invRepo,
		},
	}
}

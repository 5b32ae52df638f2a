package services

import (
	"database/sql"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
)

type InventoryService struct {
	Inv        *repos.InventoryRepo
	LocationID string
}

func NewInventoryService(inv *repos.InventoryRepo, locationID string) *InventoryService {
	return &InventoryService{Inv: inv, LocationID: locationID}
}

// CheckAvailability converts mirrored qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(productID string) (domain.Availability, error) {
	qty, err := s.Inv.Qty(productID, s.LocationID)
	if err != nil {
		// No mirrored count means no stock we can promise.
		if err == sql.ErrNoRows {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

package square

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/slug"
)

// NormalizedProduct is a mirror-row candidate plus the variation ids needed
// for the follow-up inventory count lookup.
type NormalizedProduct struct {
	Product      domain.Product
	VariationIDs []string
}

// Normalize maps raw catalog objects into mirror rows. Records missing
// required fields (id, name, a priced variation) are skipped and logged;
// one bad record never aborts the batch.
func Normalize(objects, related []CatalogObject, locationID string, logger *zap.SugaredLogger) []NormalizedProduct {
	images := make(map[string]string)
	categories := make(map[string]string)
	for _, obj := range related {
		switch {
		case obj.Type == "IMAGE" && obj.ImageData != nil:
			images[obj.ID] = obj.ImageData.URL
		case obj.Type == "CATEGORY" && obj.CategoryData != nil:
			categories[obj.ID] = obj.CategoryData.Name
		}
	}

	out := make([]NormalizedProduct, 0, len(objects))
	for _, obj := range objects {
		if obj.Type != "ITEM" || obj.IsDeleted {
			continue
		}
		if obj.ID == "" || obj.ItemData == nil || obj.ItemData.Name == "" {
			logger.Warnw("skipping malformed catalog object", "id", obj.ID, "type", obj.Type)
			continue
		}
		variation, ok := firstPricedVariation(obj.ItemData.Variations)
		if !ok {
			logger.Warnw("skipping item without priced variation", "id", obj.ID, "name", obj.ItemData.Name)
			continue
		}

		title, artist := splitTitleArtist(obj.ItemData.Name)
		p := domain.Product{
			ID:                  obj.ID,
			Title:               title,
			Artist:              artist,
			Slug:                slug.Generate(title, artist),
			Description:         obj.ItemData.Description,
			Price:               float64(variation.ItemVariationData.PriceMoney.Amount) / 100,
			ProductType:         classify(obj.ItemData.Categories, categories),
			IsVisible:           obj.ItemData.EcomVisibility != "UNINDEXED" && !obj.ItemData.IsArchived,
			AvailableAtLocation: availableAt(obj, locationID),
			IsFromSquare:        true,
			PreorderStatus:      domain.PreorderNone,
		}
		if len(obj.ItemData.ImageIDs) > 0 {
			p.ImageURL = images[obj.ItemData.ImageIDs[0]]
		}

		ids := make([]string, 0, len(obj.ItemData.Variations))
		for _, v := range obj.ItemData.Variations {
			if v.ID != "" {
				ids = append(ids, v.ID)
			}
		}
		out = append(out, NormalizedProduct{Product: p, VariationIDs: ids})
	}
	return out
}

func firstPricedVariation(variations []CatalogObject) (CatalogObject, bool) {
	for _, v := range variations {
		if v.ItemVariationData != nil && v.ItemVariationData.PriceMoney != nil {
			return v, true
		}
	}
	return CatalogObject{}, false
}

// splitTitleArtist handles the shop's "Artist - Title" item naming. Items
// without the separator keep the whole name as title.
func splitTitleArtist(name string) (title, artist string) {
	parts := strings.SplitN(name, " - ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(name), ""
}

func classify(refs []CategoryRef, names map[string]string) string {
	for _, ref := range refs {
		switch n := strings.ToLower(names[ref.ID]); {
		case strings.Contains(n, "voucher"), strings.Contains(n, "gift"):
			return domain.TypeVoucher
		case strings.Contains(n, "merch"), strings.Contains(n, "apparel"), strings.Contains(n, "shirt"):
			return domain.TypeMerch
		case strings.Contains(n, "accessor"), strings.Contains(n, "hardware"):
			return domain.TypeAccessory
		}
	}
	return domain.TypeRecord
}

func availableAt(obj CatalogObject, locationID string) bool {
	for _, id := range obj.AbsentAtLocationIDs {
		if id == locationID {
			return false
		}
	}
	if obj.PresentAtAllLocations {
		return true
	}
	for _, id := range obj.PresentAtLocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

package square

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
)

const loc = "LOC-1"

func item(id, name string, cents int64) CatalogObject {
	return CatalogObject{
		Type:                  "ITEM",
		ID:                    id,
		PresentAtAllLocations: true,
		ItemData: &ItemData{
			Name: name,
			Variations: []CatalogObject{{
				Type: "ITEM_VARIATION",
				ID:   id + "-var",
				ItemVariationData: &VariationData{
					ItemID:     id,
					PriceMoney: &Money{Amount: cents, Currency: "AUD"},
				},
			}},
		},
	}
}

func TestNormalizeBasics(t *testing.T) {
	objs := []CatalogObject{item("sq-1", "The Beatles - Abbey Road", 4500)}
	got := Normalize(objs, nil, loc, zap.NewNop().Sugar())
	if len(got) != 1 {
		t.Fatalf("want 1 product, got %d", len(got))
	}
	p := got[0].Product
	if p.ID != "sq-1" || p.Title != "Abbey Road" || p.Artist != "The Beatles" {
		t.Fatalf("bad split: %+v", p)
	}
	if p.Slug != "abbey-road-the-beatles" {
		t.Fatalf("slug: %q", p.Slug)
	}
	if p.Price != 45.00 {
		t.Fatalf("price: %v", p.Price)
	}
	if !p.IsVisible || !p.AvailableAtLocation || !p.IsFromSquare {
		t.Fatalf("flags: %+v", p)
	}
	if p.ProductType != domain.TypeRecord {
		t.Fatalf("default type should be record, got %q", p.ProductType)
	}
	if p.PreorderStatus != domain.PreorderNone {
		t.Fatalf("preorder status: %q", p.PreorderStatus)
	}
	if len(got[0].VariationIDs) != 1 || got[0].VariationIDs[0] != "sq-1-var" {
		t.Fatalf("variation ids: %v", got[0].VariationIDs)
	}
}

func TestNormalizeSkipsMalformed(t *testing.T) {
	objs := []CatalogObject{
		item("sq-ok", "Solid Record", 1000),
		{Type: "ITEM", ID: "sq-noname", ItemData: &ItemData{}},               // no name
		{Type: "ITEM", ID: "", ItemData: &ItemData{Name: "Ghost"}},           // no id
		{Type: "ITEM", ID: "sq-noprice", ItemData: &ItemData{Name: "Free?"}}, // no priced variation
		{Type: "CATEGORY", ID: "cat-1"},
	}
	got := Normalize(objs, nil, loc, zap.NewNop().Sugar())
	if len(got) != 1 || got[0].Product.ID != "sq-ok" {
		t.Fatalf("malformed records must be skipped, not abort the batch: %+v", got)
	}
}

func TestNormalizeVisibilityAndLocation(t *testing.T) {
	archived := item("sq-arch", "Old Stock", 500)
	archived.ItemData.IsArchived = true

	unindexed := item("sq-hidden", "Hidden", 500)
	unindexed.ItemData.EcomVisibility = "UNINDEXED"

	elsewhere := item("sq-away", "Elsewhere", 500)
	elsewhere.PresentAtAllLocations = false
	elsewhere.PresentAtLocationIDs = []string{"LOC-OTHER"}

	absent := item("sq-absent", "Absent Here", 500)
	absent.AbsentAtLocationIDs = []string{loc}

	got := Normalize([]CatalogObject{archived, unindexed, elsewhere, absent}, nil, loc, zap.NewNop().Sugar())
	if len(got) != 4 {
		t.Fatalf("want 4, got %d", len(got))
	}
	byID := map[string]domain.Product{}
	for _, n := range got {
		byID[n.Product.ID] = n.Product
	}
	if byID["sq-arch"].IsVisible || byID["sq-hidden"].IsVisible {
		t.Fatal("archived/unindexed items must normalize as hidden")
	}
	if byID["sq-away"].AvailableAtLocation || byID["sq-absent"].AvailableAtLocation {
		t.Fatal("items not at the location must not be available")
	}
}

func TestNormalizeClassifiesByCategory(t *testing.T) {
	voucher := item("sq-v", "Gift Voucher $50", 5000)
	voucher.ItemData.Categories = []CategoryRef{{ID: "cat-gift"}}
	tee := item("sq-t", "Shop Tee", 3000)
	tee.ItemData.Categories = []CategoryRef{{ID: "cat-merch"}}

	related := []CatalogObject{
		{Type: "CATEGORY", ID: "cat-gift", CategoryData: &CategoryData{Name: "Gift Vouchers"}},
		{Type: "CATEGORY", ID: "cat-merch", CategoryData: &CategoryData{Name: "Merch"}},
	}
	got := Normalize([]CatalogObject{voucher, tee}, related, loc, zap.NewNop().Sugar())
	byID := map[string]string{}
	for _, n := range got {
		byID[n.Product.ID] = n.Product.ProductType
	}
	if byID["sq-v"] != domain.TypeVoucher || byID["sq-t"] != domain.TypeMerch {
		t.Fatalf("classification wrong: %v", byID)
	}
}

func TestNormalizeImageFromRelated(t *testing.T) {
	rec := item("sq-img", "With Art", 2000)
	rec.ItemData.ImageIDs = []string{"img-1"}
	related := []CatalogObject{{Type: "IMAGE", ID: "img-1", ImageData: &ImageData{URL: "https://img.example/a.jpg"}}}

	got := Normalize([]CatalogObject{rec}, related, loc, zap.NewNop().Sugar())
	if got[0].Product.ImageURL != "https://img.example/a.jpg" {
		t.Fatalf("image url: %q", got[0].Product.ImageURL)
	}
}

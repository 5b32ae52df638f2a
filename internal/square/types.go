package square

// Wire shapes for the slice of the Square Connect v2 API this app consumes.
// Only the fields the normalizer reads are declared; everything else in the
// payload is ignored at decode time.

type searchCatalogRequest struct {
	ObjectTypes           []string `json:"object_types"`
	IncludeRelatedObjects bool     `json:"include_related_objects"`
	Cursor                string   `json:"cursor,omitempty"`
	Limit                 int      `json:"limit,omitempty"`
}

type searchCatalogResponse struct {
	Objects        []CatalogObject `json:"objects"`
	RelatedObjects []CatalogObject `json:"related_objects"`
	Cursor         string          `json:"cursor"`
	Errors         []APIError      `json:"errors"`
}

type batchInventoryRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids"`
	LocationIDs      []string `json:"location_ids"`
	Cursor           string   `json:"cursor,omitempty"`
}

type batchInventoryResponse struct {
	Counts []inventoryCount `json:"counts"`
	Cursor string           `json:"cursor"`
	Errors []APIError       `json:"errors"`
}

type inventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	State           string `json:"state"` // IN_STOCK and friends
	Quantity        string `json:"quantity"`
}

type APIError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type CatalogObject struct {
	Type                  string         `json:"type"` // ITEM | IMAGE | CATEGORY
	ID                    string         `json:"id"`
	IsDeleted             bool           `json:"is_deleted"`
	PresentAtAllLocations bool           `json:"present_at_all_locations"`
	PresentAtLocationIDs  []string       `json:"present_at_location_ids"`
	AbsentAtLocationIDs   []string       `json:"absent_at_location_ids"`
	ItemData              *ItemData      `json:"item_data,omitempty"`
	ItemVariationData     *VariationData `json:"item_variation_data,omitempty"`
	ImageData             *ImageData     `json:"image_data,omitempty"`
	CategoryData          *CategoryData  `json:"category_data,omitempty"`
}

type ItemData struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	IsArchived     bool            `json:"is_archived"`
	ImageIDs       []string        `json:"image_ids"`
	Categories     []CategoryRef   `json:"categories"`
	Variations     []CatalogObject `json:"variations"`
	EcomVisibility string          `json:"ecom_visibility"` // UNINDEXED hides from storefront
}

type CategoryRef struct {
	ID string `json:"id"`
}

type VariationData struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceMoney *Money `json:"price_money"`
}

type Money struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
}

type ImageData struct {
	URL string `json:"url"`
}

type CategoryData struct {
	Name string `json:"name"`
}

package domain

// Product is one mirrored catalog row: a Square item variation or a locally
// authored product. Sync metadata distinguishes the two and records freshness.
type Product struct {
	ID                  string  `db:"id" json:"id"`
	Title               string  `db:"title" json:"title"`
	Artist              string  `db:"artist" json:"artist"`
	Slug                string  `db:"slug" json:"slug"`
	Description         string  `db:"description" json:"description,omitempty"`
	Price               float64 `db:"price" json:"price"`
	ProductType         string  `db:"product_type" json:"productType"` // record | merch | voucher | accessory
	ImageURL            string  `db:"image_url" json:"imageUrl,omitempty"`
	IsVisible           bool    `db:"is_visible" json:"isVisible"`
	AvailableAtLocation bool    `db:"available_at_location" json:"availableAtLocation"`
	IsFromSquare        bool    `db:"is_from_square" json:"isFromSquare"`
	LastSyncedAt        string  `db:"last_synced_at" json:"lastSyncedAt,omitempty"` // RFC3339, empty until first sync
	IsPreorder          bool    `db:"is_preorder" json:"isPreorder"`
	PreorderReleaseDate string  `db:"preorder_release_date" json:"preorderReleaseDate,omitempty"` // YYYY-MM-DD
	PreorderStatus      string  `db:"preorder_status" json:"preorderStatus"`
	CreatedAt           string  `db:"created_at" json:"-"`
	UpdatedAt           string  `db:"updated_at" json:"-"`
}

const (
	TypeRecord    = "record"
	TypeMerch     = "merch"
	TypeVoucher   = "voucher"
	TypeAccessory = "accessory"
)

const (
	PreorderNone     = "none"
	PreorderActive   = "active"
	PreorderReleased = "released"
)

// InventoryCount mirrors one Square inventory count for a variation at the
// configured location.
type InventoryCount struct {
	ProductID  string `db:"product_id" json:"productId"`
	LocationID string `db:"location_id" json:"locationId"`
	Qty        int    `db:"qty" json:"qty"`
	UpdatedAt  string `db:"updated_at" json:"-"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"` // USER | ADMIN
}

package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Row used by the admin inventory page
type InventoryRow struct {
	ProductID  string `db:"product_id"`
	Title      string `db:"title"`
	LocationID string `db:"location_id"`
	Qty        int    `db:"qty"`
}

// ListAll returns all mirrored counts with product titles.
func (r *InventoryRepo) ListAll() ([]InventoryRow, error) {
	rows := []InventoryRow{}
	err := r.db.Select(&rows, `
		SELECT i.product_id, p.title, i.location_id, i.qty
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		ORDER BY p.title, i.location_id
	`)
	return rows, err
}

// Qty returns current mirrored stock for a product at a location.
// sql.ErrNoRows when the count was never mirrored.
func (r *InventoryRepo) Qty(productID, locationID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `
		SELECT qty FROM inventory
		WHERE product_id = ? AND location_id = ?
	`, productID, locationID)
	return qty, err
}

// UpsertCounts writes one inventory pull in a single transaction. counts is
// keyed by product id; rows for products the mirror doesn't know are skipped
// by the FK rather than failing the pass.
func (r *InventoryRepo) UpsertCounts(locationID string, counts map[string]int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := time.Now().UTC().Format(time.RFC3339)
	for productID, qty := range counts {
		if _, err := tx.Exec(`
			INSERT INTO inventory(product_id, location_id, qty, updated_at)
			SELECT ?, ?, ?, ?
			WHERE EXISTS (SELECT 1 FROM products WHERE id = ?)
			ON CONFLICT(product_id, location_id) DO UPDATE SET qty = excluded.qty, updated_at = excluded.updated_at
		`, productID, locationID, qty, ts, productID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

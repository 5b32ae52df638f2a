package repos

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/slug"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
  id, title, artist, slug, description, price, product_type, image_url,
  is_visible, available_at_location, is_from_square,
  COALESCE(last_synced_at,'') AS last_synced_at,
  is_preorder, COALESCE(preorder_release_date,'') AS preorder_release_date, preorder_status,
  created_at, COALESCE(updated_at,'') AS updated_at`

// Shared between ReleaseMatured and MaturedPreview so the two can never
// diverge. Date-only comparison avoids timezone-edge flapping.
const maturedPredicate = `is_preorder = 1 AND preorder_status = 'active' AND date(preorder_release_date) <= date(?)`

// List returns mirror rows in storefront order. Public reads see only
// visible rows available at our location; admin reads see everything.
func (r *ProductRepo) List(forAdmin bool) ([]domain.Product, error) {
	q := `SELECT ` + productCols + ` FROM products`
	if !forAdmin {
		q += ` WHERE is_visible = 1 AND available_at_location = 1`
	}
	q += ` ORDER BY artist, title`
	out := []domain.Product{}
	err := r.db.Select(&out, q)
	return out, err
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

func (r *ProductRepo) GetBySlug(s string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE slug = ?`, s)
	return p, err
}

func (r *ProductRepo) Search(q string, limit, offset int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+` FROM products
	  WHERE is_visible = 1 AND available_at_location = 1
	    AND (LOWER(title) LIKE ? OR LOWER(artist) LIKE ?)
	  ORDER BY artist, title
	  LIMIT ? OFFSET ?`,
		"%"+q+"%", "%"+q+"%", limit, offset)
	return out, err
}

// UpsertSynced writes one sync pass into the mirror as a single transaction:
// a concurrent reader sees either the whole pass or none of it. Rows are
// keyed by platform id, never duplicated. Platform-owned columns are
// refreshed; slug (stable URLs), is_visible (local storefront gate) and the
// preorder columns (locally authored) are left alone on existing rows.
func (r *ProductRepo) UpsertSynced(products []domain.Product, syncedAt time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	type existing struct {
		ID   string `db:"id"`
		Slug string `db:"slug"`
	}
	var rows []existing
	if err := tx.Select(&rows, `SELECT id, slug FROM products`); err != nil {
		return err
	}
	known := make(map[string]bool, len(rows))
	taken := make([]string, 0, len(rows))
	for _, e := range rows {
		known[e.ID] = true
		taken = append(taken, e.Slug)
	}

	ts := syncedAt.UTC().Format(time.RFC3339)
	for _, p := range products {
		if known[p.ID] {
			if _, err := tx.Exec(`
				UPDATE products SET
				  title = ?, artist = ?, description = ?, price = ?, product_type = ?,
				  image_url = ?, available_at_location = ?, is_from_square = 1,
				  last_synced_at = ?, updated_at = ?
				WHERE id = ?`,
				p.Title, p.Artist, p.Description, p.Price, p.ProductType,
				p.ImageURL, p.AvailableAtLocation, ts, ts, p.ID); err != nil {
				return fmt.Errorf("update %s: %w", p.ID, err)
			}
			continue
		}
		s := slug.GenerateUnique(p.Title, p.Artist, taken)
		taken = append(taken, s)
		if _, err := tx.Exec(`
			INSERT INTO products(
			  id, title, artist, slug, description, price, product_type, image_url,
			  is_visible, available_at_location, is_from_square, last_synced_at,
			  is_preorder, preorder_release_date, preorder_status
			) VALUES (?,?,?,?,?,?,?,?,?,?,1,?,0,NULL,'none')`,
			p.ID, p.Title, p.Artist, s, p.Description, p.Price, p.ProductType,
			p.ImageURL, p.IsVisible, p.AvailableAtLocation, ts); err != nil {
			return fmt.Errorf("insert %s: %w", p.ID, err)
		}
		known[p.ID] = true
	}

	return tx.Commit()
}

// NewestSync returns the most recent last_synced_at across the mirror, or
// the zero time if nothing has ever synced.
func (r *ProductRepo) NewestSync() (time.Time, error) {
	var ts sql.NullString
	if err := r.db.Get(&ts, `SELECT MAX(last_synced_at) FROM products WHERE is_from_square = 1`); err != nil {
		return time.Time{}, err
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, ts.String)
}

// SetVisibility is the operator's storefront gate, independent of platform
// visibility.
func (r *ProductRepo) SetVisibility(id string, visible bool) error {
	res, err := r.db.Exec(`UPDATE products SET is_visible = ?, updated_at = ? WHERE id = ?`,
		visible, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPreorder is the explicit authored edit: the only path allowed to move a
// row back from released.
func (r *ProductRepo) SetPreorder(id string, isPreorder bool, releaseDate, status string) error {
	var rd any
	if releaseDate != "" {
		rd = releaseDate
	}
	res, err := r.db.Exec(`
		UPDATE products SET is_preorder = ?, preorder_release_date = ?, preorder_status = ?, updated_at = ?
		WHERE id = ?`,
		isPreorder, rd, status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MaturedPreorders lists rows the reconciler would flip on the given civil
// date (YYYY-MM-DD), without mutating anything.
func (r *ProductRepo) MaturedPreorders(today string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `SELECT `+productCols+` FROM products WHERE `+maturedPredicate+` ORDER BY preorder_release_date`, today)
	return out, err
}

// ReleasePreorder flips a single matured row to released. The predicate is
// re-checked so the write is per-row atomic and re-entrant: a row someone
// else already flipped reports no rows affected.
func (r *ProductRepo) ReleasePreorder(id, today string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE products SET preorder_status = 'released', updated_at = ?
		WHERE id = ? AND `+maturedPredicate,
		time.Now().UTC().Format(time.RFC3339), id, today)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

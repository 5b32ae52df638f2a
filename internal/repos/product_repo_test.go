package repos_test

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func syncedProduct(id, title, artist string) domain.Product {
	return domain.Product{
		ID: id, Title: title, Artist: artist,
		Price: 45, ProductType: domain.TypeRecord,
		IsVisible: true, AvailableAtLocation: true, IsFromSquare: true,
	}
}

func TestUpsertSyncedInsertsAndUpdates(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	first := time.Now().Add(-time.Minute)
	if err := repo.UpsertSynced([]domain.Product{syncedProduct("sq-1", "Abbey Road", "The Beatles")}, first); err != nil {
		t.Fatal(err)
	}

	p, err := repo.Get("sq-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Slug != "abbey-road-the-beatles" {
		t.Fatalf("slug: %q", p.Slug)
	}
	if p.LastSyncedAt == "" {
		t.Fatal("last_synced_at not set")
	}

	// Re-sync with a price change: same row, forward-moving sync time.
	updated := syncedProduct("sq-1", "Abbey Road", "The Beatles")
	updated.Price = 50
	second := time.Now()
	if err := repo.UpsertSynced([]domain.Product{updated}, second); err != nil {
		t.Fatal(err)
	}

	all, err := repo.List(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert must never duplicate: got %d rows", len(all))
	}
	p2 := all[0]
	if p2.Price != 50 {
		t.Fatalf("price not refreshed: %v", p2.Price)
	}
	if p2.Slug != p.Slug {
		t.Fatalf("slug must stay stable across syncs: %q -> %q", p.Slug, p2.Slug)
	}
	if p2.LastSyncedAt <= p.LastSyncedAt {
		t.Fatalf("last_synced_at must advance: %q -> %q", p.LastSyncedAt, p2.LastSyncedAt)
	}
}

func TestUpsertSyncedSlugCollision(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	// Two different pressings of the same record: ids differ, titles match.
	err := repo.UpsertSynced([]domain.Product{
		syncedProduct("sq-a", "Abbey Road", "The Beatles"),
		syncedProduct("sq-b", "Abbey Road", "The Beatles"),
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	a, _ := repo.Get("sq-a")
	b, _ := repo.Get("sq-b")
	if a.Slug == b.Slug {
		t.Fatalf("colliding slugs: %q", a.Slug)
	}
	if b.Slug != "abbey-road-the-beatles-1" && a.Slug != "abbey-road-the-beatles-1" {
		t.Fatalf("want numeric suffix on collision, got %q / %q", a.Slug, b.Slug)
	}
}

func TestUpsertSyncedPreservesLocalFields(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	if err := repo.UpsertSynced([]domain.Product{syncedProduct("sq-1", "Promises", "Floating Points")}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetVisibility("sq-1", false); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPreorder("sq-1", true, "2030-01-01", domain.PreorderActive); err != nil {
		t.Fatal(err)
	}

	// A later sync must not clobber the operator's edits.
	if err := repo.UpsertSynced([]domain.Product{syncedProduct("sq-1", "Promises", "Floating Points")}, time.Now()); err != nil {
		t.Fatal(err)
	}
	p, _ := repo.Get("sq-1")
	if p.IsVisible {
		t.Fatal("sync clobbered is_visible")
	}
	if !p.IsPreorder || p.PreorderStatus != domain.PreorderActive || p.PreorderReleaseDate != "2030-01-01" {
		t.Fatalf("sync clobbered preorder fields: %+v", p)
	}
}

func TestListVisibilityScopes(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	hidden := syncedProduct("sq-h", "Hidden Gem", "Nobody")
	elsewhere := syncedProduct("sq-e", "Elsewhere", "Nobody")
	elsewhere.AvailableAtLocation = false
	if err := repo.UpsertSynced([]domain.Product{
		syncedProduct("sq-p", "Public", "Somebody"), hidden, elsewhere,
	}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetVisibility("sq-h", false); err != nil {
		t.Fatal(err)
	}

	pub, err := repo.List(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(pub) != 1 || pub[0].ID != "sq-p" {
		t.Fatalf("public list wrong: %+v", pub)
	}

	adm, err := repo.List(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(adm) != 3 {
		t.Fatalf("admin list must include hidden rows, got %d", len(adm))
	}
}

func TestMaturedPreorderQueries(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	if err := repo.UpsertSynced([]domain.Product{
		syncedProduct("sq-1", "Out Yesterday", "A"),
		syncedProduct("sq-2", "Out Tomorrow", "B"),
		syncedProduct("sq-3", "Already Released", "C"),
	}, time.Now()); err != nil {
		t.Fatal(err)
	}
	_ = repo.SetPreorder("sq-1", true, "2026-01-01", domain.PreorderActive)
	_ = repo.SetPreorder("sq-2", true, "2026-01-03", domain.PreorderActive)
	_ = repo.SetPreorder("sq-3", true, "2026-01-01", domain.PreorderReleased)

	today := "2026-01-02"
	matured, err := repo.MaturedPreorders(today)
	if err != nil {
		t.Fatal(err)
	}
	if len(matured) != 1 || matured[0].ID != "sq-1" {
		t.Fatalf("matured preview wrong: %+v", matured)
	}

	flipped, err := repo.ReleasePreorder("sq-1", today)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Fatal("expected flip")
	}
	// Released is monotonic: the reconciler path can never flip it back or
	// flip it twice.
	flipped, err = repo.ReleasePreorder("sq-1", today)
	if err != nil {
		t.Fatal(err)
	}
	if flipped {
		t.Fatal("second release must be a no-op")
	}
	p, _ := repo.Get("sq-1")
	if p.PreorderStatus != domain.PreorderReleased {
		t.Fatalf("status: %q", p.PreorderStatus)
	}
}

func TestNewestSync(t *testing.T) {
	db := memdb(t)
	repo := repos.NewProductRepo(db)

	ts, err := repo.NewestSync()
	if err != nil {
		t.Fatal(err)
	}
	if !ts.IsZero() {
		t.Fatalf("empty mirror should report zero time, got %v", ts)
	}

	at := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if err := repo.UpsertSynced([]domain.Product{syncedProduct("sq-1", "X", "Y")}, at); err != nil {
		t.Fatal(err)
	}
	ts, err = repo.NewestSync()
	if err != nil {
		t.Fatal(err)
	}
	if !ts.Equal(at) {
		t.Fatalf("want %v, got %v", at, ts)
	}
}

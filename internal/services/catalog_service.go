package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
	"github.com/kiz-commit/porchrecords-sub005/internal/retry"
	"github.com/kiz-commit/porchrecords-sub005/internal/square"
)

// Source tells the caller where a read came from, so handlers can
// distinguish live data from degraded fallbacks without parsing errors.
type Source string

const (
	SourceLive        Source = "live"
	SourceMirror      Source = "mirror"
	SourceMirrorStale Source = "mirror-stale"
)

// CatalogAPI is the slice of the Square client this service needs. The live
// client implements it; tests substitute a fake.
type CatalogAPI interface {
	ListCatalog(ctx context.Context) ([]square.NormalizedProduct, error)
	InventoryCounts(ctx context.Context, variationIDs []string) (map[string]int, error)
	LocationID() string
}

// CatalogService owns the product mirror together with the preorder
// reconciler: it pulls the Square catalog, upserts the mirror, invalidates
// cache regions, and serves reads that degrade to the mirror when the
// platform is down.
type CatalogService struct {
	API      CatalogAPI
	Products *repos.ProductRepo
	Inv      *repos.InventoryRepo
	Cache    *cache.Manager
	Retry    *retry.Retryer
	Logger   *zap.SugaredLogger

	// A degraded read older than this is reported as SourceMirrorStale.
	MaxStaleness time.Duration

	flight singleflight.Group
}

// mirrorWriteError marks a local store failure raised mid-sync. The degraded
// fallback exists for platform outages only; a mirror that cannot be written
// must surface to the caller with its cause intact.
type mirrorWriteError struct {
	op  string
	err error
}

func (e *mirrorWriteError) Error() string { return e.op + ": " + e.err.Error() }
func (e *mirrorWriteError) Unwrap() error { return e.err }

// FetchProducts prefers a live platform pull and falls back to the mirror.
// Public and admin callers pull the same location-scoped catalog, so they
// share one in-flight sync; the visibility filter is applied on the mirror
// read afterwards.
func (s *CatalogService) FetchProducts(ctx context.Context, forAdmin bool) ([]domain.Product, Source, error) {
	key := "catalog-sync:" + s.API.LocationID()
	v, err, shared := s.flight.Do(key, func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, "", err
	}
	if shared {
		s.Logger.Debugw("fetch joined in-flight sync", "key", key)
	}
	products, err := s.Products.List(forAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("mirror read: %w", err)
	}
	return products, v.(Source), nil
}

// refresh runs the shared live pull. Platform errors degrade to the mirror;
// mirror write errors propagate.
func (s *CatalogService) refresh(ctx context.Context) (Source, error) {
	if err := s.SyncNow(ctx); err != nil {
		var mw *mirrorWriteError
		if errors.As(err, &mw) {
			return "", err
		}
		s.Logger.Warnw("live catalog fetch failed, serving mirror", "error", err)
		return s.mirrorSource()
	}
	return SourceLive, nil
}

// mirrorSource grades the degraded read. A failure here is a hard error;
// there is no third fallback.
func (s *CatalogService) mirrorSource() (Source, error) {
	newest, err := s.Products.NewestSync()
	if err != nil {
		return "", fmt.Errorf("mirror fallback read: %w", err)
	}
	stale := s.MaxStaleness > 0 && (newest.IsZero() || time.Since(newest) > s.MaxStaleness)
	if !s.Cache.IsValid(cache.RegionProducts) {
		// The region was invalidated since the last completed sync, so the
		// mirror cannot be vouched for as fresh.
		stale = true
	}
	if stale {
		s.Logger.Errorw("degraded read exceeds staleness bound",
			"newest_sync", newest, "max_staleness", s.MaxStaleness)
		return SourceMirrorStale, nil
	}
	return SourceMirror, nil
}

// SyncNow performs one catalog+inventory pull and mirrors it. All rows of
// the pass land in one transaction before any cache region is touched, so a
// concurrent reader never sees a half-applied sync as fresh.
func (s *CatalogService) SyncNow(ctx context.Context) error {
	started := time.Now()

	normalized, err := retry.Do(ctx, s.Retry, "square.catalog.search", func(ctx context.Context) ([]square.NormalizedProduct, error) {
		return s.API.ListCatalog(ctx)
	})
	if err != nil {
		return err
	}

	products := make([]domain.Product, 0, len(normalized))
	var variationIDs []string
	variationOwner := make(map[string]string)
	for _, n := range normalized {
		products = append(products, n.Product)
		for _, vid := range n.VariationIDs {
			variationIDs = append(variationIDs, vid)
			variationOwner[vid] = n.Product.ID
		}
	}

	if err := s.Products.UpsertSynced(products, started); err != nil {
		return &mirrorWriteError{op: "mirror upsert", err: err}
	}

	counts, err := retry.Do(ctx, s.Retry, "square.inventory.counts", func(ctx context.Context) (map[string]int, error) {
		return s.API.InventoryCounts(ctx, variationIDs)
	})
	if err != nil {
		// Catalog rows are already mirrored; a failed inventory pull
		// degrades stock freshness, not the sync itself.
		s.Logger.Warnw("inventory pull failed, keeping previous counts", "error", err)
	} else {
		byProduct := make(map[string]int)
		for vid, qty := range counts {
			byProduct[variationOwner[vid]] += qty
		}
		if err := s.Inv.UpsertCounts(s.API.LocationID(), byProduct); err != nil {
			return &mirrorWriteError{op: "inventory upsert", err: err}
		}
		s.Cache.InvalidateInventory()
		s.Cache.MarkValid(cache.RegionInventory)
	}

	// Downstream memos are stale now; the mirror itself is fresh.
	s.Cache.InvalidateProducts()
	s.Cache.MarkValid(cache.RegionProducts)

	s.Logger.Infow("catalog sync complete",
		"products", len(products), "took", time.Since(started))
	return nil
}

package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/kiz-commit/porchrecords-sub005/internal/cache"
	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
)

// PreorderService flips matured preorders to released, independent of any
// read request. It runs from the job manager on a timer and from an
// on-demand admin call; both paths are safe to overlap.
type PreorderService struct {
	Products *repos.ProductRepo
	Cache    *cache.Manager
	Logger   *zap.SugaredLogger

	// now is swapped out by tests.
	now func() time.Time
}

func NewPreorderService(products *repos.ProductRepo, c *cache.Manager, logger *zap.SugaredLogger) *PreorderService {
	return &PreorderService{Products: products, Cache: c, Logger: logger, now: time.Now}
}

// ReleaseResult reports exactly which rows flipped and which failed; a
// failure on one row never rolls back the others.
type ReleaseResult struct {
	Released []string `json:"released"`
	Failed   []string `json:"failed,omitempty"`
}

func (s *PreorderService) today() string {
	return s.now().Format("2006-01-02")
}

// ReleaseMatured flips every active preorder whose release date has passed.
// Re-entrant: a second run on the same day flips nothing and returns empty.
func (s *PreorderService) ReleaseMatured() (ReleaseResult, error) {
	today := s.today()
	matured, err := s.Products.MaturedPreorders(today)
	if err != nil {
		return ReleaseResult{}, err
	}

	res := ReleaseResult{Released: []string{}}
	for _, p := range matured {
		flipped, err := s.Products.ReleasePreorder(p.ID, today)
		if err != nil {
			s.Logger.Errorw("preorder release failed", "product", p.ID, "error", err)
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		if flipped {
			res.Released = append(res.Released, p.ID)
			s.Logger.Infow("preorder released", "product", p.ID, "title", p.Title, "release_date", p.PreorderReleaseDate)
		}
	}

	if len(res.Released) > 0 {
		s.Cache.InvalidateProducts()
	}
	return res, nil
}

// PreviewMatured lists the rows ReleaseMatured would flip right now, without
// mutating. It shares its predicate with the release path.
func (s *PreorderService) PreviewMatured() ([]domain.Product, error) {
	return s.Products.MaturedPreorders(s.today())
}

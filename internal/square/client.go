// Package square is the boundary to the Square Connect API: typed payload
// decoding, cursor pagination, an outbound per-minute request budget, and
// normalization of catalog objects into mirror rows.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiVersion = "2024-06-04"
	pageLimit  = 100
)

// Client talks to one Square account scoped to one location. All outbound
// calls pass through a shared token bucket so the documented per-minute
// ceiling is never exceeded.
type Client struct {
	base       string
	token      string
	locationID string
	httpc      *http.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

func NewClient(base, token, locationID string, rpm int, logger *zap.SugaredLogger) *Client {
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		base:       base,
		token:      token,
		locationID: locationID,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:     logger,
	}
}

// LocationID returns the configured location scope.
func (c *Client) LocationID() string { return c.locationID }

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	// Queue behind the budget rather than firing concurrently. Waits are
	// logged so operators can see throttling.
	reserveStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(reserveStart); waited > 100*time.Millisecond {
		c.logger.Infow("square call queued behind rate budget", "path", path, "waited", waited)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", apiVersion)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("square %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("square %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("square %s: status %d: %s", path, resp.StatusCode, truncate(body, 300))
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("square %s: decode: %w", path, err)
	}
	return nil
}

// ListCatalog pulls every catalog item visible to this account, with related
// image and category objects, following pagination cursors. It returns the
// normalized products for the configured location.
func (c *Client) ListCatalog(ctx context.Context) ([]NormalizedProduct, error) {
	var objects, related []CatalogObject
	cursor := ""
	for {
		req := searchCatalogRequest{
			ObjectTypes:           []string{"ITEM"},
			IncludeRelatedObjects: true,
			Cursor:                cursor,
			Limit:                 pageLimit,
		}
		var resp searchCatalogResponse
		if err := c.post(ctx, "/v2/catalog/search-catalog-objects", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("square catalog search: %s %s", resp.Errors[0].Code, resp.Errors[0].Detail)
		}
		objects = append(objects, resp.Objects...)
		related = append(related, resp.RelatedObjects...)
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}
	return Normalize(objects, related, c.locationID, c.logger), nil
}

// InventoryCounts fetches stock quantities for the given variation ids at
// the configured location. Batched at 100 ids per request, the API's cap.
func (c *Client) InventoryCounts(ctx context.Context, variationIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(variationIDs))
	for start := 0; start < len(variationIDs); start += pageLimit {
		end := start + pageLimit
		if end > len(variationIDs) {
			end = len(variationIDs)
		}
		cursor := ""
		for {
			req := batchInventoryRequest{
				CatalogObjectIDs: variationIDs[start:end],
				LocationIDs:      []string{c.locationID},
				Cursor:           cursor,
			}
			var resp batchInventoryResponse
			if err := c.post(ctx, "/v2/inventory/counts/batch-retrieve", req, &resp); err != nil {
				return nil, err
			}
			if len(resp.Errors) > 0 {
				return nil, fmt.Errorf("square inventory: %s %s", resp.Errors[0].Code, resp.Errors[0].Detail)
			}
			for _, cnt := range resp.Counts {
				if cnt.State != "IN_STOCK" {
					continue
				}
				qty := parseQuantity(cnt.Quantity)
				out[cnt.CatalogObjectID] = qty
			}
			if resp.Cursor == "" {
				break
			}
			cursor = resp.Cursor
		}
	}
	return out, nil
}

func parseQuantity(q string) int {
	// Square sends quantities as decimal strings; whole units only here.
	var n int
	if _, err := fmt.Sscanf(q, "%d", &n); err != nil {
		return 0
	}
	return n
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

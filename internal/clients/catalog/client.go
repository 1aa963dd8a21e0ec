// Package catalog provides the HTTP client for the product catalog service,
// used to read the current warranty flag of an article.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/config"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
)

// warrantyResponse is the catalog's warranty check payload.
type warrantyResponse struct {
	ArticleID     uuid.UUID `json:"articleId"`
	UnderWarranty bool      `json:"underWarranty"`
}

// Client is the HTTP client for the catalog service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// New creates a new catalog service client.
func New(cfg config.CollaboratorConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetCollaboratorTimeout()},
		baseURL:    cfg.GetCatalogServiceURL(),
		log:        log,
	}
}

// IsUnderWarranty reports whether the article is currently covered by
// warranty. Any failure (transport, non-2xx, malformed body) maps to
// apperr.Unavailable: an intervention is never created with an unknown
// billing status.
func (c *Client) IsUnderWarranty(ctx context.Context, articleID uuid.UUID) (bool, error) {
	reqURL := fmt.Sprintf("%s/api/v1/articles/%s/warranty", c.baseURL, url.PathEscape(articleID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.CollaboratorError("catalog", "IsUnderWarranty", err)
		return false, apperr.Wrap(apperr.KindUnavailable, "warranty lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, apperr.Unavailable("warranty lookup failed")
	}

	var payload warrantyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.CollaboratorError("catalog", "IsUnderWarranty", err)
		return false, apperr.Wrap(apperr.KindUnavailable, "warranty lookup failed", err)
	}

	return payload.UnderWarranty, nil
}

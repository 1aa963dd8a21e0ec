// Package complaints provides the HTTP client for the complaint intake service.
package complaints

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

// Complaint is the complaint record as exposed by the intake service.
type Complaint struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customerId"`
	ArticleID   uuid.UUID `json:"articleId"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
}

// Client is the HTTP client for the complaint service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// New creates a new complaint service client.
func New(cfg config.CollaboratorConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetCollaboratorTimeout()},
		baseURL:    cfg.GetComplaintServiceURL(),
		log:        log,
	}
}

// GetComplaint fetches a complaint by ID. A 404 maps to apperr.NotFound;
// transport failures and other error statuses map to apperr.Unavailable so
// callers can distinguish "complaint does not exist" from "service
// unreachable".
func (c *Client) GetComplaint(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	reqURL := fmt.Sprintf("%s/api/v1/complaints/%s", c.baseURL, url.PathEscape(id.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.CollaboratorError("complaints", "GetComplaint", err)
		return nil, apperr.Wrap(apperr.KindUnavailable, "complaint service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("complaint not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Unavailable("complaint service unavailable")
	}

	var complaint Complaint
	if err := json.NewDecoder(resp.Body).Decode(&complaint); err != nil {
		c.log.CollaboratorError("complaints", "GetComplaint", err)
		return nil, apperr.Wrap(apperr.KindUnavailable, "complaint service returned malformed response", err)
	}

	return &complaint, nil
}

// Package customers provides the HTTP client for the customer service.
package customers

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

// Customer is the customer record as exposed by the customer service.
type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

// Client is the HTTP client for the customer service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// New creates a new customer service client.
func New(cfg config.CollaboratorConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetCollaboratorTimeout()},
		baseURL:    cfg.GetCustomerServiceURL(),
		log:        log,
	}
}

// GetCustomer fetches a customer by ID. Error mapping matches the complaint
// client: 404 is NotFound, everything else is Unavailable.
func (c *Client) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	reqURL := fmt.Sprintf("%s/api/v1/customers/%s", c.baseURL, url.PathEscape(id.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.CollaboratorError("customers", "GetCustomer", err)
		return nil, apperr.Wrap(apperr.KindUnavailable, "customer service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Unavailable("customer service unavailable")
	}

	var customer Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		c.log.CollaboratorError("customers", "GetCustomer", err)
		return nil, apperr.Wrap(apperr.KindUnavailable, "customer service returned malformed response", err)
	}

	return &customer, nil
}

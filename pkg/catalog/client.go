package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/pkg/domain"
)

const (
	DefaultURL     = "https://fakestoreapi.com/products"
	DefaultTimeout = 10 * time.Second

	fallbackMessage        = "Failed to fetch products"
	invalidResponseMessage = "Invalid response format."
	maxBodyBytes           = 8 << 20
)

// ErrInvalidResponse is returned when the payload is not a JSON array.
var ErrInvalidResponse = errors.New("invalid response format")

// Client fetches the product catalog from the remote catalog API.
type Client struct {
	url        string
	httpClient *http.Client
}

// APIError represents a non-2xx catalog response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a catalog client. Empty url and non-positive timeout use the defaults.
func NewClient(url string, timeout time.Duration) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint the client reads from.
func (c *Client) URL() string {
	return c.url
}

// FetchProducts performs a single GET against the catalog endpoint.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &errResp)
		msg := strings.TrimSpace(errResp.Message)
		if msg == "" {
			msg = resp.Status
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidResponse
	}
	var products []domain.Product
	if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// Message extracts the most specific human-readable reason from a fetch error:
// the server message, else the transport message, else a generic fallback.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrInvalidResponse) {
		return invalidResponseMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallbackMessage
	}
	return msg
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second
)

// HeaderNames for provider callback requests.
const (
	HeaderSignature = "X-Plixa-Signature"
	HeaderTimestamp = "X-Plixa-Timestamp"
)

// ErrTransactionUnknown is returned when the provider has no record of a reference.
var ErrTransactionUnknown = errors.New("provider does not know this transaction")

// NewHTTPClient creates an HTTP client configured for provider calls.
// It has appropriate timeouts and does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		// Don't follow redirects - security measure
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// VerificationResult is the provider's view of a transaction.
type VerificationResult struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

// Client verifies transaction outcomes directly against the provider API.
// Callbacks are trusted only after signature verification; this client is
// the fallback for reconciliation.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient creates a provider API client.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    NewHTTPClient(),
	}
}

// VerifyTransaction fetches the authoritative status of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerificationResult, error) {
	endpoint := c.baseURL + "/transactions/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("User-Agent", "Plixa/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionUnknown
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	var result VerificationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	return &result, nil
}

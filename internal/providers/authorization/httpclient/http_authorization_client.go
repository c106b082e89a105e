package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentplane/agentplane/authorization"
	"github.com/agentplane/agentplane/faults"
)

var _ authorization.Client = (*HTTPAuthorizationClient)(nil)

const defaultRequestTimeout = 10 * time.Second

// HTTPAuthorizationClient asks a remote policy decision point over
// HTTP. Decision traffic is rate limited so a hot request path cannot
// saturate the decision endpoint; callers above this client treat any
// error as a denial.
type HTTPAuthorizationClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*HTTPAuthorizationClient)

// WithAPIKey sends the key as the X-API-KEY header on every request.
func WithAPIKey(apiKey string) Option {
	return func(c *HTTPAuthorizationClient) { c.apiKey = apiKey }
}

// WithRateLimit caps outbound decisions per second with the given
// burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *HTTPAuthorizationClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *HTTPAuthorizationClient) { c.httpClient = httpClient }
}

func NewHTTPAuthorizationClient(endpoint string, options ...Option) *HTTPAuthorizationClient {
	client := &HTTPAuthorizationClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (c *HTTPAuthorizationClient) Authorize(ctx context.Context, request authorization.Request) (authorization.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return authorization.Result{}, faults.Internal("authorization request rate limiting interrupted", err)
	}

	body, err := json.Marshal(request)
	if err != nil {
		return authorization.Result{}, faults.Internal("failed to encode the authorization request", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return authorization.Result{}, faults.Internal("failed to build the authorization request", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpRequest.Header.Set("X-API-KEY", c.apiKey)
	}

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return authorization.Result{}, faults.Internal("failed to reach the authorization endpoint", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return authorization.Result{}, faults.Internal(
			fmt.Sprintf("the authorization endpoint returned status %d", response.StatusCode), nil)
	}

	var result authorization.Result
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return authorization.Result{}, faults.Internal("failed to decode the authorization result", err)
	}
	return result, nil
}

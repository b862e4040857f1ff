package spaces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAPIBase is the platform REST API root for space operations.
	DefaultAPIBase = "https://huggingface.co/api/spaces"

	// ProbeTimeout bounds a single direct probe of a space's subdomain.
	ProbeTimeout = 30 * time.Second

	// maxErrorBody limits how much of an error response is kept for logs.
	maxErrorBody = 512
)

// Client talks to the hosting platform for a single account namespace.
// All API calls carry the bearer token; probes hit the public subdomain
// of each space and need no credential.
type Client struct {
	// APIBase and ProbeBase exist so tests can point the client at a
	// local server. ProbeBase empty means the production subdomain form
	// https://{owner}-{name}.hf.space; otherwise the probe URL is
	// ProbeBase/{name}.
	APIBase   string
	ProbeBase string

	owner   string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the given account namespace.
// API calls are throttled to roughly one every two seconds so the rebuild
// re-poll loop cannot hammer the platform.
func NewClient(owner, token string) *Client {
	return &Client{
		APIBase: DefaultAPIBase,
		owner:   owner,
		token:   token,
		http:    &http.Client{Timeout: ProbeTimeout},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Probe issues a plain GET against the space's public URL and measures the
// round trip. Any transport failure or non-2xx response is an error.
func (c *Client) Probe(ctx context.Context, name string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.probeURL(name), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build probe request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("probe failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return elapsed, fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	return elapsed, nil
}

// Runtime queries the platform API for the space's lifecycle stage.
func (c *Client) Runtime(ctx context.Context, name string) (Stage, error) {
	url := fmt.Sprintf("%s/%s/%s/runtime", c.APIBase, c.owner, name)

	resp, err := c.apiRequest(ctx, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", apiError("runtime query", resp)
	}

	var body struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode runtime response: %w", err)
	}

	return Stage(body.Stage), nil
}

// Restart triggers a factory rebuild of the space. The request is not
// idempotent-safe, so callers issue it at most once per run.
func (c *Client) Restart(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/%s/%s/restart?factory=true", c.APIBase, c.owner, name)

	resp, err := c.apiRequest(ctx, http.MethodPost, url)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError("restart request", resp)
	}

	return nil
}

// apiRequest performs an authenticated API call, waiting on the rate
// limiter first.
func (c *Client) apiRequest(ctx context.Context, method, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}

	return resp, nil
}

func (c *Client) probeURL(name string) string {
	if c.ProbeBase != "" {
		return fmt.Sprintf("%s/%s", c.ProbeBase, name)
	}
	return fmt.Sprintf("https://%s-%s.hf.space", c.owner, name)
}

// apiError builds an error carrying the response status and a short body
// excerpt, enough to distinguish auth rejections from unknown spaces.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(body) > 0 {
		return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, string(body))
	}
	return fmt.Errorf("%s returned status %d", op, resp.StatusCode)
}

// drain discards the remaining body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

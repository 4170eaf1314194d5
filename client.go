package edgepurge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Status classifies the outcome of one purge or connectivity attempt.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusProviderError  Status = "provider_error"
	StatusTransportError Status = "transport_error"
	StatusNotConfigured  Status = "not_configured"
	StatusEmptyTargetSet Status = "empty_target_set"
)

// Outcome is the normalized result of a provider call. It is a value, not an
// error: every attempt produces exactly one Outcome and callers decide what
// to do with it. HTTPStatus is 0 when no response was received.
type Outcome struct {
	Status     Status
	Message    string
	HTTPStatus int
}

// OK reports whether the attempt succeeded at the provider.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

const (
	purgeTimeout   = 15 * time.Second
	connectTimeout = 10 * time.Second
)

// Client issues purge and zone calls against the Cloudflare API. It is
// stateless and safe for concurrent use. Repeated purges of the same URLs
// are independent calls; the provider treats re-purging as a no-op, so the
// client performs no stateful rejection of repeats.
//
// The purge-by-URL endpoint caps the number of files per call (around 30 in
// practice). The client sends the full deduplicated list in one call and
// leaves any chunking to the caller.
type Client struct {
	creds   Credentials
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given credentials. baseURL is the
// Cloudflare API base ("https://api.cloudflare.com/client/v4" in production,
// a test server in tests).
func NewClient(creds Credentials, baseURL string) *Client {
	return &Client{
		creds:   creds,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// apiResponse is the subset of the Cloudflare envelope the client inspects.
type apiResponse struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		Name string `json:"name"`
	} `json:"result"`
}

type apiError struct {
	Message string `json:"message"`
}

// Purge evicts the given URLs from the zone's cache. Empty and duplicate
// entries are dropped; first-seen order is preserved. Missing credentials or
// an empty effective set short-circuit without any network call.
func (c *Client) Purge(ctx context.Context, urls []string) Outcome {
	if !c.creds.Configured() {
		return Outcome{Status: StatusNotConfigured, Message: "not configured"}
	}
	files := uniqueNonEmpty(urls)
	if len(files) == 0 {
		return Outcome{Status: StatusEmptyTargetSet, Message: "no URLs provided for purging"}
	}
	out := c.purgeCache(ctx, map[string]any{"files": files})
	if out.OK() {
		out.Message = fmt.Sprintf("Successfully purged %d URLs", len(files))
	}
	return out
}

// PurgeEverything evicts the zone's entire cache.
func (c *Client) PurgeEverything(ctx context.Context) Outcome {
	if !c.creds.Configured() {
		return Outcome{Status: StatusNotConfigured, Message: "not configured"}
	}
	out := c.purgeCache(ctx, map[string]any{"purge_everything": true})
	if out.OK() {
		out.Message = "Successfully purged all cache"
	}
	return out
}

// TestConnection verifies the credentials with a zone metadata read rather
// than a mutating purge call. On success the message names the zone.
func (c *Client) TestConnection(ctx context.Context) Outcome {
	if !c.creds.Configured() {
		return Outcome{Status: StatusNotConfigured, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.zoneURL(), nil)
	if err != nil {
		return Outcome{Status: StatusTransportError, Message: err.Error()}
	}
	c.setHeaders(req)

	resp, body, err := c.do(req)
	if err != nil {
		return Outcome{Status: StatusTransportError, Message: err.Error()}
	}
	if resp.StatusCode == http.StatusOK && body.Success {
		name := body.Result.Name
		if name == "" {
			name = "Unknown"
		}
		return Outcome{
			Status:     StatusSuccess,
			Message:    "Connection successful! Zone: " + name,
			HTTPStatus: resp.StatusCode,
		}
	}
	return Outcome{
		Status:     StatusProviderError,
		Message:    providerErrorMessage(resp.StatusCode, body.Errors),
		HTTPStatus: resp.StatusCode,
	}
}

func (c *Client) purgeCache(ctx context.Context, payload map[string]any) Outcome {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	buf, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Status: StatusTransportError, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.zoneURL()+"/purge_cache", bytes.NewReader(buf))
	if err != nil {
		return Outcome{Status: StatusTransportError, Message: err.Error()}
	}
	c.setHeaders(req)

	resp, body, err := c.do(req)
	if err != nil {
		return Outcome{Status: StatusTransportError, Message: err.Error()}
	}
	if resp.StatusCode == http.StatusOK && body.Success {
		return Outcome{Status: StatusSuccess, HTTPStatus: resp.StatusCode}
	}
	return Outcome{
		Status:     StatusProviderError,
		Message:    providerErrorMessage(resp.StatusCode, body.Errors),
		HTTPStatus: resp.StatusCode,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, apiResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apiResponse{}, err
	}
	defer resp.Body.Close()

	var body apiResponse
	// A non-JSON body still maps to provider_error via the status check.
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body, nil
}

func (c *Client) zoneURL() string {
	return c.baseURL + "/zones/" + c.creds.ZoneID
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.creds.APIToken)
	req.Header.Set("Content-Type", "application/json")
}

// providerErrorMessage formats "HTTP <code>: <msg>, <msg>" from the provider
// error list, or just the code when the provider sent no detail.
func providerErrorMessage(code int, errs []apiError) string {
	msg := fmt.Sprintf("HTTP %d", code)
	if len(errs) == 0 {
		return msg
	}
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message == "" {
			details = append(details, "Unknown error")
			continue
		}
		details = append(details, e.Message)
	}
	return msg + ": " + strings.Join(details, ", ")
}

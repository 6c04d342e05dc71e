package scaleway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultAccountBaseURL     = "https://api.scaleway.com/account/v1"
	defaultMarketplaceBaseURL = "https://api-marketplace.scaleway.com"
	defaultInstanceBaseURL    = "https://api.scaleway.com/instance/v1"
)

// RealClient implements API against the Scaleway HTTP endpoints.
// Transient transport failures and 5xx responses are retried by the
// underlying retryable HTTP client.
type RealClient struct {
	token string
	// zone is the instance API zone every request targets. The legacy API
	// accepts full region strings ("fr-par-1") here.
	zone string

	accountBaseURL     string
	marketplaceBaseURL string
	instanceBaseURL    string

	http *retryablehttp.Client
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithHTTPClient replaces the retryable HTTP client (useful for testing).
func WithHTTPClient(hc *retryablehttp.Client) ClientOption {
	return func(c *RealClient) {
		c.http = hc
	}
}

// WithAccountBaseURL overrides the account API endpoint.
func WithAccountBaseURL(u string) ClientOption {
	return func(c *RealClient) {
		c.accountBaseURL = u
	}
}

// WithMarketplaceBaseURL overrides the marketplace API endpoint.
func WithMarketplaceBaseURL(u string) ClientOption {
	return func(c *RealClient) {
		c.marketplaceBaseURL = u
	}
}

// WithInstanceBaseURL overrides the instance API endpoint.
func WithInstanceBaseURL(u string) ClientOption {
	return func(c *RealClient) {
		c.instanceBaseURL = u
	}
}

// NewRealClient creates a client authenticated with the given secret key,
// targeting the given zone.
func NewRealClient(token, zone string, opts ...ClientOption) *RealClient {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = nil

	c := &RealClient{
		token:              token,
		zone:               zone,
		accountBaseURL:     defaultAccountBaseURL,
		marketplaceBaseURL: defaultMarketplaceBaseURL,
		instanceBaseURL:    defaultInstanceBaseURL,
		http:               hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from a Scaleway endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scaleway: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("scaleway: request failed with status %d: %s", e.StatusCode, e.Message)
}

// OrganizationID returns the first organization of the authenticated account.
func (c *RealClient) OrganizationID(ctx context.Context) (string, error) {
	var out struct {
		Organizations []struct {
			ID string `json:"id"`
		} `json:"organizations"`
	}
	if err := c.do(ctx, http.MethodGet, c.accountBaseURL+"/organizations", nil, &out); err != nil {
		return "", fmt.Errorf("failed to list organizations: %w", err)
	}
	if len(out.Organizations) == 0 {
		return "", fmt.Errorf("account has no organizations")
	}
	return out.Organizations[0].ID, nil
}

// ListImages returns the full marketplace image catalog.
func (c *RealClient) ListImages(ctx context.Context) ([]MarketplaceImage, error) {
	var out struct {
		Images []MarketplaceImage `json:"images"`
	}
	if err := c.do(ctx, http.MethodGet, c.marketplaceBaseURL+"/images", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list marketplace images: %w", err)
	}
	return out.Images, nil
}

// CreateServer creates a new server in the client's zone.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*Server, error) {
	var out struct {
		Server *Server `json:"server"`
	}
	if err := c.do(ctx, http.MethodPost, c.instanceURL("/servers"), opts, &out); err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return out.Server, nil
}

// GetServer fetches the current state of a server.
func (c *RealClient) GetServer(ctx context.Context, serverID string) (*Server, error) {
	var out struct {
		Server *Server `json:"server"`
	}
	if err := c.do(ctx, http.MethodGet, c.instanceURL("/servers/"+serverID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", serverID, err)
	}
	return out.Server, nil
}

// ServerAction requests a power action against a server.
func (c *RealClient) ServerAction(ctx context.Context, serverID, action string) error {
	body := struct {
		Action string `json:"action"`
	}{Action: action}
	if err := c.do(ctx, http.MethodPost, c.instanceURL("/servers/"+serverID+"/action"), body, nil); err != nil {
		return fmt.Errorf("failed to send action %q to server %s: %w", action, serverID, err)
	}
	return nil
}

// CreateSnapshot snapshots a volume.
func (c *RealClient) CreateSnapshot(ctx context.Context, volumeID, name, organization string) (*Snapshot, error) {
	body := struct {
		VolumeID     string `json:"volume_id"`
		Name         string `json:"name"`
		Organization string `json:"organization"`
	}{VolumeID: volumeID, Name: name, Organization: organization}

	var out struct {
		Snapshot *Snapshot `json:"snapshot"`
	}
	if err := c.do(ctx, http.MethodPost, c.instanceURL("/snapshots"), body, &out); err != nil {
		return nil, fmt.Errorf("failed to create snapshot of volume %s: %w", volumeID, err)
	}
	return out.Snapshot, nil
}

// GetSnapshot fetches the current state of a snapshot.
func (c *RealClient) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	var out struct {
		Snapshot *Snapshot `json:"snapshot"`
	}
	if err := c.do(ctx, http.MethodGet, c.instanceURL("/snapshots/"+snapshotID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", snapshotID, err)
	}
	return out.Snapshot, nil
}

// CreateImage registers a bootable image from a snapshot.
func (c *RealClient) CreateImage(ctx context.Context, opts ImageCreateOpts) (*Image, error) {
	var out struct {
		Image *Image `json:"image"`
	}
	if err := c.do(ctx, http.MethodPost, c.instanceURL("/images"), opts, &out); err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	return out.Image, nil
}

func (c *RealClient) instanceURL(path string) string {
	return c.instanceBaseURL + "/zones/" + c.zone + path
}

// do sends one authenticated JSON request and decodes the response into out
// when out is non-nil.
func (c *RealClient) do(ctx context.Context, method, url string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("X-Auth-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&payload); decErr == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

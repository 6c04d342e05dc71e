// Package scaleway provides a wrapper around the Scaleway APIs used for
// image building: account identity, the marketplace image catalog, and the
// instance API (servers, snapshots, images).
package scaleway

import "context"

// IdentityService resolves the organization owning created resources.
type IdentityService interface {
	// OrganizationID returns the caller's primary organization ID.
	OrganizationID(ctx context.Context) (string, error)
}

// CatalogService lists base images available in the public marketplace.
type CatalogService interface {
	ListImages(ctx context.Context) ([]MarketplaceImage, error)
}

// ComputeService manages servers, snapshots, and images in one zone.
type ComputeService interface {
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*Server, error)
	GetServer(ctx context.Context, serverID string) (*Server, error)
	// ServerAction requests a power action ("poweron", "terminate", ...).
	// The action completes asynchronously; callers observe progress by
	// re-querying the server.
	ServerAction(ctx context.Context, serverID, action string) error
	CreateSnapshot(ctx context.Context, volumeID, name, organization string) (*Snapshot, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error)
	CreateImage(ctx context.Context, opts ImageCreateOpts) (*Image, error)
}

// API combines every Scaleway service the builder consumes.
type API interface {
	IdentityService
	CatalogService
	ComputeService
}

package scaleway

import "time"

// Server states reported by the instance API.
const (
	ServerStateStarting       = "starting"
	ServerStateRunning        = "running"
	ServerStateStopping       = "stopping"
	ServerStateStoppedInPlace = "stopped in place"
)

// Snapshot states reported by the instance API.
const (
	SnapshotStatePending   = "snapshotting"
	SnapshotStateAvailable = "available"
	SnapshotStateError     = "error"
)

// Server power actions.
const (
	ActionPowerOn   = "poweron"
	ActionTerminate = "terminate"
)

// MarketplaceImage is one catalog entry of the public image marketplace.
type MarketplaceImage struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Categories           []string             `json:"categories"`
	CreationDate         time.Time            `json:"creation_date"`
	CurrentPublicVersion string               `json:"current_public_version"`
	Versions             []MarketplaceVersion `json:"versions"`
}

// MarketplaceVersion is one published version of a marketplace entry.
type MarketplaceVersion struct {
	ID          string       `json:"id"`
	LocalImages []LocalImage `json:"local_images"`
}

// LocalImage is a per-zone disk image belonging to a marketplace version.
type LocalImage struct {
	ID                        string   `json:"id"`
	Zone                      string   `json:"zone"`
	CompatibleCommercialTypes []string `json:"compatible_commercial_types"`
}

// Server is an instance as reported by the API. The local copy is refreshed
// by re-querying; it is never mutated client-side.
type Server struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	State    string            `json:"state"`
	Arch     string            `json:"arch"`
	PublicIP *ServerIP         `json:"public_ip"`
	Volumes  map[string]Volume `json:"volumes"`
}

// ServerIP is the public address of a server.
type ServerIP struct {
	Address string `json:"address"`
}

// Volume is a block volume attached to a server.
type Volume struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// Snapshot is a point-in-time copy of a volume.
type Snapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	VolumeID string `json:"volume_id"`
}

// Image is a bootable image registered from a snapshot.
type Image struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Arch string `json:"arch"`
}

// VolumeSpec describes a volume to create alongside a server.
type VolumeSpec struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	VolumeType   string `json:"volume_type,omitempty"`
	Size         uint64 `json:"size"`
}

// ServerCreateOpts holds all parameters for creating a server.
type ServerCreateOpts struct {
	Name           string                 `json:"name"`
	Organization   string                 `json:"organization"`
	Image          string                 `json:"image"`
	CommercialType string                 `json:"commercial_type"`
	Volumes        map[string]*VolumeSpec `json:"volumes"`
	BootType       string                 `json:"boot_type"`
	Tags           []string               `json:"tags,omitempty"`
}

// ImageCreateOpts holds all parameters for registering a bootable image.
type ImageCreateOpts struct {
	Name         string `json:"name"`
	RootVolume   string `json:"root_volume"`
	Arch         string `json:"arch"`
	Organization string `json:"organization"`
}

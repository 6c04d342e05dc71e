package scaleway

import "context"

// MockClient is a configurable mock implementation of API for testing.
// Each method delegates to the corresponding Func field when set and
// otherwise returns a benign default.
type MockClient struct {
	OrganizationIDFunc func(ctx context.Context) (string, error)
	ListImagesFunc     func(ctx context.Context) ([]MarketplaceImage, error)
	CreateServerFunc   func(ctx context.Context, opts ServerCreateOpts) (*Server, error)
	GetServerFunc      func(ctx context.Context, serverID string) (*Server, error)
	ServerActionFunc   func(ctx context.Context, serverID, action string) error
	CreateSnapshotFunc func(ctx context.Context, volumeID, name, organization string) (*Snapshot, error)
	GetSnapshotFunc    func(ctx context.Context, snapshotID string) (*Snapshot, error)
	CreateImageFunc    func(ctx context.Context, opts ImageCreateOpts) (*Image, error)
}

var _ API = (*MockClient)(nil)

func (m *MockClient) OrganizationID(ctx context.Context) (string, error) {
	if m.OrganizationIDFunc != nil {
		return m.OrganizationIDFunc(ctx)
	}
	return "mock-org", nil
}

func (m *MockClient) ListImages(ctx context.Context) ([]MarketplaceImage, error) {
	if m.ListImagesFunc != nil {
		return m.ListImagesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*Server, error) {
	if m.CreateServerFunc != nil {
		return m.CreateServerFunc(ctx, opts)
	}
	return &Server{ID: "mock-server", Name: opts.Name}, nil
}

func (m *MockClient) GetServer(ctx context.Context, serverID string) (*Server, error) {
	if m.GetServerFunc != nil {
		return m.GetServerFunc(ctx, serverID)
	}
	return &Server{ID: serverID, State: ServerStateRunning}, nil
}

func (m *MockClient) ServerAction(ctx context.Context, serverID, action string) error {
	if m.ServerActionFunc != nil {
		return m.ServerActionFunc(ctx, serverID, action)
	}
	return nil
}

func (m *MockClient) CreateSnapshot(ctx context.Context, volumeID, name, organization string) (*Snapshot, error) {
	if m.CreateSnapshotFunc != nil {
		return m.CreateSnapshotFunc(ctx, volumeID, name, organization)
	}
	return &Snapshot{ID: "mock-snapshot", Name: name, VolumeID: volumeID}, nil
}

func (m *MockClient) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(ctx, snapshotID)
	}
	return &Snapshot{ID: snapshotID, State: SnapshotStateAvailable}, nil
}

func (m *MockClient) CreateImage(ctx context.Context, opts ImageCreateOpts) (*Image, error) {
	if m.CreateImageFunc != nil {
		return m.CreateImageFunc(ctx, opts)
	}
	return &Image{ID: "mock-image", Name: opts.Name, Arch: opts.Arch}, nil
}

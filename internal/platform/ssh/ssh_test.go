package ssh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/ssh"

	"github.com/nixforge/nixforge/internal/util/keygen"
)

func generateTestKey(t *testing.T) *keygen.KeyPair {
	t.Helper()
	keyPair, err := keygen.GenerateECDSAKeyPair()
	require.NoError(t, err)
	return keyPair
}

func TestNewClient_Defaults(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{
		Host:       "192.0.2.10",
		PrivateKey: keyPair.PrivateKey,
	})
	require.NoError(t, err)
	require.NotNil(t, client)

	assert.Equal(t, defaultPort, client.config.Port)
	assert.Equal(t, defaultUser, client.config.User)
	assert.Equal(t, defaultDialTimeout, client.config.DialTimeout)
	assert.Equal(t, defaultConnectAttempts, client.config.ConnectAttempts)
	assert.NotNil(t, client.config.HostKeyCallback)
}

func TestNewClient_DoesNotMutateCallerConfig(t *testing.T) {
	keyPair := generateTestKey(t)
	cfg := &Config{
		Host:       "192.0.2.10",
		PrivateKey: keyPair.PrivateKey,
	}

	_, err := NewClient(cfg)
	require.NoError(t, err)

	assert.Zero(t, cfg.Port)
	assert.Empty(t, cfg.User)
}

func TestNewClient_Validation(t *testing.T) {
	keyPair := generateTestKey(t)

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"missing host", &Config{PrivateKey: keyPair.PrivateKey}},
		{"missing key", &Config{Host: "192.0.2.10"}},
		{"invalid key", &Config{Host: "192.0.2.10", PrivateKey: []byte("not a key")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConnect_UnreachableHostFails(t *testing.T) {
	keyPair := generateTestKey(t)

	// TEST-NET-1 address, nothing listens there. One attempt with a short
	// timeout keeps the test fast.
	client, err := NewClient(&Config{
		Host:            "192.0.2.1",
		PrivateKey:      keyPair.PrivateKey,
		DialTimeout:     100 * time.Millisecond,
		ConnectAttempts: 1,
	})
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestConnect_CanceledContext(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{
		Host:            "192.0.2.1",
		PrivateKey:      keyPair.PrivateKey,
		DialTimeout:     100 * time.Millisecond,
		ConnectAttempts: 30,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestUploadDir_NotConnected(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{
		Host:       "192.0.2.10",
		PrivateKey: keyPair.PrivateKey,
	})
	require.NoError(t, err)

	err = client.UploadDir(context.Background(), t.TempDir(), "/tmp")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransferFailed)
}

func TestClose_BeforeConnect(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{
		Host:       "192.0.2.10",
		PrivateKey: keyPair.PrivateKey,
	})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestExitStatus(t *testing.T) {
	t.Run("nil means success", func(t *testing.T) {
		status, err := exitStatus(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, status)
	})

	t.Run("missing status is reported as such", func(t *testing.T) {
		status, err := exitStatus(&ssh.ExitMissingError{})
		require.NoError(t, err)
		assert.Equal(t, ExitStatusMissing, status)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		_, err := exitStatus(errors.New("connection torn down"))
		assert.Error(t, err)
	})
}

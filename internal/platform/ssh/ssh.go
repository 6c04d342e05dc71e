// Package ssh provides the SSH client used to bootstrap the temporary build
// server: connection establishment with bounded retry, payload upload, and
// command execution with streamed output.
//
// Security: host key verification is disabled by default. The build server is
// created seconds before the first connection and destroyed at the end of the
// run, so there is no prior host identity to verify against; this is a
// deliberate trust-on-first-use weakening that is only acceptable for
// ephemeral, disposable hosts.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nixforge/nixforge/internal/util/retry"
)

// Sentinel errors surfaced by the client.
var (
	// ErrConnectionFailed means the remote shell was unreachable after the
	// configured number of connection attempts.
	ErrConnectionFailed = errors.New("ssh connection failed")
	// ErrTransferFailed means a payload file could not be uploaded. Partial
	// uploads are not rolled back.
	ErrTransferFailed = errors.New("ssh file transfer failed")
)

const (
	defaultPort            = 22
	defaultUser            = "root"
	defaultDialTimeout     = 5 * time.Second
	defaultConnectAttempts = 30
)

// Config holds SSH client configuration.
type Config struct {
	Host string
	Port int
	// User is the remote login. Defaults to root; the bootstrap script needs
	// a privileged user.
	User string
	// PrivateKey is the PEM-encoded private key, held in memory only.
	PrivateKey []byte

	// DialTimeout bounds each individual connection attempt.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// ConnectAttempts is how many times Connect dials before giving up.
	// There is no delay between attempts beyond the dial timeout itself:
	// right after boot the shell service is simply not up yet, and this
	// retry loop doubles as the wait for it. If zero,
	// defaultConnectAttempts is used.
	ConnectAttempts int

	// HostKeyCallback handles host key verification. If nil,
	// ssh.InsecureIgnoreHostKey() is used; see the package comment.
	HostKeyCallback ssh.HostKeyCallback
}

// Client is an SSH connection to the build server. Construct with NewClient,
// establish with Connect, and Close when done.
type Client struct {
	config *Config
	signer ssh.Signer
	conn   *ssh.Client
}

// NewClient validates the configuration and parses the private key.
// It does not dial; call Connect for that.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.User == "" {
		configCopy.User = defaultUser
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.ConnectAttempts == 0 {
		configCopy.ConnectAttempts = defaultConnectAttempts
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Ephemeral build host, see package comment.
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{
		config: &configCopy,
		signer: signer,
	}, nil
}

// Connect dials the remote host, retrying up to the configured attempt count.
func (c *Client) Connect(ctx context.Context) error {
	sshConfig := &ssh.ClientConfig{
		User: c.config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(c.signer),
		},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	policy := retry.Policy{MaxAttempts: c.config.ConnectAttempts}

	var conn *ssh.Client
	err := policy.Do(ctx, func() error {
		var dialErr error
		conn, dialErr = ssh.Dial("tcp", addr, sshConfig)
		return dialErr
	})
	if err != nil {
		return fmt.Errorf("%w: %s unreachable: %v", ErrConnectionFailed, addr, err)
	}

	c.conn = conn
	return nil
}

// Close tears down the connection. Safe to call before Connect.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

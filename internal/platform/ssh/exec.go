package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"

	"github.com/nixforge/nixforge/internal/util/stream"
)

// ExitStatusMissing is reported when the remote side closed the session
// without sending an explicit exit status. The bootstrap script powers the
// machine off as its last step, which tears the connection down before the
// status arrives, so callers treat this the same as success.
const ExitStatusMissing = -1

// RemoteCommand is a started remote command. Stdout and Stderr deliver the
// raw output streams; Wait blocks until the command finishes and returns its
// exit status.
type RemoteCommand struct {
	Stdout io.Reader
	Stderr io.Reader

	session *ssh.Session
}

// Start begins executing command on the remote host.
func (c *Client) Start(command string) (*RemoteCommand, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session on %s: %w", c.config.Host, err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := session.Start(command); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to start command on %s: %w", c.config.Host, err)
	}

	return &RemoteCommand{
		Stdout:  stdout,
		Stderr:  stderr,
		session: session,
	}, nil
}

// Wait blocks until the command finishes and returns its exit status.
// ExitStatusMissing is returned with a nil error when the session ended
// without reporting a status.
func (rc *RemoteCommand) Wait() (int, error) {
	err := rc.session.Wait()
	_ = rc.session.Close()
	return exitStatus(err)
}

// Run executes command to completion, surfacing every output line through
// logLine as it arrives. Stdout and stderr are read concurrently and merged;
// lines are whitespace-flattened and empty lines dropped before delivery.
// The returned status follows the Wait contract.
func (c *Client) Run(ctx context.Context, command string, logLine func(string)) (int, error) {
	cmd, err := c.Start(command)
	if err != nil {
		return 0, err
	}

	// Closing the session on cancellation unblocks the stream readers.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.session.Close()
		case <-watchDone:
		}
	}()

	for line := range stream.MergeLines(cmd.Stdout, cmd.Stderr) {
		if flat := stream.FlattenWhitespace(line); flat != "" && logLine != nil {
			logLine(flat)
		}
	}

	status, err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return status, ctxErr
	}
	return status, err
}

// exitStatus maps the session wait error onto the exit status contract.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}

	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		return ExitStatusMissing, nil
	}

	return 0, fmt.Errorf("remote command did not complete: %w", err)
}

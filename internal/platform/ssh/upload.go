package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// UploadDir copies every regular file at the top level of localDir into
// remoteDir over SFTP. Subdirectories are skipped; the bootstrap payload is
// flat by convention. A failure on any file aborts the upload; files already
// transferred are left in place.
func (c *Client) UploadDir(ctx context.Context, localDir, remoteDir string) error {
	if c.conn == nil {
		return fmt.Errorf("%w: not connected", ErrTransferFailed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("%w: failed to read local directory %s: %v", ErrTransferFailed, localDir, err)
	}

	sftpClient, err := sftp.NewClient(c.conn)
	if err != nil {
		return fmt.Errorf("%w: failed to open sftp session: %v", ErrTransferFailed, err)
	}
	defer func() { _ = sftpClient.Close() }()

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		localPath := filepath.Join(localDir, entry.Name())
		remotePath := path.Join(remoteDir, entry.Name())
		if err := uploadFile(sftpClient, localPath, remotePath); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransferFailed, entry.Name(), err)
		}
	}

	return nil
}

func uploadFile(sftpClient *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := sftpClient.Create(remotePath)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}

// internal/ssh/ssh_transfer.go

package ssh

import (
	"context"
	"fmt"
	"io"
	"sort"

	"sshConsole/internal/models"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// FileTransfer gives read access to the file system of a connected host:
// listings go over SFTP, downloads over SCP. It does not own the SSH client.
type FileTransfer struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// NewFileTransfer tworzy nową instancję FileTransfer
func NewFileTransfer(client *ssh.Client) (*FileTransfer, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}
	return &FileTransfer{
		sshClient:  client,
		sftpClient: sftpClient,
	}, nil
}

// Close zamyka klienta SFTP
func (ft *FileTransfer) Close() error {
	if err := ft.sftpClient.Close(); err != nil {
		return fmt.Errorf("error closing SFTP client: %w", err)
	}
	return nil
}

// ListRemoteFiles zwraca listę plików w zdalnym katalogu, directories first.
func (ft *FileTransfer) ListRemoteFiles(path string) ([]models.RemoteFile, error) {
	infos, err := ft.sftpClient.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	files := make([]models.RemoteFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, models.RemoteFile{
			Name:    info.Name(),
			Size:    info.Size(),
			Mode:    info.Mode().String(),
			ModTime: info.ModTime().UTC(),
			IsDir:   info.IsDir(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].IsDir != files[j].IsDir {
			return files[i].IsDir
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// GetRemoteHomeDir returns the directory the SFTP server starts in.
func (ft *FileTransfer) GetRemoteHomeDir() (string, error) {
	dir, err := ft.sftpClient.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return dir, nil
}

// DownloadFile streams a regular remote file into w and returns its size.
func (ft *FileTransfer) DownloadFile(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	info, err := ft.sftpClient.Stat(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", remotePath, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", remotePath)
	}

	client, err := scp.NewClientBySSH(ft.sshClient)
	if err != nil {
		return 0, fmt.Errorf("failed to create SCP client: %w", err)
	}
	// client.Close would close the shared SSH connection, so it is not called.

	var written int64
	counter := func(r io.Reader, _ int64) io.Reader {
		return &countingReader{r: r, n: &written}
	}
	if err := client.CopyFromRemotePassThru(ctx, w, remotePath, counter); err != nil {
		return written, fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	return written, nil
}

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}

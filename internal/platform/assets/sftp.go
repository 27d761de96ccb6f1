package assets

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ednovo/shelf-api/internal/config"
)

// SFTPStore writes assets to a remote media host over SFTP. A fresh
// connection is dialed per operation; asset writes are rare enough that
// pooling is not worth the lifecycle complexity.
type SFTPStore struct {
	cfg         config.SFTPConfig
	hostKeyAuth ssh.HostKeyCallback
}

// NewSFTPStore creates an SFTPStore with the given connection settings.
// The configured host key is required: a store that cannot verify the media
// host's identity is refused at construction rather than at dial time.
func NewSFTPStore(cfg config.SFTPConfig) (*SFTPStore, error) {
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}

	hostKeyAuth, err := pinnedHostKey(cfg.HostKey)
	if err != nil {
		return nil, err
	}

	return &SFTPStore{cfg: cfg, hostKeyAuth: hostKeyAuth}, nil
}

// pinnedHostKey parses an authorized_keys-format public key and returns a
// callback that accepts only that key from the remote host.
func pinnedHostKey(hostKey string) (ssh.HostKeyCallback, error) {
	if strings.TrimSpace(hostKey) == "" {
		return nil, fmt.Errorf("sftp: host key must be configured")
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(hostKey))
	if err != nil {
		return nil, fmt.Errorf("sftp: parse host key: %w", err)
	}
	return ssh.FixedHostKey(key), nil
}

var _ AssetStore = (*SFTPStore)(nil)

// Save implements AssetStore.Save
func (s *SFTPStore) Save(ctx context.Context, prefix, fileName string, data []byte) error {
	if err := validateSegment(prefix); err != nil {
		return err
	}
	if err := validateSegment(fileName); err != nil {
		return err
	}

	return s.withClient(ctx, func(client *sftp.Client) error {
		dir := path.Join(s.cfg.RemoteDir, prefix)
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("sftp: mkdir %s: %w", dir, err)
		}

		remotePath := path.Join(dir, fileName)
		dst, err := client.Create(remotePath)
		if err != nil {
			return fmt.Errorf("sftp: create %s: %w", remotePath, err)
		}
		defer func() { _ = dst.Close() }()

		if _, err := dst.Write(data); err != nil {
			return fmt.Errorf("sftp: write %s: %w", remotePath, err)
		}
		return nil
	})
}

// DeletePrefix implements AssetStore.DeletePrefix
func (s *SFTPStore) DeletePrefix(ctx context.Context, prefix string) error {
	if err := validateSegment(prefix); err != nil {
		return err
	}

	return s.withClient(ctx, func(client *sftp.Client) error {
		dir := path.Join(s.cfg.RemoteDir, prefix)

		entries, err := client.ReadDir(dir)
		if err != nil {
			// A missing prefix means there is nothing to delete
			return nil
		}
		for _, entry := range entries {
			if err := client.Remove(path.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("sftp: remove %s: %w", entry.Name(), err)
			}
		}
		if err := client.RemoveDirectory(dir); err != nil {
			return fmt.Errorf("sftp: rmdir %s: %w", dir, err)
		}
		return nil
	})
}

// withClient dials the media host, runs fn with a connected SFTP client,
// and tears the connection down. The dial respects ctx cancellation.
func (s *SFTPStore) withClient(ctx context.Context, fn func(*sftp.Client) error) error {
	if s.cfg.Host == "" || s.cfg.User == "" {
		return fmt.Errorf("sftp: host and user must be configured")
	}

	sshCfg := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		HostKeyCallback: s.hostKeyAuth,
		Timeout:         20 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialResult{client: client, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		return fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("sftp: dial %s: %w", addr, r.err)
		}
		sshClient = r.client
	}
	defer func() { _ = sshClient.Close() }()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: new client: %w", err)
	}
	defer func() { _ = client.Close() }()

	return fn(client)
}

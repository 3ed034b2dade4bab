// Package dovecot adapts the directory's mailbox and credential ports to a
// local Dovecot installation via the doveadm CLI.
package dovecot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client shells out to doveadm. It implements the directory service's
// PasswordHasher and MailboxProvisioner ports.
type Client struct {
	Path    string
	Timeout time.Duration
}

// NewClient returns a Client using the given doveadm binary path, or the
// default installation path when empty.
func NewClient(path string) *Client {
	if path == "" {
		path = "/usr/bin/doveadm"
	}
	return &Client{Path: path, Timeout: defaultTimeout}
}

// Hash derives a scheme-prefixed SHA512-CRYPT credential for storage.
func (c *Client) Hash(ctx context.Context, password string) (string, error) {
	out, err := c.run(ctx, "pw", "-s", "SHA512-CRYPT", "-p", password)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListFolders returns the mailbox folders that already exist for the user.
// The -8 flag makes doveadm print UTF-8 folder names instead of
// modified-UTF-7, so comparisons against our folder names are byte-exact.
func (c *Client) ListFolders(ctx context.Context, email string) ([]string, error) {
	out, err := c.run(ctx, "mailbox", "list", "-u", email, "-8")
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			folders = append(folders, line)
		}
	}
	return folders, nil
}

// CreateFolder creates a mailbox folder and subscribes the user to it.
func (c *Client) CreateFolder(ctx context.Context, email, folder string) error {
	_, err := c.run(ctx, "mailbox", "create", "-s", "-u", email, folder)
	return err
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("doveadm %s failed: %w: %s", args[0], err, truncate(stderr.String(), 256))
	}
	return stdout.String(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

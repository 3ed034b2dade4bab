package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns a plaintext password into an opaque scheme-prefixed
// credential suitable for storage. The directory never inspects the result.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// MailboxProvisioner manages mailbox folders at the mail-delivery agent.
// Failure during account creation is fatal for the whole operation; the new
// user row is rolled back.
type MailboxProvisioner interface {
	ListFolders(ctx context.Context, email string) ([]string, error)
	CreateFolder(ctx context.Context, email, folder string) error
}

// MailboxEnumerator exposes on-disk mailbox identities so archived accounts
// can be discovered without the listing logic touching the filesystem.
type MailboxEnumerator interface {
	Identities(ctx context.Context) ([]MailboxIdentity, error)
	Size(ctx context.Context, email string) (string, error)
}

// MailboxIdentity is an address discovered from on-disk mailbox storage,
// independent of whether the account still exists in the directory.
type MailboxIdentity struct {
	Email   string
	Mailbox string
}

// DNSUpdater regenerates DNS zone configuration after domain-affecting
// changes. The returned string is a human-readable status for the
// reconciliation report.
type DNSUpdater interface {
	Update(ctx context.Context) (string, error)
}

// WebUpdater regenerates web-server configuration after domain-affecting
// changes.
type WebUpdater interface {
	Update(ctx context.Context) (string, error)
}

type nopProvisioner struct{}

func (nopProvisioner) ListFolders(context.Context, string) ([]string, error) { return nil, nil }
func (nopProvisioner) CreateFolder(context.Context, string, string) error    { return nil }

type nopEnumerator struct{}

func (nopEnumerator) Identities(context.Context) ([]MailboxIdentity, error) { return nil, nil }
func (nopEnumerator) Size(context.Context, string) (string, error)          { return "", nil }

type nopUpdater struct{}

func (nopUpdater) Update(context.Context) (string, error) { return "", nil }

// localHasher is the fallback when no delivery-agent hasher is wired. It
// bcrypt-hashes under Dovecot's BLF-CRYPT scheme so in-memory and dev
// deployments never store recoverable plaintext.
type localHasher struct{}

func (localHasher) Hash(_ context.Context, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return "{BLF-CRYPT}" + string(hash), nil
}

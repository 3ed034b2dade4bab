package dovecot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"mailkeep/internal/directory/service"
)

// Enumerator discovers mailbox identities from Dovecot's on-disk maildir
// layout: <root>/mail/mailboxes/<domain>/<localpart>. It implements the
// directory service's MailboxEnumerator port and is how deleted accounts
// with retained mail surface in listings.
type Enumerator struct {
	Root string
}

// NewEnumerator returns an Enumerator over the given storage root.
func NewEnumerator(root string) *Enumerator {
	return &Enumerator{Root: root}
}

func (e *Enumerator) mailboxRoot() string {
	return filepath.Join(e.Root, "mail", "mailboxes")
}

// Identities walks the maildir tree and returns one identity per mailbox
// directory, sorted by address.
func (e *Enumerator) Identities(ctx context.Context) ([]service.MailboxIdentity, error) {
	root := e.mailboxRoot()
	domains, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mailbox root: %w", err)
	}

	var identities []service.MailboxIdentity
	for _, domain := range domains {
		if !domain.IsDir() {
			continue
		}
		users, err := os.ReadDir(filepath.Join(root, domain.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading domain %s: %w", domain.Name(), err)
		}
		for _, user := range users {
			if !user.IsDir() {
				continue
			}
			identities = append(identities, service.MailboxIdentity{
				Email:   user.Name() + "@" + domain.Name(),
				Mailbox: filepath.Join(root, domain.Name(), user.Name()),
			})
		}
	}
	sort.Slice(identities, func(i, j int) bool { return identities[i].Email < identities[j].Email })
	return identities, nil
}

// Size reports the mailbox disk usage for the address in human-readable
// form, or the empty string when no mailbox exists.
func (e *Enumerator) Size(ctx context.Context, email string) (string, error) {
	local, domain, ok := splitAddress(email)
	if !ok {
		return "", nil
	}
	dir := filepath.Join(e.mailboxRoot(), domain, local)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", nil
	}

	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("measuring mailbox %s: %w", email, err)
	}
	return humanSize(total), nil
}

func splitAddress(email string) (local, domain string, ok bool) {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[:i], email[i+1:], i > 0 && i < len(email)-1
		}
	}
	return "", "", false
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"mailkeep/internal/directory/metrics"
	"mailkeep/internal/directory/models"
	"mailkeep/pkg/address"
	dErrors "mailkeep/pkg/domain-errors"
	"mailkeep/pkg/platform/sentinel"
)

// standardFolders are created for every new account. The spam filter
// expects Spam to exist, webmail errors on delete without Trash, and some
// IMAP clients poll aggressively until Drafts exists.
var standardFolders = []string{"INBOX", "Trash", "Spam", "Drafts"}

// PrivilegeAction selects what SetPrivilege does.
type PrivilegeAction string

const (
	PrivilegeAdd    PrivilegeAction = "add"
	PrivilegeRemove PrivilegeAction = "remove"
)

// CreateUser validates and creates a mail account, provisions its standard
// mailbox folders, and reconciles required aliases. The returned string is
// the reconciliation report.
func (s *Service) CreateUser(ctx context.Context, email, password string, privs []string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "no email address provided")
	}
	if !address.Valid(email, address.Plain) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if !address.Valid(email, address.User) {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			"user account email addresses may only use the lowercase ASCII letters a-z, the digits 0-9, underscore (_), hyphen (-), and period (.)")
	}
	if address.IsDomainControl(email) {
		// These addresses are frequently used for domain control validation,
		// so they must stay aliases. The first-ever account is exempt: during
		// box setup the operator won't know the rules yet.
		existing, err := s.users.List(ctx)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
		}
		if len(existing) > 0 {
			return "", dErrors.New(dErrors.CodeForbidden,
				"you may not make a user account for that address because it is frequently used for domain control validation; use an alias instead if necessary")
		}
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	privs = compactPrivileges(privs)
	for _, p := range privs {
		if err := validatePrivilege(p); err != nil {
			return "", err
		}
	}

	credential, err := s.hasher.Hash(ctx, password)
	if err != nil {
		s.incCounter(func(m *metrics.Metrics) { m.CollaboratorErrors.WithLabelValues("hasher").Inc() })
		return "", dErrors.Wrap(err, dErrors.CodeDependency, "failed to hash password")
	}

	user := models.User{Email: email, Password: credential, Privileges: privs}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if err := s.provisionFolders(ctx, email); err != nil {
		// The account is unusable without its folders; undo the insert so a
		// retry starts clean.
		if delErr := s.users.Delete(ctx, email); delErr != nil {
			s.logger.ErrorContext(ctx, "rollback of partially created user failed",
				"email", email, "error", delErr)
		}
		s.incCounter(func(m *metrics.Metrics) { m.CollaboratorErrors.WithLabelValues("mailboxes").Inc() })
		return "", dErrors.Wrap(err, dErrors.CodeDependency, "failed to initialize the user")
	}

	s.incCounter(func(m *metrics.Metrics) { m.UsersCreated.Inc() })
	return s.Reconcile(ctx, "mail user added")
}

func (s *Service) provisionFolders(ctx context.Context, email string) error {
	// Folders may survive account deletion on disk, so check before creating.
	existing, err := s.mailboxes.ListFolders(ctx, email)
	if err != nil {
		return err
	}
	for _, folder := range standardFolders {
		if slices.Contains(existing, folder) {
			continue
		}
		if err := s.mailboxes.CreateFolder(ctx, email, folder); err != nil {
			return err
		}
	}
	return nil
}

// SetPassword updates the credential of an existing account.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	credential, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, email, credential); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "that's not a user (%s)", email)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set password")
	}
	return nil
}

// RemoveUser deletes an account and reconciles in case its domain is no
// longer served. Mailbox contents stay on disk; the account shows up as
// archived afterwards.
func (s *Service) RemoveUser(ctx context.Context, email string) (string, error) {
	if err := s.users.Delete(ctx, email); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Newf(dErrors.CodeNotFound, "that's not a user (%s)", email)
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove user")
	}
	s.incCounter(func(m *metrics.Metrics) { m.UsersRemoved.Inc() })
	return s.Reconcile(ctx, "mail user removed")
}

// Privileges returns the privilege tokens of an account.
func (s *Service) Privileges(ctx context.Context, email string) ([]string, error) {
	user, err := s.users.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "that's not a user (%s)", email)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user.Privileges, nil
}

// SetPrivilege adds or removes one privilege token. Adding is idempotent;
// removing a privilege the user doesn't hold is a no-op.
func (s *Service) SetPrivilege(ctx context.Context, email, priv string, action PrivilegeAction) error {
	if err := validatePrivilege(priv); err != nil {
		return err
	}
	user, err := s.users.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "that's not a user (%s)", email)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	privs := user.Privileges
	switch action {
	case PrivilegeAdd:
		if !user.HasPrivilege(priv) {
			privs = append(privs, priv)
		}
	case PrivilegeRemove:
		kept := privs[:0]
		for _, p := range privs {
			if p != priv {
				kept = append(kept, p)
			}
		}
		privs = kept
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid action")
	}

	if err := s.users.UpdatePrivileges(ctx, email, privs); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "that's not a user (%s)", email)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update privileges")
	}
	return nil
}

func compactPrivileges(privs []string) []string {
	var out []string
	for _, p := range privs {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

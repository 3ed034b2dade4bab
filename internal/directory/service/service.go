// Package service implements the directory's validated mutation operations,
// the domain-grouped read views, and the required-alias reconciliation
// engine. Everything runs synchronously on the caller: mutations that can
// change the served-domain set reconcile inline before returning.
package service

import (
	"log/slog"
	"strings"
	"unicode"

	"mailkeep/internal/directory/metrics"
	"mailkeep/internal/directory/store"
	dErrors "mailkeep/pkg/domain-errors"
)

// Service orchestrates the mail directory.
type Service struct {
	primaryHostname string
	users           store.UserStore
	aliases         store.AliasStore
	hasher          PasswordHasher
	mailboxes       MailboxProvisioner
	archive         MailboxEnumerator
	dns             DNSUpdater
	web             WebUpdater
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// Collaborators bundles the external systems the directory drives. Nil
// fields default to no-ops so tests and the CLI can wire only what they use.
type Collaborators struct {
	Hasher    PasswordHasher
	Mailboxes MailboxProvisioner
	Archive   MailboxEnumerator
	DNS       DNSUpdater
	Web       WebUpdater
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a directory service. primaryHostname is the box's own
// hostname; the system administrator address and the always-required aliases
// derive from it.
func New(primaryHostname string, users store.UserStore, aliases store.AliasStore, ext Collaborators, opts ...Option) *Service {
	s := &Service{
		primaryHostname: primaryHostname,
		users:           users,
		aliases:         aliases,
		hasher:          ext.Hasher,
		mailboxes:       ext.Mailboxes,
		archive:         ext.Archive,
		dns:             ext.DNS,
		web:             ext.Web,
	}
	if s.hasher == nil {
		s.hasher = localHasher{}
	}
	if s.mailboxes == nil {
		s.mailboxes = nopProvisioner{}
	}
	if s.archive == nil {
		s.archive = nopEnumerator{}
	}
	if s.dns == nil {
		s.dns = nopUpdater{}
	}
	if s.web == nil {
		s.web = nopUpdater{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SystemAdministrator returns the address all auto-generated aliases
// forward to.
func (s *Service) SystemAdministrator() string {
	return "administrator@" + s.primaryHostname
}

// ValidatePassword enforces the password rules shared by user creation and
// password resets. The four-character minimum is a legacy compatibility
// constraint; the non-empty and no-whitespace rules are load-bearing for
// downstream consumers.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "no password provided")
	}
	for _, r := range password {
		if unicode.IsSpace(r) {
			return dErrors.New(dErrors.CodeInvalidInput, "passwords cannot contain spaces")
		}
	}
	if len(password) < 4 {
		return dErrors.New(dErrors.CodeInvalidInput, "passwords must be at least four characters")
	}
	return nil
}

func validatePrivilege(priv string) error {
	if strings.Contains(priv, "\n") || strings.TrimSpace(priv) == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "that's not a valid privilege (%s)", priv)
	}
	return nil
}

func (s *Service) incCounter(pick func(*metrics.Metrics)) {
	if s.metrics != nil {
		pick(s.metrics)
	}
}

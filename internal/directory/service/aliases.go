package service

import (
	"context"
	"errors"
	"strings"

	"mailkeep/internal/directory/metrics"
	"mailkeep/internal/directory/models"
	"mailkeep/pkg/address"
	dErrors "mailkeep/pkg/domain-errors"
	"mailkeep/pkg/platform/sentinel"
)

// AddAlias creates or (with updateIfExists) replaces a mail alias.
//
// The destination is either a single bare "@domain.tld" rewrite, stored
// verbatim so Postfix can preserve the local part when forwarding, or a
// newline/comma separated list of complete addresses. Domain-control sources may only forward to other
// domain-control addresses or to admin accounts.
//
// kick=false suppresses the post-mutation reconciliation; only the
// reconciliation engine itself uses that, to avoid recursing.
func (s *Service) AddAlias(ctx context.Context, source, destination string, updateIfExists, kick bool) (string, error) {
	// The alias table is queried in lowercase, so force the stored form.
	source = strings.ToLower(strings.TrimSpace(address.Normalize(source)))
	if source == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "no incoming email address provided")
	}
	if !address.Valid(source, address.AliasSource) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid incoming email address (%s)", source)
	}
	isDCVSource := address.IsDomainControl(source)

	dests, err := s.parseDestinations(ctx, strings.TrimSpace(destination), isDCVSource)
	if err != nil {
		return "", err
	}
	if len(dests) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "no destination email address(es) provided")
	}

	status := "alias added"
	insertErr := s.aliases.Insert(ctx, models.Alias{Source: source, Destinations: dests})
	switch {
	case insertErr == nil:
	case errors.Is(insertErr, sentinel.ErrConflict):
		if !updateIfExists {
			return "", dErrors.Newf(dErrors.CodeConflict, "alias already exists (%s)", source)
		}
		if err := s.aliases.Update(ctx, source, dests); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to update alias")
		}
		status = "alias updated"
	default:
		return "", dErrors.Wrap(insertErr, dErrors.CodeInternal, "failed to add alias")
	}

	s.incCounter(func(m *metrics.Metrics) { m.AliasesCreated.Inc() })
	if !kick {
		return status, nil
	}
	return s.Reconcile(ctx, status)
}

func (s *Service) parseDestinations(ctx context.Context, destination string, isDCVSource bool) ([]string, error) {
	// A destination that is itself a valid alias-form address (including the
	// bare "@domain.tld" rewrite) is taken verbatim. Rewrites are never
	// allowed for domain-control sources.
	if whole := address.Normalize(destination); address.Valid(whole, address.AliasSource) && !isDCVSource {
		return []string{whole}, nil
	}

	var dests []string
	for _, line := range strings.Split(destination, "\n") {
		for _, entry := range strings.Split(line, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			entry = address.Normalize(entry)
			if !address.Valid(entry, address.Plain) {
				return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid destination email address (%s)", entry)
			}
			if isDCVSource && !address.IsDomainControl(entry) && !s.isAdminUser(ctx, entry) {
				return nil, dErrors.New(dErrors.CodeForbidden,
					"this alias can only have administrators of this system as destinations because the address is frequently used for domain control validation")
			}
			dests = append(dests, entry)
		}
	}
	return dests, nil
}

func (s *Service) isAdminUser(ctx context.Context, email string) bool {
	user, err := s.users.Get(ctx, email)
	if err != nil {
		return false
	}
	return user.IsAdmin()
}

// RemoveAlias deletes an alias. kick works as in AddAlias.
func (s *Service) RemoveAlias(ctx context.Context, source string, kick bool) (string, error) {
	source = address.Normalize(source)
	if err := s.aliases.Delete(ctx, source); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Newf(dErrors.CodeNotFound, "that's not an alias (%s)", source)
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove alias")
	}
	s.incCounter(func(m *metrics.Metrics) { m.AliasesRemoved.Inc() })
	if !kick {
		return "alias removed", nil
	}
	return s.Reconcile(ctx, "alias removed")
}

package service

import (
	"context"
	"sort"
	"strings"

	"mailkeep/internal/directory/models"
	"mailkeep/pkg/address"
	dErrors "mailkeep/pkg/domain-errors"
)

// ListDomainsWithUsers builds the domain-grouped user listing. withArchived
// additionally walks the on-disk mailbox identities to surface accounts
// that were deleted but whose mail is still stored; that path is I/O bound,
// so callers request it explicitly. withSizes fills per-mailbox disk usage,
// also expensive.
func (s *Service) ListDomainsWithUsers(ctx context.Context, withArchived, withSizes bool) ([]models.UserDomain, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}

	active := make(map[string]bool, len(users))
	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		active[u.Email] = true
		view := models.UserView{
			Email:      u.Email,
			Privileges: u.Privileges,
			Status:     models.UserStatusActive,
		}
		if withSizes {
			view.MailboxSize = s.mailboxSize(ctx, u.Email)
		}
		views = append(views, view)
	}

	if withArchived {
		identities, err := s.archive.Identities(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to enumerate mailboxes")
		}
		for _, ident := range identities {
			if active[ident.Email] {
				continue
			}
			view := models.UserView{
				Email:   ident.Email,
				Status:  models.UserStatusInactive,
				Mailbox: ident.Mailbox,
			}
			if withSizes {
				view.MailboxSize = s.mailboxSize(ctx, ident.Email)
			}
			views = append(views, view)
		}
	}

	grouped := make(map[string][]models.UserView)
	for _, view := range views {
		domain := address.Domain(view.Email, true)
		grouped[domain] = append(grouped[domain], view)
	}

	domains := make([]models.UserDomain, 0, len(grouped))
	for _, domain := range sortedDomains(grouped, s.displayHostname()) {
		users := grouped[domain]
		// Active accounts first, then lexicographically.
		sort.Slice(users, func(i, j int) bool {
			ai := users[i].Status != models.UserStatusActive
			aj := users[j].Status != models.UserStatusActive
			if ai != aj {
				return !ai
			}
			return users[i].Email < users[j].Email
		})
		domains = append(domains, models.UserDomain{Domain: domain, Users: users})
	}
	return domains, nil
}

// ListDomainsWithAliases builds the domain-grouped alias listing. Sources
// stay IDNA-encoded for round-tripping; display fields carry the Unicode
// forms.
func (s *Service) ListDomainsWithAliases(ctx context.Context) ([]models.AliasDomain, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	aliases, err := s.aliases.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list aliases")
	}

	requiredSet := make(map[string]bool)
	for _, r := range s.requiredAliases(users, aliases) {
		requiredSet[r] = true
	}

	grouped := make(map[string][]models.AliasView)
	for _, alias := range aliases {
		dests := make([]string, 0, len(alias.Destinations))
		for _, d := range alias.Destinations {
			dests = append(dests, address.Prettify(d))
		}
		view := models.AliasView{
			Source:        alias.Source,
			SourceDisplay: address.Prettify(alias.Source),
			Destinations:  dests,
			Required:      requiredSet[alias.Source],
		}
		domain := address.Domain(alias.Source, true)
		grouped[domain] = append(grouped[domain], view)
	}

	domains := make([]models.AliasDomain, 0, len(grouped))
	for _, domain := range sortedDomains(grouped, s.displayHostname()) {
		views := grouped[domain]
		// Required (administrative) aliases first, then by source.
		sort.Slice(views, func(i, j int) bool {
			if views[i].Required != views[j].Required {
				return views[i].Required
			}
			return views[i].Source < views[j].Source
		})
		domains = append(domains, models.AliasDomain{Domain: domain, Aliases: views})
	}
	return domains, nil
}

// Admins returns the sorted addresses of accounts holding the admin
// privilege.
func (s *Service) Admins(ctx context.Context) ([]string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	var admins []string
	for _, u := range users {
		if u.IsAdmin() {
			admins = append(admins, u.Email)
		}
	}
	return admins, nil
}

// MailDomains returns the IDNA-encoded domains of every configured address.
// filter, when non-nil, can exclude aliases from consideration.
func (s *Service) MailDomains(ctx context.Context, filter func(models.Alias) bool) (map[string]bool, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	aliases, err := s.aliases.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list aliases")
	}

	domains := make(map[string]bool)
	for _, u := range users {
		if d := address.Domain(u.Email, false); d != "" {
			domains[d] = true
		}
	}
	for _, a := range aliases {
		if filter != nil && !filter(a) {
			continue
		}
		if d := address.Domain(a.Source, false); d != "" {
			domains[d] = true
		}
	}
	return domains, nil
}

// sortedDomains orders domain names with the primary hostname first, then
// lexicographically.
func sortedDomains[V any](grouped map[string]V, primary string) []string {
	domains := make([]string, 0, len(grouped))
	for domain := range grouped {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		if (domains[i] == primary) != (domains[j] == primary) {
			return domains[i] == primary
		}
		return domains[i] < domains[j]
	})
	return domains
}

// displayHostname is the primary hostname in the Unicode form used for
// domain grouping.
func (s *Service) displayHostname() string {
	pretty := address.Prettify("@" + s.primaryHostname)
	return strings.TrimPrefix(pretty, "@")
}

func (s *Service) mailboxSize(ctx context.Context, email string) string {
	size, err := s.archive.Size(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "mailbox size lookup failed", "email", email, "error", err)
		return ""
	}
	return size
}

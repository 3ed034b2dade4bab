package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mailkeep/internal/directory/metrics"
	"mailkeep/internal/directory/models"
	"mailkeep/pkg/address"
	dErrors "mailkeep/pkg/domain-errors"
)

// Reconcile converges the alias table to the required-alias set and then
// regenerates DNS and web configuration. It is invoked after every mutation
// that can add or remove a served domain, and is callable on demand.
//
// Each corrective step re-reads current state instead of trusting a
// snapshot, which makes the pass idempotent: a second run with no
// intervening mutation performs no additions or removals.
//
// note, when non-empty, is the triggering operation's status line and
// becomes the first line of the returned report.
func (s *Service) Reconcile(ctx context.Context, note string) (string, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveReconcile(start)
		}
	}()

	var results []string
	if note != "" {
		results = append(results, note+"\n")
	}

	added, err := s.ensureRequiredAliases(ctx)
	if err != nil {
		return "", err
	}
	results = append(results, added...)

	removed, err := s.removeStaleAliases(ctx)
	if err != nil {
		return "", err
	}
	results = append(results, removed...)

	s.incCounter(func(m *metrics.Metrics) {
		m.ReconcileActions.Add(float64(len(added) + len(removed)))
	})

	// DNS first, then web: the web configuration references hostnames the
	// zone files must already define.
	results = append(results, s.regenerate(ctx, "dns", s.dns.Update))
	results = append(results, s.regenerate(ctx, "web", s.web.Update))

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r)
	}
	return b.String(), nil
}

// ensureRequiredAliases creates, for every required address not yet backed
// by a user account or an alias, an alias forwarding to the system
// administrator.
func (s *Service) ensureRequiredAliases(ctx context.Context) ([]string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	aliases, err := s.aliases.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list aliases")
	}

	userSet := make(map[string]bool, len(users))
	for _, u := range users {
		userSet[u.Email] = true
	}
	aliasSet := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		aliasSet[a.Source] = true
	}

	administrator := s.SystemAdministrator()
	var results []string
	for _, required := range s.requiredAliases(users, aliases) {
		if userSet[required] || aliasSet[required] {
			continue
		}
		// A concurrent pass may have created it in the meantime; a conflict
		// is success-equivalent here.
		if _, err := s.AddAlias(ctx, required, administrator, false, false); err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		results = append(results, fmt.Sprintf("added alias %s (=> %s)\n", required, administrator))
	}
	return results, nil
}

// removeStaleAliases drops auto-generated postmaster@/admin@ aliases on
// domains no longer served. Only aliases still pointing at the system
// administrator are touched; a manually repointed postmaster@ stays.
func (s *Service) removeStaleAliases(ctx context.Context) ([]string, error) {
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

	administrator := s.SystemAdministrator()
	var results []string
	for _, alias := range aliases {
		local, _, found := strings.Cut(alias.Source, "@")
		if !found || (local != "postmaster" && local != "admin") {
			continue
		}
		if requiredSet[alias.Source] {
			continue
		}
		target := strings.Join(alias.Destinations, ",")
		if target != administrator {
			continue
		}
		if _, err := s.RemoveAlias(ctx, alias.Source, false); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		results = append(results, fmt.Sprintf("removed alias %s (was to %s; domain no longer used for email)\n", alias.Source, target))
	}
	return results, nil
}

// requiredAliases computes the set of addresses that must always resolve:
// the system administrator and hostmaster on the primary hostname, plus
// postmaster@ and admin@ on every served domain. Sorted for deterministic
// reports.
func (s *Service) requiredAliases(users []models.User, aliases []models.Alias) []string {
	required := map[string]bool{
		s.SystemAdministrator():           true,
		"hostmaster@" + s.primaryHostname: true,
	}

	// A domain counts as served only if it carries addresses beyond the
	// auto-generated ones: required aliases and catch-alls don't keep a
	// domain alive on their own.
	for _, u := range users {
		if d := address.Domain(u.Email, false); d != "" {
			required["postmaster@"+d] = true
			required["admin@"+d] = true
		}
	}
	administrator := s.SystemAdministrator()
	for _, a := range aliases {
		if strings.HasPrefix(a.Source, "postmaster@") ||
			strings.HasPrefix(a.Source, "admin@") ||
			strings.HasPrefix(a.Source, "@") {
			continue
		}
		// The engine's own administrator@/hostmaster@ bootstrap aliases have
		// no purpose beyond being required; counting them would make the
		// primary domain self-sustaining.
		if (strings.HasPrefix(a.Source, "administrator@") || strings.HasPrefix(a.Source, "hostmaster@")) &&
			strings.Join(a.Destinations, ",") == administrator {
			continue
		}
		if d := address.Domain(a.Source, false); d != "" {
			required["postmaster@"+d] = true
			required["admin@"+d] = true
		}
	}

	out := make([]string, 0, len(required))
	for r := range required {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (s *Service) regenerate(ctx context.Context, kind string, update func(context.Context) (string, error)) string {
	status, err := update(ctx)
	if err != nil {
		// Regeneration failures never roll back the directory mutation; the
		// divergence heals on the next reconciliation trigger.
		s.logger.ErrorContext(ctx, "regeneration failed", "collaborator", kind, "error", err)
		s.incCounter(func(m *metrics.Metrics) { m.CollaboratorErrors.WithLabelValues(kind).Inc() })
		return fmt.Sprintf("%s update failed: %v\n", kind, err)
	}
	return status
}

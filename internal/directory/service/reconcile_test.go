package service

import (
	"context"
)

func (s *ServiceSuite) TestReconcileBootstrapsPrimaryHostnameAliases() {
	ctx := context.Background()

	report, err := s.svc.Reconcile(ctx, "")
	s.Require().NoError(err)
	s.Contains(report, "added alias administrator@box.example.com (=> administrator@box.example.com)")
	s.Contains(report, "added alias hostmaster@box.example.com (=> administrator@box.example.com)")
	s.Contains(report, "updated DNS")
	s.Contains(report, "updated web")

	s.ElementsMatch([]string{
		"administrator@box.example.com",
		"hostmaster@box.example.com",
	}, s.aliasSources())
}

func (s *ServiceSuite) TestReconcileIsIdempotent() {
	ctx := context.Background()
	s.mustCreateUser("jan@foo.tld")

	before := s.aliasSources()
	report, err := s.svc.Reconcile(ctx, "")
	s.Require().NoError(err)

	s.NotContains(report, "added alias")
	s.NotContains(report, "removed alias")
	s.Equal(before, s.aliasSources())
	s.Equal("updated DNS\nupdated web\n", report, "only the regeneration statuses remain")
}

func (s *ServiceSuite) TestReconcileCreatesPerDomainAliases() {
	ctx := context.Background()

	report, err := s.svc.CreateUser(ctx, "jan@foo.tld", "passw0rd", nil)
	s.Require().NoError(err)
	s.Contains(report, "mail user added")
	s.Contains(report, "added alias postmaster@foo.tld (=> administrator@box.example.com)")
	s.Contains(report, "added alias admin@foo.tld (=> administrator@box.example.com)")
}

func (s *ServiceSuite) TestReconcileSkipsRequiredAddressesBackedByAccounts() {
	// admin@example.com is an account (bootstrap exemption), so no alias is
	// generated for it.
	s.mustCreateUser("admin@example.com")
	s.NotContains(s.aliasSources(), "admin@example.com")
	s.Contains(s.aliasSources(), "postmaster@example.com")
}

func (s *ServiceSuite) TestReconcileRemovesStaleAutoGeneratedAliases() {
	ctx := context.Background()
	s.mustCreateUser("jan@foo.tld")
	s.Contains(s.aliasSources(), "postmaster@foo.tld")
	s.Contains(s.aliasSources(), "admin@foo.tld")

	report, err := s.svc.RemoveUser(ctx, "jan@foo.tld")
	s.Require().NoError(err)
	s.Contains(report, "removed alias admin@foo.tld (was to administrator@box.example.com; domain no longer used for email)")
	s.Contains(report, "removed alias postmaster@foo.tld (was to administrator@box.example.com; domain no longer used for email)")

	s.NotContains(s.aliasSources(), "postmaster@foo.tld")
	s.NotContains(s.aliasSources(), "admin@foo.tld")
}

func (s *ServiceSuite) TestReconcileKeepsRepointedAdministrativeAliases() {
	ctx := context.Background()
	s.mustCreateUser("jan@foo.tld")

	// A human repointed postmaster@foo.tld; the engine must never touch it.
	_, err := s.svc.AddAlias(ctx, "postmaster@foo.tld", "hostmaster@elsewhere.tld", true, false)
	s.Require().NoError(err)

	report, err := s.svc.RemoveUser(ctx, "jan@foo.tld")
	s.Require().NoError(err)
	s.Contains(report, "removed alias admin@foo.tld")
	s.NotContains(report, "removed alias postmaster@foo.tld")
	s.Contains(s.aliasSources(), "postmaster@foo.tld")
}

func (s *ServiceSuite) TestReconcileSurfacesRegenerationFailures() {
	ctx := context.Background()
	s.dns.err = errBoom

	report, err := s.svc.Reconcile(ctx, "")
	s.Require().NoError(err, "regeneration failures never fail the pass")
	s.Contains(report, "dns update failed: boom")
	s.Contains(report, "updated web")
	s.Equal(1, s.dns.calls)
	s.Equal(1, s.web.calls)
}

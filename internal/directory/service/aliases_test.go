package service

import (
	"context"

	dErrors "mailkeep/pkg/domain-errors"
)

func (s *ServiceSuite) TestAddAlias() {
	ctx := context.Background()

	s.Run("splits comma separated destinations preserving order", func() {
		report, err := s.svc.AddAlias(ctx, "sales@x.tld", "b@x.tld, a@x.tld", false, true)
		s.Require().NoError(err)
		s.Contains(report, "alias added")

		alias, err := s.aliases.Get(ctx, "sales@x.tld")
		s.Require().NoError(err)
		s.Equal([]string{"b@x.tld", "a@x.tld"}, alias.Destinations, "order given, not resorted")
	})

	s.Run("splits newline separated destinations", func() {
		_, err := s.svc.AddAlias(ctx, "team@x.tld", "a@x.tld\nb@y.tld,c@z.tld", false, true)
		s.Require().NoError(err)

		alias, err := s.aliases.Get(ctx, "team@x.tld")
		s.Require().NoError(err)
		s.Equal([]string{"a@x.tld", "b@y.tld", "c@z.tld"}, alias.Destinations)
	})

	s.Run("lowercases and IDNA-encodes the source", func() {
		_, err := s.svc.AddAlias(ctx, "Info@Bücher.tld", "someone@x.tld", false, true)
		s.Require().NoError(err)

		_, err = s.aliases.Get(ctx, "info@xn--bcher-kva.tld")
		s.Require().NoError(err)
	})

	s.Run("accepts a catch-all source", func() {
		_, err := s.svc.AddAlias(ctx, "@x.tld", "someone@x.tld", false, true)
		s.Require().NoError(err)
	})

	s.Run("stores a bare domain rewrite destination verbatim", func() {
		_, err := s.svc.AddAlias(ctx, "forward@x.tld", "@elsewhere.tld", false, true)
		s.Require().NoError(err)

		alias, err := s.aliases.Get(ctx, "forward@x.tld")
		s.Require().NoError(err)
		s.Equal([]string{"@elsewhere.tld"}, alias.Destinations)
	})
}

func (s *ServiceSuite) TestAddAliasValidation() {
	ctx := context.Background()

	s.Run("rejects empty source", func() {
		_, err := s.svc.AddAlias(ctx, "  ", "a@x.tld", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects invalid source", func() {
		_, err := s.svc.AddAlias(ctx, "bad address@x.tld", "a@x.tld", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects invalid destination", func() {
		_, err := s.svc.AddAlias(ctx, "sales@x.tld", "not-an-address", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects empty destination list", func() {
		_, err := s.svc.AddAlias(ctx, "sales@x.tld", " , ,", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("conflict without update flag, update with it", func() {
		_, err := s.svc.AddAlias(ctx, "dup@x.tld", "a@x.tld", false, true)
		s.Require().NoError(err)

		_, err = s.svc.AddAlias(ctx, "dup@x.tld", "b@x.tld", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))

		report, err := s.svc.AddAlias(ctx, "dup@x.tld", "b@x.tld", true, true)
		s.Require().NoError(err)
		s.Contains(report, "alias updated")

		alias, err := s.aliases.Get(ctx, "dup@x.tld")
		s.Require().NoError(err)
		s.Equal([]string{"b@x.tld"}, alias.Destinations)
	})
}

func (s *ServiceSuite) TestAddAliasDomainControlPolicy() {
	ctx := context.Background()

	s.Run("rejects non-admin destination for a domain-control source", func() {
		s.mustCreateUser("someone@x.tld")
		_, err := s.svc.AddAlias(ctx, "postmaster@dcv-test.tld", "someone@x.tld", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(dErrors.MessageOf(err), "domain control validation")
	})

	s.Run("accepts an admin user destination", func() {
		s.mustCreateUser("boss@x.tld", "admin")
		_, err := s.svc.AddAlias(ctx, "postmaster@dcv-test.tld", "boss@x.tld", false, true)
		s.Require().NoError(err)
	})

	s.Run("accepts another domain-control destination", func() {
		_, err := s.svc.AddAlias(ctx, "admin@dcv-test.tld", "hostmaster@other.tld", true, true)
		s.Require().NoError(err)
	})

	s.Run("never applies the bare domain rewrite to domain-control sources", func() {
		_, err := s.svc.AddAlias(ctx, "webmaster@dcv-test.tld", "@elsewhere.tld", false, true)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestRemoveAlias() {
	ctx := context.Background()
	s.mustAddAlias("sales@x.tld", "a@x.tld")

	report, err := s.svc.RemoveAlias(ctx, "sales@x.tld", true)
	s.Require().NoError(err)
	s.Contains(report, "alias removed")

	_, err = s.svc.RemoveAlias(ctx, "sales@x.tld", true)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

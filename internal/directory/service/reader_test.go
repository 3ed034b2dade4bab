package service

import (
	"context"

	"mailkeep/internal/directory/models"
)

func (s *ServiceSuite) TestListDomainsWithUsers() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.mustCreateUser("amy@box.example.com")
	s.mustCreateUser("bob@foo.tld")

	domains, err := s.svc.ListDomainsWithUsers(ctx, false, false)
	s.Require().NoError(err)
	s.Require().Len(domains, 2)

	s.Equal("box.example.com", domains[0].Domain, "primary hostname sorts first")
	s.Equal("foo.tld", domains[1].Domain)

	s.Require().Len(domains[1].Users, 2)
	s.Equal("bob@foo.tld", domains[1].Users[0].Email)
	s.Equal("zoe@foo.tld", domains[1].Users[1].Email)
	s.Equal(models.UserStatusActive, domains[1].Users[0].Status)
}

func (s *ServiceSuite) TestListDomainsWithUsersArchived() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.enumerator.identities = []MailboxIdentity{
		{Email: "zoe@foo.tld", Mailbox: "/home/user-data/mail/mailboxes/foo.tld/zoe"},
		{Email: "gone@foo.tld", Mailbox: "/home/user-data/mail/mailboxes/foo.tld/gone"},
	}

	domains, err := s.svc.ListDomainsWithUsers(ctx, true, false)
	s.Require().NoError(err)
	s.Require().Len(domains, 1)
	s.Require().Len(domains[0].Users, 2)

	// The live account keeps its store-backed entry; only the orphaned
	// mailbox shows up as inactive, after the active ones.
	s.Equal("zoe@foo.tld", domains[0].Users[0].Email)
	s.Equal(models.UserStatusActive, domains[0].Users[0].Status)
	s.Equal("gone@foo.tld", domains[0].Users[1].Email)
	s.Equal(models.UserStatusInactive, domains[0].Users[1].Status)
	s.Equal("/home/user-data/mail/mailboxes/foo.tld/gone", domains[0].Users[1].Mailbox)
}

func (s *ServiceSuite) TestListDomainsWithUsersSizes() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.enumerator.sizes["zoe@foo.tld"] = "12M"

	domains, err := s.svc.ListDomainsWithUsers(ctx, false, true)
	s.Require().NoError(err)
	s.Require().Len(domains, 1)
	s.Equal("12M", domains[0].Users[0].MailboxSize)
}

func (s *ServiceSuite) TestListDomainsWithAliases() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.mustAddAlias("sales@foo.tld", "zoe@foo.tld")

	_, err := s.svc.AddAlias(ctx, "info@bücher.tld", "zoe@foo.tld", false, false)
	s.Require().NoError(err)

	domains, err := s.svc.ListDomainsWithAliases(ctx)
	s.Require().NoError(err)
	s.Require().Len(domains, 3)

	s.Equal("box.example.com", domains[0].Domain)
	s.Equal("bücher.tld", domains[1].Domain, "grouping uses the Unicode domain form")
	s.Equal("foo.tld", domains[2].Domain)

	primary := domains[0].Aliases
	s.Require().Len(primary, 2)
	s.Equal("administrator@box.example.com", primary[0].Source)
	s.Equal("hostmaster@box.example.com", primary[1].Source)
	s.True(primary[0].Required)
	s.True(primary[1].Required)

	idna := domains[1].Aliases
	s.Require().Len(idna, 1)
	s.Equal("info@xn--bcher-kva.tld", idna[0].Source)
	s.Equal("info@bücher.tld", idna[0].SourceDisplay)
	s.False(idna[0].Required)

	foo := domains[2].Aliases
	s.Require().Len(foo, 3)
	// Required administrative aliases first, then the human-made one.
	s.Equal("admin@foo.tld", foo[0].Source)
	s.Equal("postmaster@foo.tld", foo[1].Source)
	s.Equal("sales@foo.tld", foo[2].Source)
	s.True(foo[0].Required)
	s.True(foo[1].Required)
	s.False(foo[2].Required)
	s.Equal([]string{"zoe@foo.tld"}, foo[2].Destinations)
}

func (s *ServiceSuite) TestAdmins() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.mustCreateUser("boss@foo.tld", "admin")

	admins, err := s.svc.Admins(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"boss@foo.tld"}, admins)
}

func (s *ServiceSuite) TestMailDomains() {
	ctx := context.Background()
	s.mustCreateUser("zoe@foo.tld")
	s.mustAddAlias("info@bar.tld", "zoe@foo.tld")

	domains, err := s.svc.MailDomains(ctx, nil)
	s.Require().NoError(err)
	s.True(domains["foo.tld"])
	s.True(domains["bar.tld"])
	s.True(domains["box.example.com"], "required aliases keep the primary hostname listed")

	// Filter out every alias: only account domains remain.
	domains, err = s.svc.MailDomains(ctx, func(models.Alias) bool { return false })
	s.Require().NoError(err)
	s.True(domains["foo.tld"])
	s.False(domains["bar.tld"])
	s.False(domains["box.example.com"])
}

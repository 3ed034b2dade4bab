package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "mailkeep/pkg/domain-errors"
	"mailkeep/pkg/platform/sentinel"
)

// assertCredential verifies a stored credential is a scheme-prefixed bcrypt
// hash of the given password rather than anything recoverable.
func (s *ServiceSuite) assertCredential(credential, password string) {
	s.T().Helper()
	s.Require().True(strings.HasPrefix(credential, "{BLF-CRYPT}"), "credential %q lacks the scheme prefix", credential)
	hash := strings.TrimPrefix(credential, "{BLF-CRYPT}")
	s.Require().NoError(bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)))
}

func (s *ServiceSuite) TestCreateUser() {
	ctx := context.Background()

	s.Run("creates user and provisions standard folders", func() {
		report, err := s.svc.CreateUser(ctx, "jan@x.tld", "passw0rd", nil)
		s.Require().NoError(err)
		s.Contains(report, "mail user added")

		user, err := s.users.Get(ctx, "jan@x.tld")
		s.Require().NoError(err)
		s.assertCredential(user.Password, "passw0rd")
		s.Equal([]string{"INBOX", "Trash", "Spam", "Drafts"}, s.provisioner.created["jan@x.tld"])
	})

	s.Run("skips folders that already exist on disk", func() {
		s.provisioner.existing = []string{"INBOX", "Trash"}
		s.mustCreateUser("returning@x.tld")
		s.Equal([]string{"Spam", "Drafts"}, s.provisioner.created["returning@x.tld"])
	})
}

func (s *ServiceSuite) TestCreateUserValidation() {
	ctx := context.Background()

	s.Run("rejects empty address", func() {
		_, err := s.svc.CreateUser(ctx, "  ", "passw0rd", nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects invalid address", func() {
		_, err := s.svc.CreateUser(ctx, "not-an-address", "passw0rd", nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects uppercase with the charset message", func() {
		_, err := s.svc.CreateUser(ctx, "Jan@x.tld", "passw0rd", nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(dErrors.MessageOf(err), "lowercase ASCII")
	})

	s.Run("rejects bad privilege token", func() {
		_, err := s.svc.CreateUser(ctx, "jan@x.tld", "passw0rd", []string{"bad\npriv"})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects duplicate with conflict", func() {
		s.mustCreateUser("dup@x.tld")
		_, err := s.svc.CreateUser(ctx, "dup@x.tld", "passw0rd", nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestCreateUserDomainControlBootstrap() {
	ctx := context.Background()

	// The very first account may claim a reserved address; the operator
	// needs something to log in with during setup.
	report, err := s.svc.CreateUser(ctx, "admin@example.com", "passw0rd", nil)
	s.Require().NoError(err)
	s.Contains(report, "mail user added")

	_, err = s.svc.CreateUser(ctx, "postmaster@example.com", "passw0rd", nil)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Contains(dErrors.MessageOf(err), "domain control validation")
}

func (s *ServiceSuite) TestCreateUserProvisioningFailureRollsBack() {
	ctx := context.Background()
	s.provisioner.listErr = errBoom

	_, err := s.svc.CreateUser(ctx, "jan@x.tld", "passw0rd", nil)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeDependency))

	_, err = s.users.Get(ctx, "jan@x.tld")
	s.Require().ErrorIs(err, sentinel.ErrNotFound, "the partially created account must be rolled back")
}

func (s *ServiceSuite) TestValidatePassword() {
	s.Require().NoError(ValidatePassword("good-password"))

	for name, pw := range map[string]string{
		"empty":      "",
		"whitespace": "   ",
		"with space": "pass word",
		"with tab":   "pass\tword",
		"too short":  "abc",
	} {
		err := ValidatePassword(pw)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput), name)
	}
}

func (s *ServiceSuite) TestSetPassword() {
	ctx := context.Background()
	s.mustCreateUser("jan@x.tld")

	s.Require().NoError(s.svc.SetPassword(ctx, "jan@x.tld", "newpass"))
	credential, err := s.users.GetPassword(ctx, "jan@x.tld")
	s.Require().NoError(err)
	s.assertCredential(credential, "newpass")

	err = s.svc.SetPassword(ctx, "ghost@x.tld", "newpass")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRemoveUser() {
	ctx := context.Background()
	s.mustCreateUser("jan@x.tld")

	report, err := s.svc.RemoveUser(ctx, "jan@x.tld")
	s.Require().NoError(err)
	s.Contains(report, "mail user removed")

	_, err = s.svc.RemoveUser(ctx, "jan@x.tld")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSetPrivilege() {
	ctx := context.Background()
	s.mustCreateUser("jan@x.tld")

	s.Run("add is idempotent", func() {
		s.Require().NoError(s.svc.SetPrivilege(ctx, "jan@x.tld", "admin", PrivilegeAdd))
		s.Require().NoError(s.svc.SetPrivilege(ctx, "jan@x.tld", "admin", PrivilegeAdd))
		privs, err := s.svc.Privileges(ctx, "jan@x.tld")
		s.Require().NoError(err)
		s.Equal([]string{"admin"}, privs)
	})

	s.Run("remove of absent privilege is a no-op", func() {
		s.Require().NoError(s.svc.SetPrivilege(ctx, "jan@x.tld", "other", PrivilegeRemove))
	})

	s.Run("remove drops the privilege", func() {
		s.Require().NoError(s.svc.SetPrivilege(ctx, "jan@x.tld", "admin", PrivilegeRemove))
		privs, err := s.svc.Privileges(ctx, "jan@x.tld")
		s.Require().NoError(err)
		s.Empty(privs)
	})

	s.Run("unknown user and invalid inputs are rejected", func() {
		err := s.svc.SetPrivilege(ctx, "ghost@x.tld", "admin", PrivilegeAdd)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))

		err = s.svc.SetPrivilege(ctx, "jan@x.tld", "", PrivilegeAdd)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = s.svc.SetPrivilege(ctx, "jan@x.tld", "admin", PrivilegeAction("nonsense"))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// Package models holds the directory's domain types and the read-optimized
// view structures served to the admin UI.
package models

// UserStatus distinguishes live accounts from mailboxes that only exist on
// disk (accounts that were deleted but whose mail was kept).
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// AdminPrivilege grants directory-administration rights. Privileges are
// otherwise opaque tokens.
const AdminPrivilege = "admin"

// User is a mail account.
//
// Invariants:
//   - Email is stored IDNA-encoded and lowercase (account charset rules)
//   - Password holds an opaque scheme-prefixed credential, never plaintext
//   - Privileges are non-empty tokens without newlines
type User struct {
	Email      string   `json:"email"`
	Password   string   `json:"-"`
	Privileges []string `json:"privileges"`
}

// HasPrivilege reports whether the user holds the given privilege token.
func (u *User) HasPrivilege(priv string) bool {
	for _, p := range u.Privileges {
		if p == priv {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may administer the directory.
func (u *User) IsAdmin() bool { return u.HasPrivilege(AdminPrivilege) }

// Alias forwards mail from Source to each destination, in the order given.
//
// Invariants:
//   - Source is unique across aliases, IDNA-encoded and lowercase
//   - Destinations has at least one entry; a single bare "@domain.tld"
//     entry is the catch-all rewrite form and is stored verbatim
type Alias struct {
	Source       string   `json:"source"`
	Destinations []string `json:"destination"`
}

// UserView is a user entry in the domain-grouped listing.
type UserView struct {
	Email       string     `json:"email"`
	Privileges  []string   `json:"privileges"`
	Status      UserStatus `json:"status"`
	Mailbox     string     `json:"mailbox,omitempty"`
	MailboxSize string     `json:"mailbox_size,omitempty"`
}

// UserDomain groups users under one mail domain.
type UserDomain struct {
	Domain string     `json:"domain"`
	Users  []UserView `json:"users"`
}

// AliasView is an alias entry in the domain-grouped listing. Source stays
// IDNA-encoded for round-tripping; SourceDisplay and Destinations are the
// Unicode forms shown to people.
type AliasView struct {
	Source        string   `json:"source"`
	SourceDisplay string   `json:"source_display"`
	Destinations  []string `json:"destination"`
	Required      bool     `json:"required"`
}

// AliasDomain groups aliases under one mail domain.
type AliasDomain struct {
	Domain  string      `json:"domain"`
	Aliases []AliasView `json:"aliases"`
}

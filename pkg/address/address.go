// Package address validates and canonicalizes mail addresses.
//
// The mail stack speaks ASCII only, so internationalized domains are stored
// IDNA-encoded and decoded back to Unicode for display. Local parts are
// never touched by encoding.
package address

import (
	"strings"

	"golang.org/x/net/idna"
)

// Mode selects which restrictions apply during validation.
type Mode int

const (
	// Plain checks general syntactic validity.
	Plain Mode = iota

	// User additionally restricts the address to what the delivery agent
	// accepts as an account name: lowercase ASCII letters, digits, dot,
	// underscore, hyphen, at most 255 characters. The mailbox path on disk
	// is derived from the address, so anything unusual is rejected.
	User

	// AliasSource allows an empty local part, permitting the bare
	// "@domain.tld" catch-all form used in alias tables.
	AliasSource
)

// dcvLocalParts are local parts commonly required by certificate
// authorities and registrars for domain control validation.
var dcvLocalParts = []string{"admin", "administrator", "postmaster", "hostmaster", "webmaster"}

// Valid reports whether addr is acceptable under the given mode.
// Non-ASCII local parts are always rejected; domains may be Unicode and are
// IDNA-encoded before checking.
func Valid(addr string, mode Mode) bool {
	local, domain, ok := split(addr)
	if !ok {
		return false
	}
	if local == "" && mode != AliasSource {
		return false
	}
	if local != "" && !validLocal(local) {
		return false
	}
	encoded, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return false
	}
	// A bare TLD is never a mail domain.
	if !strings.Contains(encoded, ".") {
		return false
	}

	if mode == User {
		if len(addr) > 255 {
			return false
		}
		for _, r := range addr {
			if !isUserRune(r) {
				return false
			}
		}
	}
	return true
}

// Normalize converts the domain part from Unicode to its IDNA form so the
// stored value is what the underlying protocols see. On encoding failure the
// input is returned unchanged; Valid will reject it downstream.
func Normalize(addr string) string {
	local, domain, ok := split(addr)
	if !ok {
		return addr
	}
	encoded, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return addr
	}
	return local + "@" + encoded
}

// Prettify is the inverse of Normalize: the stored IDNA domain is decoded
// back to Unicode for display. On decode failure the input is returned
// unchanged.
func Prettify(addr string) string {
	local, domain, ok := split(addr)
	if !ok {
		return addr
	}
	if !isASCII(domain) {
		return addr
	}
	decoded, err := idna.Lookup.ToUnicode(domain)
	if err != nil {
		return addr
	}
	return local + "@" + decoded
}

// IsDomainControl reports whether addr uses a local part reserved for
// domain control validation, either exactly (admin@...) or plus-tagged
// (admin+tag@...). Such addresses must not become ordinary mailboxes.
func IsDomainControl(addr string) bool {
	addr = strings.ToLower(addr)
	for _, local := range dcvLocalParts {
		if strings.HasPrefix(addr, local+"@") || strings.HasPrefix(addr, local+"+") {
			return true
		}
	}
	return false
}

// Domain returns the domain part of addr, decoded to Unicode when asUnicode
// is set. The empty string is returned when addr has no domain part.
func Domain(addr string, asUnicode bool) string {
	_, domain, ok := split(addr)
	if !ok {
		return ""
	}
	if asUnicode {
		if decoded, err := idna.Lookup.ToUnicode(domain); err == nil {
			return decoded
		}
	}
	return domain
}

func split(addr string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return "", "", false
	}
	return addr[:at], addr[at+1:], true
}

// validLocal checks the local part against the dot-atom grammar: printable
// ASCII atom characters, with dots only between atoms.
func validLocal(local string) bool {
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	for _, r := range local {
		if !isAtomRune(r) && r != '.' {
			return false
		}
	}
	return true
}

func isAtomRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+/=?^_`{|}~-", r)
}

func isUserRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-' || r == '@':
		return true
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

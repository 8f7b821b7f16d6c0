// Package audit reconciles the extension numbers users declare on their
// phone addresses against the telephony extension registry. It fetches both
// record sets, builds an indexed in-memory context, classifies mismatches,
// and can patch missing assignments back onto the registry's users.
package audit

import (
	"strings"
	"time"

	"github.com/gcadmin/extaudit/internal/genesys"
)

// Mode records which fetch strategy produced the extension-record list.
// FULL is an exhaustive crawl of the registry; TARGETED is scoped to the
// extension numbers observed on user profiles.
type Mode string

// Fetch strategy modes.
const (
	ModeFull     Mode = "FULL"
	ModeTargeted Mode = "TARGETED"
)

// ProfileClaim is one user's self-declared profile extension, derived from
// its phone addresses.
type ProfileClaim struct {
	UserID    string
	UserName  string
	UserEmail string
	UserState string
	Extension string
}

// Context is the assembled, indexed snapshot of both record sets for one
// audit run. It is built once, never mutated afterwards, and all
// classification queries derive purely from it.
type Context struct {
	Users       []genesys.User
	UserByID    map[string]genesys.User
	DisplayByID map[string]string

	// Claims lists the users carrying a derived profile extension, in
	// directory order. Numbers is the distinct set of their extension
	// numbers, trimmed and sorted case-insensitively.
	Claims  []ProfileClaim
	Numbers []string

	Extensions []genesys.Extension
	// ByNumber indexes extension records by normalized number. Records
	// with empty numbers are not indexed.
	ByNumber map[string][]genesys.Extension

	Mode Mode
}

// Summary is the headline statistics of a built context.
type Summary struct {
	BuiltAt           time.Time
	BaseURL           string
	IncludeInactive   bool
	UsersTotal        int
	UsersWithProfile  int
	DistinctNumbers   int
	ExtensionsLoaded  int
	Mode              Mode
}

// NormalizeNumber canonicalizes an extension number for comparison:
// whitespace-trimmed, lowercased. All number equality in this package goes
// through this key.
func NormalizeNumber(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ProfileExtension derives a user's self-declared extension from its
// addresses: the first WORK phone with a non-empty extension wins, then the
// first phone with any non-empty extension. Returns "" when the user has no
// profile extension.
func ProfileExtension(u genesys.User) string {
	var fallback string

	for _, a := range u.Addresses {
		if !strings.EqualFold(a.MediaType, genesys.MediaTypePhone) {
			continue
		}

		ext := strings.TrimSpace(a.Extension)
		if ext == "" {
			continue
		}

		if strings.EqualFold(a.Type, genesys.AddressTypeWork) {
			return ext
		}

		if fallback == "" {
			fallback = ext
		}
	}

	return fallback
}

// DisplayName formats a user for report rows: "Name <email>" when an email
// is known, falling back to the name, then the id.
func DisplayName(u genesys.User) string {
	if strings.TrimSpace(u.Email) != "" {
		return u.Name + " <" + u.Email + ">"
	}

	if u.Name != "" {
		return u.Name
	}

	return u.ID
}

// Display returns the display string for a user id, falling back to the id
// itself for users absent from the context.
func (c *Context) Display(userID string) string {
	if d, ok := c.DisplayByID[userID]; ok {
		return d
	}

	return userID
}

// Records returns the extension records backing a number, using normalized
// comparison.
func (c *Context) Records(number string) []genesys.Extension {
	return c.ByNumber[NormalizeNumber(number)]
}

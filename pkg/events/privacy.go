package events

import (
	"sort"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// redactedUser is the post-privacy-transform wire shape of a user: the same
// attributes minus whatever privacy rules removed, plus the sorted list of
// what was removed so the receiving service can tell redaction from
// absence.
type redactedUser struct {
	Key         string
	Secondary   string
	IP          string
	Country     string
	Email       string
	FirstName   string
	LastName    string
	Avatar      string
	Name        string
	Anonymous   bool
	Custom      map[string]ldmodel.Value
	PrivateAttrs []string
}

// redactUser applies the all_attributes_private / private_attribute_names
// rules: when allPrivate is true, every non-key attribute is removed;
// otherwise the union of globalPrivate and the user's own
// PrivateAttributeNames is removed.
func redactUser(u *ldmodel.User, allPrivate bool, globalPrivate []string) redactedUser {
	removeSet := map[string]bool{}
	if !allPrivate {
		for _, n := range globalPrivate {
			removeSet[n] = true
		}
		for _, n := range u.PrivateAttributeNames {
			removeSet[n] = true
		}
	}

	out := redactedUser{Key: u.Key, Anonymous: u.Anonymous}
	var removed []string

	keep := func(name string, has bool, assign func()) {
		if allPrivate || removeSet[name] {
			if has {
				removed = append(removed, name)
			}
			return
		}
		assign()
	}

	keep("secondary", u.Secondary != "", func() { out.Secondary = u.Secondary })
	keep("ip", u.IP != "", func() { out.IP = u.IP })
	keep("country", u.Country != "", func() { out.Country = u.Country })
	keep("email", u.Email != "", func() { out.Email = u.Email })
	keep("firstName", u.FirstName != "", func() { out.FirstName = u.FirstName })
	keep("lastName", u.LastName != "", func() { out.LastName = u.LastName })
	keep("avatar", u.Avatar != "", func() { out.Avatar = u.Avatar })
	keep("name", u.Name != "", func() { out.Name = u.Name })

	if len(u.Custom) > 0 {
		custom := map[string]ldmodel.Value{}
		for k, v := range u.Custom {
			if allPrivate || removeSet[k] {
				removed = append(removed, k)
				continue
			}
			custom[k] = v
		}
		if len(custom) > 0 {
			out.Custom = custom
		}
	}

	sort.Strings(removed)
	out.PrivateAttrs = removed
	return out
}

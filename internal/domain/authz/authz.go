// Package authz evaluates whether a loaded principal satisfies the permission
// requirement declared on an operation.
package authz

import (
	"sort"
	"strings"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
)

// Requirement is the set of permission names an operation needs. All names
// must be held (AND). The zero value requires nothing.
type Requirement struct {
	names []string
}

// Require builds a Requirement once, at route registration. Blank names are
// dropped and duplicates collapsed; names are matched case-sensitively.
func Require(names ...string) Requirement {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return Requirement{names: out}
}

// Names returns a copy of the required permission names.
func (r Requirement) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r Requirement) IsEmpty() bool { return len(r.names) == 0 }

func (r Requirement) String() string { return strings.Join(r.names, ",") }

// EffectivePermissions is the union of permission names over every role
// currently loaded on u.
func EffectivePermissions(u *entity.User) map[string]struct{} {
	if u == nil {
		return map[string]struct{}{}
	}
	size := 0
	for _, r := range u.Roles {
		size += len(r.Permissions)
	}
	set := make(map[string]struct{}, size)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

// Authorize reports whether u holds every permission in req.
func Authorize(u *entity.User, req Requirement) bool {
	if req.IsEmpty() {
		return true
	}
	granted := EffectivePermissions(u)
	for _, name := range req.names {
		if _, ok := granted[name]; !ok {
			return false
		}
	}
	return true
}

// Missing lists the required names u does not hold, in sorted order.
func Missing(u *entity.User, req Requirement) []string {
	if req.IsEmpty() {
		return nil
	}
	granted := EffectivePermissions(u)
	var missing []string
	for _, name := range req.names {
		if _, ok := granted[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

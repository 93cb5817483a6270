package permission

import "sort"

// Behaviour is the combinator applied when a route requires more than one
// permission.
type Behaviour int

const (
	// And requires every listed permission to be granted.
	And Behaviour = iota
	// Or requires at least one listed permission to be granted.
	Or
)

func (b Behaviour) String() string {
	if b == Or {
		return "OR"
	}
	return "AND"
}

// Requirement is the access requirement a route declares for one invocation.
// Permissions are plain tokens; scoped tokens are built with Scoped at the
// call site from route parameters.
type Requirement struct {
	Behaviour   Behaviour
	Permissions []string
}

// RequireAll builds an AND requirement.
func RequireAll(perms ...string) Requirement {
	return Requirement{Behaviour: And, Permissions: perms}
}

// RequireAny builds an OR requirement.
func RequireAny(perms ...string) Requirement {
	return Requirement{Behaviour: Or, Permissions: perms}
}

// SatisfiedBy evaluates the requirement against a granted set. An empty AND
// requirement is vacuously satisfied; an empty OR requirement never is.
func (r Requirement) SatisfiedBy(granted *Set) bool {
	if r.Behaviour == Or {
		for _, p := range r.Permissions {
			if granted.Has(p) {
				return true
			}
		}
		return false
	}
	for _, p := range r.Permissions {
		if !granted.Has(p) {
			return false
		}
	}
	return true
}

// Set is a mutable collection of granted permission tokens. Membership is
// exact string match; the wildcard is tracked but does not short-circuit Has,
// since the engine applies the wildcard rule only at the target role.
type Set struct {
	members map[string]struct{}
}

// NewSet builds a Set from the given tokens.
func NewSet(perms ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(perms))}
	s.Add(perms...)
	return s
}

// Add merges tokens into the set.
func (s *Set) Add(perms ...string) {
	for _, p := range perms {
		s.members[p] = struct{}{}
	}
}

// Has reports exact membership.
func (s *Set) Has(p string) bool {
	_, ok := s.members[p]
	return ok
}

// HasWildcard reports whether the bare wildcard token is a member.
func (s *Set) HasWildcard() bool { return s.Has(Wildcard) }

// Values returns the members in sorted order.
func (s *Set) Values() []string {
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

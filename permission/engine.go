package permission

// Role is the engine's view of a stored role: a ranked bundle of permission
// tokens. Callers load these from storage; the engine itself never touches
// I/O, so it can be exercised with plain values in tests.
type Role struct {
	Name            string
	Order           int
	Permissions     []string
	InheritChildren bool
}

func findRole(roles []Role, name string) *Role {
	for i := range roles {
		if roles[i].Name == name {
			return &roles[i]
		}
	}
	return nil
}

// Decide evaluates whether a user whose role claim is actingRole satisfies
// the requirement against targetRole. Every failure path resolves to a deny;
// no error is ever surfaced from an authorization check.
//
// When the target role inherits, permissions of every role ranked below the
// acting role are merged cumulatively into the working set, re-evaluating the
// requirement after each merge and allowing on the first pass. The merge uses
// an explicit accumulator so repeated calls can never alias the caller's
// permission slices.
//
// If the inheritance search exhausts without a pass, the result is a deny
// even when the target role's direct permissions alone satisfy the
// requirement. An inheriting role with no lower-ranked roles is therefore
// stricter than a non-inheriting one with identical permissions.
// TODO: confirm with product whether that asymmetry is intended before
// changing it; TestDecideInheritDiscardsDirectGrant pins the behaviour.
func Decide(roles []Role, actingRole, targetRole string, req Requirement) bool {
	if len(roles) == 0 || actingRole == "" || targetRole == "" {
		return false
	}
	acting := findRole(roles, actingRole)
	if acting == nil {
		return false
	}
	target := findRole(roles, targetRole)
	if target == nil {
		return false
	}

	granted := NewSet(target.Permissions...)
	if granted.HasWildcard() {
		return true
	}

	if !target.InheritChildren {
		return req.SatisfiedBy(granted)
	}

	for i := range roles {
		child := &roles[i]
		if child.Name == target.Name {
			continue
		}
		if acting.Order <= child.Order {
			continue
		}
		granted.Add(child.Permissions...)
		if req.SatisfiedBy(granted) {
			return true
		}
	}
	return false
}

// EffectivePermissions flattens the set of permissions visible to a user for
// display and client-side gating. Enforcement never trusts this output; it
// always re-runs Decide server-side.
//
// A wildcard on the user's own role collapses the result to the single
// sentinel ["*"]. Otherwise the returned set is the union of every role's
// permissions in the store, not just the user's accumulated set, with the
// wildcard stripped unless the user's claim is literally "admin" — both
// behaviours are kept as observed and pinned by tests pending product
// clarification.
func EffectivePermissions(roles []Role, userRole string) []string {
	if len(roles) == 0 || userRole == "" {
		return nil
	}
	user := findRole(roles, userRole)
	if user == nil {
		return nil
	}

	acc := NewSet(user.Permissions...)
	if acc.HasWildcard() {
		return []string{Wildcard}
	}

	if user.InheritChildren {
		for i := range roles {
			child := &roles[i]
			if child.Name == user.Name {
				continue
			}
			if user.Order <= child.Order {
				continue
			}
			acc.Add(child.Permissions...)
		}
	}

	for i := range roles {
		acc.Add(roles[i].Permissions...)
	}

	out := acc.Values()
	if userRole != "admin" {
		filtered := out[:0]
		for _, p := range out {
			if p != Wildcard {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	return out
}

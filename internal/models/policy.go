package models

// Role is the fixed role vocabulary. Roles are organizational; only the
// admin role is technical and it alone reaches the top security level.
type Role string

const (
	RoleAdmin    Role = "admin"    // technical administration
	RoleGovernor Role = "governor" // elected leadership
	RoleOfficer  Role = "officer"
	RoleMember   Role = "member"
	RoleGuest    Role = "guest"
)

// Security levels, 0 lowest through 5 highest. LevelAdmin is strictly above
// every elected role and gates the destructive operations.
const (
	LevelGuest    = 0
	LevelMember   = 1
	LevelOfficer  = 3
	LevelGovernor = 4
	LevelAdmin    = 5
)

// RolePolicy is the immutable lookup that maps roles to security levels and
// overrides roles for known leadership membership numbers. It is constructed
// once and passed into the components that need it; nothing consults a
// package-level table.
type RolePolicy struct {
	levels    map[Role]int
	overrides map[string]Role
}

// NewRolePolicy builds a policy from explicit tables. Both maps are copied;
// callers cannot mutate a policy after construction.
func NewRolePolicy(levels map[Role]int, overrides map[string]Role) *RolePolicy {
	p := &RolePolicy{
		levels:    make(map[Role]int, len(levels)),
		overrides: make(map[string]Role, len(overrides)),
	}
	for role, level := range levels {
		p.levels[role] = level
	}
	for number, role := range overrides {
		p.overrides[number] = role
	}
	return p
}

// DefaultRolePolicy returns the production role table with no leadership
// overrides. Overrides are per-deployment data, not code.
func DefaultRolePolicy() *RolePolicy {
	return NewRolePolicy(map[Role]int{
		RoleAdmin:    LevelAdmin,
		RoleGovernor: LevelGovernor,
		RoleOfficer:  LevelOfficer,
		RoleMember:   LevelMember,
		RoleGuest:    LevelGuest,
	}, nil)
}

// WithOverrides returns a copy of the policy with the given leadership
// overrides (membership number to role) applied on top.
func (p *RolePolicy) WithOverrides(overrides map[string]Role) *RolePolicy {
	next := NewRolePolicy(p.levels, p.overrides)
	for number, role := range overrides {
		next.overrides[number] = role
	}
	return next
}

// LevelFor returns the security level for a role. Unknown roles map to the
// lowest level rather than failing; an unrecognized role must never grant
// access by accident.
func (p *RolePolicy) LevelFor(role Role) int {
	if level, ok := p.levels[role]; ok {
		return level
	}
	return LevelGuest
}

// OverrideFor reports the leadership role override for a membership number,
// if one is configured.
func (p *RolePolicy) OverrideFor(membershipNumber string) (Role, bool) {
	role, ok := p.overrides[membershipNumber]
	return role, ok
}

// KnownRole reports whether the role is part of the configured vocabulary.
func (p *RolePolicy) KnownRole(role Role) bool {
	_, ok := p.levels[role]
	return ok
}

package services

import "github.com/aeroclub/membership-backend/internal/models"

// Operation identifies a gated bulk or destructive operation.
type Operation string

const (
	OperationImport        Operation = "import"
	OperationReassignRoles Operation = "reassign_roles"
	OperationDeactivateAll Operation = "deactivate_all"
	OperationClearAll      Operation = "clear_all"
)

// GatePolicy maps operations to the minimum security level they require.
type GatePolicy map[Operation]int

// DefaultGatePolicy returns the production policy: bulk mutation needs
// senior leadership (level 4); the physical clear has no undo and is
// reserved for technical administration (level 5), strictly above every
// elected role.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		OperationImport:        models.LevelGovernor,
		OperationReassignRoles: models.LevelGovernor,
		OperationDeactivateAll: models.LevelGovernor,
		OperationClearAll:      models.LevelAdmin,
	}
}

// AccessGate authorizes destructive and bulk operations against the
// caller's security level. Authorize must run before any record is read or
// written: a denial has zero observable side effects, including progress
// events. The policy is injected at construction so the gate is testable
// with alternate tables.
type AccessGate struct {
	policy GatePolicy
}

// NewAccessGate creates a gate over the given policy. A nil policy uses the
// default table. The policy is copied; later mutation of the argument does
// not affect the gate.
func NewAccessGate(policy GatePolicy) *AccessGate {
	if policy == nil {
		policy = DefaultGatePolicy()
	}
	copied := make(GatePolicy, len(policy))
	for op, level := range policy {
		copied[op] = level
	}
	return &AccessGate{policy: copied}
}

// Authorize checks the caller's security level against the operation's
// required level. Operations absent from the policy are always denied;
// an unconfigured operation must never be allowed by accident.
func (g *AccessGate) Authorize(callerLevel int, op Operation) error {
	required, ok := g.policy[op]
	if !ok {
		return &PermissionError{Operation: op, Required: models.LevelAdmin + 1, Actual: callerLevel}
	}
	if callerLevel < required {
		return &PermissionError{Operation: op, Required: required, Actual: callerLevel}
	}
	return nil
}

// RequiredLevel reports the configured level for an operation, for
// surfacing in denial messages and docs.
func (g *AccessGate) RequiredLevel(op Operation) (int, bool) {
	level, ok := g.policy[op]
	return level, ok
}

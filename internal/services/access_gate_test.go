package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/aeroclub/membership-backend/internal/models"
)

func TestAuthorize_DefaultPolicy(t *testing.T) {
	gate := NewAccessGate(nil)

	tests := []struct {
		name    string
		op      Operation
		level   int
		allowed bool
	}{
		{"import at governor", OperationImport, models.LevelGovernor, true},
		{"import at admin", OperationImport, models.LevelAdmin, true},
		{"import at officer", OperationImport, models.LevelOfficer, false},
		{"import at guest", OperationImport, models.LevelGuest, false},
		{"reassign at governor", OperationReassignRoles, models.LevelGovernor, true},
		{"reassign at member", OperationReassignRoles, models.LevelMember, false},
		{"deactivate at governor", OperationDeactivateAll, models.LevelGovernor, true},
		{"physical clear at governor", OperationClearAll, models.LevelGovernor, false},
		{"physical clear at admin", OperationClearAll, models.LevelAdmin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.level, tt.op)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrPermissionDenied))
			}
		})
	}
}

func TestAuthorize_UnknownOperationAlwaysDenied(t *testing.T) {
	gate := NewAccessGate(nil)

	err := gate.Authorize(models.LevelAdmin, Operation("drop_tables"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
}

func TestAuthorize_DenialCarriesContext(t *testing.T) {
	gate := NewAccessGate(nil)

	err := gate.Authorize(models.LevelOfficer, OperationImport)
	require.Error(t, err)

	var denial *PermissionError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, OperationImport, denial.Operation)
	assert.Equal(t, models.LevelGovernor, denial.Required)
	assert.Equal(t, models.LevelOfficer, denial.Actual)
	assert.Contains(t, err.Error(), "security level 4")
}

func TestNewAccessGate_CopiesPolicy(t *testing.T) {
	policy := GatePolicy{OperationImport: models.LevelMember}
	gate := NewAccessGate(policy)

	// Mutating the argument after construction must not loosen the gate.
	policy[OperationImport] = models.LevelGuest
	policy[OperationClearAll] = models.LevelGuest

	assert.NoError(t, gate.Authorize(models.LevelMember, OperationImport))
	assert.Error(t, gate.Authorize(models.LevelGuest, OperationImport))
	assert.Error(t, gate.Authorize(models.LevelGuest, OperationClearAll))
}

func TestRequiredLevel(t *testing.T) {
	gate := NewAccessGate(nil)

	level, ok := gate.RequiredLevel(OperationClearAll)
	require.True(t, ok)
	assert.Equal(t, models.LevelAdmin, level)

	_, ok = gate.RequiredLevel(Operation("unknown"))
	assert.False(t, ok)
}

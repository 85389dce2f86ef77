package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/aeroclub/membership-backend/internal/models"
)

func newTestNormalizer(policy *models.RolePolicy) *Normalizer {
	if policy == nil {
		policy = models.DefaultRolePolicy()
	}
	return NewNormalizer(policy, NewKeyAssigner(""), "roster_export")
}

func TestNormalize_FullRecord(t *testing.T) {
	n := newTestNormalizer(nil)

	raw := models.RawRosterRecord{
		"membership_number": "1042",
		"name":              "Lindbergh, Charles",
		"nickname":          "Slim",
		"status":            "A",
		"email":             "charles@example.com",
		"email2":            "backup@example.com",
		"phone":             "(802) 555-1234 (C)",
		"phone2":            "(802) 555-9876 (H)",
		"street":            "1 Hangar Rd",
		"city":              "Burlington",
		"state":             "VT",
		"emergency_name":    "Anne Lindbergh",
		"emergency_phone":   "(802) 555-0000",
		"inducting_hangar":  "Green Mountain",
		"induction_date":    "1990-06-15",
		"sponsor1":          "R. Byrd",
		"sponsor2":          "",
		"sponsor3":          "A. Earhart",
		"certificate_number": "12345",
		"certified_hours":    "2500",
		"subscription_expiry": "2099-01-01",
	}

	m := n.Normalize(raw)

	assert.Equal(t, "member_1042", m.ExternalKey)
	assert.Equal(t, "1042", m.MembershipNumber)
	assert.Equal(t, "Lindbergh, Charles", m.FullName)
	assert.Equal(t, "Charles", m.FirstName)
	assert.Equal(t, "Lindbergh", m.LastName)
	assert.Equal(t, `Charles "Slim" Lindbergh`, m.DisplayName)

	assert.Equal(t, models.StatusActive, m.Status)
	assert.True(t, m.IsActive)
	assert.Equal(t, models.RoleMember, m.Role)
	assert.Equal(t, models.LevelMember, m.SecurityLevel)

	// Trailing line annotations are stripped, the number is untouched.
	assert.Equal(t, "(802) 555-1234", m.Phone)
	assert.Equal(t, "(802) 555-9876", m.SecondaryPhone)

	// Interior empty sponsor slots survive, trailing ones are dropped.
	assert.Equal(t, []string{"R. Byrd", "", "A. Earhart"}, []string(m.Sponsors))

	assert.Equal(t, models.SubscriptionActive, m.SubscriptionStatus)
	assert.Equal(t, "roster_export", m.ImportSource)
	assert.Equal(t, "roster_import", m.CreatedBy)
	assert.True(t, m.ImportedAt.Valid)
}

func TestNormalize_EmptyRecordNeverFails(t *testing.T) {
	n := newTestNormalizer(nil)

	m := n.Normalize(models.RawRosterRecord{})

	assert.Equal(t, "member_", m.ExternalKey)
	assert.Empty(t, m.MembershipNumber)
	assert.Equal(t, models.StatusUnknown, m.Status)
	assert.False(t, m.IsActive)
	assert.Equal(t, models.RoleGuest, m.Role)
	assert.Equal(t, models.LevelGuest, m.SecurityLevel)
	assert.Equal(t, models.SubscriptionExpired, m.SubscriptionStatus)
	assert.Empty(t, m.Sponsors)
	assert.False(t, m.HasRequiredFields())
}

func TestNormalize_StatusMapping(t *testing.T) {
	n := newTestNormalizer(nil)

	tests := []struct {
		raw      string
		expected models.MemberStatus
	}{
		{"A", models.StatusActive},
		{"a", models.StatusActive},
		{"Active", models.StatusActive},
		{"I", models.StatusInactive},
		{"inactive", models.StatusInactive},
		{"", models.StatusUnknown},
		{"resigned", models.StatusUnknown},
		{" A ", models.StatusActive},
	}

	for _, tt := range tests {
		t.Run("status "+tt.raw, func(t *testing.T) {
			m := n.Normalize(models.RawRosterRecord{"status": tt.raw})
			assert.Equal(t, tt.expected, m.Status)
		})
	}
}

func TestNormalize_LeadershipOverride(t *testing.T) {
	policy := models.DefaultRolePolicy().WithOverrides(map[string]models.Role{
		"77": models.RoleGovernor,
	})
	n := newTestNormalizer(policy)

	governor := n.Normalize(models.RawRosterRecord{
		"membership_number": "77",
		"status":            "A",
	})
	assert.Equal(t, models.RoleGovernor, governor.Role)
	assert.Equal(t, models.LevelGovernor, governor.SecurityLevel)

	// The override binds to the number, not the status.
	inactive := n.Normalize(models.RawRosterRecord{
		"membership_number": "77",
		"status":            "I",
	})
	assert.Equal(t, models.RoleGovernor, inactive.Role)

	regular := n.Normalize(models.RawRosterRecord{
		"membership_number": "78",
		"status":            "A",
	})
	assert.Equal(t, models.RoleMember, regular.Role)
}

func TestNormalize_NumericMembershipNumber(t *testing.T) {
	n := newTestNormalizer(nil)

	// JSON decoding turns spreadsheet numbers into float64.
	m := n.Normalize(models.RawRosterRecord{"membership_number": float64(1042)})
	assert.Equal(t, "1042", m.MembershipNumber)
	assert.Equal(t, "member_1042", m.ExternalKey)
}

func TestNormalize_AlternateColumnNames(t *testing.T) {
	n := newTestNormalizer(nil)

	m := n.Normalize(models.RawRosterRecord{
		"qb_number": "55",
		"full_name": "Earhart, Amelia",
		"handle":    "AE",
	})

	assert.Equal(t, "55", m.MembershipNumber)
	assert.Equal(t, "Amelia", m.FirstName)
	assert.Equal(t, "Earhart", m.LastName)
	assert.Equal(t, "AE", m.Nickname)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
	}{
		{"Lindbergh, Charles", "Charles", "Lindbergh"},
		{"  Doe ,  Jane  ", "Jane", "Doe"},
		{"Amelia Earhart", "Amelia", "Earhart"},
		{"Juan Manuel Fangio", "Juan", "Manuel Fangio"},
		{"Cher", "Cher", ""},
		{"", "", ""},
		{"   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.name)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, `Charles "Slim" Lindbergh`, DisplayName("Charles", "Slim", "Lindbergh"))
	assert.Equal(t, "Charles", DisplayName("Charles", "", "Lindbergh"))
	assert.Equal(t, `"Ace" Jones`, DisplayName("", "Ace", "Jones"))
}

func TestNormalize_SubscriptionExpiry(t *testing.T) {
	n := newTestNormalizer(nil)

	tests := []struct {
		expiry   string
		expected models.SubscriptionStatus
	}{
		{"2099-01-01", models.SubscriptionActive},
		{"01/01/2099", models.SubscriptionActive},
		{"2001-01-01", models.SubscriptionExpired},
		{"", models.SubscriptionExpired},
		{"whenever", models.SubscriptionExpired},
	}

	for _, tt := range tests {
		t.Run("expiry "+tt.expiry, func(t *testing.T) {
			m := n.Normalize(models.RawRosterRecord{"subscription_expiry": tt.expiry})
			assert.Equal(t, tt.expected, m.SubscriptionStatus)
		})
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	n := newTestNormalizer(nil)
	raw := models.RawRosterRecord{
		"membership_number": "9",
		"name":              "Doe, Jane",
		"status":            "A",
	}

	first := n.Normalize(raw)
	second := n.Normalize(raw)

	require.Equal(t, first.ExternalKey, second.ExternalKey)
	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, first.Role, second.Role)
}

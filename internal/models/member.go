package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// MemberStatus is the canonical membership status
type MemberStatus string

const (
	StatusActive   MemberStatus = "active"
	StatusInactive MemberStatus = "inactive"
	StatusUnknown  MemberStatus = "unknown"
)

// SubscriptionStatus reflects whether the magazine subscription is current
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// MaxSponsors is the number of sponsor slots on a roster record.
// The exported roster always carries five columns; empty slots stay empty.
const MaxSponsors = 5

// MemberProfile is the canonical, store-resident representation of one member.
// It is produced by the normalizer from a raw roster record and optionally
// merged with an identity record from the authentication subsystem.
type MemberProfile struct {
	// ExternalKey is the upsert target in the document store. It is a pure
	// function of MembershipNumber and must never be derived from anything
	// mutable; that is what makes repeated imports idempotent.
	ExternalKey      string `json:"external_key" db:"external_key"`
	MembershipNumber string `json:"membership_number" db:"membership_number"`

	// Name fields. FullName keeps the roster's "Last, First" form verbatim.
	FullName    string `json:"full_name" db:"full_name"`
	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	Nickname    string `json:"nickname" db:"nickname"`
	DisplayName string `json:"display_name" db:"display_name"`

	Status   MemberStatus `json:"status" db:"status"`
	IsActive bool         `json:"is_active" db:"is_active"` // derived, see Canonicalize

	// Contact
	Email          string `json:"email" db:"email"`
	SecondaryEmail string `json:"secondary_email" db:"secondary_email"`
	Phone          string `json:"phone" db:"phone"`
	SecondaryPhone string `json:"secondary_phone" db:"secondary_phone"`

	// Address
	Street string `json:"street" db:"street"`
	City   string `json:"city" db:"city"`
	State  string `json:"state" db:"state"`

	// Emergency contact
	EmergencyName         string `json:"emergency_name" db:"emergency_name"`
	EmergencyPhone        string `json:"emergency_phone" db:"emergency_phone"`
	EmergencyEmail        string `json:"emergency_email" db:"emergency_email"`
	EmergencyRelationship string `json:"emergency_relationship" db:"emergency_relationship"`

	// Membership metadata. Date fields stay verbatim roster strings; the
	// export is not consistent enough to parse without losing information.
	InductingHangar string         `json:"inducting_hangar" db:"inducting_hangar"`
	InductionDate   string         `json:"induction_date" db:"induction_date"`
	DateOfBirth     string         `json:"date_of_birth" db:"date_of_birth"`
	Sponsors        pq.StringArray `json:"sponsors" db:"sponsors"`
	GoneWestDate    string         `json:"gone_west_date" db:"gone_west_date"`

	// Aviation metadata
	CertificateNumber string `json:"certificate_number" db:"certificate_number"`
	CertifiedHours    string `json:"certified_hours" db:"certified_hours"`
	FirstSoloDate     string `json:"first_solo_date" db:"first_solo_date"`
	FirstSoloLocation string `json:"first_solo_location" db:"first_solo_location"`

	// Magazine subscription
	SubscriptionExpiry string             `json:"subscription_expiry" db:"subscription_expiry"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"` // derived

	// Authorization. SecurityLevel is always recomputed from Role via the
	// role policy, never read from input.
	Role          Role `json:"role" db:"role"`
	SecurityLevel int  `json:"security_level" db:"security_level"`

	// Identity linkage, populated only after reconciliation with an
	// authentication-origin record.
	IdentityID    string   `json:"identity_id,omitempty" db:"identity_id"`
	PhotoURL      string   `json:"photo_url,omitempty" db:"photo_url"`
	EmailVerified bool     `json:"email_verified" db:"email_verified"`
	LastLoginAt   NullTime `json:"last_login_at,omitempty" db:"last_login_at"`

	// Provenance
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy    string    `json:"created_by" db:"created_by"`
	UpdatedBy    string    `json:"updated_by" db:"updated_by"`
	ImportSource string    `json:"import_source" db:"import_source"`
	ImportedAt   NullTime  `json:"imported_at,omitempty" db:"imported_at"`
}

// Canonicalize recomputes every derived field from its source field. It runs
// after any mutation of Status, Role or SubscriptionExpiry so the derived
// values can never drift (they are not independently settable anywhere else).
func (m *MemberProfile) Canonicalize(policy *RolePolicy, now time.Time) {
	m.IsActive = m.Status == StatusActive
	m.SecurityLevel = policy.LevelFor(m.Role)
	m.SubscriptionStatus = SubscriptionStatusFor(m.SubscriptionExpiry, now)
}

// HasRequiredFields reports whether the record carries the fields the
// integrity verifier treats as mandatory.
func (m *MemberProfile) HasRequiredFields() bool {
	return m.MembershipNumber != "" && m.FirstName != "" && m.LastName != ""
}

// subscriptionDateLayouts are the date shapes seen in roster exports.
var subscriptionDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
}

// SubscriptionStatusFor derives the subscription status from the raw expiry
// string. Unparsable or empty expiries count as expired; the roster is the
// only source for this field and absence means the subscription lapsed.
func SubscriptionStatusFor(expiry string, now time.Time) SubscriptionStatus {
	if expiry == "" {
		return SubscriptionExpired
	}
	for _, layout := range subscriptionDateLayouts {
		if t, err := time.Parse(layout, expiry); err == nil {
			if t.Before(now) {
				return SubscriptionExpired
			}
			return SubscriptionActive
		}
	}
	return SubscriptionExpired
}

package services

import (
	"time"

	"github.com/aeroclub/membership-backend/internal/models"
)

// MergedSource is the provenance tag on reconciled profiles, so auditing
// can tell pure-roster records from identity-merged ones.
const MergedSource = "merged"

// Reconciler merges a roster-origin profile with an identity record created
// by the authentication subsystem for the same person. It is a total
// function over its inputs: no identity record means the roster profile
// passes through untouched. Looking the identity record up is the caller's
// job; precedence is the reconciler's.
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// Merge applies the fixed precedence rules field by field:
//
//   - identity-origin fields (identity id, verified email, photo, last
//     login) always win; authentication is authoritative for them
//   - roster-origin structural fields (address, emergency contact,
//     sponsorship, aviation metadata) always come from the roster, which is
//     the only source that has them
//   - CreatedAt keeps the older of the two records; UpdatedAt is refreshed
func (r *Reconciler) Merge(roster *models.MemberProfile, identity *models.IdentityRecord) *models.MemberProfile {
	if identity == nil {
		return roster
	}

	merged := *roster

	merged.IdentityID = identity.IdentityID
	merged.PhotoURL = identity.PhotoURL
	merged.EmailVerified = identity.EmailVerified
	merged.LastLoginAt = identity.LastLoginAt
	if identity.Email != "" {
		merged.Email = identity.Email
	}

	if !identity.CreatedAt.IsZero() && identity.CreatedAt.Before(merged.CreatedAt) {
		merged.CreatedAt = identity.CreatedAt
	}
	merged.UpdatedAt = r.now()
	merged.ImportSource = MergedSource

	return &merged
}

// IdentityFromProfile extracts the identity-origin fragment from an
// existing store record, for re-merging on a later import. Returns nil when
// the record carries no identity linkage.
func IdentityFromProfile(m *models.MemberProfile) *models.IdentityRecord {
	if m == nil || m.IdentityID == "" {
		return nil
	}
	// Only a verified email is identity-origin; an unverified one came
	// from the roster and must not shadow fresher roster data.
	email := ""
	if m.EmailVerified {
		email = m.Email
	}
	return &models.IdentityRecord{
		IdentityID:    m.IdentityID,
		Email:         email,
		EmailVerified: m.EmailVerified,
		PhotoURL:      m.PhotoURL,
		LastLoginAt:   m.LastLoginAt,
		CreatedAt:     m.CreatedAt,
	}
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/aeroclub/membership-backend/internal/models"
)

// MemberRepository is the document-store adapter for member profiles. The
// import pipeline only ever touches the members collection through batched
// atomic writes and full-collection reads; single-record mutation paths are
// reserved for the identity-linkage callbacks.
type MemberRepository struct {
	db DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db DB) *MemberRepository {
	return &MemberRepository{
		db: db,
	}
}

const memberColumns = `
	external_key, membership_number, full_name, first_name, last_name,
	nickname, display_name, status, is_active,
	email, secondary_email, phone, secondary_phone,
	street, city, state,
	emergency_name, emergency_phone, emergency_email, emergency_relationship,
	inducting_hangar, induction_date, date_of_birth, sponsors, gone_west_date,
	certificate_number, certified_hours, first_solo_date, first_solo_location,
	subscription_expiry, subscription_status,
	role, security_level,
	identity_id, photo_url, email_verified, last_login_at,
	created_at, updated_at, created_by, updated_by, import_source, imported_at`

// UpsertBatch writes one chunk of member profiles as a single atomic
// transaction, keyed on external_key. Either every record in the chunk
// commits or none does; the caller sequences chunks and handles failure.
func (r *MemberRepository) UpsertBatch(members []*models.MemberProfile) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}

	query := `
		INSERT INTO members (` + memberColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8::member_status, $9,
			$10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23, $24, $25,
			$26, $27, $28, $29,
			$30, $31,
			$32, $33,
			$34, $35, $36, $37,
			$38, $39, $40, $41, $42, $43
		)
		ON CONFLICT (external_key) DO UPDATE SET
			membership_number = EXCLUDED.membership_number,
			full_name = EXCLUDED.full_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			nickname = EXCLUDED.nickname,
			display_name = EXCLUDED.display_name,
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			email = EXCLUDED.email,
			secondary_email = EXCLUDED.secondary_email,
			phone = EXCLUDED.phone,
			secondary_phone = EXCLUDED.secondary_phone,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			emergency_name = EXCLUDED.emergency_name,
			emergency_phone = EXCLUDED.emergency_phone,
			emergency_email = EXCLUDED.emergency_email,
			emergency_relationship = EXCLUDED.emergency_relationship,
			inducting_hangar = EXCLUDED.inducting_hangar,
			induction_date = EXCLUDED.induction_date,
			date_of_birth = EXCLUDED.date_of_birth,
			sponsors = EXCLUDED.sponsors,
			gone_west_date = EXCLUDED.gone_west_date,
			certificate_number = EXCLUDED.certificate_number,
			certified_hours = EXCLUDED.certified_hours,
			first_solo_date = EXCLUDED.first_solo_date,
			first_solo_location = EXCLUDED.first_solo_location,
			subscription_expiry = EXCLUDED.subscription_expiry,
			subscription_status = EXCLUDED.subscription_status,
			role = EXCLUDED.role,
			security_level = EXCLUDED.security_level,
			identity_id = EXCLUDED.identity_id,
			photo_url = EXCLUDED.photo_url,
			email_verified = EXCLUDED.email_verified,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by,
			import_source = EXCLUDED.import_source,
			imported_at = EXCLUDED.imported_at
	`

	for _, m := range members {
		_, err := tx.Exec(
			query,
			m.ExternalKey, m.MembershipNumber, m.FullName, m.FirstName, m.LastName,
			m.Nickname, m.DisplayName, m.Status, m.IsActive,
			m.Email, m.SecondaryEmail, m.Phone, m.SecondaryPhone,
			m.Street, m.City, m.State,
			m.EmergencyName, m.EmergencyPhone, m.EmergencyEmail, m.EmergencyRelationship,
			m.InductingHangar, m.InductionDate, m.DateOfBirth, pq.Array(m.Sponsors), m.GoneWestDate,
			m.CertificateNumber, m.CertifiedHours, m.FirstSoloDate, m.FirstSoloLocation,
			m.SubscriptionExpiry, m.SubscriptionStatus,
			m.Role, m.SecurityLevel,
			m.IdentityID, m.PhotoURL, m.EmailVerified, m.LastLoginAt,
			m.CreatedAt, m.UpdatedAt, m.CreatedBy, m.UpdatedBy, m.ImportSource, m.ImportedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert member %s: %w", m.ExternalKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// GetByExternalKey retrieves one member by external key
func (r *MemberRepository) GetByExternalKey(key string) (*models.MemberProfile, error) {
	var member models.MemberProfile

	query := `SELECT ` + memberColumns + ` FROM members WHERE external_key = $1`

	err := r.db.Get(&member, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Member not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get member by external key: %w", err)
	}

	return &member, nil
}

// ListAll reads the entire members collection, ordered by membership number
// for stable exports and audits.
func (r *MemberRepository) ListAll() ([]*models.MemberProfile, error) {
	var members []*models.MemberProfile

	query := `SELECT ` + memberColumns + ` FROM members ORDER BY membership_number`

	err := r.db.Select(&members, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// DeleteAll physically removes every member record. Destructive and
// irreversible; callers must clear it through the access gate first.
func (r *MemberRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM members`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete members: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// DeactivateAll performs the logical clear: every record is marked inactive
// but nothing is removed.
func (r *MemberRepository) DeactivateAll(updatedBy string) (int64, error) {
	query := `
		UPDATE members
		SET status = $1::member_status,
		    is_active = false,
		    updated_at = $2,
		    updated_by = $3
	`

	result, err := r.db.Exec(query, models.StatusInactive, time.Now(), updatedBy)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate members: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// CountMembers returns the total number of member records
func (r *MemberRepository) CountMembers() (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM members`

	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

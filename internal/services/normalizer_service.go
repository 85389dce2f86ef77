package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/aeroclub/membership-backend/internal/models"
	"github.com/aeroclub/membership-backend/pkg/validator"
)

// Normalizer turns one raw roster record into a canonical member profile.
// It is a pure mapping with no I/O and no failure mode: every missing or
// malformed field defaults to an empty value instead of erroring, because a
// single bad row must never block the rest of the batch.
type Normalizer struct {
	policy *models.RolePolicy
	keys   *KeyAssigner
	phones *validator.PhoneCleaner
	source string
	now    func() time.Time
}

// NewNormalizer creates a normalizer over an explicit role policy and key
// assigner. source is the provenance tag stamped on every profile.
func NewNormalizer(policy *models.RolePolicy, keys *KeyAssigner, source string) *Normalizer {
	if source == "" {
		source = "roster_export"
	}
	return &Normalizer{
		policy: policy,
		keys:   keys,
		phones: validator.NewPhoneCleaner(),
		source: source,
		now:    time.Now,
	}
}

// Normalize maps a raw roster record to a canonical profile.
func (n *Normalizer) Normalize(raw models.RawRosterRecord) *models.MemberProfile {
	now := n.now()

	number := raw.String("membership_number", "qb_number", "number")
	fullName := raw.String("name", "full_name")
	firstName, lastName := SplitName(fullName)
	nickname := raw.String("nickname", "handle")

	m := &models.MemberProfile{
		ExternalKey:      n.keys.KeyFor(number),
		MembershipNumber: strings.TrimSpace(number),
		FullName:         fullName,
		FirstName:        firstName,
		LastName:         lastName,
		Nickname:         nickname,
		DisplayName:      DisplayName(firstName, nickname, lastName),
		Status:           statusFrom(raw.String("status")),

		Email:          raw.String("email"),
		SecondaryEmail: raw.String("email2", "secondary_email"),
		Phone:          n.phones.Clean(raw.String("phone")),
		SecondaryPhone: n.phones.Clean(raw.String("phone2", "secondary_phone")),

		Street: raw.String("street", "address"),
		City:   raw.String("city"),
		State:  raw.String("state"),

		EmergencyName:         raw.String("emergency_name", "emergency_contact"),
		EmergencyPhone:        n.phones.Clean(raw.String("emergency_phone")),
		EmergencyEmail:        raw.String("emergency_email"),
		EmergencyRelationship: raw.String("emergency_relationship", "emergency_relation"),

		InductingHangar: raw.String("inducting_hangar", "hangar"),
		InductionDate:   raw.String("induction_date", "inducted"),
		DateOfBirth:     raw.String("date_of_birth", "birth_date"),
		Sponsors:        sponsorsFrom(raw),
		GoneWestDate:    raw.String("gone_west_date", "gone_west"),

		CertificateNumber: raw.String("certificate_number", "certificate"),
		CertifiedHours:    raw.String("certified_hours", "hours"),
		FirstSoloDate:     raw.String("first_solo_date"),
		FirstSoloLocation: raw.String("first_solo_location", "first_solo_place"),

		SubscriptionExpiry: raw.String("subscription_expiry", "magazine_expiry"),

		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "roster_import",
		UpdatedBy:    "roster_import",
		ImportSource: n.source,
		ImportedAt:   nullTime(now),
	}

	m.Role = n.roleFor(m.MembershipNumber, m.Status)
	m.Canonicalize(n.policy, now)

	return m
}

// roleFor derives the role: a configured leadership override for the
// membership number wins, otherwise the status maps to a default. Leadership
// is never inferred from free text.
func (n *Normalizer) roleFor(membershipNumber string, status models.MemberStatus) models.Role {
	if role, ok := n.policy.OverrideFor(membershipNumber); ok {
		return role
	}
	switch status {
	case models.StatusActive, models.StatusInactive:
		return models.RoleMember
	default:
		return models.RoleGuest
	}
}

// SplitName splits a roster name into (first, last). The export's usual
// form is "Last, First"; without a comma the first whitespace token is the
// first name and the remainder the last name; a single bare token becomes
// the first name with an empty last name.
func SplitName(name string) (firstName, lastName string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ""
	}

	if comma := strings.Index(trimmed, ","); comma >= 0 {
		lastName = strings.TrimSpace(trimmed[:comma])
		firstName = strings.TrimSpace(trimmed[comma+1:])
		return firstName, lastName
	}

	fields := strings.Fields(trimmed)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// DisplayName synthesizes the display form: `First "Nickname" Last` when a
// nickname is present, otherwise the bare first name.
func DisplayName(firstName, nickname, lastName string) string {
	if nickname == "" {
		return firstName
	}
	return strings.TrimSpace(fmt.Sprintf("%s %q %s", firstName, nickname, lastName))
}

func statusFrom(raw string) models.MemberStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", "active":
		return models.StatusActive
	case "i", "inactive":
		return models.StatusInactive
	default:
		return models.StatusUnknown
	}
}

// sponsorsFrom collects the sponsor columns in order. Interior empty slots
// are preserved (slot position is meaningful on the roster); trailing empty
// slots are dropped.
func sponsorsFrom(raw models.RawRosterRecord) []string {
	sponsors := make([]string, 0, models.MaxSponsors)
	for i := 1; i <= models.MaxSponsors; i++ {
		sponsors = append(sponsors, raw.String(fmt.Sprintf("sponsor%d", i)))
	}
	for len(sponsors) > 0 && sponsors[len(sponsors)-1] == "" {
		sponsors = sponsors[:len(sponsors)-1]
	}
	return sponsors
}

func nullTime(t time.Time) models.NullTime {
	nt := models.NullTime{}
	nt.Time = t
	nt.Valid = true
	return nt
}

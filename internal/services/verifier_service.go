package services

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/models"
)

// Verifier audits the whole member collection after an import: counts,
// missing required fields, and duplicate membership numbers. It never
// mutates and is safe to call at any time, independent of import state.
type Verifier struct {
	store  MemberStore
	logger *logrus.Logger
}

// NewVerifier creates a new Verifier
func NewVerifier(store MemberStore, logger *logrus.Logger) *Verifier {
	return &Verifier{
		store:  store,
		logger: logger,
	}
}

// Verify re-reads every record in the store and computes the verification
// report. Duplicates are detected on membership number, not on the external
// key: keys cannot collide by construction, so a duplicate number means the
// roster itself (or legacy data) carries a data-entry error. Drift is
// returned as data, never as an error.
func (v *Verifier) Verify() (*models.VerificationReport, error) {
	members, err := v.store.ListAll()
	if err != nil {
		return nil, err
	}

	report := &models.VerificationReport{
		DuplicateKeys: []string{},
	}
	seen := make(map[string]int, len(members))

	for _, m := range members {
		report.TotalMembers++
		if m.IsActive {
			report.ActiveMembers++
		}
		if m.Email != "" {
			report.WithEmail++
		}
		if m.Phone != "" {
			report.WithPhone++
		}
		if !m.HasRequiredFields() {
			report.MissingRequiredFields++
		}
		if m.MembershipNumber != "" {
			seen[m.MembershipNumber]++
		}
	}

	for number, count := range seen {
		if count > 1 {
			report.DuplicateKeys = append(report.DuplicateKeys, number)
		}
	}
	sort.Strings(report.DuplicateKeys)

	if !report.Clean() {
		v.logger.WithFields(logrus.Fields{
			"duplicates":      len(report.DuplicateKeys),
			"missing_fields":  report.MissingRequiredFields,
			"total":           report.TotalMembers,
		}).Warn("Verification found drift")
	}

	return report, nil
}

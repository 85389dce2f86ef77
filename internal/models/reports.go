package models

import "time"

// StatisticsSummary aggregates counts over one processed roster batch.
// It is derived, read-only, and recomputed on every run.
type StatisticsSummary struct {
	Total                int            `json:"total"`
	Active               int            `json:"active"`
	Inactive             int            `json:"inactive"`
	WithEmail            int            `json:"with_email"`
	WithPhone            int            `json:"with_phone"`
	WithEmergencyContact int            `json:"with_emergency_contact"`
	ByRole               map[string]int `json:"by_role"`
	BySubscription       map[string]int `json:"by_subscription"`
}

// NewStatisticsSummary returns an empty summary with histograms allocated.
func NewStatisticsSummary() *StatisticsSummary {
	return &StatisticsSummary{
		ByRole:         make(map[string]int),
		BySubscription: make(map[string]int),
	}
}

// Observe folds one profile into the summary.
func (s *StatisticsSummary) Observe(m *MemberProfile) {
	s.Total++
	if m.IsActive {
		s.Active++
	} else {
		s.Inactive++
	}
	if m.Email != "" {
		s.WithEmail++
	}
	if m.Phone != "" {
		s.WithPhone++
	}
	if m.EmergencyName != "" || m.EmergencyPhone != "" {
		s.WithEmergencyContact++
	}
	s.ByRole[string(m.Role)]++
	s.BySubscription[string(m.SubscriptionStatus)]++
}

// ProgressStage identifies which pipeline stage a progress event reports.
type ProgressStage string

const (
	StageProcessing ProgressStage = "processing"
	StageUploading  ProgressStage = "uploading"
	StageCompleted  ProgressStage = "completed"
	StageError      ProgressStage = "error"
)

// ProgressEvent is emitted synchronously to the caller-supplied sink at each
// stage boundary. It is purely informational and never affects control flow.
type ProgressEvent struct {
	Stage     ProgressStage `json:"stage"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Message   string        `json:"message"`
}

// ProgressSink receives progress events. A panicking sink is contained by
// the emitter; it cannot abort an import run.
type ProgressSink func(ProgressEvent)

// ImportResult is the uniform outcome shape of one import run.
type ImportResult struct {
	Success          bool               `json:"success"`
	RunID            string             `json:"run_id,omitempty"`
	MembersProcessed int                `json:"members_processed"`
	Statistics       *StatisticsSummary `json:"statistics,omitempty"`
	Error            string             `json:"error,omitempty"`
	Message          string             `json:"message,omitempty"`
}

// VerificationReport is the post-import full-store audit. Duplicate
// detection runs on membership number, not the external key: keys cannot
// collide by construction, so duplicates here mean upstream data entry
// errors (or legacy records) in the roster itself.
type VerificationReport struct {
	TotalMembers          int      `json:"total_members"`
	ActiveMembers         int      `json:"active_members"`
	WithEmail             int      `json:"with_email"`
	WithPhone             int      `json:"with_phone"`
	MissingRequiredFields int      `json:"missing_required_fields"`
	DuplicateKeys         []string `json:"duplicate_keys"`
}

// Clean reports whether the audit found no drift. Drift is data for the
// caller, never an error.
func (r *VerificationReport) Clean() bool {
	return r.MissingRequiredFields == 0 && len(r.DuplicateKeys) == 0
}

// IdentityRecord is the profile fragment the authentication subsystem owns:
// everything here originates from a login flow, not from the roster.
type IdentityRecord struct {
	IdentityID    string    `json:"identity_id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	PhotoURL      string    `json:"photo_url"`
	LastLoginAt   NullTime  `json:"last_login_at"`
	CreatedAt     time.Time `json:"created_at"`
}

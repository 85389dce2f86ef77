package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/config"
	"github.com/aeroclub/membership-backend/internal/models"
)

// DefaultChunkSize is the number of members per atomic batch. The store
// caps a batch at 500 operations; 100 leaves headroom and bounds the blast
// radius of a failed chunk.
const DefaultChunkSize = 100

// ImportOptions controls one import run.
type ImportOptions struct {
	// Reconcile merges each incoming profile with any existing
	// identity-linked record for the same person before upserting.
	Reconcile bool

	// Actor is recorded as the auditing identity of the run.
	Actor string

	// OnProgress receives progress events synchronously at each stage
	// boundary. Optional; a panicking sink cannot abort the run.
	OnProgress models.ProgressSink
}

// ImportService orchestrates one import run: authorize, take the
// single-flight lock, process, optionally reconcile, then upsert in
// bounded atomic chunks, strictly in order, stopping on the first failed
// chunk. Committed chunks are never rolled back; the idempotent key scheme
// makes a full re-run the recovery path.
type ImportService struct {
	store      MemberStore
	roster     *RosterService
	reconciler *Reconciler
	gate       *AccessGate
	lock       ImportLock
	policy     *models.RolePolicy
	chunkSize  int
	logger     *logrus.Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	store MemberStore,
	roster *RosterService,
	reconciler *Reconciler,
	gate *AccessGate,
	lock ImportLock,
	policy *models.RolePolicy,
	cfg config.ImportConfig,
	logger *logrus.Logger,
) *ImportService {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if lock == nil {
		lock = NoopImportLock{}
	}
	return &ImportService{
		store:      store,
		roster:     roster,
		reconciler: reconciler,
		gate:       gate,
		lock:       lock,
		policy:     policy,
		chunkSize:  chunkSize,
		logger:     logger,
	}
}

// Import runs the full pipeline for one roster payload. The result shape is
// uniform: expected failures (denial, bad payload, failed chunk) come back
// as Success=false with an error code, never as a Go error.
func (s *ImportService) Import(callerLevel int, payload map[string]any, opts ImportOptions) *models.ImportResult {
	// Authorize before anything is read or written. A denied call emits
	// no progress events and touches no store state.
	if err := s.gate.Authorize(callerLevel, OperationImport); err != nil {
		importRunsTotal.WithLabelValues("denied").Inc()
		return &models.ImportResult{
			Success: false,
			Error:   "permission_denied",
			Message: err.Error(),
		}
	}

	release, err := s.lock.Acquire(context.Background())
	if err != nil {
		if errors.Is(err, ErrImportInProgress) {
			importRunsTotal.WithLabelValues("rejected").Inc()
			return &models.ImportResult{
				Success: false,
				Error:   "import_in_progress",
				Message: err.Error(),
			}
		}
		importRunsTotal.WithLabelValues("failed").Inc()
		return &models.ImportResult{
			Success: false,
			Error:   "lock_failed",
			Message: err.Error(),
		}
	}
	defer release()

	runID := uuid.NewString()
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "actor": opts.Actor})

	profiles, stats, err := s.roster.Process(payload)
	if err != nil {
		importRunsTotal.WithLabelValues("failed").Inc()
		emit(opts.OnProgress, models.ProgressEvent{
			Stage:   models.StageError,
			Message: err.Error(),
		})
		log.WithError(err).Warn("Import rejected: malformed payload")
		return &models.ImportResult{
			Success: false,
			RunID:   runID,
			Error:   "invalid_payload",
			Message: err.Error(),
		}
	}

	emit(opts.OnProgress, models.ProgressEvent{
		Stage:     models.StageProcessing,
		Processed: len(profiles),
		Total:     len(profiles),
		Message:   fmt.Sprintf("processed %d roster records", len(profiles)),
	})

	if opts.Reconcile {
		if err := s.reconcileAgainstStore(profiles); err != nil {
			importRunsTotal.WithLabelValues("failed").Inc()
			emit(opts.OnProgress, models.ProgressEvent{
				Stage:   models.StageError,
				Total:   len(profiles),
				Message: err.Error(),
			})
			log.WithError(err).Error("Import failed: identity reconciliation read")
			return &models.ImportResult{
				Success: false,
				RunID:   runID,
				Error:   "reconcile_failed",
				Message: err.Error(),
			}
		}
	}

	result := s.UpsertProfiles(profiles, opts.OnProgress)
	result.RunID = runID
	result.Statistics = stats

	if result.Success {
		importRunsTotal.WithLabelValues("completed").Inc()
		importRunDuration.Observe(time.Since(start).Seconds())
		log.WithFields(logrus.Fields{
			"members":  result.MembersProcessed,
			"duration": time.Since(start).String(),
		}).Info("Import completed")
	} else {
		importRunsTotal.WithLabelValues("failed").Inc()
		log.WithField("committed", result.MembersProcessed).Error("Import failed during upload")
	}

	return result
}

// UpsertProfiles writes the profiles in bounded chunks, one atomic batch
// per chunk, strictly in order. One uploading event per committed chunk, a
// completed event on full success, or an error event before returning on
// the first failed chunk. Already-committed chunks stay committed.
func (s *ImportService) UpsertProfiles(profiles []*models.MemberProfile, sink models.ProgressSink) *models.ImportResult {
	total := len(profiles)
	processed := 0
	batch := 0

	for processed < total {
		end := processed + s.chunkSize
		if end > total {
			end = total
		}
		chunk := profiles[processed:end]
		batch++

		if err := s.store.UpsertBatch(chunk); err != nil {
			importChunkFailures.Inc()
			commitErr := &BatchCommitError{Chunk: batch, Committed: processed, Err: err}
			emit(sink, models.ProgressEvent{
				Stage:     models.StageError,
				Processed: processed,
				Total:     total,
				Message:   commitErr.Error(),
			})
			return &models.ImportResult{
				Success:          false,
				MembersProcessed: processed,
				Error:            "batch_commit_failed",
				Message:          commitErr.Error(),
			}
		}

		processed = end
		importChunksCommitted.Inc()
		importMembersUpserted.Add(float64(len(chunk)))
		emit(sink, models.ProgressEvent{
			Stage:     models.StageUploading,
			Processed: processed,
			Total:     total,
			Message:   fmt.Sprintf("uploaded batch %d", batch),
		})
	}

	emit(sink, models.ProgressEvent{
		Stage:     models.StageCompleted,
		Processed: total,
		Total:     total,
		Message:   fmt.Sprintf("import completed: %d members", total),
	})

	return &models.ImportResult{
		Success:          true,
		MembersProcessed: total,
		Message:          fmt.Sprintf("imported %d members", total),
	}
}

// reconcileAgainstStore merges incoming profiles with existing
// identity-linked records for the same membership number. Profiles without
// a counterpart pass through unchanged.
func (s *ImportService) reconcileAgainstStore(profiles []*models.MemberProfile) error {
	existing, err := s.store.ListAll()
	if err != nil {
		return fmt.Errorf("failed to read existing members: %w", err)
	}

	linked := make(map[string]*models.IdentityRecord, len(existing))
	for _, m := range existing {
		if identity := IdentityFromProfile(m); identity != nil {
			linked[m.MembershipNumber] = identity
		}
	}

	for i, profile := range profiles {
		if identity, ok := linked[profile.MembershipNumber]; ok {
			profiles[i] = s.reconciler.Merge(profile, identity)
		}
	}
	return nil
}

// ClearAll empties the member collection. destructive removes every record
// physically and requires the technical-admin level; otherwise records are
// marked inactive. Gated before any store access.
func (s *ImportService) ClearAll(callerLevel int, destructive bool, actor string) *models.ImportResult {
	op := OperationDeactivateAll
	if destructive {
		op = OperationClearAll
	}
	if err := s.gate.Authorize(callerLevel, op); err != nil {
		return &models.ImportResult{
			Success: false,
			Error:   "permission_denied",
			Message: err.Error(),
		}
	}

	var affected int64
	var err error
	if destructive {
		affected, err = s.store.DeleteAll()
	} else {
		affected, err = s.store.DeactivateAll(actor)
	}
	if err != nil {
		return &models.ImportResult{
			Success: false,
			Error:   "clear_failed",
			Message: err.Error(),
		}
	}

	s.logger.WithFields(logrus.Fields{
		"affected":    affected,
		"destructive": destructive,
		"actor":       actor,
	}).Warn("Member collection cleared")

	mode := "deactivated"
	if destructive {
		mode = "deleted"
	}
	return &models.ImportResult{
		Success:          true,
		MembersProcessed: int(affected),
		Message:          fmt.Sprintf("%s %d members", mode, affected),
	}
}

// ReassignRole changes one member's role. The security level is recomputed
// from the new role through the policy; it is never settable directly.
func (s *ImportService) ReassignRole(callerLevel int, externalKey string, role models.Role, actor string) error {
	if err := s.gate.Authorize(callerLevel, OperationReassignRoles); err != nil {
		return err
	}

	if !s.policy.KnownRole(role) {
		return fmt.Errorf("unknown role: %s", role)
	}

	member, err := s.store.GetByExternalKey(externalKey)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrMemberNotFound
	}

	member.Role = role
	member.UpdatedBy = actor
	member.UpdatedAt = time.Now()
	member.Canonicalize(s.policy, member.UpdatedAt)

	if err := s.store.UpsertBatch([]*models.MemberProfile{member}); err != nil {
		return fmt.Errorf("failed to persist role change: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"member": externalKey,
		"role":   role,
		"actor":  actor,
	}).Info("Member role reassigned")

	return nil
}

// emit delivers one progress event. The sink is caller-supplied and purely
// informational; a panic inside it is contained here so it cannot abort the
// run.
func emit(sink models.ProgressSink, event models.ProgressEvent) {
	if sink == nil {
		return
	}
	defer func() {
		recover()
	}()
	sink(event)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/aeroclub/membership-backend/internal/config"
	"github.com/aeroclub/membership-backend/internal/models"
)

// fakeStore is an in-memory MemberStore. failOnBatch makes the Nth
// UpsertBatch call fail before writing anything, matching the atomic
// all-or-nothing contract of a real batch.
type fakeStore struct {
	members     map[string]*models.MemberProfile
	order       []string
	upsertCalls int
	listCalls   int
	failOnBatch int
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: make(map[string]*models.MemberProfile)}
}

func (f *fakeStore) UpsertBatch(members []*models.MemberProfile) error {
	f.upsertCalls++
	if f.failOnBatch > 0 && f.upsertCalls == f.failOnBatch {
		return fmt.Errorf("store unavailable")
	}
	for _, m := range members {
		if _, exists := f.members[m.ExternalKey]; !exists {
			f.order = append(f.order, m.ExternalKey)
		}
		copied := *m
		f.members[m.ExternalKey] = &copied
	}
	return nil
}

func (f *fakeStore) ListAll() ([]*models.MemberProfile, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	result := make([]*models.MemberProfile, 0, len(f.order))
	for _, key := range f.order {
		result = append(result, f.members[key])
	}
	return result, nil
}

func (f *fakeStore) GetByExternalKey(key string) (*models.MemberProfile, error) {
	member, ok := f.members[key]
	if !ok {
		return nil, nil
	}
	return member, nil
}

func (f *fakeStore) DeleteAll() (int64, error) {
	count := int64(len(f.members))
	f.members = make(map[string]*models.MemberProfile)
	f.order = nil
	return count, nil
}

func (f *fakeStore) DeactivateAll(updatedBy string) (int64, error) {
	for _, m := range f.members {
		m.Status = models.StatusInactive
		m.IsActive = false
		m.UpdatedBy = updatedBy
	}
	return int64(len(f.members)), nil
}

func (f *fakeStore) CountMembers() (int, error) {
	return len(f.members), nil
}

func (f *fakeStore) totalCalls() int {
	return f.upsertCalls + f.listCalls
}

// failingLock always reports another run in flight.
type failingLock struct{}

func (failingLock) Acquire(ctx context.Context) (func(), error) {
	return nil, ErrImportInProgress
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestImportService(store MemberStore, chunkSize int, lock ImportLock) *ImportService {
	policy := models.DefaultRolePolicy()
	normalizer := NewNormalizer(policy, NewKeyAssigner(""), "roster_export")
	roster := NewRosterService(normalizer, testLogger())
	gate := NewAccessGate(DefaultGatePolicy())
	return NewImportService(
		store, roster, NewReconciler(), gate, lock, policy,
		config.ImportConfig{ChunkSize: chunkSize},
		testLogger(),
	)
}

func rosterPayload(numbers ...string) map[string]any {
	records := make([]any, 0, len(numbers))
	for _, number := range numbers {
		records = append(records, map[string]any{
			"membership_number": number,
			"name":              "Doe, John",
			"status":            "A",
			"email":             number + "@example.com",
		})
	}
	return map[string]any{"records": records}
}

func collectEvents(events *[]models.ProgressEvent) models.ProgressSink {
	return func(e models.ProgressEvent) {
		*events = append(*events, e)
	}
}

func TestImport_EmitsOneEventPerChunk(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})

	var events []models.ProgressEvent
	result := service.Import(models.LevelGovernor, rosterPayload("1", "2", "3", "4", "5"), ImportOptions{
		Actor:      "tester",
		OnProgress: collectEvents(&events),
	})

	require.True(t, result.Success)
	assert.Equal(t, 5, result.MembersProcessed)
	assert.NotEmpty(t, result.RunID)
	require.NotNil(t, result.Statistics)
	assert.Equal(t, 5, result.Statistics.Total)

	// processing, one uploading per chunk (2+2+1), completed
	require.Len(t, events, 5)
	assert.Equal(t, models.StageProcessing, events[0].Stage)
	assert.Equal(t, models.StageUploading, events[1].Stage)
	assert.Equal(t, 2, events[1].Processed)
	assert.Equal(t, models.StageUploading, events[2].Stage)
	assert.Equal(t, 4, events[2].Processed)
	assert.Equal(t, models.StageUploading, events[3].Stage)
	assert.Equal(t, 5, events[3].Processed)
	assert.Equal(t, models.StageCompleted, events[4].Stage)
	assert.Equal(t, 5, events[4].Processed)
	assert.Equal(t, 5, events[4].Total)
}

func TestImport_FailedChunkStopsRunKeepsPriorChunks(t *testing.T) {
	store := newFakeStore()
	store.failOnBatch = 2
	service := newTestImportService(store, 2, NoopImportLock{})

	var events []models.ProgressEvent
	result := service.Import(models.LevelGovernor, rosterPayload("1", "2", "3", "4", "5"), ImportOptions{
		OnProgress: collectEvents(&events),
	})

	require.False(t, result.Success)
	assert.Equal(t, "batch_commit_failed", result.Error)
	assert.Equal(t, 2, result.MembersProcessed)

	// First chunk stays committed; nothing past the failed chunk was
	// attempted.
	assert.Len(t, store.members, 2)
	assert.Equal(t, 2, store.upsertCalls)

	last := events[len(events)-1]
	assert.Equal(t, models.StageError, last.Stage)
	assert.Equal(t, 2, last.Processed)
}

func TestImport_DeniedCallerHasNoSideEffects(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})

	var events []models.ProgressEvent
	result := service.Import(models.LevelOfficer, rosterPayload("1", "2"), ImportOptions{
		OnProgress: collectEvents(&events),
	})

	require.False(t, result.Success)
	assert.Equal(t, "permission_denied", result.Error)
	assert.Empty(t, events)
	assert.Zero(t, store.totalCalls())
}

func TestImport_MalformedPayload(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"nil payload", nil},
		{"missing records", map[string]any{"batch": "x"}},
		{"records not a sequence", map[string]any{"records": "not-a-list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []models.ProgressEvent
			result := service.Import(models.LevelGovernor, tt.payload, ImportOptions{
				OnProgress: collectEvents(&events),
			})

			require.False(t, result.Success)
			assert.Equal(t, "invalid_payload", result.Error)
			require.Len(t, events, 1)
			assert.Equal(t, models.StageError, events[0].Stage)
			assert.Zero(t, store.upsertCalls)
		})
	}
}

func TestImport_LockHeldByAnotherRun(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, failingLock{})

	var events []models.ProgressEvent
	result := service.Import(models.LevelGovernor, rosterPayload("1"), ImportOptions{
		OnProgress: collectEvents(&events),
	})

	require.False(t, result.Success)
	assert.Equal(t, "import_in_progress", result.Error)
	assert.Empty(t, events)
	assert.Zero(t, store.totalCalls())
}

func TestImport_RerunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})
	payload := rosterPayload("100", "200", "300")

	first := service.Import(models.LevelGovernor, payload, ImportOptions{})
	require.True(t, first.Success)
	second := service.Import(models.LevelGovernor, payload, ImportOptions{})
	require.True(t, second.Success)

	assert.Len(t, store.members, 3)
	assert.Contains(t, store.members, "member_100")
	assert.Contains(t, store.members, "member_200")
	assert.Contains(t, store.members, "member_300")
}

func TestImport_PanickingSinkDoesNotAbortRun(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})

	result := service.Import(models.LevelGovernor, rosterPayload("1", "2", "3"), ImportOptions{
		OnProgress: func(models.ProgressEvent) {
			panic("sink exploded")
		},
	})

	require.True(t, result.Success)
	assert.Equal(t, 3, result.MembersProcessed)
	assert.Len(t, store.members, 3)
}

func TestImport_ReconcileMergesIdentityLinkedRecords(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 10, NoopImportLock{})

	// Seed an identity-linked record for membership number 42.
	seed := service.Import(models.LevelGovernor, rosterPayload("42"), ImportOptions{})
	require.True(t, seed.Success)
	existing := store.members["member_42"]
	existing.IdentityID = "auth-uid-42"
	existing.PhotoURL = "https://cdn.example.com/42.jpg"
	existing.Email = "verified@example.com"
	existing.EmailVerified = true

	result := service.Import(models.LevelGovernor, rosterPayload("42", "43"), ImportOptions{
		Reconcile: true,
	})
	require.True(t, result.Success)

	merged := store.members["member_42"]
	assert.Equal(t, "auth-uid-42", merged.IdentityID)
	assert.Equal(t, "https://cdn.example.com/42.jpg", merged.PhotoURL)
	assert.Equal(t, "verified@example.com", merged.Email)
	assert.True(t, merged.EmailVerified)
	assert.Equal(t, MergedSource, merged.ImportSource)

	// The record without identity linkage passes through untouched.
	plain := store.members["member_43"]
	assert.Empty(t, plain.IdentityID)
	assert.Equal(t, "roster_export", plain.ImportSource)
}

func TestUpsertProfiles_EmptyInput(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})

	var events []models.ProgressEvent
	result := service.UpsertProfiles(nil, collectEvents(&events))

	require.True(t, result.Success)
	assert.Zero(t, result.MembersProcessed)
	require.Len(t, events, 1)
	assert.Equal(t, models.StageCompleted, events[0].Stage)
	assert.Zero(t, store.upsertCalls)
}

func TestClearAll_GatedPerMode(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})
	seed := service.Import(models.LevelGovernor, rosterPayload("1", "2"), ImportOptions{})
	require.True(t, seed.Success)

	t.Run("destructive denied below admin", func(t *testing.T) {
		result := service.ClearAll(models.LevelGovernor, true, "gov")
		require.False(t, result.Success)
		assert.Equal(t, "permission_denied", result.Error)
		assert.Len(t, store.members, 2)
	})

	t.Run("logical clear allowed at governor", func(t *testing.T) {
		result := service.ClearAll(models.LevelGovernor, false, "gov")
		require.True(t, result.Success)
		assert.Equal(t, 2, result.MembersProcessed)
		for _, m := range store.members {
			assert.False(t, m.IsActive)
			assert.Equal(t, models.StatusInactive, m.Status)
		}
	})

	t.Run("destructive allowed at admin", func(t *testing.T) {
		result := service.ClearAll(models.LevelAdmin, true, "admin")
		require.True(t, result.Success)
		assert.Empty(t, store.members)
	})
}

func TestReassignRole(t *testing.T) {
	store := newFakeStore()
	service := newTestImportService(store, 2, NoopImportLock{})
	seed := service.Import(models.LevelGovernor, rosterPayload("7"), ImportOptions{})
	require.True(t, seed.Success)

	t.Run("denied below governor", func(t *testing.T) {
		err := service.ReassignRole(models.LevelOfficer, "member_7", models.RoleOfficer, "caller")
		assert.True(t, errors.Is(err, ErrPermissionDenied))
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		err := service.ReassignRole(models.LevelGovernor, "member_7", models.Role("wizard"), "caller")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})

	t.Run("missing member", func(t *testing.T) {
		err := service.ReassignRole(models.LevelGovernor, "member_999", models.RoleOfficer, "caller")
		assert.True(t, errors.Is(err, ErrMemberNotFound))
	})

	t.Run("security level follows role", func(t *testing.T) {
		err := service.ReassignRole(models.LevelGovernor, "member_7", models.RoleOfficer, "caller")
		require.NoError(t, err)

		updated := store.members["member_7"]
		assert.Equal(t, models.RoleOfficer, updated.Role)
		assert.Equal(t, models.LevelOfficer, updated.SecurityLevel)
		assert.Equal(t, "caller", updated.UpdatedBy)
	})
}

package note

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
	"github.com/hrygo/vectornotes/plugin/ai/vector"
	"github.com/hrygo/vectornotes/store"
	storetest "github.com/hrygo/vectornotes/store/test"
)

const testDimensions = 4

// stubEmbedder returns fixed vectors so ranking depends on vector math only.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   []string
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"Buy milk and eggs":    {1, 0.1, 0, 0},
		"grocery shopping":     {0.9, 0.2, 0, 0},
		"Fix the car engine":   {0, 1, 0, 0},
		"car repair":           {0.1, 0.9, 0, 0},
		"Plan summer vacation": {0, 0, 1, 0},
	}}
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (e *stubEmbedder) Dimensions() int { return testDimensions }
func (e *stubEmbedder) Model() string   { return "stub" }

func (e *stubEmbedder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// faultyIndex fails selected calls of a MemoryIndex.
type faultyIndex struct {
	*vector.MemoryIndex
	upsertErr error
	deleteErr error
}

func (i *faultyIndex) Upsert(ctx context.Context, id, userID string, v []float32) error {
	if i.upsertErr != nil {
		return i.upsertErr
	}
	return i.MemoryIndex.Upsert(ctx, id, userID, v)
}

func (i *faultyIndex) Delete(ctx context.Context, id string) error {
	if i.deleteErr != nil {
		return i.deleteErr
	}
	return i.MemoryIndex.Delete(ctx, id)
}

// faultyStore fails tombstone writes.
type faultyStore struct {
	*store.Store
	tombstoneErr error
}

func (s *faultyStore) CreateVectorTombstone(ctx context.Context, create *store.VectorTombstone) error {
	if s.tombstoneErr != nil {
		return s.tombstoneErr
	}
	return s.Store.CreateVectorTombstone(ctx, create)
}

type testEnv struct {
	ctx      context.Context
	store    *faultyStore
	embedder *stubEmbedder
	index    *faultyIndex
	service  *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := &faultyStore{Store: storetest.NewTestingStore(ctx, t)}
	embedder := newStubEmbedder()
	index := &faultyIndex{MemoryIndex: vector.NewMemoryIndex(testDimensions)}
	return &testEnv{
		ctx:      ctx,
		store:    st,
		embedder: embedder,
		index:    index,
		service:  NewService(st, embedder, index),
	}
}

func newUserID() string {
	return uuid.NewString()
}

func noteIDs(list []*store.Note) []string {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.ID)
	}
	return ids
}

func (env *testEnv) mustCreate(t *testing.T, userID, content string, tags ...string) *store.Note {
	t.Helper()
	note, err := env.service.Create(env.ctx, userID, &CreateNote{Content: content, Tags: tags})
	require.NoError(t, err)
	return note
}

func TestService_CreateAndSearchScenario(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	note := env.mustCreate(t, user, "Buy milk and eggs")
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Buy milk and eggs", note.Title)
	assert.Equal(t, []string{}, note.Tags)
	assert.True(t, env.index.Has(note.ID))

	stored, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.False(t, stored.IsIndexPending())

	env.mustCreate(t, user, "Fix the car engine")
	env.mustCreate(t, user, "Plan summer vacation")

	results, err := env.service.Search(env.ctx, user, "grocery shopping", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, note.ID, results[0].ID)
}

func TestService_SearchOwnContentRanksFirst(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	contents := []string{"Buy milk and eggs", "Fix the car engine", "Plan summer vacation"}
	notes := map[string]*store.Note{}
	for _, content := range contents {
		notes[content] = env.mustCreate(t, user, content)
	}

	for _, content := range contents {
		results, err := env.service.Search(env.ctx, user, content, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, notes[content].ID, results[0].ID, content)
	}
}

func TestService_SearchRankingOrder(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	car := env.mustCreate(t, user, "Fix the car engine")
	milk := env.mustCreate(t, user, "Buy milk and eggs")
	vacation := env.mustCreate(t, user, "Plan summer vacation")

	results, err := env.service.Search(env.ctx, user, "car repair", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{car.ID, milk.ID, vacation.ID}, noteIDs(results))

	results, err = env.service.Search(env.ctx, user, "car repair", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{car.ID, milk.ID}, noteIDs(results))
}

func TestService_UserIsolation(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newUserID(), newUserID()

	aliceNote := env.mustCreate(t, alice, "Plan summer vacation")
	bobNote := env.mustCreate(t, bob, "Buy milk and eggs")

	results, err := env.service.Search(env.ctx, alice, "grocery shopping", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{aliceNote.ID}, noteIDs(results))

	list, err := env.service.List(env.ctx, alice, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{aliceNote.ID}, noteIDs(list))

	_, err = env.service.Get(env.ctx, bobNote.ID, alice)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = env.service.Update(env.ctx, bobNote.ID, alice, &UpdateNote{Content: strPtr("stolen")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	deleted, err := env.service.Delete(env.ctx, bobNote.ID, alice)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, env.index.Has(bobNote.ID))
}

func TestService_DeleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")

	deleted, err := env.service.Delete(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, env.index.Has(note.ID))

	deleted, err = env.service.Delete(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = env.service.Get(env.ctx, note.ID, user)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	results, err := env.service.Search(env.ctx, user, "grocery shopping", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_EmptyContent(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	note := env.mustCreate(t, user, "")
	assert.Equal(t, UntitledNote, note.Title)
	assert.Equal(t, 0, env.embedder.callCount())
	assert.Equal(t, 0, env.index.Len())

	deleted, err := env.service.Delete(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestService_WhitespaceContentHasNoVector(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	note := env.mustCreate(t, user, "   \n")
	assert.Equal(t, UntitledNote, note.Title)
	assert.Equal(t, 0, env.embedder.callCount())
	assert.False(t, env.index.Has(note.ID))

	stored, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.False(t, stored.IsIndexPending())
}

func TestService_UpdatePartiality(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")
	calls := env.embedder.callCount()

	t.Run("tags only", func(t *testing.T) {
		updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{Tags: &[]string{"home", " home ", ""}})
		require.NoError(t, err)
		assert.Equal(t, []string{"home"}, updated.Tags)
		assert.Equal(t, note.Content, updated.Content)
		assert.Equal(t, note.Title, updated.Title)
		assert.Greater(t, updated.UpdatedTs, note.UpdatedTs)
		assert.Equal(t, calls, env.embedder.callCount())
		assert.False(t, updated.IsIndexPending())
		note = updated
	})

	t.Run("no-op", func(t *testing.T) {
		updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{})
		require.NoError(t, err)
		assert.Equal(t, note.UpdatedTs, updated.UpdatedTs)
		assert.Equal(t, calls, env.embedder.callCount())
	})

	t.Run("title keeps vector", func(t *testing.T) {
		updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{Title: strPtr("Groceries")})
		require.NoError(t, err)
		assert.Equal(t, "Groceries", updated.Title)
		assert.Greater(t, updated.UpdatedTs, note.UpdatedTs)
		assert.Equal(t, calls, env.embedder.callCount())
		note = updated
	})

	t.Run("content refreshes vector", func(t *testing.T) {
		updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{Content: strPtr("Fix the car engine")})
		require.NoError(t, err)
		assert.Equal(t, "Fix the car engine", updated.Content)
		// Titles are never re-derived.
		assert.Equal(t, "Groceries", updated.Title)
		assert.Greater(t, updated.UpdatedTs, note.UpdatedTs)
		assert.Equal(t, calls+1, env.embedder.callCount())

		stored, err := env.service.Get(env.ctx, note.ID, user)
		require.NoError(t, err)
		assert.False(t, stored.IsIndexPending())

		env.mustCreate(t, user, "Buy milk and eggs")
		results, err := env.service.Search(env.ctx, user, "car repair", 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, note.ID, results[0].ID)
	})

	t.Run("clearing content removes vector", func(t *testing.T) {
		updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{Content: strPtr("")})
		require.NoError(t, err)
		assert.Empty(t, updated.Content)
		assert.False(t, env.index.Has(note.ID))
	})
}

func TestService_UpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")

	_, err := env.service.Update(env.ctx, uuid.NewString(), user, &UpdateNote{Title: strPtr("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = env.service.Update(env.ctx, note.ID, user, &UpdateNote{Title: strPtr("  ")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
}

func TestService_Pagination(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	var created []*store.Note
	for _, content := range []string{"first", "second", "third"} {
		created = append(created, env.mustCreate(t, user, content))
	}

	page1, err := env.service.List(env.ctx, user, 1, 2)
	require.NoError(t, err)
	page2, err := env.service.List(env.ctx, user, 2, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Len(t, page2, 1)

	all := append(noteIDs(page1), noteIDs(page2)...)
	assert.ElementsMatch(t, noteIDs(created), all)
	for i := 1; i < len(all); i++ {
		prev, _ := env.service.Get(env.ctx, all[i-1], user)
		cur, _ := env.service.Get(env.ctx, all[i], user)
		assert.GreaterOrEqual(t, prev.CreatedTs, cur.CreatedTs)
	}

	page3, err := env.service.List(env.ctx, user, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func TestService_Validation(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	listCases := []struct {
		page, pageSize int
	}{
		{0, 10}, {-1, 10}, {1, 0}, {1, -5}, {1, MaxPageSize + 1},
	}
	for _, tc := range listCases {
		_, err := env.service.List(env.ctx, user, tc.page, tc.pageSize)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument), "page=%d size=%d", tc.page, tc.pageSize)
	}
	_, err := env.service.List(env.ctx, user, 1, MaxPageSize)
	assert.NoError(t, err)

	searchCases := []struct {
		query string
		limit int
	}{
		{"ab", 5}, {"  ab  ", 5}, {"", 5}, {"valid query", 0}, {"valid query", MaxSearchLimit + 1},
	}
	for _, tc := range searchCases {
		_, err := env.service.Search(env.ctx, user, tc.query, tc.limit)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument), "query=%q limit=%d", tc.query, tc.limit)
	}
	assert.Equal(t, 0, env.embedder.callCount())

	_, err = env.service.Create(env.ctx, "", &CreateNote{Content: "x"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
}

func TestService_SearchEmptyAndOrphans(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	results, err := env.service.Search(env.ctx, user, "grocery shopping", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	note := env.mustCreate(t, user, "Fix the car engine")
	// A vector whose note is gone is skipped.
	require.NoError(t, env.index.MemoryIndex.Upsert(env.ctx, uuid.NewString(), user, []float32{1, 0.1, 0, 0}))

	results, err = env.service.Search(env.ctx, user, "grocery shopping", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, noteIDs(results))
}

func TestService_SearchProviderError(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.setErr(apperrors.EmbeddingProvider("provider down", errors.New("503")))

	_, err := env.service.Search(env.ctx, newUserID(), "grocery shopping", 5)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))
}

func TestService_CreateKeepsNoteWhenEmbeddingFails(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	env.embedder.setErr(apperrors.EmbeddingProvider("provider down", errors.New("503")))

	note, err := env.service.Create(env.ctx, user, &CreateNote{Content: "Buy milk and eggs"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexPending))
	assert.True(t, apperrors.IsCode(errors.Unwrap(err), apperrors.ErrCodeEmbeddingProvider))
	require.NotNil(t, note)
	assert.False(t, env.index.Has(note.ID))

	stored, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.True(t, stored.IsIndexPending())

	env.embedder.setErr(nil)
	require.NoError(t, env.service.IndexNote(env.ctx, stored))
	assert.True(t, env.index.Has(note.ID))

	stored, err = env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.False(t, stored.IsIndexPending())
}

func TestService_IndexNoteFromStaleSnapshot(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	grocery := env.mustCreate(t, user, "grocery shopping")

	env.embedder.setErr(apperrors.EmbeddingProvider("provider down", errors.New("503")))
	note, err := env.service.Create(env.ctx, user, &CreateNote{Content: "Buy milk and eggs"})
	require.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexPending))
	env.embedder.setErr(nil)

	pending, err := env.store.FindNotesPendingIndex(env.ctx, &store.FindNotesPendingIndex{Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	snapshot := pending[0]

	// The note is rewritten and synced before the snapshot is indexed.
	_, err = env.service.Update(env.ctx, note.ID, user, &UpdateNote{Content: strPtr("Fix the car engine")})
	require.NoError(t, err)
	require.NoError(t, env.service.IndexNote(env.ctx, snapshot))

	stored, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "Fix the car engine", stored.Content)
	assert.False(t, stored.IsIndexPending())

	results, err := env.service.Search(env.ctx, user, "Buy milk and eggs", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{grocery.ID}, noteIDs(results))

	results, err = env.service.Search(env.ctx, user, "car repair", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, noteIDs(results))
}

func TestService_IndexNoteAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()

	env.embedder.setErr(apperrors.EmbeddingProvider("provider down", errors.New("503")))
	note, err := env.service.Create(env.ctx, user, &CreateNote{Content: "Buy milk and eggs"})
	require.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexPending))
	env.embedder.setErr(nil)

	snapshot, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	deleted, err := env.service.Delete(env.ctx, note.ID, user)
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, env.service.IndexNote(env.ctx, snapshot))
	assert.False(t, env.index.Has(note.ID))
}

func TestService_UpdateKeepsNoteWhenUpsertFails(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")

	env.index.upsertErr = apperrors.VectorIndex("index down", errors.New("unavailable"))
	updated, err := env.service.Update(env.ctx, note.ID, user, &UpdateNote{Content: strPtr("Fix the car engine")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexPending))
	require.NotNil(t, updated)
	assert.Equal(t, "Fix the car engine", updated.Content)

	stored, err := env.service.Get(env.ctx, note.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "Fix the car engine", stored.Content)
	assert.True(t, stored.IsIndexPending())
}

func TestService_DeleteRecordsTombstone(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")

	env.index.deleteErr = apperrors.VectorIndex("index down", errors.New("unavailable"))
	deleted, err := env.service.Delete(env.ctx, note.ID, user)
	assert.True(t, deleted)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexPending))

	tombstones, err := env.store.ListVectorTombstones(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, note.ID, tombstones[0].NoteID)
	assert.Equal(t, user, tombstones[0].UserID)
}

func TestService_DeleteSurfacesIndexErrorWithoutTombstone(t *testing.T) {
	env := newTestEnv(t)
	user := newUserID()
	note := env.mustCreate(t, user, "Buy milk and eggs")

	env.index.deleteErr = apperrors.VectorIndex("index down", errors.New("unavailable"))
	env.store.tombstoneErr = apperrors.StoreUnavailable("store down", errors.New("closed"))
	deleted, err := env.service.Delete(env.ctx, note.ID, user)
	assert.True(t, deleted)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeVectorIndex))
}

func TestService_CreateNormalizesTags(t *testing.T) {
	env := newTestEnv(t)
	note := env.mustCreate(t, newUserID(), "Buy milk and eggs", "food", " food", "", "home")
	assert.Equal(t, []string{"food", "home"}, note.Tags)
}

func strPtr(s string) *string {
	return &s
}

package importer

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// mockAuthorRepo records calls to verify phase behavior.
type mockAuthorRepo struct {
	mu sync.Mutex

	upserted        []domain.Author
	wikidataUpdates []domain.WikidataUpdate
	mapEntries      map[string]domain.AuthorMapEntry

	upsertErr   error
	wikidataErr error
	mapErr      error

	callLog []string
}

func newMockAuthorRepo() *mockAuthorRepo {
	return &mockAuthorRepo{mapEntries: make(map[string]domain.AuthorMapEntry)}
}

func (m *mockAuthorRepo) logCall(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callLog = append(m.callLog, name)
}

func (m *mockAuthorRepo) UpsertBulk(_ context.Context, authors []domain.Author) (int, error) {
	m.logCall("UpsertBulk")
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.mu.Lock()
	m.upserted = append(m.upserted, authors...)
	m.mu.Unlock()
	return len(authors), nil
}

func (m *mockAuthorRepo) ApplyWikidataUpdates(_ context.Context, updates []domain.WikidataUpdate) (int, error) {
	m.logCall("ApplyWikidataUpdates")
	if m.wikidataErr != nil {
		return 0, m.wikidataErr
	}
	m.mu.Lock()
	m.wikidataUpdates = append(m.wikidataUpdates, updates...)
	m.mu.Unlock()
	return len(updates), nil
}

func (m *mockAuthorRepo) Map(_ context.Context) (map[string]domain.AuthorMapEntry, error) {
	m.logCall("Map")
	if m.mapErr != nil {
		return nil, m.mapErr
	}
	return m.mapEntries, nil
}

// mockBookRepo records calls to verify phase behavior.
type mockBookRepo struct {
	mu sync.Mutex

	inserted       []domain.BookInput
	editionMerges  []domain.EditionMerge
	clones         []domain.LanguageClone
	ratingUpdates  []domain.RatingUpdate
	readingUpdates []domain.ReadingLogUpdate
	mapEntries     map[string][]domain.BookMapEntry

	failPerInsert int // count this many inserts as Failed per call
	nextCloneID   int64

	insertErr  error
	mergeErr   error
	cloneErr   error
	ratingErr  error
	readingErr error

	callLog []string
}

func newMockBookRepo() *mockBookRepo {
	return &mockBookRepo{
		mapEntries:  make(map[string][]domain.BookMapEntry),
		nextCloneID: 1000,
	}
}

func (m *mockBookRepo) logCall(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callLog = append(m.callLog, name)
}

func (m *mockBookRepo) InsertOrMerge(_ context.Context, inputs []domain.BookInput) (domain.MergeResult, error) {
	m.logCall("InsertOrMerge")
	if m.insertErr != nil {
		return domain.MergeResult{}, m.insertErr
	}
	m.mu.Lock()
	m.inserted = append(m.inserted, inputs...)
	failed := min(m.failPerInsert, len(inputs))
	m.mu.Unlock()
	return domain.MergeResult{Successful: len(inputs) - failed, Failed: failed}, nil
}

func (m *mockBookRepo) Map(_ context.Context) (map[string][]domain.BookMapEntry, error) {
	m.logCall("Map")
	return m.mapEntries, nil
}

func (m *mockBookRepo) ApplyEditionMerges(_ context.Context, merges []domain.EditionMerge) (int, error) {
	m.logCall("ApplyEditionMerges")
	if m.mergeErr != nil {
		return 0, m.mergeErr
	}
	m.mu.Lock()
	m.editionMerges = append(m.editionMerges, merges...)
	m.mu.Unlock()
	return len(merges), nil
}

func (m *mockBookRepo) CloneLanguageRows(_ context.Context, clones []domain.LanguageClone) ([]domain.BookMapEntry, error) {
	m.logCall("CloneLanguageRows")
	if m.cloneErr != nil {
		return nil, m.cloneErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	created := make([]domain.BookMapEntry, 0, len(clones))
	for _, c := range clones {
		m.clones = append(m.clones, c)
		m.nextCloneID++
		created = append(created, domain.BookMapEntry{
			ID:       m.nextCloneID,
			Language: c.Language,
			Slug:     "cloned",
		})
	}
	return created, nil
}

func (m *mockBookRepo) ApplyRatingUpdates(_ context.Context, updates []domain.RatingUpdate, _ int) (int, error) {
	m.logCall("ApplyRatingUpdates")
	if m.ratingErr != nil {
		return 0, m.ratingErr
	}
	m.mu.Lock()
	m.ratingUpdates = append(m.ratingUpdates, updates...)
	m.mu.Unlock()
	return len(updates), nil
}

func (m *mockBookRepo) ApplyReadingLogUpdates(_ context.Context, updates []domain.ReadingLogUpdate, _ int) (int, error) {
	m.logCall("ApplyReadingLogUpdates")
	if m.readingErr != nil {
		return 0, m.readingErr
	}
	m.mu.Lock()
	m.readingUpdates = append(m.readingUpdates, updates...)
	m.mu.Unlock()
	return len(updates), nil
}

// mockRunState is an in-memory stand-in for the run-state store.
type mockRunState struct {
	mu sync.Mutex

	held     map[string]bool
	statuses map[uuid.UUID][]string

	acquireErr error
	statusErr  error
}

func newMockRunState() *mockRunState {
	return &mockRunState{
		held:     make(map[string]bool),
		statuses: make(map[uuid.UUID][]string),
	}
}

func (m *mockRunState) AcquireMarker(_ context.Context, name string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return m.acquireErr
	}
	if m.held[name] {
		return domain.ErrAlreadyRunning
	}
	m.held[name] = true
	return nil
}

func (m *mockRunState) ReleaseMarker(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *mockRunState) MarkerHeld(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name], nil
}

func (m *mockRunState) SetStatus(_ context.Context, jobID uuid.UUID, _, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statuses[jobID] = append(m.statuses[jobID], status)
	return nil
}

func (m *mockRunState) GetStatus(_ context.Context, jobID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.statuses[jobID]
	if len(history) == 0 {
		return "", domain.ErrNotFound
	}
	return history[len(history)-1], nil
}

func (m *mockRunState) statusHistory(jobID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statuses[jobID]...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

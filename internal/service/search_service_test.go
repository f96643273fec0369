package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chirper/internal/events"
	"chirper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchRepoStub is a stub for repository.SearchRepository.
type searchRepoStub struct {
	upsertFn         func(context.Context, *models.SearchIndexEntry) error
	deleteByPostIDFn func(context.Context, string) error
	searchFn         func(context.Context, string, int) ([]*models.SearchIndexEntry, error)
}

func (s *searchRepoStub) Upsert(ctx context.Context, entry *models.SearchIndexEntry) error {
	return s.upsertFn(ctx, entry)
}
func (s *searchRepoStub) DeleteByPostID(ctx context.Context, postID string) error {
	return s.deleteByPostIDFn(ctx, postID)
}
func (s *searchRepoStub) Search(ctx context.Context, query string, limit int) ([]*models.SearchIndexEntry, error) {
	return s.searchFn(ctx, query, limit)
}

// mapSearchRepo is a searchRepoStub backed by a map keyed by post ID, giving
// the same converge-on-one-entry behavior as the real upsert.
func mapSearchRepo() (*searchRepoStub, map[string]*models.SearchIndexEntry) {
	index := make(map[string]*models.SearchIndexEntry)
	stub := &searchRepoStub{
		upsertFn: func(_ context.Context, entry *models.SearchIndexEntry) error {
			index[entry.PostID] = entry
			return nil
		},
		deleteByPostIDFn: func(_ context.Context, postID string) error {
			delete(index, postID)
			return nil
		},
		searchFn: func(_ context.Context, _ string, _ int) ([]*models.SearchIndexEntry, error) {
			return nil, nil
		},
	}
	return stub, index
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSearchService_HandlePostCreated_Redelivery(t *testing.T) {
	repo, index := mapSearchRepo()
	svc := NewSearchService(repo)
	ctx := context.Background()

	body := mustMarshal(t, events.PostCreated{
		PostID:    "p-1",
		UserID:    "u-1",
		Content:   "findable content",
		CreatedAt: time.Now().UTC(),
	})

	// At-least-once delivery: the same event arrives twice.
	require.NoError(t, svc.HandlePostCreated(ctx, body))
	require.NoError(t, svc.HandlePostCreated(ctx, body))

	require.Len(t, index, 1)
	assert.Equal(t, "findable content", index["p-1"].Content)
	assert.Equal(t, "u-1", index["p-1"].UserID)
}

func TestSearchService_HandlePostCreated_BadPayload(t *testing.T) {
	repo, _ := mapSearchRepo()
	svc := NewSearchService(repo)

	err := svc.HandlePostCreated(context.Background(), []byte("{not json"))
	assert.Error(t, err)
}

func TestSearchService_HandlePostDeleted_Idempotent(t *testing.T) {
	repo, index := mapSearchRepo()
	svc := NewSearchService(repo)
	ctx := context.Background()

	require.NoError(t, svc.HandlePostCreated(ctx, mustMarshal(t, events.PostCreated{
		PostID:  "p-1",
		UserID:  "u-1",
		Content: "to be removed",
	})))
	require.Len(t, index, 1)

	body := mustMarshal(t, events.PostDeleted{PostID: "p-1", UserID: "u-1"})
	require.NoError(t, svc.HandlePostDeleted(ctx, body))
	require.NoError(t, svc.HandlePostDeleted(ctx, body))

	assert.Empty(t, index)
}

// End-to-end over the in-memory bus: the producer-side publish drives the
// projection so a created post becomes findable and a deleted one vanishes.
func TestSearchService_ProjectionFollowsPostLifecycle(t *testing.T) {
	repo, index := mapSearchRepo()
	searchSvc := NewSearchService(repo)

	bus := events.NewMemoryBus()
	ctx := context.Background()
	require.NoError(t, searchSvc.RegisterConsumers(ctx, bus))

	postSvc := NewPostService(noopPostRepo(), bus)
	post, err := postSvc.CreatePost(ctx, CreatePostInput{UserID: "u-1", Content: "searchable words"})
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "searchable words", index[post.ID].Content)

	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, UserID: "u-1"}, nil
	}
	postSvc = NewPostService(postRepo, bus)
	require.NoError(t, postSvc.DeletePost(ctx, "u-1", post.ID))
	assert.Empty(t, index)
}

func TestSearchService_Search_EmptyQuery(t *testing.T) {
	repo, _ := mapSearchRepo()
	svc := NewSearchService(repo)

	_, err := svc.Search(context.Background(), "")
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestSearchService_Search_PassesLimit(t *testing.T) {
	var gotLimit int
	repo, _ := mapSearchRepo()
	repo.searchFn = func(_ context.Context, _ string, limit int) ([]*models.SearchIndexEntry, error) {
		gotLimit = limit
		return []*models.SearchIndexEntry{{PostID: "p-1"}}, nil
	}
	svc := NewSearchService(repo)

	results, err := svc.Search(context.Background(), "words")
	require.NoError(t, err)
	assert.Equal(t, searchResultLimit, gotLimit)
	assert.Len(t, results, 1)
}

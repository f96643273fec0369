// Package service implements the application's business logic on top of
// the repositories, the cache and the event bus.
package service

import (
	"context"
	"errors"
	"math"
	"unicode/utf8"

	"chirper/internal/cache"
	"chirper/internal/events"
	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"

	"gorm.io/gorm"
)

// PostService owns the producer-side write path: durable write, then
// event publish, then cache invalidation, in that order.
type PostService struct {
	postRepo repository.PostRepository
	bus      events.Bus
}

type CreatePostInput struct {
	UserID   string
	Content  string
	MediaIDs []string
}

type ListPostsInput struct {
	Page  int
	Limit int
}

func NewPostService(postRepo repository.PostRepository, bus events.Bus) *PostService {
	return &PostService{
		postRepo: postRepo,
		bus:      bus,
	}
}

// CreatePost validates and persists a new post, publishes post.created and
// invalidates affected cache entries. A publish failure leaves the post
// live but unsearchable until a later republish; it is logged, never
// surfaced to the caller. Cache failures are likewise non-fatal.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	contentLen := utf8.RuneCountInString(in.Content)
	if contentLen < models.MinContentLen {
		return nil, models.NewValidationError("Content must be at least 3 characters")
	}
	if contentLen > models.MaxContentLen {
		return nil, models.NewValidationError("Content too long (max 6000 characters)")
	}

	post := &models.Post{
		UserID:   in.UserID,
		Content:  in.Content,
		MediaIDs: in.MediaIDs,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewStorageError("Error creating post", err)
	}

	if err := s.bus.Publish(ctx, events.RouteKeyPostCreated, events.PostCreated{
		PostID:    post.ID,
		UserID:    post.UserID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	}); err != nil {
		observability.LogAsyncOperationError(ctx, "publish post.created", err, map[string]interface{}{
			"post_id": post.ID,
		})
	}

	s.invalidateCaches(ctx, post.ID)
	return post, nil
}

// DeletePost removes a post owned by userID and publishes post.deleted
// carrying the media IDs the media service must cascade. The delete is
// conditioned on (id, owner); zero rows affected means a concurrent
// delete won, reported as NOT_FOUND rather than masked as success.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		return models.NewStorageError("Error fetching post", err)
	}

	if post.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	rows, err := s.postRepo.DeleteOwned(ctx, postID, userID)
	if err != nil {
		return models.NewStorageError("Error deleting post", err)
	}
	if rows == 0 {
		return models.NewNotFoundError("Post", postID)
	}

	if err := s.bus.Publish(ctx, events.RouteKeyPostDeleted, events.PostDeleted{
		PostID:   post.ID,
		UserID:   post.UserID,
		MediaIDs: post.MediaIDs,
	}); err != nil {
		observability.LogAsyncOperationError(ctx, "publish post.deleted", err, map[string]interface{}{
			"post_id": post.ID,
		})
	}

	s.invalidateCaches(ctx, postID)
	return nil
}

// GetAllPosts returns a page of posts, newest first, through the
// paginated-list cache (TTL 5 minutes).
func (s *PostService) GetAllPosts(ctx context.Context, in ListPostsInput) (*models.PostPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	offset := (page - 1) * limit

	var result models.PostPage
	err := cache.Aside(ctx, cache.PostsListKey(page, limit), &result, cache.PostsListTTL, func() error {
		posts, err := s.postRepo.List(ctx, limit, offset)
		if err != nil {
			return err
		}
		total, err := s.postRepo.Count(ctx)
		if err != nil {
			return err
		}
		result = models.PostPage{
			Posts:       posts,
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalPosts:  total,
		}
		return nil
	})
	if err != nil {
		return nil, models.NewStorageError("Error fetching posts", err)
	}
	return &result, nil
}

// GetPost returns a single post through the single-post cache (TTL 1 hour).
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		p, err := s.postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewStorageError("Error fetching post", err)
	}
	return &post, nil
}

// invalidateCaches drops the single-post key and every paginated list key.
// Failures are logged and swallowed; TTLs bound any resulting staleness.
func (s *PostService) invalidateCaches(ctx context.Context, postID string) {
	if err := cache.InvalidatePost(ctx, postID); err != nil {
		observability.LogAsyncOperationError(ctx, "invalidate post caches", err, map[string]interface{}{
			"post_id": postID,
		})
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// signerStub is a stub for ObjectURLSigner that records batch calls.
type signerStub struct {
	mu          sync.Mutex
	batchCalls  [][]string
	signCalls   int
	signBatchFn func(context.Context, []string) (map[string]string, error)
}

func (s *signerStub) Sign(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	s.signCalls++
	s.mu.Unlock()
	urls, err := s.SignBatch(ctx, []string{path})
	if err != nil {
		return "", err
	}
	return urls[path], nil
}

func (s *signerStub) SignBatch(ctx context.Context, paths []string) (map[string]string, error) {
	s.mu.Lock()
	s.batchCalls = append(s.batchCalls, append([]string(nil), paths...))
	s.mu.Unlock()
	if s.signBatchFn != nil {
		return s.signBatchFn(ctx, paths)
	}
	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		urls[p] = "https://cdn.test/" + p + "?sig=1"
	}
	return urls, nil
}

func (s *signerStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batchCalls)
}

// services wires the full service graph over one database.
type services struct {
	gate     *VisibilityGate
	graph    *FollowGraphService
	counters *CounterRecalculator
	summary  *SummaryBuilder
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	postRepo repository.PostRepository
}

func newServices(db *gorm.DB, signer ObjectURLSigner) *services {
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	gate := NewVisibilityGate(postRepo, followRepo)
	graph := NewFollowGraphService(userRepo, followRepo)
	counters := NewCounterRecalculator(postRepo, commentRepo)
	summary := NewSummaryBuilder(postRepo, assetRepo, graph, signer)
	comments := NewCommentService(commentRepo, postRepo, gate, counters, summary)

	return &services{
		gate:     gate,
		graph:    graph,
		counters: counters,
		summary:  summary,
		posts:    NewPostService(postRepo, assetRepo, gate, counters, summary, comments),
		comments: comments,
		follows:  NewFollowService(userRepo, followRepo, graph),
		postRepo: postRepo,
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

type fakeEmbedder struct {
	resp openai.EmbeddingResponse
	err  error

	lastInput []string
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if r, ok := req.(openai.EmbeddingRequest); ok {
		if input, ok := r.Input.([]string); ok {
			f.lastInput = input
		}
	}
	return f.resp, f.err
}

type fakeCandidateStore struct {
	candidates []domain.SemanticMatch
	err        error

	lastEmbedding []float32
	lastLimit     int
}

func (f *fakeCandidateStore) SemanticCandidates(ctx context.Context, embedding []float32, from, to time.Time, limit int) ([]domain.SemanticMatch, error) {
	f.lastEmbedding = embedding
	f.lastLimit = limit
	return f.candidates, f.err
}

func TestSearchMatchFiltersByThreshold(t *testing.T) {
	embedder := &fakeEmbedder{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
		},
	}
	store := &fakeCandidateStore{
		candidates: []domain.SemanticMatch{
			{DocumentID: "doc-0", Score: 0.95},
			{DocumentID: "doc-1", Score: 0.72},
			{DocumentID: "doc-2", Score: 0.41},
		},
	}
	svc := NewSearchService(embedder, store, "", zap.NewNop())

	now := time.Now().UTC()
	matches, err := svc.Match(context.Background(), "wire transfers", 0.7, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "doc-0", matches[0].DocumentID)
	assert.Equal(t, "doc-1", matches[1].DocumentID)
	assert.Equal(t, []string{"wire transfers"}, embedder.lastInput)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, store.lastEmbedding)
	assert.Equal(t, semanticCandidateLimit, store.lastLimit)
}

func TestSearchMatchEmptyQuery(t *testing.T) {
	svc := NewSearchService(&fakeEmbedder{}, &fakeCandidateStore{}, "", zap.NewNop())

	_, err := svc.Match(context.Background(), "", 0.7, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchMatchProviderDown(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("429 too many requests")}
	svc := NewSearchService(embedder, &fakeCandidateStore{}, "", zap.NewNop())

	_, err := svc.Match(context.Background(), "anything", 0.7, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSearchMatchNoVectors(t *testing.T) {
	svc := NewSearchService(&fakeEmbedder{}, &fakeCandidateStore{}, "", zap.NewNop())

	_, err := svc.Match(context.Background(), "anything", 0.7, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

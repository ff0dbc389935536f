package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// SemanticMatcher finds documents similar to a natural-language query,
// scored in [0,1], best match first, already filtered by threshold.
type SemanticMatcher interface {
	Match(ctx context.Context, query string, threshold float64, from, to time.Time) ([]domain.SemanticMatch, error)
}

// Embedder is the slice of the OpenAI client the search service uses.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// CandidateStore retrieves nearest-neighbour candidates for an embedding.
type CandidateStore interface {
	SemanticCandidates(ctx context.Context, embedding []float32, from, to time.Time, limit int) ([]domain.SemanticMatch, error)
}

// semanticCandidateLimit bounds how many neighbours are pulled from the
// store before threshold filtering.
const semanticCandidateLimit = 200

// SearchService implements SemanticMatcher with OpenAI embeddings for the
// query vector and a vector scan over stored document embeddings.
type SearchService struct {
	embedder Embedder
	store    CandidateStore
	model    openai.EmbeddingModel
	logger   *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(embedder Embedder, store CandidateStore, model string, logger *zap.Logger) *SearchService {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &SearchService{
		embedder: embedder,
		store:    store,
		model:    openai.EmbeddingModel(model),
		logger:   logger,
	}
}

// Match embeds the query, scans stored embeddings inside the time range and
// returns matches at or above threshold, best first. Provider outages
// surface as domain.ErrUnavailable so callers can treat them as transient.
func (s *SearchService) Match(ctx context.Context, query string, threshold float64, from, to time.Time) ([]domain.SemanticMatch, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput)
	}

	resp, err := s.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{query},
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embedding provider returned no vectors", domain.ErrUnavailable)
	}

	candidates, err := s.store.SemanticCandidates(ctx, resp.Data[0].Embedding, from, to, semanticCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("semantic candidates: %w", err)
	}

	matches := make([]domain.SemanticMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			matches = append(matches, c)
		}
	}

	s.logger.Debug("semantic match complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", threshold),
	)
	return matches, nil
}

package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lu-jeremy/food-bridge/internal/embedding"
	"github.com/lu-jeremy/food-bridge/internal/models"
)

// similarityThreshold is the fixed cutoff below which a listing is not
// considered relevant to the query.
const similarityThreshold = 0.3

type MatchingService interface {
	Rank(ctx context.Context, query string, listings []*models.ListingWithProvider) ([]*models.ScoredListing, error)
}

type matchingService struct {
	embedder embedding.Embedder
}

// NewMatchingService ranks listings by semantic similarity between a
// free-text query and each listing's description. Every call embeds the
// query plus every listing, O(N) embeddings with no caching; fine at
// food-drive listing volumes, a scaling limit beyond that.
func NewMatchingService(embedder embedding.Embedder) MatchingService {
	return &matchingService{embedder: embedder}
}

func (s *matchingService) Rank(ctx context.Context, query string, listings []*models.ListingWithProvider) ([]*models.ScoredListing, error) {
	if len(listings) == 0 {
		return []*models.ScoredListing{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored := []*models.ScoredListing{}
	for _, l := range listings {
		vec, err := s.embedder.Embed(ctx, l.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to embed listing %d: %w", l.ID, err)
		}

		sim := cosineSimilarity(queryVec, vec)
		if sim > similarityThreshold {
			scored = append(scored, &models.ScoredListing{
				ListingWithProvider: *l,
				Similarity:          sim,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Package embedding produces and stores venue description vectors used
// for semantic reranking of nearby results.
package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// Provider turns text into a fixed-dimension vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LocalProvider is a deterministic hashed bag-of-words embedder. It needs
// no model download and gives stable vectors for identical text, which is
// enough for cosine reranking within a small geographic candidate set.
type LocalProvider struct{}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Embed hashes each token into the vector space and L2-normalizes the
// result.
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, errors.New("embed: empty text")
	}

	vec := make([]float32, domain.EmbeddingDim)
	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(domain.EmbeddingDim))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, errors.New("embed: zero vector")
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

// tokenize lowercases and splits on non-letter, non-digit runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 128
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

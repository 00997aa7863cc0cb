// Package retriever answers "what does this user's knowledge base say
// about this query" by embedding the query and searching the user's
// slice of the vector index. A missing or unreachable index degrades to
// an empty result; downstream planning proceeds without grounding
// context rather than failing.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/embedding"
	"github.com/planweave/planweave/internal/langpipe"
	"github.com/planweave/planweave/internal/vecstore"
)

// TranslationPolicy controls whether queries are translated into the
// user's dominant index language before embedding. With a multilingual
// embedding space "never" is usually fine; "auto" translates only when
// the query language differs from the dominant index language.
type TranslationPolicy string

const (
	PolicyAlways TranslationPolicy = "always"
	PolicyNever  TranslationPolicy = "never"
	PolicyAuto   TranslationPolicy = "auto"
)

// ParsePolicy validates a policy string, defaulting empty to auto.
func ParsePolicy(s string) (TranslationPolicy, error) {
	switch TranslationPolicy(s) {
	case PolicyAlways, PolicyNever, PolicyAuto:
		return TranslationPolicy(s), nil
	case "":
		return PolicyAuto, nil
	}
	return "", fmt.Errorf("unknown translation policy %q", s)
}

// DocumentLister is the slice of the persistence gateway the retriever
// needs to determine a user's dominant index language.
type DocumentLister interface {
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)
}

// Retriever embeds queries and delegates to the vector index.
type Retriever struct {
	embedder  embedding.Embedder
	index     vecstore.Index
	languages langpipe.Pipeline
	docs      DocumentLister
	policy    TranslationPolicy
	logger    *zap.Logger
}

func New(
	embedder embedding.Embedder,
	index vecstore.Index,
	languages langpipe.Pipeline,
	docs DocumentLister,
	policy TranslationPolicy,
	logger *zap.Logger,
) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		languages: languages,
		docs:      docs,
		policy:    policy,
		logger:    logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve returns the top-k chunks for the query, most relevant first.
// An empty result means the user has no useful indexed context; callers
// treat that as "proceed without grounding", not as a failure.
func (r *Retriever) Retrieve(ctx context.Context, userID, queryText, queryLanguage string, k int) ([]domain.Chunk, error) {
	if k < 1 {
		return nil, vecstore.ErrBadTopK
	}

	text, err := r.prepareQuery(ctx, userID, queryText, queryLanguage)
	if err != nil {
		// Translation problems are never fatal at the query boundary.
		r.logger.Warn("query preparation degraded", zap.Error(err))
		text = queryText
	}

	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := r.index.Query(ctx, userID, vectors[0], k, "")
	if err != nil {
		r.logger.Warn("vector index unavailable, degrading to empty context",
			zap.String("user_id", userID),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err)))
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}
	return chunks, nil
}

// prepareQuery applies the translation policy to the query text.
func (r *Retriever) prepareQuery(ctx context.Context, userID, queryText, queryLanguage string) (string, error) {
	if r.policy == PolicyNever {
		return queryText, nil
	}

	dominant, err := r.dominantLanguage(ctx, userID)
	if err != nil || dominant == "" {
		return queryText, err
	}

	if queryLanguage == "" {
		queryLanguage, err = r.languages.Detect(ctx, queryText)
		if err != nil {
			return queryText, err
		}
	}
	queryLanguage = langpipe.Canonicalize(queryLanguage)

	if r.policy == PolicyAuto && queryLanguage == dominant {
		return queryText, nil
	}

	return r.languages.Translate(ctx, queryText, dominant)
}

// dominantLanguage is the most common language among the user's fully
// embedded documents.
func (r *Retriever) dominantLanguage(ctx context.Context, userID string) (string, error) {
	docs, err := r.docs.ListDocuments(ctx, userID)
	if err != nil {
		return "", err
	}

	counts := make(map[string]int)
	best := ""
	for _, doc := range docs {
		if doc.EmbeddingStatus != domain.EmbeddingCompleted {
			continue
		}
		lang := langpipe.Canonicalize(doc.Language)
		counts[lang]++
		if best == "" || counts[lang] > counts[best] {
			best = lang
		}
	}
	return best, nil
}

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/resilience"
	"study-assistant-be/pkg/workflow"
)

var ErrIndexUnavailable = errors.New("vector index unavailable")

// AccessFilter admits chunks the requester owns and chunks marked public.
type AccessFilter struct {
	RequesterID uuid.UUID
}

func (f AccessFilter) Allows(c workflow.RetrievedChunk) bool {
	return c.OwnerID == f.RequesterID || c.Visibility == workflow.VisibilityPublic
}

// VectorIndex returns chunks ranked by similarity, best first, with metadata attached.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, filter AccessFilter, topK int) ([]workflow.RetrievedChunk, error)
}

type Config struct {
	SimilarityFloor   float64
	ContextCharBudget int
	OverFetch         int
	Retry             resilience.RetryConfig
	Profiles          map[workflow.Intent]Profile
}

func DefaultConfig() Config {
	return Config{
		SimilarityFloor:   0.3,
		ContextCharBudget: 6000,
		OverFetch:         2,
		Retry:             resilience.DefaultRetryConfig(),
		Profiles:          DefaultProfiles(),
	}
}

type Result struct {
	EnhancedQuery string
	Chunks        []workflow.RetrievedChunk
	Context       string
	// Unavailable is set when the index or the embedder failed; Chunks is then empty.
	Unavailable bool
	Err         error
	// Dropped counts ranked chunks left out of the context by the budget.
	Dropped int
}

type Retriever struct {
	embedder embedding.EmbeddingProvider
	index    VectorIndex
	cfg      Config
	logger   logger.ILogger
}

func NewRetriever(embedder embedding.EmbeddingProvider, index VectorIndex, cfg Config, log logger.ILogger) *Retriever {
	if cfg.Profiles == nil {
		cfg.Profiles = DefaultProfiles()
	}
	if cfg.OverFetch < 1 {
		cfg.OverFetch = 1
	}
	return &Retriever{embedder: embedder, index: index, cfg: cfg, logger: log}
}

// Retrieve never fails the request: backend errors produce an empty, Unavailable result.
func (r *Retriever) Retrieve(ctx context.Context, query string, intent workflow.Intent, requesterID uuid.UUID) Result {
	if strings.TrimSpace(query) == "" {
		return Result{}
	}

	profile := r.profile(intent)
	enhanced := EnhanceQuery(query, profile)
	res := Result{EnhancedQuery: enhanced}

	vector, err := embedding.Vector(ctx, r.embedder, enhanced, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Warn("RETRIEVER", "Query embedding failed, continuing without context", map[string]interface{}{"error": err.Error()})
		res.Unavailable, res.Err = true, err
		return res
	}

	filter := AccessFilter{RequesterID: requesterID}
	hits, err := resilience.Retry(ctx, r.cfg.Retry, func(ctx context.Context) ([]workflow.RetrievedChunk, error) {
		return r.index.Search(ctx, vector, filter, profile.TopK*r.cfg.OverFetch)
	})
	if err != nil {
		r.logger.Warn("RETRIEVER", "Vector search failed, continuing without context", map[string]interface{}{"error": err.Error()})
		res.Unavailable, res.Err = true, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		return res
	}

	ranked := r.rank(hits, filter, profile)
	res.Chunks, res.Context, res.Dropped = BuildContext(ranked, r.cfg.ContextCharBudget)

	r.logger.Info("RETRIEVER", "Retrieved context", map[string]interface{}{
		"intent":      intent,
		"raw_hits":    len(hits),
		"kept":        len(res.Chunks),
		"dropped":     res.Dropped,
		"context_len": len(res.Context),
	})
	return res
}

func (r *Retriever) profile(intent workflow.Intent) Profile {
	if p, ok := r.cfg.Profiles[intent]; ok {
		return p
	}
	return Profile{TopK: 10}
}

// EnhanceQuery appends the profile keywords. The stored query is never rewritten.
func EnhanceQuery(query string, p Profile) string {
	return strings.TrimSpace(strings.TrimSpace(query) + " " + p.Keywords)
}

// rank applies access control, the floor, dedupe and the type boost, then sorts by
// boosted score with the index rank as tie-break, keeping at most TopK.
func (r *Retriever) rank(hits []workflow.RetrievedChunk, filter AccessFilter, p Profile) []workflow.RetrievedChunk {
	seen := make(map[uuid.UUID]bool, len(hits))
	out := make([]workflow.RetrievedChunk, 0, len(hits))

	for i, c := range hits {
		c.IndexRank = i
		if !filter.Allows(c) {
			r.logger.Warn("RETRIEVER", "Index returned an inaccessible chunk", map[string]interface{}{"chunk_id": c.ChunkID.String()})
			continue
		}
		if c.Similarity < r.cfg.SimilarityFloor {
			continue
		}
		if seen[c.ChunkID] {
			continue
		}
		seen[c.ChunkID] = true

		c.Score = c.Similarity + p.Boost(c.DocumentType)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IndexRank < out[j].IndexRank
	})

	if p.TopK > 0 && len(out) > p.TopK {
		out = out[:p.TopK]
	}
	return out
}

// BuildContext concatenates chunks in rank order until the next one would exceed the
// character budget. Chunks are never cut; the ones that do not fit are dropped.
func BuildContext(chunks []workflow.RetrievedChunk, budget int) ([]workflow.RetrievedChunk, string, int) {
	var b strings.Builder
	used := 0
	kept := make([]workflow.RetrievedChunk, 0, len(chunks))

	for i, c := range chunks {
		block := fmt.Sprintf("[%d | %s | similarity %.2f]\n%s\n\n", i+1, documentLabel(c.DocumentType), c.Similarity, strings.TrimSpace(c.Text))
		n := utf8.RuneCountInString(block)
		if budget > 0 && used+n > budget {
			return kept, strings.TrimSpace(b.String()), len(chunks) - len(kept)
		}
		b.WriteString(block)
		used += n
		kept = append(kept, c)
	}
	return kept, strings.TrimSpace(b.String()), 0
}

func documentLabel(t workflow.DocumentType) string {
	if t == "" {
		return "DOCUMENT"
	}
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

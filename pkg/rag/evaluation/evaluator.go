package evaluation

import (
	"context"
	"fmt"
	"strings"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/prompt"
	"study-assistant-be/pkg/workflow"
)

const (
	SourceLLM      = "llm"
	SourceTemplate = "template"
)

type Config struct {
	// PointFloor is the minimum similarity for a reference point to count as covered.
	PointFloor float64
}

func DefaultConfig() Config {
	return Config{PointFloor: 0.6}
}

type Input struct {
	Question      string
	StudentAnswer string
	Reference     string
	MaxScore      float64
}

// Validate rejects inputs that cannot be scored. It runs before any backend call.
func (in Input) Validate() error {
	if err := ValidateMaxScore(in.MaxScore); err != nil {
		return err
	}
	if strings.TrimSpace(in.Reference) == "" {
		return workflow.Validationf("a reference answer or marking scheme is required")
	}
	return nil
}

type Evaluator struct {
	embedder    embedding.EmbeddingProvider
	llmProvider llm.LLMProvider
	cfg         Config
	logger      logger.ILogger
}

func NewEvaluator(embedder embedding.EmbeddingProvider, llmProvider llm.LLMProvider, cfg Config, log logger.ILogger) *Evaluator {
	return &Evaluator{embedder: embedder, llmProvider: llmProvider, cfg: cfg, logger: log}
}

// Evaluate scores the student answer against the reference. Embedding failures are
// returned; a feedback generation failure only switches the suggestions to the template.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (workflow.EvaluationResult, error) {
	if err := in.Validate(); err != nil {
		return workflow.EvaluationResult{}, err
	}

	points := Segment(in.Reference)
	if len(points) == 0 {
		points = []string{strings.TrimSpace(in.Reference)}
	}

	sim := &similarityCache{embedder: e.embedder, vectors: map[string][]float32{}}
	student := strings.TrimSpace(in.StudentAnswer)

	var (
		overall float64
		matches = make([]workflow.PointMatch, len(points))
	)

	if student == "" {
		for i, p := range points {
			matches[i] = workflow.PointMatch{Point: p}
		}
	} else {
		var err error
		overall, err = sim.between(ctx, student, in.Reference)
		if err != nil {
			return workflow.EvaluationResult{}, err
		}

		candidates := append(Segment(student), student)
		for i, p := range points {
			best, err := sim.best(ctx, p, candidates)
			if err != nil {
				return workflow.EvaluationResult{}, err
			}
			matches[i] = workflow.PointMatch{Point: p, Similarity: best, Covered: best >= e.cfg.PointFloor}
		}
	}

	result := workflow.EvaluationResult{
		ScoreObtained:  Award(overall, in.MaxScore),
		MaxScore:       in.MaxScore,
		Similarity:     overall,
		AwardedPercent: AwardedPercent(overall),
		Feedback:       partition(matches),
	}

	result.Feedback.Suggestions, result.Feedback.SuggestionsSource = e.suggestions(ctx, in, result)

	e.logger.Info("EVALUATOR", "Answer evaluated", map[string]interface{}{
		"similarity": overall,
		"awarded":    result.ScoreObtained,
		"max":        in.MaxScore,
		"covered":    len(result.Feedback.CoveredPoints),
		"missing":    len(result.Feedback.MissingPoints),
		"feedback":   result.Feedback.SuggestionsSource,
	})
	return result, nil
}

func partition(matches []workflow.PointMatch) workflow.Feedback {
	fb := workflow.Feedback{
		CoveredPoints: []string{},
		MissingPoints: []string{},
		Points:        matches,
	}
	for _, m := range matches {
		if m.Covered {
			fb.CoveredPoints = append(fb.CoveredPoints, m.Point)
		} else {
			fb.MissingPoints = append(fb.MissingPoints, m.Point)
		}
	}
	return fb
}

func (e *Evaluator) suggestions(ctx context.Context, in Input, r workflow.EvaluationResult) (string, string) {
	if strings.TrimSpace(in.StudentAnswer) == "" || e.llmProvider == nil {
		return TemplateFeedback(r), SourceTemplate
	}

	text, err := e.llmProvider.Generate(ctx,
		prompt.Feedback(in.Question, in.StudentAnswer, r.ScoreObtained, r.MaxScore, r.Feedback.CoveredPoints, r.Feedback.MissingPoints),
		llm.WithTemperature(0.3))
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.Warn("EVALUATOR", "Feedback generation failed, using template", map[string]interface{}{"error": err.Error()})
		}
		return TemplateFeedback(r), SourceTemplate
	}
	return strings.TrimSpace(text), SourceLLM
}

// TemplateFeedback builds suggestions from the covered and missing lists alone.
func TemplateFeedback(r workflow.EvaluationResult) string {
	covered, missing := r.Feedback.CoveredPoints, r.Feedback.MissingPoints
	total := len(covered) + len(missing)

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %s/%s. ", prompt.FormatMarks(r.ScoreObtained), prompt.FormatMarks(r.MaxScore))

	switch {
	case r.Similarity == 0 && len(covered) == 0:
		b.WriteString("No answer content matched the expected points. ")
	case len(covered) > 0:
		fmt.Fprintf(&b, "You covered %d of %d key points: %s. ", len(covered), total, strings.Join(covered, "; "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "To improve, address: %s.", strings.Join(missing, "; "))
	} else {
		b.WriteString("All expected points are present; focus on precise terminology and structure.")
	}
	return strings.TrimSpace(b.String())
}

// similarityCache embeds each distinct text once per evaluation.
type similarityCache struct {
	embedder embedding.EmbeddingProvider
	vectors  map[string][]float32
}

func (s *similarityCache) vector(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	v, err := embedding.Vector(ctx, s.embedder, text, embedding.TaskSemanticSimilarity)
	if err != nil {
		return nil, fmt.Errorf("embed for evaluation: %w", err)
	}
	s.vectors[text] = v
	return v, nil
}

// between returns cosine similarity clamped to [0,1]; texts equal after normalisation
// score 1 without an embedding call.
func (s *similarityCache) between(ctx context.Context, a, b string) (float64, error) {
	if normalize(a) == normalize(b) {
		return 1, nil
	}
	va, err := s.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return clamp01(embedding.Cosine(va, vb)), nil
}

func (s *similarityCache) best(ctx context.Context, point string, candidates []string) (float64, error) {
	for _, c := range candidates {
		if normalize(c) == normalize(point) {
			return 1, nil
		}
	}
	best := 0.0
	for _, c := range candidates {
		v, err := s.between(ctx, point, c)
		if err != nil {
			return 0, err
		}
		if v > best {
			best = v
		}
	}
	return best, nil
}

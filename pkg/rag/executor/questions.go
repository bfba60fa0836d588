package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/prompt"
	"study-assistant-be/pkg/workflow"
)

// ErrQuestionShortfall is returned when the regeneration rounds run out before the
// requested number of valid questions was collected.
var ErrQuestionShortfall = errors.New("could not generate enough valid questions")

// MarkConvention supplies the marks for a question type at a difficulty.
type MarkConvention interface {
	Marks(questionType, difficulty string) int
}

// Section is one part of an exam paper blueprint.
type Section struct {
	Name       string
	Type       workflow.QuestionType
	Difficulty workflow.Difficulty
	Count      int
}

func DefaultBlueprint() []Section {
	return []Section{
		{Name: "Section A", Type: workflow.QuestionMCQ, Difficulty: workflow.DifficultyEasy, Count: 5},
		{Name: "Section B", Type: workflow.QuestionShort, Difficulty: workflow.DifficultyMedium, Count: 3},
		{Name: "Section C", Type: workflow.QuestionLong, Difficulty: workflow.DifficultyHard, Count: 2},
	}
}

type QuestionConfig struct {
	DefaultCount      int
	DefaultType       workflow.QuestionType
	DefaultDifficulty workflow.Difficulty
	// MaxRounds bounds how many times the model is asked again after rejecting drafts.
	MaxRounds int
	Blueprint []Section
}

func DefaultQuestionConfig() QuestionConfig {
	return QuestionConfig{
		DefaultCount:      5,
		DefaultType:       workflow.QuestionShort,
		DefaultDifficulty: workflow.DifficultyMedium,
		MaxRounds:         3,
		Blueprint:         DefaultBlueprint(),
	}
}

// QuestionGenerator drafts practice questions. With ExamPaper set it fills every section
// of the blueprint instead of a single batch.
type QuestionGenerator struct {
	llmProvider llm.LLMProvider
	marks       MarkConvention
	cfg         QuestionConfig
	examPaper   bool
	logger      logger.ILogger
}

func NewQuestionGenerator(llmProvider llm.LLMProvider, marks MarkConvention, cfg QuestionConfig, log logger.ILogger) *QuestionGenerator {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	return &QuestionGenerator{llmProvider: llmProvider, marks: marks, cfg: cfg, logger: log}
}

// NewExamPaperGenerator shares the drafting logic and fills cfg.Blueprint.
func NewExamPaperGenerator(llmProvider llm.LLMProvider, marks MarkConvention, cfg QuestionConfig, log logger.ILogger) *QuestionGenerator {
	g := NewQuestionGenerator(llmProvider, marks, cfg, log)
	g.examPaper = true
	if len(g.cfg.Blueprint) == 0 {
		g.cfg.Blueprint = DefaultBlueprint()
	}
	return g
}

func (g *QuestionGenerator) Node() string { return workflow.NodeGenerateQuestions }

func (g *QuestionGenerator) Validate(task Task) error {
	if task.Inputs.Count < 0 {
		return workflow.Validationf("question count cannot be negative")
	}
	return nil
}

func (g *QuestionGenerator) Execute(ctx context.Context, task Task) (Result, error) {
	notes := task.Context
	parsed := ParseQuestionParams(task.Query)
	topic := firstNonEmpty(task.Inputs.Topic, parsed.Topic)

	var (
		questions []workflow.GeneratedQuestion
		intent    = workflow.IntentQuestionGeneration
	)

	if g.examPaper {
		intent = workflow.IntentExamPaperGeneration
		for _, s := range g.cfg.Blueprint {
			if task.Inputs.Difficulty != "" {
				s.Difficulty = task.Inputs.Difficulty
			}
			batch, err := g.generate(ctx, g.request(s.Type, s.Difficulty, s.Count, task.Inputs.Subject, topic), notes, s.Name, questions)
			if err != nil {
				return Result{}, fmt.Errorf("generate %s: %w", s.Name, err)
			}
			questions = append(questions, batch...)
		}
	} else {
		count := task.Inputs.Count
		if count == 0 {
			count = parsed.Count
		}
		if count == 0 {
			count = g.cfg.DefaultCount
		}
		qType := workflow.QuestionType(firstNonEmpty(string(task.Inputs.QuestionType), string(parsed.Type), string(g.cfg.DefaultType)))
		difficulty := workflow.Difficulty(firstNonEmpty(string(task.Inputs.Difficulty), string(parsed.Difficulty), string(g.cfg.DefaultDifficulty)))

		batch, err := g.generate(ctx, g.request(qType, difficulty, count, task.Inputs.Subject, topic), notes, "", nil)
		if err != nil {
			return Result{}, err
		}
		questions = batch
	}

	g.logger.Info("QUESTIONS", "Questions generated", map[string]interface{}{
		"intent": intent,
		"count":  len(questions),
	})
	return Result{Output: workflow.Output{
		Intent:    intent,
		Text:      RenderQuestions(questions),
		Questions: questions,
	}}, nil
}

func (g *QuestionGenerator) request(t workflow.QuestionType, d workflow.Difficulty, count int, subject, topic string) prompt.QuestionRequest {
	return prompt.QuestionRequest{
		Count:      count,
		Type:       t,
		Difficulty: d,
		Marks:      g.marks.Marks(string(t), string(d)),
		Subject:    subject,
		Topic:      topic,
	}
}

// generate asks for drafts until req.Count valid questions are collected. Drafts that
// fail validation or repeat an earlier body are dropped and requested again.
func (g *QuestionGenerator) generate(ctx context.Context, req prompt.QuestionRequest, notes, section string, existing []workflow.GeneratedQuestion) ([]workflow.GeneratedQuestion, error) {
	seen := make(map[string]bool, len(existing)+req.Count)
	var avoid []string
	for _, q := range existing {
		seen[normalizeText(q.Body)] = true
		avoid = append(avoid, q.Body)
	}

	accepted := make([]workflow.GeneratedQuestion, 0, req.Count)
	for round := 1; round <= g.cfg.MaxRounds && len(accepted) < req.Count; round++ {
		ask := req
		ask.Count = req.Count - len(accepted)

		reply, err := chat(ctx, g.llmProvider, prompt.ExaminerSystem, prompt.Questions(ask, notes, avoid), nil, llm.WithTemperature(0.7))
		if err != nil {
			return nil, fmt.Errorf("draft questions: %w", err)
		}

		drafts, err := parseDrafts(reply)
		if err != nil {
			g.logger.Warn("QUESTIONS", "Unparseable question drafts, asking again", map[string]interface{}{"round": round, "error": err.Error()})
			continue
		}

		rejected := 0
		for _, d := range drafts {
			if len(accepted) == req.Count {
				break
			}
			q, err := d.toQuestion(req)
			if err != nil {
				rejected++
				continue
			}
			key := normalizeText(q.Body)
			if seen[key] {
				rejected++
				continue
			}
			seen[key] = true
			q.Section = section
			accepted = append(accepted, q)
			avoid = append(avoid, q.Body)
		}
		if rejected > 0 {
			g.logger.Debug("QUESTIONS", "Rejected question drafts", map[string]interface{}{"round": round, "rejected": rejected})
		}
	}

	if len(accepted) < req.Count {
		return nil, fmt.Errorf("%w: %w: got %d of %d %s questions", llm.ErrGenerationFailed, ErrQuestionShortfall, len(accepted), req.Count, req.Type)
	}
	return accepted, nil
}

type draftOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type draft struct {
	Body          string        `json:"body"`
	Question      string        `json:"question"`
	Options       []draftOption `json:"options"`
	AnswerOutline string        `json:"answer_outline"`
}

// toQuestion validates a draft. MCQs need at least three options, exactly one correct
// and no two with the same text.
func (d draft) toQuestion(req prompt.QuestionRequest) (workflow.GeneratedQuestion, error) {
	body := firstNonEmpty(d.Body, d.Question)
	if body == "" {
		return workflow.GeneratedQuestion{}, errors.New("empty body")
	}

	q := workflow.GeneratedQuestion{
		Type:          req.Type,
		Difficulty:    req.Difficulty,
		Marks:         req.Marks,
		Body:          body,
		AnswerOutline: strings.TrimSpace(d.AnswerOutline),
	}
	if req.Type != workflow.QuestionMCQ {
		return q, nil
	}

	if len(d.Options) < 3 {
		return workflow.GeneratedQuestion{}, fmt.Errorf("mcq needs at least 3 options, got %d", len(d.Options))
	}
	correct := 0
	texts := make(map[string]bool, len(d.Options))
	for _, o := range d.Options {
		text := strings.TrimSpace(o.Text)
		key := normalizeText(text)
		if key == "" {
			return workflow.GeneratedQuestion{}, errors.New("empty option")
		}
		if texts[key] {
			return workflow.GeneratedQuestion{}, fmt.Errorf("duplicate option %q", text)
		}
		texts[key] = true
		if o.Correct {
			correct++
		}
		q.Options = append(q.Options, workflow.QuestionOption{Text: text, Correct: o.Correct})
	}
	if correct != 1 {
		return workflow.GeneratedQuestion{}, fmt.Errorf("mcq needs exactly one correct option, got %d", correct)
	}
	return q, nil
}

// parseDrafts accepts a bare JSON array, an object with a "questions" array, or either
// wrapped in prose or a code fence.
func parseDrafts(reply string) ([]draft, error) {
	if start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]"); start >= 0 && end > start {
		var drafts []draft
		if err := json.Unmarshal([]byte(reply[start:end+1]), &drafts); err == nil {
			return drafts, nil
		}
	}
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		var wrapped struct {
			Questions []draft `json:"questions"`
		}
		if err := json.Unmarshal([]byte(reply[start:end+1]), &wrapped); err == nil && len(wrapped.Questions) > 0 {
			return wrapped.Questions, nil
		}
	}
	return nil, errors.New("no JSON question array in reply")
}

// RenderQuestions formats questions as a numbered paper grouped by section.
func RenderQuestions(questions []workflow.GeneratedQuestion) string {
	var b strings.Builder
	section := ""
	for i, q := range questions {
		if q.Section != "" && q.Section != section {
			section = q.Section
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## %s\n\n", section)
		}
		fmt.Fprintf(&b, "%d. %s [%d mark%s]\n", i+1, q.Body, q.Marks, plural(q.Marks))
		for j, o := range q.Options {
			fmt.Fprintf(&b, "   %c) %s\n", 'A'+j, o.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.Trim(strings.TrimSpace(s), ".?!"))), " ")
}

package workflow

import (
	"strings"

	"github.com/google/uuid"
)

type Intent string

const (
	IntentAnswerGeneration    Intent = "answer_generation"
	IntentAnswerEvaluation    Intent = "answer_evaluation"
	IntentDoubtClarification  Intent = "doubt_clarification"
	IntentQuestionGeneration  Intent = "question_generation"
	IntentExamPaperGeneration Intent = "exam_paper_generation"
)

// AllIntents lists the closed intent set in declaration order.
func AllIntents() []Intent {
	return []Intent{
		IntentAnswerGeneration,
		IntentAnswerEvaluation,
		IntentDoubtClarification,
		IntentQuestionGeneration,
		IntentExamPaperGeneration,
	}
}

// ParseIntent accepts the canonical value as well as upper case and spaced variants
// ("ANSWER_EVALUATION", "answer evaluation").
func ParseIntent(raw string) (Intent, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.Trim(norm, "`'\".,:;")
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, in := range AllIntents() {
		if string(in) == norm {
			return in, true
		}
	}
	return "", false
}

type ClassificationMethod string

const (
	MethodRule     ClassificationMethod = "rule"
	MethodFallback ClassificationMethod = "llm_fallback"
	MethodDefault  ClassificationMethod = "default"
)

type IntentResult struct {
	Intent     Intent               `json:"intent"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
	Degraded   bool                 `json:"degraded"`
	Reason     string               `json:"reason,omitempty"`
	// Candidates holds the tied intents when the rule stage was ambiguous.
	Candidates []Intent `json:"candidates,omitempty"`
}

type DocumentType string

const (
	DocumentNotes         DocumentType = "notes"
	DocumentMarkingScheme DocumentType = "marking_scheme"
	DocumentQuestionPaper DocumentType = "question_paper"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// RetrievedChunk is an indexed passage with its metadata and scores. Treat as immutable.
type RetrievedChunk struct {
	ChunkID      uuid.UUID    `json:"chunk_id"`
	DocumentID   uuid.UUID    `json:"document_id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	DocumentType DocumentType `json:"document_type"`
	Visibility   Visibility   `json:"visibility"`
	Text         string       `json:"text"`
	// Similarity is the raw vector-index score, Score adds the document type boost.
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	// IndexRank is the position returned by the vector index, used to break ties.
	IndexRank int `json:"index_rank"`
}

type PointMatch struct {
	Point      string  `json:"point"`
	Similarity float64 `json:"similarity"`
	Covered    bool    `json:"covered"`
}

type Feedback struct {
	CoveredPoints     []string     `json:"covered_points"`
	MissingPoints     []string     `json:"missing_points"`
	Points            []PointMatch `json:"points"`
	Suggestions       string       `json:"suggestions"`
	SuggestionsSource string       `json:"suggestions_source"` // "llm" or "template"
}

type EvaluationResult struct {
	ScoreObtained  float64  `json:"score_obtained"`
	MaxScore       float64  `json:"max_score"`
	Similarity     float64  `json:"similarity"`
	AwardedPercent int      `json:"awarded_percent"`
	Feedback       Feedback `json:"feedback"`
}

type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionShort     QuestionType = "short"
	QuestionLong      QuestionType = "long"
	QuestionNumerical QuestionType = "numerical"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type QuestionOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type GeneratedQuestion struct {
	Type          QuestionType     `json:"type"`
	Difficulty    Difficulty       `json:"difficulty"`
	Marks         int              `json:"marks"`
	Body          string           `json:"body"`
	Options       []QuestionOption `json:"options,omitempty"`
	AnswerOutline string           `json:"answer_outline,omitempty"`
	Section       string           `json:"section,omitempty"`
}

// Clone returns a deep copy so callers cannot alias the options slice.
func (q GeneratedQuestion) Clone() GeneratedQuestion {
	q.Options = append([]QuestionOption(nil), q.Options...)
	return q
}

type AnswerSource string

const (
	SourceNotes            AnswerSource = "notes"
	SourceGeneralKnowledge AnswerSource = "general_knowledge"
	SourceMixed            AnswerSource = "notes_and_general_knowledge"
)

type GeneratedAnswer struct {
	Text          string `json:"text"`
	SchemeAligned bool   `json:"scheme_aligned"`
	Notice        string `json:"notice,omitempty"`
}

type DoubtAnswer struct {
	Text   string       `json:"text"`
	Source AnswerSource `json:"source"`
}

// TaskInputs carries the caller supplied parameters for the executors.
type TaskInputs struct {
	StudentAnswer   string       `json:"student_answer,omitempty" validate:"max=20000"`
	ReferenceAnswer string       `json:"reference_answer,omitempty" validate:"max=20000"`
	MarkingScheme   string       `json:"marking_scheme,omitempty" validate:"max=20000"`
	MaxScore        float64      `json:"max_score,omitempty" validate:"omitempty,gte=0.01,lte=1000"`
	Question        string       `json:"question,omitempty" validate:"max=4000"`
	Subject         string       `json:"subject,omitempty" validate:"max=200"`
	Topic           string       `json:"topic,omitempty" validate:"max=200"`
	Difficulty      Difficulty   `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	QuestionType    QuestionType `json:"question_type,omitempty" validate:"omitempty,oneof=mcq short long numerical"`
	Count           int          `json:"count,omitempty" validate:"gte=0,lte=50"`
}

// Output is the task result. Exactly one of the pointer fields (or Questions) is set.
type Output struct {
	Intent     Intent              `json:"intent"`
	Text       string              `json:"text"`
	Answer     *GeneratedAnswer    `json:"answer,omitempty"`
	Evaluation *EvaluationResult   `json:"evaluation,omitempty"`
	Doubt      *DoubtAnswer        `json:"doubt,omitempty"`
	Questions  []GeneratedQuestion `json:"questions,omitempty"`
}

func (o Output) clone() Output {
	if len(o.Questions) > 0 {
		qs := make([]GeneratedQuestion, len(o.Questions))
		for i, q := range o.Questions {
			qs[i] = q.Clone()
		}
		o.Questions = qs
	}
	return o
}

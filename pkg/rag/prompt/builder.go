package prompt

import (
	"fmt"
	"strings"

	"study-assistant-be/pkg/workflow"
)

// GeneralKnowledgeMarker prefixes any paragraph that is not supported by the student's notes.
const GeneralKnowledgeMarker = "[General knowledge]"

const AnswerWriterSystem = `You are an academic assistant that writes exam answers for students.
Follow marking schemes when they are provided, use clear academic language and organise the answer with headings or bullet points where they help.`

const TutorSystem = `You are a patient tutor. Prefer the student's own notes. When the notes are not enough, answer from general knowledge and say so.`

const ExaminerSystem = `You are an experienced examiner writing practice questions. Questions must be clear, unambiguous and test understanding rather than recall.`

// Classification asks for the three-line INTENT/CONFIDENCE/REASONING format.
// When candidates is non-empty the model must pick one of them.
func Classification(query string, candidates []workflow.Intent) string {
	var b strings.Builder

	b.WriteString("<system>\n")
	b.WriteString("You classify requests sent to a study assistant. You do NOT answer them.\n")
	b.WriteString("</system>\n\n")

	b.WriteString("<intents>\n")
	b.WriteString("ANSWER_GENERATION: the student wants a model answer written for a question, usually following a marking scheme\n")
	b.WriteString("ANSWER_EVALUATION: the student wants their own answer graded or checked\n")
	b.WriteString("DOUBT_CLARIFICATION: the student asks about a concept or wants an explanation\n")
	b.WriteString("QUESTION_GENERATION: the student wants practice questions\n")
	b.WriteString("EXAM_PAPER_GENERATION: the student wants a complete exam paper\n")
	b.WriteString("</intents>\n\n")

	if len(candidates) > 0 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = strings.ToUpper(string(c))
		}
		fmt.Fprintf(&b, "<constraint>\nChoose ONLY between: %s\n</constraint>\n\n", strings.Join(names, ", "))
	}

	b.WriteString("<user_query>\n")
	b.WriteString(query)
	b.WriteString("\n</user_query>\n\n")

	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("INTENT: <intent_name>\n")
	b.WriteString("CONFIDENCE: <0.0-1.0>\n")
	b.WriteString("REASONING: <one sentence>\n")
	return b.String()
}

func SchemeAlignedAnswer(question, scheme, notes string) string {
	var b strings.Builder
	b.WriteString("Write a complete exam answer for the question below.\n\n")
	writeSection(&b, "question", question)
	writeSection(&b, "marking_scheme", scheme)
	if notes != "" {
		writeSection(&b, "notes", notes)
	}
	b.WriteString("<instructions>\n")
	b.WriteString("1. Follow the marking scheme strictly, one section per marking point, in the scheme's order\n")
	b.WriteString("2. State the marks each section targets, matching the scheme's allocation\n")
	b.WriteString("3. Support each point with material from the notes where available\n")
	b.WriteString("4. Open with a short introduction and close with a conclusion\n")
	b.WriteString("</instructions>\n")
	return b.String()
}

func NotesOnlyAnswer(question, notes string) string {
	var b strings.Builder
	b.WriteString("Write a comprehensive answer for the question below using the student's notes.\n\n")
	writeSection(&b, "question", question)
	if notes == "" {
		notes = "(no notes matched this question)"
	}
	writeSection(&b, "notes", notes)
	b.WriteString("<instructions>\n")
	b.WriteString("1. Use the notes as the primary source and cite the concepts you rely on\n")
	b.WriteString("2. Structure the answer as introduction, main points and conclusion\n")
	b.WriteString("3. Keep the language clear and academic\n")
	b.WriteString("</instructions>\n")
	return b.String()
}

func Feedback(question, studentAnswer string, obtained, max float64, covered, missing []string) string {
	var b strings.Builder
	b.WriteString("Write constructive feedback for a student's answer.\n\n")
	if question != "" {
		writeSection(&b, "question", question)
	}
	writeSection(&b, "student_answer", studentAnswer)
	fmt.Fprintf(&b, "<score>%s/%s</score>\n\n", FormatMarks(obtained), FormatMarks(max))
	writeSection(&b, "covered_points", bulletList(covered))
	writeSection(&b, "missing_points", bulletList(missing))
	b.WriteString("<instructions>\n")
	b.WriteString("Acknowledge what was done well, then give specific, actionable suggestions for each missing point.\n")
	b.WriteString("Keep a supportive tone and stay under 150 words.\n")
	b.WriteString("</instructions>\n")
	return b.String()
}

func DoubtFromNotes(query, notes string) string {
	var b strings.Builder
	b.WriteString("Answer the student's question using their notes.\n\n")
	writeSection(&b, "question", query)
	writeSection(&b, "notes", notes)
	b.WriteString("<instructions>\n")
	b.WriteString("1. Base the explanation on the notes and mention the concepts you use from them\n")
	fmt.Fprintf(&b, "2. If you must add anything the notes do not contain, put it in its own paragraph starting with %q\n", GeneralKnowledgeMarker)
	b.WriteString("3. Use short paragraphs and an example when it helps\n")
	b.WriteString("</instructions>\n")
	return b.String()
}

func DoubtGeneral(query string) string {
	var b strings.Builder
	b.WriteString("Answer the student's question from general knowledge.\n\n")
	writeSection(&b, "question", query)
	b.WriteString("<instructions>\n")
	b.WriteString("1. Give a clear, accurate explanation with an example if helpful\n")
	b.WriteString("2. Match the format the student asked for; otherwise be concise but thorough\n")
	b.WriteString("</instructions>\n")
	return b.String()
}

// QuestionRequest describes one batch of questions to draft.
type QuestionRequest struct {
	Count      int
	Type       workflow.QuestionType
	Difficulty workflow.Difficulty
	Marks      int
	Subject    string
	Topic      string
}

// Questions asks for a JSON array. avoid lists bodies that were already accepted so the
// model does not repeat them in a regeneration round.
func Questions(req QuestionRequest, notes string, avoid []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s question(s) at %s difficulty worth %d mark(s) each.\n\n",
		req.Count, questionTypeLabel(req.Type), req.Difficulty, req.Marks)

	if req.Subject != "" {
		writeSection(&b, "subject", req.Subject)
	}
	if req.Topic != "" {
		writeSection(&b, "topic", req.Topic)
	}
	if notes == "" {
		notes = "(no notes available, use standard syllabus content for the topic)"
	}
	writeSection(&b, "notes", notes)
	if len(avoid) > 0 {
		writeSection(&b, "already_written", bulletList(avoid))
	}

	b.WriteString("<format>\n")
	b.WriteString("Reply with a JSON array only. Each element:\n")
	switch req.Type {
	case workflow.QuestionMCQ:
		b.WriteString(`{"body": "...", "options": [{"text": "...", "correct": false}, ...], "answer_outline": "why the correct option is right"}` + "\n")
		b.WriteString("Exactly four options, exactly one with \"correct\": true, and no two options with the same text.\n")
	case workflow.QuestionNumerical:
		b.WriteString(`{"body": "problem with all given data", "answer_outline": "numbered solution steps and final answer"}` + "\n")
	case workflow.QuestionLong:
		b.WriteString(`{"body": "...", "answer_outline": "introduction, main points, conclusion"}` + "\n")
	default:
		b.WriteString(`{"body": "...", "answer_outline": "2-4 expected answer points"}` + "\n")
	}
	b.WriteString("</format>\n")
	return b.String()
}

func questionTypeLabel(t workflow.QuestionType) string {
	switch t {
	case workflow.QuestionMCQ:
		return "multiple-choice"
	case workflow.QuestionLong:
		return "long answer"
	case workflow.QuestionNumerical:
		return "numerical"
	default:
		return "short answer"
	}
}

// FormatMarks prints whole marks without decimals and fractional marks with up to two.
func FormatMarks(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func writeSection(b *strings.Builder, tag, body string) {
	fmt.Fprintf(b, "<%s>\n%s\n</%s>\n\n", tag, strings.TrimSpace(body), tag)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return b.String()
}

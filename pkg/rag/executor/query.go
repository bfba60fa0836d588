package executor

import (
	"regexp"
	"strconv"
	"strings"

	"study-assistant-be/pkg/workflow"
)

var (
	studentAnswerPattern = regexp.MustCompile(`(?is)\b(?:my|student(?:'s)?)\s+answer(?:\s+is)?\s*[:\-]\s*(.+)$`)
	questionPattern      = regexp.MustCompile(`(?is)\bquestion\s*[:\-]\s*(.+?)(?:\s*\b(?:my|student(?:'s)?)\s+answer\b|$)`)
	countPattern         = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:[a-z\-]+\s+){0,3}(?:questions?|mcqs?|problems?)\b`)
	topicPattern         = regexp.MustCompile(`(?i)\b(?:on|about|covering|for the topic|topic)\s*:?\s+(.+?)\s*(?:[.?!]|$)`)

	wordCounts = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
	wordCountPattern = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)\s+(?:[a-z\-]+\s+){0,3}(?:questions?|mcqs?|problems?)\b`)
)

// ExtractStudentAnswer returns the text after "my answer:" in the query, or "".
func ExtractStudentAnswer(query string) string {
	m := studentAnswerPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractQuestion returns the text after "question:" up to any "my answer" marker, or "".
func ExtractQuestion(query string) string {
	m := questionPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// QuestionParams are the question-generation parameters read from free text.
type QuestionParams struct {
	Count      int
	Type       workflow.QuestionType
	Difficulty workflow.Difficulty
	Topic      string
}

// ParseQuestionParams reads count, type, difficulty and topic from the query. Fields that
// are not mentioned are left zero.
func ParseQuestionParams(query string) QuestionParams {
	var p QuestionParams
	lower := strings.ToLower(query)

	if m := countPattern.FindStringSubmatch(query); m != nil {
		p.Count, _ = strconv.Atoi(m[1])
	} else if m := wordCountPattern.FindStringSubmatch(query); m != nil {
		p.Count = wordCounts[strings.ToLower(m[1])]
	}

	switch {
	case containsAny(lower, "mcq", "multiple choice", "multiple-choice", "objective"):
		p.Type = workflow.QuestionMCQ
	case containsAny(lower, "numerical", "calculation", "numeric", "problem"):
		p.Type = workflow.QuestionNumerical
	case containsAny(lower, "long answer", "long-answer", "essay", "long question"):
		p.Type = workflow.QuestionLong
	case containsAny(lower, "short answer", "short-answer", "short question"):
		p.Type = workflow.QuestionShort
	}

	switch {
	case containsAny(lower, "easy", "simple", "basic"):
		p.Difficulty = workflow.DifficultyEasy
	case containsAny(lower, "hard", "difficult", "challenging", "advanced"):
		p.Difficulty = workflow.DifficultyHard
	case containsAny(lower, "medium", "moderate", "intermediate"):
		p.Difficulty = workflow.DifficultyMedium
	}

	if m := topicPattern.FindStringSubmatch(query); m != nil {
		p.Topic = strings.TrimSpace(m[1])
	}
	return p
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package intent

import (
	"regexp"

	"study-assistant-be/pkg/workflow"
)

// RuleSet is the phrase fragments that characterise one intent.
type RuleSet struct {
	Intent   workflow.Intent
	Patterns []*regexp.Regexp
}

// Matches counts how many patterns of the set hit the query.
func (r RuleSet) Matches(query string) int {
	n := 0
	for _, p := range r.Patterns {
		if p.MatchString(query) {
			n++
		}
	}
	return n
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// DefaultRules is the built-in rule table.
func DefaultRules() []RuleSet {
	return []RuleSet{
		{
			Intent: workflow.IntentExamPaperGeneration,
			Patterns: patterns(
				`\b(exam|question|test|model|sample) paper\b`,
				`\bmock (exam|test)\b`,
				`\bfull[- ]length (exam|test|paper)\b`,
			),
		},
		{
			Intent: workflow.IntentAnswerEvaluation,
			Patterns: patterns(
				`\bevaluate\b`,
				`\b(check|grade|mark|score|assess|review) (my|this) answer\b`,
				`\bhow (good|well|many marks)\b.*\bmy answer\b`,
				`\bmy answer\s*:`,
				`\bgrade (me|this|my)\b`,
			),
		},
		{
			Intent: workflow.IntentQuestionGeneration,
			Patterns: patterns(
				`\b(generate|create|make|give me|write|prepare)\b.*\bquestions?\b`,
				`\bpractice questions?\b`,
				`\b(mcqs?|multiple[- ]choice)\b`,
				`\bquiz me\b`,
			),
		},
		{
			Intent: workflow.IntentAnswerGeneration,
			Patterns: patterns(
				`\b(write|generate|draft|prepare) (an? |the |my )?(model |full |complete )?answer\b`,
				`\banswer (this|the following|the) question\b`,
				`\b(as per|according to|using) (the )?marking scheme\b`,
				`\bmodel answer\b`,
			),
		},
		{
			Intent: workflow.IntentDoubtClarification,
			Patterns: patterns(
				`^\s*(what|why|how|when|where|who|which)\b`,
				`\bexplain\b`,
				`\b(difference between|meaning of)\b`,
				`\bi (don'?t|do not) understand\b`,
				`\b(clarify|define)\b`,
			),
		},
	}
}

// tieBreakOrder decides ambiguous rule matches when the fallback cannot.
var tieBreakOrder = []workflow.Intent{
	workflow.IntentExamPaperGeneration,
	workflow.IntentAnswerEvaluation,
	workflow.IntentQuestionGeneration,
	workflow.IntentAnswerGeneration,
	workflow.IntentDoubtClarification,
}

func byPriority(candidates []workflow.Intent) workflow.Intent {
	for _, in := range tieBreakOrder {
		for _, c := range candidates {
			if c == in {
				return in
			}
		}
	}
	return workflow.IntentDoubtClarification
}

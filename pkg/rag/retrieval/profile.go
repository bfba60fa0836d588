package retrieval

import "study-assistant-be/pkg/workflow"

// Profile tunes retrieval for one intent.
type Profile struct {
	TopK int
	// Keywords are appended to the query before embedding.
	Keywords string
	// Priorities lists preferred document types, most preferred first.
	Priorities []workflow.DocumentType
}

// Boost returns (len-idx)*0.1 for a prioritised type and 0 otherwise.
func (p Profile) Boost(t workflow.DocumentType) float64 {
	for i, pt := range p.Priorities {
		if pt == t {
			return float64(len(p.Priorities)-i) * 0.1
		}
	}
	return 0
}

func DefaultProfiles() map[workflow.Intent]Profile {
	return map[workflow.Intent]Profile{
		workflow.IntentAnswerGeneration: {
			TopK:       10,
			Keywords:   "answer solution explanation",
			Priorities: []workflow.DocumentType{workflow.DocumentMarkingScheme, workflow.DocumentNotes, workflow.DocumentQuestionPaper},
		},
		workflow.IntentAnswerEvaluation: {
			TopK:       5,
			Keywords:   "marking scheme grading criteria",
			Priorities: []workflow.DocumentType{workflow.DocumentMarkingScheme},
		},
		workflow.IntentDoubtClarification: {
			TopK:       8,
			Keywords:   "explanation concept definition",
			Priorities: []workflow.DocumentType{workflow.DocumentNotes, workflow.DocumentMarkingScheme},
		},
		workflow.IntentQuestionGeneration: {
			TopK:       10,
			Keywords:   "questions examples problems",
			Priorities: []workflow.DocumentType{workflow.DocumentNotes, workflow.DocumentQuestionPaper},
		},
		workflow.IntentExamPaperGeneration: {
			TopK:       15,
			Keywords:   "questions topics syllabus",
			Priorities: []workflow.DocumentType{workflow.DocumentNotes, workflow.DocumentQuestionPaper, workflow.DocumentMarkingScheme},
		},
	}
}

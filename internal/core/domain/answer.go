package domain

import "fmt"

// ClauseCitation is one cited policy clause, copied verbatim from a chunk
// that was consumed to produce the answer.
type ClauseCitation struct {
	Content  string `json:"content"`
	Document string `json:"document"`
	Section  string `json:"section"`
}

// GeneratedAnswer is the terminal structured output for one question.
type GeneratedAnswer struct {
	Decision      string           `json:"decision"`
	Amount        *float64         `json:"amount"`
	Justification string           `json:"justification"`
	Clauses       []ClauseCitation `json:"clauses"`
}

// NotFoundAnswer is returned deterministically when retrieval produced no
// context, without invoking the text-generation capability.
func NotFoundAnswer() GeneratedAnswer {
	return GeneratedAnswer{
		Decision:      "Not Found",
		Justification: "Could not find relevant information in the provided documents.",
		Clauses:       []ClauseCitation{},
	}
}

// ErrorAnswer absorbs a generation or parsing failure into a well-formed
// answer object carrying the cause.
func ErrorAnswer(cause error) GeneratedAnswer {
	return GeneratedAnswer{
		Decision:      "Error",
		Justification: fmt.Sprintf("Failed to generate a valid response: %v", cause),
		Clauses:       []ClauseCitation{},
	}
}

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// QuestionResult is the per-question outcome of a batch run. A batch always
// yields exactly one result per input question, in input order.
type QuestionResult struct {
	Question        string           `json:"question"`
	Status          ResultStatus     `json:"status"`
	Enhanced        *EnhancedQuery   `json:"enhanced,omitempty"`
	Chunks          []RetrievedChunk `json:"chunks,omitempty"`
	Answer          *GeneratedAnswer `json:"answer,omitempty"`
	GeneratedAnswer string           `json:"generated_answer,omitempty"`
	Error           string           `json:"error,omitempty"`
}

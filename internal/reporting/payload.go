package reporting

import (
	"context"
)

// Payload is the result row sent to external sinks once an attempt is final
type Payload struct {
	TestType       string `json:"testType"`
	Name           string `json:"name"`
	StudentID      string `json:"studentId"`
	Program        string `json:"program,omitempty"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	Marks          int    `json:"marks"`
	TotalQuestions int    `json:"totalQuestions"`
	TotalMarks     int    `json:"totalMarks"`
	TimeSpent      string `json:"timeSpent"`
	Date           string `json:"date"`
	Answers        string `json:"answers"`
	AudioUsage     string `json:"audioUsage,omitempty"`
	IsTimeout      bool   `json:"isTimeout"`
}

// Sink delivers a payload somewhere outside the LMS. Errors are only logged.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// Reporter is what the attempt controller depends on
type Reporter interface {
	Dispatch(p Payload)
}

// Discard drops every payload
type Discard struct{}

func (Discard) Dispatch(Payload) {}

package main

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed quiz/questions.yaml
var defaultQuestions []byte

// Question is immutable once activated. CorrectAnswer is only set for
// trivia-style questions; vote rounds leave it nil.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Text          string   `yaml:"text" json:"text"`
	Options       []string `yaml:"options" json:"options"`
	TimeLimit     int      `yaml:"timeLimit" json:"timeLimit"`
	CorrectAnswer *int     `yaml:"correctAnswer,omitempty" json:"correctAnswer,omitempty"`
}

// sanitized strips the correct answer, for sending while the question
// is still open.
func (q *Question) sanitized() *Question {
	if q == nil {
		return nil
	}
	out := *q
	out.CorrectAnswer = nil
	return &out
}

func (q *Question) hasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

type QuestionBank struct {
	Questions []Question `yaml:"questions"`
}

// At wraps around the bank, so a game with more rounds than questions
// keeps serving questions instead of stalling.
func (b *QuestionBank) At(i int) *Question {
	return &b.Questions[i%len(b.Questions)]
}

func (b *QuestionBank) validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("question bank contains no questions")
	}

	seen := make(map[string]bool, len(b.Questions))
	for i, q := range b.Questions {
		if q.ID == "" {
			return fmt.Errorf("question %d has no id", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true

		if q.Text == "" {
			return fmt.Errorf("question %q has no text", q.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q needs at least two options", q.ID)
		}
		if q.TimeLimit < 1 {
			return fmt.Errorf("question %q has an invalid time limit: %d", q.ID, q.TimeLimit)
		}
		if q.CorrectAnswer != nil && (*q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options)) {
			return fmt.Errorf("question %q has an out-of-range correct answer: %d", q.ID, *q.CorrectAnswer)
		}
	}

	return nil
}

// loadQuestionBank parses the bank at path, or the embedded default
// set when path is empty.
func loadQuestionBank(path string) (*QuestionBank, error) {
	data := defaultQuestions

	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading question bank: %w", err)
		}
	}

	bank := &QuestionBank{}
	if err := yaml.Unmarshal(data, bank); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}

	if err := bank.validate(); err != nil {
		return nil, err
	}

	return bank, nil
}

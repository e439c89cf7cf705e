package schema

import "time"

// Mutation is one journaled dispatch of a sheet mutation.
type Mutation struct {
	ID        string    `json:"id" yaml:"id"`
	Action    string    `json:"action" yaml:"action"`
	Name      string    `json:"questionName" yaml:"question_name"`
	Value     string    `json:"value" yaml:"value"`
	Method    string    `json:"method" yaml:"method"`
	Outcome   string    `json:"outcome" yaml:"outcome"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

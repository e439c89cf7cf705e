package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/shape"
)

// Solution is a model-written explanation of a question.
type Solution struct {
	QuestionLink string `json:"questionLink"`
	Description  string `json:"description"`
	InputOutput  string `json:"inputOutput"`
	Approach     string `json:"approach"`
	CppSolution  string `json:"cppSolution"`
}

// UnavailableSolution is returned when no write-up could be produced.
func UnavailableSolution(link string) Solution {
	return Solution{
		QuestionLink: link,
		Description:  "Unable to fetch solution at this time. Please check your AI configuration.",
		InputOutput:  "N/A",
		Approach:     "N/A",
		CppSolution:  "// Solution unavailable",
	}
}

var solutionShape = shape.Object{
	{Name: "description", Kind: shape.String},
	{Name: "inputOutput", Kind: shape.String},
	{Name: "approach", Kind: shape.String},
	{Name: "cppSolution", Kind: shape.String},
}

// Solve asks the model for a write-up of q. It never fails; missing fields
// keep their unavailable values and the link is always q's own.
func (e *Extractor) Solve(ctx context.Context, q schema.Question) Solution {
	sol := UnavailableSolution(q.Link)

	raw, err := e.generate(ctx, solutionPrompt(q))
	if err != nil {
		e.logger.Printf("Solution generation for %q failed: %v", q.Name, err)
		return sol
	}

	m, ok := decodeFirst(raw)
	if !ok {
		e.logger.Printf("Solution response for %q was not JSON", q.Name)
		return sol
	}

	fields, violations := solutionShape.Conform(m)
	if len(violations) > 0 {
		e.logger.Printf("Solution response for %q: %v", q.Name, (&shape.Error{Violations: violations}).Error())
	}
	sol.Description = shape.Str(fields, "description", sol.Description)
	sol.InputOutput = shape.Str(fields, "inputOutput", sol.InputOutput)
	sol.Approach = shape.Str(fields, "approach", sol.Approach)
	sol.CppSolution = shape.Str(fields, "cppSolution", sol.CppSolution)
	return sol
}

func solutionPrompt(q schema.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert competitive programmer. Explain how to solve this problem.\n\n")
	fmt.Fprintf(&b, "Question: %s\nPlatform: %s\nLink: %s\n", q.Name, q.Platform, q.Link)
	if q.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", q.Topic)
	}
	b.WriteString(`
Respond with ONLY a JSON object:
{
  "description": "problem statement in a few sentences",
  "inputOutput": "input and output format with one example",
  "approach": "step by step approach with time and space complexity",
  "cppSolution": "complete C++ solution"
}`)
	return b.String()
}

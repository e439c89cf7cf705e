package sheet

import (
	"strings"

	"github.com/dsadash/dsadash/internal/schema"
)

// Column positions in the exported sheet. The layout is positional; header
// names are never consulted.
const (
	colName = iota
	colPlatform
	colLink
	colTopic
	colStatus
	colPinned
)

// MapRow converts one record to a Question. Missing columns read as empty;
// an empty status becomes "Pending" and pinned is true only for a
// case-insensitive "true".
func MapRow(row []string) schema.Question {
	q := schema.Question{
		Name:     field(row, colName),
		Platform: field(row, colPlatform),
		Link:     field(row, colLink),
		Topic:    field(row, colTopic),
		Status:   field(row, colStatus),
		Pinned:   strings.EqualFold(strings.TrimSpace(field(row, colPinned)), "true"),
	}
	if q.Status == "" {
		q.Status = schema.StatusPending
	}
	return q
}

// MapRows maps every record after the header and drops questions that have
// no name, platform or link.
func MapRows(rows [][]string) []schema.Question {
	if len(rows) <= 1 {
		return []schema.Question{}
	}

	questions := make([]schema.Question, 0, len(rows)-1)
	for _, row := range rows[1:] {
		q := MapRow(row)
		if !q.HasContent() {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

// ParseQuestions tokenizes exported text and maps it to questions.
// Returns ErrNoData when the text holds no records beyond the header.
func ParseQuestions(text string) ([]schema.Question, error) {
	rows := ParseCSV(text)
	if len(rows) <= 1 {
		return nil, ErrNoData
	}
	return MapRows(rows), nil
}

// FormatQuestions renders questions back to the six-column layout with the
// conventional header row.
func FormatQuestions(questions []schema.Question) string {
	rows := make([][]string, 0, len(questions)+1)
	rows = append(rows, []string{"name", "platform", "link", "topic", "status", "pinned"})
	for _, q := range questions {
		pinned := "FALSE"
		if q.Pinned {
			pinned = "TRUE"
		}
		rows = append(rows, []string{q.Name, q.Platform, q.Link, q.Topic, q.Status, pinned})
	}
	return FormatCSV(rows)
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

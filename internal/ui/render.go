package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dsadash/dsadash/internal/extract"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/reconcile"
	"github.com/dsadash/dsadash/internal/schema"
)

const (
	pinMark = "*"
	gap     = "  "
	minName = 12
)

// QuestionTable renders questions as aligned columns fitting width. Pinned
// rows are marked with an asterisk. Long names and links are clipped.
func QuestionTable(questions []schema.Question, width int) string {
	if len(questions) == 0 {
		return styleMuted.Render("No questions loaded.") + "\n"
	}

	headers := []string{"", "NAME", "PLATFORM", "TOPIC", "STATUS", "LINK"}
	rows := make([][]string, 0, len(questions))
	for _, q := range questions {
		mark := ""
		if q.Pinned {
			mark = pinMark
		}
		rows = append(rows, []string{mark, q.Name, q.Platform, q.Topic, q.Status, q.Link})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	fit(widths, width)

	var b strings.Builder
	writeRow(&b, headers, widths, func(int, string) lipgloss.Style { return styleHeader })
	for _, row := range rows {
		writeRow(&b, row, widths, cellStyle)
	}
	return b.String()
}

// fit shrinks the link column, then the name column, until the table fits.
func fit(widths []int, width int) {
	total := func() int {
		n := len(gap) * (len(widths) - 1)
		for _, w := range widths {
			n += w
		}
		return n
	}

	const link, name = 5, 1
	if over := total() - width; over > 0 {
		widths[link] = max(len("LINK"), widths[link]-over)
	}
	if over := total() - width; over > 0 {
		widths[name] = max(minName, widths[name]-over)
	}
}

func cellStyle(col int, value string) lipgloss.Style {
	switch col {
	case 0:
		return styleHeader
	case 4:
		return statusStyle(value)
	case 5:
		return styleMuted
	default:
		return lipgloss.NewStyle()
	}
}

func statusStyle(status string) lipgloss.Style {
	q := schema.Question{Status: status}
	switch {
	case q.IsSolved():
		return styleSolved
	case q.IsPending():
		return stylePending
	default:
		return lipgloss.NewStyle()
	}
}

func writeRow(b *strings.Builder, cells []string, widths []int, style func(int, string) lipgloss.Style) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		clipped := clip(cell, widths[i])
		padded := clipped + strings.Repeat(" ", widths[i]-lipgloss.Width(clipped))
		parts[i] = style(i, cell).Render(padded)
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, gap), " "))
	b.WriteByte('\n')
}

// clip shortens s to at most n cells, ending with an ellipsis when cut.
func clip(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	if n <= 1 {
		return string([]rune(s)[:max(n, 0)])
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// Summary is a one-line count of the list.
func Summary(questions []schema.Question, fetchedAt time.Time) string {
	var solved, pending int
	for _, q := range questions {
		switch {
		case q.IsSolved():
			solved++
		case q.IsPending():
			pending++
		}
	}
	line := fmt.Sprintf("%d questions, %d solved, %d pending", len(questions), solved, pending)
	if !fetchedAt.IsZero() {
		line += fmt.Sprintf(" (fetched %s)", fetchedAt.Local().Format("2006-01-02 15:04"))
	}
	return styleMuted.Render(line) + "\n"
}

// Result describes a settled mutation, including the manual fallback when
// the change stayed local.
func Result(res mutate.Result) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(res.Message))
	b.WriteString(styleMuted.Render(fmt.Sprintf(" [%s]", res.Method)))
	b.WriteByte('\n')

	if res.Row > 0 {
		fmt.Fprintf(&b, "Row: %d\n", res.Row)
	}
	if res.Note != "" {
		b.WriteString(styleMuted.Render(res.Note))
		b.WriteByte('\n')
	}
	if res.ManualUpdate != nil {
		b.WriteString(res.ManualUpdate.Instructions)
		b.WriteByte('\n')
	}
	if res.Err != nil {
		b.WriteString(styleError.Render("Remote update failed: " + res.Err.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}

// SetupSteps lists the steps for enabling remote updates.
func SetupSteps(s *mutate.SetupInstructions) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleHeader.Render(s.Title))
	b.WriteByte('\n')
	b.WriteString(s.Description)
	b.WriteByte('\n')
	for _, step := range s.Steps {
		b.WriteString("  " + step + "\n")
	}
	if s.Alternative != "" {
		b.WriteString(styleMuted.Render(s.Alternative))
		b.WriteByte('\n')
	}
	return b.String()
}

// Error formats err for stderr.
func Error(err error) string {
	return styleError.Render("Error: ") + err.Error() + "\n"
}

// Notice renders a store event as one line.
func Notice(n reconcile.Notice) string {
	switch n.Kind {
	case reconcile.NoticeRefreshed:
		return styleSolved.Render(fmt.Sprintf("Loaded %d questions", n.Count))
	case reconcile.NoticeRefreshFailed:
		return styleError.Render(n.Message)
	case reconcile.NoticeRolledBack:
		return styleError.Render(n.Message)
	case reconcile.NoticeHighlight:
		return styleHeader.Render("→ " + n.Name)
	default:
		if n.Message != "" {
			return n.Message
		}
		return fmt.Sprintf("%s %s", n.Kind, n.Name)
	}
}

// Question renders one question as a short card.
func Question(q schema.Question) string {
	var b strings.Builder
	title := q.Name
	if q.Pinned {
		title = pinMark + " " + title
	}
	b.WriteString(styleTitle.Render(title))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  %s · %s · %s\n", q.Platform, q.Topic, statusStyle(q.Status).Render(q.Status))
	if q.Link != "" && q.Link != schema.PlaceholderLink {
		b.WriteString("  " + styleMuted.Render(q.Link) + "\n")
	}
	return b.String()
}

// Solution renders a write-up with titled sections.
func Solution(name string, sol extract.Solution) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(name))
	b.WriteByte('\n')
	if sol.QuestionLink != "" && sol.QuestionLink != schema.PlaceholderLink {
		b.WriteString(styleMuted.Render(sol.QuestionLink))
		b.WriteByte('\n')
	}
	for _, sec := range []struct{ title, body string }{
		{"Problem", sol.Description},
		{"Input / Output", sol.InputOutput},
		{"Approach", sol.Approach},
		{"C++", sol.CppSolution},
	} {
		b.WriteByte('\n')
		b.WriteString(styleHeader.Render(sec.title))
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(sec.body, "\n"))
		b.WriteByte('\n')
	}
	return b.String()
}

// Search renders a search result.
func Search(res extract.SearchResult) string {
	var b strings.Builder
	if res.SuggestedQuestion != nil {
		b.WriteString(styleTitle.Render(*res.SuggestedQuestion))
		b.WriteByte('\n')
	}
	b.WriteString(res.Explanation)
	b.WriteByte('\n')
	if len(res.AlternativeMatches) > 0 {
		b.WriteString(styleMuted.Render("Also: " + strings.Join(res.AlternativeMatches, ", ")))
		b.WriteByte('\n')
	}
	return b.String()
}

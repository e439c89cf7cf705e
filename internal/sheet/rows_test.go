package sheet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dsadash/dsadash/internal/schema"
)

func TestMapRow_Defaults(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want schema.Question
	}{
		{
			name: "empty status and pinned",
			row:  []string{"Two Sum", "LeetCode", "https://leetcode.com/problems/two-sum", "Arrays", "", ""},
			want: schema.Question{
				Name: "Two Sum", Platform: "LeetCode", Link: "https://leetcode.com/problems/two-sum",
				Topic: "Arrays", Status: "Pending", Pinned: false,
			},
		},
		{
			name: "uppercase TRUE pins",
			row:  []string{"X", "Y", "Z", "W", "Solved", "TRUE"},
			want: schema.Question{Name: "X", Platform: "Y", Link: "Z", Topic: "W", Status: "Solved", Pinned: true},
		},
		{
			name: "mixed case true with spaces",
			row:  []string{"X", "Y", "Z", "W", "Solved", " True "},
			want: schema.Question{Name: "X", Platform: "Y", Link: "Z", Topic: "W", Status: "Solved", Pinned: true},
		},
		{
			name: "anything else is not pinned",
			row:  []string{"X", "Y", "Z", "W", "Solved", "yes"},
			want: schema.Question{Name: "X", Platform: "Y", Link: "Z", Topic: "W", Status: "Solved"},
		},
		{
			name: "short row",
			row:  []string{"Only Name"},
			want: schema.Question{Name: "Only Name", Status: "Pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapRow(tt.row); got != tt.want {
				t.Errorf("MapRow(%q) = %+v, want %+v", tt.row, got, tt.want)
			}
		})
	}
}

func TestMapRows_SkipsHeaderAndEmptyRows(t *testing.T) {
	rows := [][]string{
		{"name", "platform", "link", "topic", "status", "pinned"},
		{"A", "B", "C", "D", "Pending", "FALSE"},
		{"", "", "", "Orphan Topic", "Solved", "TRUE"},
		{"", " ", ""},
		{"", "", "https://example.com/p/1"},
	}

	got := MapRows(rows)
	if len(got) != 2 {
		t.Fatalf("MapRows returned %d questions, want 2: %+v", len(got), got)
	}
	if got[0].Name != "A" {
		t.Errorf("first question = %q, want A", got[0].Name)
	}
	if got[1].Link != "https://example.com/p/1" {
		t.Errorf("second question link = %q", got[1].Link)
	}
}

func TestParseQuestions_NoData(t *testing.T) {
	for _, text := range []string{"", "\n\n", "name,platform,link,topic,status,pinned\n"} {
		if _, err := ParseQuestions(text); !errors.Is(err, ErrNoData) {
			t.Errorf("ParseQuestions(%q) error = %v, want ErrNoData", text, err)
		}
	}
}

func TestFormatQuestions_RoundTrip(t *testing.T) {
	questions := []schema.Question{
		{Name: "Two Sum", Platform: "LeetCode", Link: "https://leetcode.com/problems/two-sum", Topic: "Arrays, Hashing", Status: "Solved", Pinned: true},
		{Name: `Say "hi"`, Platform: "Other", Link: "#", Topic: "Strings", Status: "Pending"},
	}

	got, err := ParseQuestions(FormatQuestions(questions))
	if err != nil {
		t.Fatalf("ParseQuestions() failed: %v", err)
	}
	if !reflect.DeepEqual(got, questions) {
		t.Errorf("round trip = %+v, want %+v", got, questions)
	}
}

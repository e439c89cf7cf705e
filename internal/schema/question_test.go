package schema

import "testing"

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"Solved", FilterSolved, false},
		{" pending ", FilterPending, false},
		{"done", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterMatch(t *testing.T) {
	solved := Question{Name: "A", Status: "SOLVED"}
	pending := Question{Name: "B", Status: "pending"}
	inProgress := Question{Name: "C", Status: StatusInProgress}

	if !FilterSolved.Match(solved) || FilterSolved.Match(pending) {
		t.Error("FilterSolved should match only the solved question")
	}
	if !FilterPending.Match(pending) || FilterPending.Match(inProgress) {
		t.Error("FilterPending should match only the pending question")
	}
	for _, q := range []Question{solved, pending, inProgress} {
		if !FilterAll.Match(q) {
			t.Errorf("FilterAll should match %s", q.Name)
		}
	}
}

func TestHasContent(t *testing.T) {
	if (Question{Topic: "Arrays", Status: "Solved"}).HasContent() {
		t.Error("question with only topic and status should have no content")
	}
	if !(Question{Link: "https://leetcode.com/problems/two-sum"}).HasContent() {
		t.Error("question with a link should have content")
	}
}

func TestValidateAndDefaults(t *testing.T) {
	q := Question{Name: "  "}
	if err := q.Validate(); err == nil {
		t.Error("expected error for blank name")
	}

	q = Question{Name: "Two Sum"}
	q.SetDefaults()
	if q.Status != StatusPending {
		t.Errorf("Status = %q, want %q", q.Status, StatusPending)
	}
	if q.Link != PlaceholderLink {
		t.Errorf("Link = %q, want %q", q.Link, PlaceholderLink)
	}
	if err := q.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

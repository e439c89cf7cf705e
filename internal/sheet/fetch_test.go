package sheet

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const sampleCSV = "name,platform,link,topic,status,pinned\nA,B,C,D,Pending,FALSE"

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&Config{
		BaseURL: baseURL,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://docs.google.com/spreadsheets/d/1M0NOBIbt0A6OmJvIKYmYU0d8ODaTEVmzenhGOLizhbg/edit#gid=0", "1M0NOBIbt0A6OmJvIKYmYU0d8ODaTEVmzenhGOLizhbg", true},
		{"https://docs.google.com/spreadsheets/d/abc-DEF_123/view", "abc-DEF_123", true},
		{"https://example.com/not-a-sheet", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := DocumentID(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DocumentID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}

	if got := ResolveDocumentID("garbage"); got != DefaultDocumentID {
		t.Errorf("ResolveDocumentID(garbage) = %q, want default", got)
	}
}

func TestCandidateURLs_Order(t *testing.T) {
	f := newTestFetcher("https://sheets.test")
	got := f.CandidateURLs("doc1")
	want := []string{
		"https://sheets.test/spreadsheets/d/doc1/export?format=csv",
		"https://sheets.test/spreadsheets/d/doc1/gviz/tq?tqx=out:csv",
		"https://sheets.test/spreadsheets/d/doc1/export?format=csv&gid=0",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFetch_FallsBackToThirdCandidate(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("gid") == "0" {
			_, _ = io.WriteString(w, sampleCSV)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	body, err := f.Fetch(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if body != sampleCSV {
		t.Errorf("body = %q, want %q", body, sampleCSV)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("server hit %d times, want 3", n)
	}
}

func TestFetch_StopsAtFirstSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background(), "doc1"); err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestFetch_AllCandidatesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/spreadsheets/d/doc1/gviz/tq" {
			w.WriteHeader(http.StatusOK) // empty body counts as a failure
			return
		}
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background(), "doc1")
	if err == nil {
		t.Fatal("expected error when every candidate fails")
	}
	if !errors.Is(err, ErrFetch) {
		t.Errorf("error %v should match ErrFetch", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error %T is not *FetchError", err)
	}
	if len(fetchErr.Attempts) != 3 {
		t.Errorf("recorded %d attempts, want 3", len(fetchErr.Attempts))
	}
	if fetchErr.LastStatus() != http.StatusNotFound {
		t.Errorf("LastStatus() = %d, want 404", fetchErr.LastStatus())
	}
	if !errors.Is(err, ErrBadStatus) {
		t.Errorf("error %v should wrap ErrBadStatus", err)
	}
	if !errors.Is(fetchErr.Attempts[1].Err, ErrEmptyBody) {
		t.Errorf("second attempt error = %v, want ErrEmptyBody", fetchErr.Attempts[1].Err)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := newTestFetcher(baseURL).Fetch(context.Background(), "doc1")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.LastStatus() != 0 {
		t.Errorf("LastStatus() = %d, want 0 for a network error", fetchErr.LastStatus())
	}
}

func TestFetchQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleCSV+"\n,,,,,\n")
	}))
	defer srv.Close()

	questions, err := newTestFetcher(srv.URL).FetchQuestions(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("FetchQuestions() failed: %v", err)
	}
	if len(questions) != 1 || questions[0].Name != "A" {
		t.Errorf("questions = %+v, want one question named A", questions)
	}
}

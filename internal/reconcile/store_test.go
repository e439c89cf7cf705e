package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dsadash/dsadash/internal/localdb"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/schema"
)

var errRemote = errors.New("boom")

type fakeDispatcher struct {
	mu       sync.Mutex
	outcome  mutate.Outcome
	payloads []mutate.Payload
	// hook runs before Dispatch returns.
	hook func()
}

func (d *fakeDispatcher) Dispatch(_ context.Context, p mutate.Payload) mutate.Result {
	d.mu.Lock()
	d.payloads = append(d.payloads, p)
	hook := d.hook
	outcome := d.outcome
	d.mu.Unlock()

	if hook != nil {
		hook()
	}

	res := mutate.Result{Action: p.Action(), Success: true, Outcome: outcome, Method: mutate.MethodRemote}
	if outcome == mutate.RemoteFailed {
		res.Method = mutate.MethodLocal
		res.Err = errRemote
	}
	return res
}

func (d *fakeDispatcher) Configured() bool { return d.outcome != mutate.RemoteSkipped }

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(docID string) ([]schema.Question, error)
}

func (f *fakeFetcher) FetchQuestions(_ context.Context, docID string) ([]schema.Question, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(docID)
}

func sampleQuestions() []schema.Question {
	return []schema.Question{
		{Name: "A", Platform: "LeetCode", Link: "#", Topic: "Arrays", Status: "Pending"},
		{Name: "B", Platform: "LeetCode", Link: "#", Topic: "Graphs", Status: "Solved", Pinned: true},
		{Name: "C", Platform: "Other", Link: "#", Topic: "DP", Status: "Pending"},
		{Name: "D", Platform: "Codeforces", Link: "#", Topic: "Math", Status: "in progress", Pinned: true},
	}
}

func newTestStore(t *testing.T, d Dispatcher, f Fetcher) *Store {
	t.Helper()
	s := NewStore(&Config{
		DocumentID: "doc1",
		Dispatcher: d,
		Fetcher:    f,
		Logger:     log.New(io.Discard, "", 0),
	})
	s.questions = sampleQuestions()
	return s
}

func names(qs []schema.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Name
	}
	return out
}

func TestQuestions_PinnedFirstStable(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{}, nil)

	got := names(s.Questions(schema.FilterAll))
	want := []string{"B", "D", "A", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	if got := names(s.Questions(schema.FilterSolved)); len(got) != 1 || got[0] != "B" {
		t.Errorf("solved = %v, want [B]", got)
	}
	// "in progress" is neither solved nor pending.
	if got := names(s.Questions(schema.FilterPending)); len(got) != 2 {
		t.Errorf("pending = %v, want [A C]", got)
	}
}

func TestNextStatus(t *testing.T) {
	tests := map[string]string{
		"Solved":      "Pending",
		"solved":      "Pending",
		" SOLVED ":    "Pending",
		"Pending":     "Solved",
		"In Progress": "Solved",
		"":            "Solved",
	}
	for in, want := range tests {
		if got := NextStatus(in); got != want {
			t.Errorf("NextStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToggleStatus_TwiceRestores(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{outcome: mutate.RemoteSuccess}, nil)
	ctx := context.Background()

	before, _ := s.Question("A")
	if _, err := s.ToggleStatus(ctx, "A"); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	mid, _ := s.Question("A")
	if mid.Status != "Solved" {
		t.Errorf("status after one toggle = %q, want Solved", mid.Status)
	}
	if _, err := s.ToggleStatus(ctx, "A"); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	after, _ := s.Question("A")
	if after.Status != before.Status {
		t.Errorf("status after two toggles = %q, want %q", after.Status, before.Status)
	}
}

func TestTogglePinned_TwiceRestores(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.TogglePinned(ctx, "C"); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	if q, _ := s.Question("C"); q.Pinned {
		t.Error("pinned should be restored after two toggles")
	}
}

func TestToggle_RollbackOnRemoteFailure(t *testing.T) {
	var notices []Notice
	d := &fakeDispatcher{outcome: mutate.RemoteFailed}
	s := newTestStore(t, d, nil)
	s.onNotice = func(n Notice) { notices = append(notices, n) }

	var during schema.Question
	d.hook = func() { during, _ = s.Question("A") }

	_, err := s.ToggleStatus(context.Background(), "A")

	var rbErr *RollbackError
	if !errors.As(err, &rbErr) || !errors.Is(err, ErrRolledBack) || !errors.Is(err, errRemote) {
		t.Fatalf("err = %v, want *RollbackError wrapping the remote cause", err)
	}
	if during.Status != "Solved" {
		t.Errorf("optimistic status during dispatch = %q, want Solved", during.Status)
	}
	if q, _ := s.Question("A"); q.Status != "Pending" {
		t.Errorf("status after rollback = %q, want Pending", q.Status)
	}
	if _, ok := s.status["A"]; ok {
		t.Error("rollback should remove the override that did not exist before")
	}
	if len(notices) != 1 || notices[0].Kind != NoticeRolledBack {
		t.Errorf("notices = %+v, want one rollback notice", notices)
	}
}

func TestToggle_LocalOutcomeCommits(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{outcome: mutate.RemoteSkipped}, nil)
	if _, err := s.ToggleStatus(context.Background(), "B"); err != nil {
		t.Fatalf("ToggleStatus: %v", err)
	}
	if q, _ := s.Question("B"); q.Status != "Pending" {
		t.Errorf("status = %q, want Pending", q.Status)
	}
}

func TestRollback_StaleSettlementIgnored(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{}, nil)
	ctx := context.Background()

	first := s.ApplyOptimistic(ctx, "A", FieldStatus, Value{Status: "Solved"})
	second := s.ApplyOptimistic(ctx, "A", FieldStatus, Value{Status: "In Progress"})

	if s.Rollback(ctx, first) {
		t.Error("rollback of a superseded change should be ignored")
	}
	if q, _ := s.Question("A"); q.Status != "In Progress" {
		t.Errorf("status = %q, want the newer value", q.Status)
	}
	if !s.Commit(second) || second.State != StateCommitted {
		t.Error("current change should commit")
	}
	if first.State != StateOptimistic {
		t.Errorf("superseded change state = %v, want optimistic", first.State)
	}
}

func TestToggle_UnknownQuestion(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{}, nil)
	if _, err := s.ToggleStatus(context.Background(), "nope"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestPickRandomPending(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{}, nil)
	s.intn = func(n int) int { return n - 1 }

	var highlighted string
	s.onNotice = func(n Notice) {
		if n.Kind == NoticeHighlight {
			highlighted = n.Name
		}
	}

	q, ok := s.PickRandomPending()
	if !ok || q.Name != "C" || highlighted != "C" {
		t.Errorf("PickRandomPending() = %q, %v (highlight %q)", q.Name, ok, highlighted)
	}

	s.questions = []schema.Question{{Name: "X", Status: "Solved"}}
	if _, ok := s.PickRandomPending(); ok {
		t.Error("no pending questions should yield ok=false")
	}
}

func TestRefresh_ReplacesList(t *testing.T) {
	f := &fakeFetcher{fn: func(string) ([]schema.Question, error) {
		return []schema.Question{{Name: "Z", Status: "Pending"}}, nil
	}}
	s := newTestStore(t, &fakeDispatcher{}, f)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if got := names(s.Questions(schema.FilterAll)); len(got) != 1 || got[0] != "Z" {
		t.Errorf("questions = %v, want [Z]", got)
	}
	if s.FetchedAt().IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestRefresh_FailureEmptiesList(t *testing.T) {
	f := &fakeFetcher{fn: func(string) ([]schema.Question, error) { return nil, errRemote }}
	s := newTestStore(t, &fakeDispatcher{}, f)

	if err := s.Refresh(context.Background()); !errors.Is(err, errRemote) {
		t.Fatalf("Refresh() = %v, want fetch error", err)
	}
	if n := len(s.Questions(schema.FilterAll)); n != 0 {
		t.Errorf("got %d questions after failed refresh, want 0", n)
	}
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeFetcher{fn: func(docID string) ([]schema.Question, error) {
		if docID == "old" {
			close(started)
			<-release
			return []schema.Question{{Name: "Stale"}}, nil
		}
		return []schema.Question{{Name: "Fresh"}}, nil
	}}
	s := NewStore(&Config{DocumentID: "old", Fetcher: f, Logger: log.New(io.Discard, "", 0)})

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started

	s.SetConfig("new", nil)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("fresh Refresh() failed: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("stale Refresh() = %v, want ErrSuperseded", err)
	}
	if got := names(s.Questions(schema.FilterAll)); len(got) != 1 || got[0] != "Fresh" {
		t.Errorf("questions = %v, want [Fresh]", got)
	}
}

func TestRefresh_CoalescesConcurrentFetches(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(string) ([]schema.Question, error) {
		<-release
		return []schema.Question{{Name: "A"}}, nil
	}}
	s := NewStore(&Config{DocumentID: "doc1", Fetcher: f, Logger: log.New(io.Discard, "", 0)})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Refresh(context.Background())
		}()
	}
	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	f.mu.Lock()
	calls := f.calls
	f.mu.Unlock()
	if calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
	if n := len(s.Questions(schema.FilterAll)); n != 1 {
		t.Errorf("got %d questions, want 1", n)
	}
}

type fetcherFunc func(ctx context.Context, docID string) ([]schema.Question, error)

func (f fetcherFunc) FetchQuestions(ctx context.Context, docID string) ([]schema.Question, error) {
	return f(ctx, docID)
}

func TestRefresh_CancelledCallerLeavesSharedFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	f := fetcherFunc(func(ctx context.Context, _ string) ([]schema.Question, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return []schema.Question{{Name: "A"}, {Name: "B"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	var mu sync.Mutex
	var kinds []NoticeKind
	s := NewStore(&Config{
		DocumentID: "doc1",
		Fetcher:    f,
		Logger:     log.New(io.Discard, "", 0),
		OnNotice: func(n Notice) {
			mu.Lock()
			kinds = append(kinds, n.Kind)
			mu.Unlock()
		},
	})

	ctx1, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- s.Refresh(ctx1) }()
	<-started

	second := make(chan error, 1)
	go func() { second <- s.Refresh(context.Background()) }()
	for {
		s.mu.Lock()
		seq := s.fetchSeq
		s.mu.Unlock()
		if seq == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	// Let the second caller join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) && !errors.Is(err, ErrSuperseded) {
		t.Errorf("cancelled Refresh() = %v", err)
	}
	close(release)

	if err := <-second; err != nil {
		t.Fatalf("latest Refresh() = %v, want nil", err)
	}
	if n := len(s.Questions(schema.FilterAll)); n != 2 {
		t.Errorf("got %d questions, want 2", n)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, k := range kinds {
		if k == NoticeRefreshFailed {
			t.Errorf("notices = %v, want no refresh failure", kinds)
		}
	}
}

// gatedOverrides records status overrides. When gate is set the next write
// closes entered and waits for gate to close.
type gatedOverrides struct {
	mu      sync.Mutex
	status  map[string]string
	gate    chan struct{}
	entered chan struct{}
}

func (o *gatedOverrides) wait() {
	o.mu.Lock()
	gate, entered := o.gate, o.entered
	o.gate = nil
	o.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}
}

func (o *gatedOverrides) LoadOverrides(context.Context) (localdb.Overrides, error) {
	return localdb.Overrides{Status: map[string]string{}, Pinned: map[string]bool{}}, nil
}

func (o *gatedOverrides) SetStatusOverride(_ context.Context, name, status string) error {
	o.wait()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status[name] = status
	return nil
}

func (o *gatedOverrides) ClearStatusOverride(_ context.Context, name string) error {
	o.wait()
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.status, name)
	return nil
}

func (o *gatedOverrides) SetPinnedOverride(context.Context, string, bool) error { return nil }
func (o *gatedOverrides) ClearPinnedOverride(context.Context, string) error     { return nil }

func TestRollback_PersistsInMemoryOrder(t *testing.T) {
	o := &gatedOverrides{status: map[string]string{}}
	s := NewStore(&Config{DocumentID: "doc1", Overrides: o, Logger: log.New(io.Discard, "", 0)})
	s.questions = sampleQuestions()
	ctx := context.Background()

	p1 := s.ApplyOptimistic(ctx, "A", FieldStatus, Value{Status: schema.StatusSolved})

	o.mu.Lock()
	o.gate = make(chan struct{})
	o.entered = make(chan struct{})
	gate, entered := o.gate, o.entered
	o.mu.Unlock()

	rolledBack := make(chan bool, 1)
	go func() { rolledBack <- s.Rollback(ctx, p1) }()
	<-entered

	applied := make(chan struct{})
	go func() {
		s.ApplyOptimistic(ctx, "A", FieldStatus, Value{Status: "Reviewing"})
		close(applied)
	}()
	// The second edit must not reach disk ahead of the rollback's write.
	time.Sleep(20 * time.Millisecond)
	close(gate)

	if !<-rolledBack {
		t.Fatal("Rollback() = false, want true")
	}
	<-applied

	if got := s.Effective(schema.Question{Name: "A", Status: "Pending"}).Status; got != "Reviewing" {
		t.Errorf("in-memory status = %q, want Reviewing", got)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if got := o.status["A"]; got != "Reviewing" {
		t.Errorf("persisted status = %q, want Reviewing", got)
	}
}

func TestAddQuestion_AppendsWhateverOutcome(t *testing.T) {
	s := newTestStore(t, &fakeDispatcher{outcome: mutate.RemoteFailed}, nil)

	q, res, err := s.AddQuestion(context.Background(), schema.Question{Name: "New", Platform: "Other", Topic: "General", Pinned: true})
	if err != nil {
		t.Fatalf("AddQuestion() failed: %v", err)
	}
	if res.Outcome != mutate.RemoteFailed {
		t.Errorf("outcome = %v", res.Outcome)
	}
	if q.Status != "Pending" || q.Link != "#" {
		t.Errorf("defaults not applied: %+v", q)
	}
	if _, ok := s.Question("New"); !ok {
		t.Error("added question should be in the list")
	}

	if _, _, err := s.AddQuestion(context.Background(), schema.Question{}); err == nil {
		t.Error("AddQuestion without a name should fail")
	}
}

func TestStore_PersistsThroughLocalDB(t *testing.T) {
	db, err := localdb.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("localdb.Open() failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	f := &fakeFetcher{fn: func(string) ([]schema.Question, error) { return sampleQuestions(), nil }}
	cfg := &Config{
		DocumentID: "doc1",
		Fetcher:    f,
		Dispatcher: &fakeDispatcher{},
		Overrides:  db,
		Snapshots:  db,
		Logger:     log.New(io.Discard, "", 0),
	}

	s := NewStore(cfg)
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if _, err := s.ToggleStatus(ctx, "A"); err != nil {
		t.Fatalf("ToggleStatus() failed: %v", err)
	}

	// A second store sees the same state without fetching.
	cfg.Fetcher = nil
	reopened := NewStore(cfg)
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	q, ok := reopened.Question("A")
	if !ok || q.Status != "Solved" {
		t.Errorf("reloaded A = %+v, %v; want Solved", q, ok)
	}
	if n := len(reopened.Questions(schema.FilterAll)); n != 4 {
		t.Errorf("reloaded %d questions, want 4", n)
	}
}

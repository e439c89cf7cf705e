package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dsadash/dsadash/internal/localdb"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/schema"
)

// Field names an overridable question column.
type Field string

const (
	FieldStatus Field = "status"
	FieldPinned Field = "pinned"
)

// State is the lifecycle of one optimistic change.
type State int

const (
	StateIdle State = iota
	StateOptimistic
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateOptimistic:
		return "optimistic"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// Value carries an override value. Only the member matching the field is
// read.
type Value struct {
	Status string
	Pinned bool
}

// slot is the override for one (name, field) pair; ok=false means absent.
type slot struct {
	ok  bool
	val Value
}

// Pending is an applied but unsettled change, returned by ApplyOptimistic.
type Pending struct {
	Name  string
	Field Field
	Value Value
	State State

	gen  uint64
	prev slot
}

// Config holds store dependencies. Only Fetcher is required for Refresh;
// nil stores keep state in memory only.
type Config struct {
	DocumentID string
	Fetcher    Fetcher
	Dispatcher Dispatcher
	Overrides  OverrideStore
	Snapshots  SnapshotStore
	// OnNotice receives events synchronously after the store lock is
	// released. It must not block for long.
	OnNotice func(Notice)
	Logger   *log.Logger
	// Intn picks the random pending question. Defaults to math/rand/v2.
	Intn func(n int) int
}

// Store is the reconciliation store. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	// persistMu is taken before mu by override writers and held until the
	// write reaches the OverrideStore, so disk sees edits in memory order.
	persistMu sync.Mutex

	docID      string
	questions  []schema.Question
	status     map[string]string
	pinned     map[string]bool
	gens       map[string]uint64
	nextGen    uint64
	fetchSeq   uint64
	fetchedAt  time.Time
	dispatcher Dispatcher

	group     singleflight.Group
	fetcher   Fetcher
	overrides OverrideStore
	snapshots SnapshotStore
	onNotice  func(Notice)
	logger    *log.Logger
	intn      func(n int) int
	now       func() time.Time
}

// NewStore creates an empty store. Call Load to restore persisted state.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}

	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = mutate.NewDispatcher(&mutate.Config{Logger: logger})
	}

	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}

	return &Store{
		docID:      cfg.DocumentID,
		questions:  []schema.Question{},
		status:     map[string]string{},
		pinned:     map[string]bool{},
		gens:       map[string]uint64{},
		dispatcher: dispatcher,
		fetcher:    cfg.Fetcher,
		overrides:  cfg.Overrides,
		snapshots:  cfg.Snapshots,
		onNotice:   cfg.OnNotice,
		logger:     logger,
		intn:       intn,
		now:        time.Now,
	}
}

// Load restores overrides and the last snapshot from disk. A missing
// snapshot is not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.overrides != nil {
		o, err := s.overrides.LoadOverrides(ctx)
		if err != nil {
			return fmt.Errorf("failed to load overrides: %w", err)
		}
		s.mu.Lock()
		s.status = o.Status
		s.pinned = o.Pinned
		s.mu.Unlock()
	}

	if s.snapshots == nil {
		return nil
	}

	snap, err := s.snapshots.LoadSnapshot(ctx)
	if errors.Is(err, localdb.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docID == "" || s.docID == snap.DocumentID {
		s.docID = snap.DocumentID
		s.questions = snap.Questions
		s.fetchedAt = snap.FetchedAt
	}
	return nil
}

// Refresh fetches the document and replaces the canonical list.
//
// Concurrent refreshes of the same document share one fetch, which runs
// detached from any caller's cancellation; a caller whose ctx ends returns
// ctx.Err() without touching the list. A response that completes after a
// newer Refresh or SetConfig started is discarded and ErrSuperseded
// returned. A failed fetch empties the list.
func (s *Store) Refresh(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("no fetcher configured")
	}

	s.mu.Lock()
	s.fetchSeq++
	token := s.fetchSeq
	docID := s.docID
	s.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(docID, func() (any, error) {
		return s.fetcher.FetchQuestions(fetchCtx, docID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	v, err := res.Val, res.Err

	s.mu.Lock()
	if token != s.fetchSeq {
		s.mu.Unlock()
		return ErrSuperseded
	}

	if err != nil {
		s.questions = []schema.Question{}
		s.mu.Unlock()
		s.logger.Printf("Refresh of %s failed: %v", docID, err)
		s.emit(Notice{Kind: NoticeRefreshFailed, Message: "No questions loaded: " + err.Error()})
		return err
	}

	questions := v.([]schema.Question)
	s.questions = append([]schema.Question(nil), questions...)
	s.fetchedAt = s.now()
	snap := localdb.Snapshot{DocumentID: docID, FetchedAt: s.fetchedAt, Questions: s.questions}
	s.mu.Unlock()

	s.saveSnapshot(ctx, snap)
	s.logger.Printf("Fetched %d questions from %s", len(questions), docID)
	s.emit(Notice{Kind: NoticeRefreshed, Count: len(questions)})
	return nil
}

// SetConfig switches the source document and mutation dispatcher. A
// document change drops the current list and invalidates in-flight fetches.
func (s *Store) SetConfig(documentID string, d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if documentID != s.docID {
		s.docID = documentID
		s.questions = []schema.Question{}
		s.fetchedAt = time.Time{}
		s.fetchSeq++
	}
	if d != nil {
		s.dispatcher = d
	}
}

// DocumentID returns the current source document.
func (s *Store) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docID
}

// FetchedAt returns when the current list was fetched (zero if never).
func (s *Store) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

// Effective returns q with local overrides applied.
func (s *Store) Effective(q schema.Question) schema.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked(q)
}

func (s *Store) effectiveLocked(q schema.Question) schema.Question {
	if status, ok := s.status[q.Name]; ok {
		q.Status = status
	}
	if pinned, ok := s.pinned[q.Name]; ok {
		q.Pinned = pinned
	}
	return q
}

// Questions returns the effective list matching filter, pinned questions
// first and otherwise in sheet order.
func (s *Store) Questions(filter schema.Filter) []schema.Question {
	s.mu.Lock()
	out := make([]schema.Question, 0, len(s.questions))
	for _, q := range s.questions {
		eq := s.effectiveLocked(q)
		if filter.Match(eq) {
			out = append(out, eq)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

// Question returns the effective question with the given name.
func (s *Store) Question(name string) (schema.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(name)
}

func (s *Store) lookupLocked(name string) (schema.Question, bool) {
	for _, q := range s.questions {
		if q.Name == name {
			return s.effectiveLocked(q), true
		}
	}
	return schema.Question{}, false
}

// PickRandomPending picks uniformly among effective pending questions and
// broadcasts a highlight. ok is false when nothing is pending.
func (s *Store) PickRandomPending() (q schema.Question, ok bool) {
	pending := s.Questions(schema.FilterPending)
	if len(pending) == 0 {
		return schema.Question{}, false
	}

	q = pending[s.intn(len(pending))]
	s.emit(Notice{Kind: NoticeHighlight, Name: q.Name, Question: &q})
	return q, true
}

func genKey(name string, field Field) string {
	return string(field) + "\x00" + name
}

// ApplyOptimistic sets the override immediately and returns the pending
// change to settle with Commit or Rollback. Each call supersedes earlier
// pending changes to the same name and field.
func (s *Store) ApplyOptimistic(ctx context.Context, name string, field Field, v Value) *Pending {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.nextGen++
	p := &Pending{Name: name, Field: field, Value: v, State: StateOptimistic, gen: s.nextGen}
	s.gens[genKey(name, field)] = p.gen
	p.prev = s.slotLocked(name, field)
	s.setSlotLocked(name, field, slot{ok: true, val: v})
	s.mu.Unlock()

	s.persist(ctx, name, field, slot{ok: true, val: v})
	return p
}

// Commit settles p as accepted. A superseded change is left untouched and
// reported as false.
func (s *Store) Commit(p *Pending) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gens[genKey(p.Name, p.Field)] != p.gen {
		return false
	}
	p.State = StateCommitted
	return true
}

// Rollback restores the value p replaced. A superseded change is left
// untouched and reported as false.
func (s *Store) Rollback(ctx context.Context, p *Pending) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.gens[genKey(p.Name, p.Field)] != p.gen {
		s.mu.Unlock()
		return false
	}
	s.setSlotLocked(p.Name, p.Field, p.prev)
	p.State = StateRolledBack
	s.mu.Unlock()

	s.persist(ctx, p.Name, p.Field, p.prev)
	return true
}

func (s *Store) slotLocked(name string, field Field) slot {
	switch field {
	case FieldStatus:
		status, ok := s.status[name]
		return slot{ok: ok, val: Value{Status: status}}
	default:
		pinned, ok := s.pinned[name]
		return slot{ok: ok, val: Value{Pinned: pinned}}
	}
}

func (s *Store) setSlotLocked(name string, field Field, sl slot) {
	switch field {
	case FieldStatus:
		if sl.ok {
			s.status[name] = sl.val.Status
		} else {
			delete(s.status, name)
		}
	default:
		if sl.ok {
			s.pinned[name] = sl.val.Pinned
		} else {
			delete(s.pinned, name)
		}
	}
}

func (s *Store) persist(ctx context.Context, name string, field Field, sl slot) {
	if s.overrides == nil {
		return
	}

	var err error
	switch {
	case field == FieldStatus && sl.ok:
		err = s.overrides.SetStatusOverride(ctx, name, sl.val.Status)
	case field == FieldStatus:
		err = s.overrides.ClearStatusOverride(ctx, name)
	case sl.ok:
		err = s.overrides.SetPinnedOverride(ctx, name, sl.val.Pinned)
	default:
		err = s.overrides.ClearPinnedOverride(ctx, name)
	}
	if err != nil {
		s.logger.Printf("Failed to persist %s override for %q: %v", field, name, err)
	}
}

// NextStatus is the binary status toggle: Solved becomes Pending and any
// other status becomes Solved.
func NextStatus(current string) string {
	if strings.EqualFold(strings.TrimSpace(current), schema.StatusSolved) {
		return schema.StatusPending
	}
	return schema.StatusSolved
}

// ToggleStatus flips the status of name optimistically and dispatches the
// change. When a configured endpoint fails, the change is rolled back and a
// *RollbackError returned alongside the result.
func (s *Store) ToggleStatus(ctx context.Context, name string) (mutate.Result, error) {
	q, ok := s.Question(name)
	if !ok {
		return mutate.Result{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, name)
	}

	next := NextStatus(q.Status)
	p := s.ApplyOptimistic(ctx, name, FieldStatus, Value{Status: next})
	res := s.currentDispatcher().Dispatch(ctx, mutate.StatusUpdate{QuestionName: name, Status: next})
	return res, s.settle(ctx, p, res)
}

// TogglePinned flips the pinned flag of name with the same settlement rules
// as ToggleStatus.
func (s *Store) TogglePinned(ctx context.Context, name string) (mutate.Result, error) {
	q, ok := s.Question(name)
	if !ok {
		return mutate.Result{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, name)
	}

	next := !q.Pinned
	p := s.ApplyOptimistic(ctx, name, FieldPinned, Value{Pinned: next})
	res := s.currentDispatcher().Dispatch(ctx, mutate.PinnedUpdate{QuestionName: name, Pinned: next})
	return res, s.settle(ctx, p, res)
}

func (s *Store) settle(ctx context.Context, p *Pending, res mutate.Result) error {
	if res.Outcome != mutate.RemoteFailed {
		if s.Commit(p) {
			s.emit(Notice{Kind: NoticeCommitted, Name: p.Name, Field: p.Field, Message: res.Message})
		}
		return nil
	}

	if !s.Rollback(ctx, p) {
		// A newer toggle owns the slot now.
		return nil
	}

	rbErr := &RollbackError{Name: p.Name, Field: p.Field, Cause: res.Err}
	s.logger.Printf("Rolled back %s change for %q: %v", p.Field, p.Name, res.Err)
	s.emit(Notice{Kind: NoticeRolledBack, Name: p.Name, Field: p.Field, Message: rbErr.Error()})
	return rbErr
}

// AddQuestion dispatches q and appends it to the local list whatever the
// remote outcome. Missing status and link get their defaults.
func (s *Store) AddQuestion(ctx context.Context, q schema.Question) (schema.Question, mutate.Result, error) {
	q.SetDefaults()
	if err := q.Validate(); err != nil {
		return q, mutate.Result{}, err
	}

	res := s.currentDispatcher().Dispatch(ctx, mutate.NewQuestion{Question: q})

	s.mu.Lock()
	s.questions = append(s.questions, q)
	snap := localdb.Snapshot{DocumentID: s.docID, FetchedAt: s.fetchedAt, Questions: s.questions}
	s.mu.Unlock()

	s.saveSnapshot(ctx, snap)
	added := q
	s.emit(Notice{Kind: NoticeAdded, Name: q.Name, Message: res.Message, Question: &added})
	return q, res, nil
}

func (s *Store) currentDispatcher() Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatcher
}

func (s *Store) saveSnapshot(ctx context.Context, snap localdb.Snapshot) {
	if s.snapshots == nil {
		return
	}
	snap.Questions = append([]schema.Question(nil), snap.Questions...)
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Printf("Failed to save snapshot: %v", err)
	}
}

func (s *Store) emit(n Notice) {
	if s.onNotice == nil {
		return
	}
	n.Time = s.now()
	s.onNotice(n)
}

package search

import (
	"context"
	"expvar"
	"sync"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

var (
	searchDispatchTotal     = expvar.NewInt("search_dispatch_total")
	searchStaleDroppedTotal = expvar.NewInt("search_stale_dropped_total")
)

type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateResults   State = "results"
)

type Snapshot struct {
	State State             `json:"state"`
	Mode  models.SearchMode `json:"mode"`
	Query string            `json:"query"`
	Rows  Rows              `json:"rows"`
	// Searched is true once a dispatched search has settled, even if it
	// failed. It separates "no results" from "nothing asked yet".
	Searched bool `json:"searched"`
}

type Config struct {
	// Context carries request-scoped values into every dispatch. Its
	// cancellation also stops the workflow's searches.
	Context   context.Context
	Debounce  time.Duration
	MinLength int
	// Token is read at dispatch time so a login in another tab is picked up.
	Token    func() string
	OnChange func(Snapshot)
	OnError  func(error)
}

// Workflow debounces query and mode changes and keeps only the latest
// dispatched search. Callbacks run on internal goroutines, one at a time,
// in the order the state changed.
type Workflow struct {
	searcher Searcher
	cfg      Config

	ctx  context.Context
	stop context.CancelFunc

	// emitMu is held across a state change and its callbacks.
	emitMu sync.Mutex

	mu       sync.Mutex
	mode     models.SearchMode
	query    string
	snapshot Snapshot
	timer    *time.Timer
	gen      uint64
	seq      uint64
	inflight context.CancelFunc
	closed   bool
}

func NewWorkflow(searcher Searcher, mode models.SearchMode, cfg Config) *Workflow {
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	base := cfg.Context
	if base == nil {
		base = context.Background()
	}
	ctx, stop := context.WithCancel(base)
	return &Workflow{
		searcher: searcher,
		cfg:      cfg,
		ctx:      ctx,
		stop:     stop,
		mode:     mode,
		snapshot: Snapshot{State: StateIdle, Mode: mode, Rows: Rows{Mode: mode}},
	}
}

func (w *Workflow) SetQuery(query string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.query = query
	w.scheduleLocked()
}

func (w *Workflow) SetMode(mode models.SearchMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.mode = mode
	w.scheduleLocked()
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Close stops the pending debounce and abandons any in-flight search. No
// callback fires after Close returns, except one already running.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.inflight != nil {
		w.inflight()
		w.inflight = nil
	}
	w.stop()
}

func (w *Workflow) scheduleLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.cfg.Debounce, func() { w.fire(gen) })
}

func (w *Workflow) fire(gen uint64) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	mode, query := w.mode, w.query
	w.seq++
	seq := w.seq
	if w.inflight != nil {
		w.inflight()
		w.inflight = nil
	}

	if !Eligible(query, w.cfg.MinLength) {
		w.snapshot = Snapshot{State: StateIdle, Mode: mode, Query: query, Rows: Rows{Mode: mode}}
		snap := w.snapshot
		w.mu.Unlock()
		w.emit(snap)
		return
	}

	ctx, cancel := context.WithCancel(w.ctx)
	w.inflight = cancel
	w.snapshot = Snapshot{State: StateSearching, Mode: mode, Query: query, Rows: w.snapshot.Rows, Searched: w.snapshot.Searched}
	snap := w.snapshot
	w.mu.Unlock()

	w.emit(snap)
	searchDispatchTotal.Add(1)
	go w.run(ctx, seq, mode, query, w.cfg.Token())
}

func (w *Workflow) run(ctx context.Context, seq uint64, mode models.SearchMode, query, token string) {
	rows, err := Execute(ctx, w.searcher, mode, query, token)

	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	if w.closed || seq != w.seq {
		w.mu.Unlock()
		searchStaleDroppedTotal.Add(1)
		return
	}
	if w.inflight != nil {
		w.inflight()
		w.inflight = nil
	}
	if err != nil {
		rows = Rows{Mode: mode}
	}
	w.snapshot = Snapshot{State: StateResults, Mode: mode, Query: query, Rows: rows, Searched: true}
	snap := w.snapshot
	w.mu.Unlock()

	w.emit(snap)
	// After the state change, so a notice outlives the settled snapshot.
	if err != nil && w.cfg.OnError != nil {
		w.cfg.OnError(err)
	}
}

func (w *Workflow) emit(snap Snapshot) {
	if w.cfg.OnChange != nil {
		w.cfg.OnChange(snap)
	}
}

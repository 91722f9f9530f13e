package importer

import (
	"bytes"
	"context"
	"expvar"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

var importsStartedTotal = expvar.NewInt("imports_started_total")

type Uploader interface {
	UploadImport(ctx context.Context, token, filename string, r io.Reader) (models.ImportResult, error)
}

// Job is one upload. Progress only moves forward: it follows the bytes
// handed to the transport, stays at 99 until the remote call returns, and
// reaches 100 only then.
type Job struct {
	ID       string
	Scope    string
	FileName string
	Size     int64
	Started  time.Time

	progress atomic.Int64
	done     chan struct{}

	mu       sync.Mutex
	result   models.ImportResult
	err      error
	finished time.Time
}

func newJob(id, scope string, file File, now time.Time) *Job {
	return &Job{
		ID:       id,
		Scope:    scope,
		FileName: file.Name,
		Size:     int64(len(file.Data)),
		Started:  now,
		done:     make(chan struct{}),
	}
}

func (j *Job) Progress() int {
	return int(j.progress.Load())
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

func (j *Job) Result() models.ImportResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) advance(value int64) {
	for {
		current := j.progress.Load()
		if value <= current {
			return
		}
		if j.progress.CompareAndSwap(current, value) {
			return
		}
	}
}

func (j *Job) run(ctx context.Context, uploader Uploader, token string, data []byte, now func() time.Time) {
	reader := &progressReader{r: bytes.NewReader(data), total: int64(len(data)), job: j}
	result, err := uploader.UploadImport(ctx, token, j.FileName, reader)

	j.mu.Lock()
	j.result = result
	j.err = err
	j.finished = now()
	j.mu.Unlock()
	j.advance(100)
	close(j.done)
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	job   *Job
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := p.read * 99 / p.total
		if pct > 99 {
			pct = 99
		}
		p.job.advance(pct)
	} else if err == io.EOF {
		p.job.advance(99)
	}
	return n, err
}

// Tracker owns the selected-file slot of every browser session and the
// upload jobs they start.
type Tracker struct {
	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	slots  map[string]*Slot
	jobs   map[string]*Job
	latest map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{
		now:    time.Now,
		newID:  uuid.NewString,
		slots:  make(map[string]*Slot),
		jobs:   make(map[string]*Job),
		latest: make(map[string]string),
	}
}

func (t *Tracker) Slot(scope string) *Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, ok := t.slots[scope]
	if !ok {
		slot = &Slot{}
		t.slots[scope] = slot
	}
	return slot
}

// Select puts file in the scope's slot and forgets the previous job result.
func (t *Tracker) Select(scope string, file File) error {
	if err := t.Slot(scope).Select(file); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.latest, scope)
	t.mu.Unlock()
	return nil
}

// Reset clears the slot and the latest job of scope.
func (t *Tracker) Reset(scope string) {
	t.Slot(scope).Reset()
	t.mu.Lock()
	delete(t.latest, scope)
	t.mu.Unlock()
}

// Start takes the selected file and uploads it in the background. The
// upload outlives the request that started it but keeps its values, so the
// caller's session is still reachable from the API client.
func (t *Tracker) Start(ctx context.Context, scope string, uploader Uploader, token string) (*Job, error) {
	file, ok := t.Slot(scope).Take()
	if !ok {
		return nil, ErrNoFile
	}
	job := newJob(t.newID(), scope, file, t.now())

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.latest[scope] = job.ID
	t.mu.Unlock()

	importsStartedTotal.Add(1)
	go job.run(context.WithoutCancel(ctx), uploader, token, file.Data, t.now)
	return job, nil
}

// Job returns a job only to the scope that started it.
func (t *Tracker) Job(scope, id string) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok || job.Scope != scope {
		return nil, false
	}
	return job, true
}

func (t *Tracker) Latest(scope string) (*Job, bool) {
	t.mu.Lock()
	id, ok := t.latest[scope]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return t.Job(scope, id)
}

// Sweep drops finished jobs older than before, and empty slots of scopes
// that have no job left.
func (t *Tracker) Sweep(before time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	active := make(map[string]struct{})
	for id, job := range t.jobs {
		job.mu.Lock()
		finished := job.finished
		job.mu.Unlock()
		if !finished.IsZero() && finished.Before(before) {
			delete(t.jobs, id)
			if t.latest[job.Scope] == id {
				delete(t.latest, job.Scope)
			}
			removed++
			continue
		}
		active[job.Scope] = struct{}{}
	}
	for scope, slot := range t.slots {
		if _, ok := active[scope]; ok {
			continue
		}
		if _, held := slot.Peek(); !held {
			delete(t.slots, scope)
		}
	}
	return removed
}

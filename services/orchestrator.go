package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubedeck/types"
)

// Orchestrator is the only surface presentation code talks to
type Orchestrator interface {
	AddItem(ctx context.Context, url string) (types.Item, error)
	RemoveItem(id string) error
	SelectVariant(id, variantID string) error
	StartDownload(ctx context.Context, id string) (types.JobState, error)
	FetchArtifact(ctx context.Context, id string) (*types.Artifact, error)
	Snapshot() types.Snapshot
	Subscribe() (id string, updates <-chan types.Snapshot, unsubscribe func())
	ActivePolls() int
	Close()
}

// orchestrator delegates commands to the catalog and fans snapshots out to subscribers
type orchestrator struct {
	catalog *Catalog

	mu          sync.Mutex
	subscribers map[string]chan types.Snapshot
	lastError   string
	errorSeq    uint64
	published   uint64
	closed      bool
}

// NewOrchestrator creates an orchestrator backed by a fresh catalog
func NewOrchestrator(remote Remote, pollInterval time.Duration) Orchestrator {
	o := &orchestrator{
		subscribers: make(map[string]chan types.Snapshot),
	}
	o.catalog = NewCatalog(remote, pollInterval, o.publish)
	return o
}

// AddItem resolves a URL and appends the video to the catalog
func (o *orchestrator) AddItem(ctx context.Context, url string) (types.Item, error) {
	item, err := o.catalog.AddFromURL(ctx, url)
	o.record(err)
	return item, err
}

// RemoveItem drops an item and stops its polling
func (o *orchestrator) RemoveItem(id string) error {
	err := o.catalog.RemoveItem(id)
	o.record(err)
	return err
}

// SelectVariant records the variant to download for an item
func (o *orchestrator) SelectVariant(id, variantID string) error {
	err := o.catalog.SelectVariant(id, variantID)
	o.record(err)
	return err
}

// StartDownload submits the selected variant and starts tracking the job
func (o *orchestrator) StartDownload(ctx context.Context, id string) (types.JobState, error) {
	job, err := o.catalog.StartDownload(ctx, id)
	o.record(err)
	return job, err
}

// FetchArtifact opens the finished file for an item
func (o *orchestrator) FetchArtifact(ctx context.Context, id string) (*types.Artifact, error) {
	artifact, err := o.catalog.FetchArtifact(ctx, id)
	o.record(err)
	return artifact, err
}

// Snapshot returns the current ordered view of all items
func (o *orchestrator) Snapshot() types.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers a consumer of snapshots. The current snapshot is
// delivered immediately. Each subscriber holds at most one pending snapshot,
// always the newest; a slow reader skips intermediate versions.
func (o *orchestrator) Subscribe() (string, <-chan types.Snapshot, func()) {
	id := uuid.NewString()
	ch := make(chan types.Snapshot, 1)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	ch <- o.snapshotLocked()
	o.subscribers[id] = ch
	o.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if sub, ok := o.subscribers[id]; ok {
				delete(o.subscribers, id)
				close(sub)
			}
		})
	}
	return id, ch, unsubscribe
}

// ActivePolls returns the number of jobs still being polled
func (o *orchestrator) ActivePolls() int {
	return o.catalog.ActivePolls()
}

// Close stops all polling and closes every subscriber channel
func (o *orchestrator) Close() {
	o.catalog.Close()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subscribers {
		delete(o.subscribers, id)
		close(ch)
	}
}

// record keeps the most recent command error; a successful command clears it
func (o *orchestrator) record(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if msg == o.lastError {
		return
	}
	o.lastError = msg
	o.errorSeq++
	o.publishLocked()
}

func (o *orchestrator) publish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publishLocked()
}

func (o *orchestrator) publishLocked() {
	if o.closed {
		return
	}
	snap := o.snapshotLocked()
	if snap.Version <= o.published {
		return
	}
	o.published = snap.Version

	for _, ch := range o.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// snapshotLocked must be called with mu held.
// Version grows whenever the items or the last error change.
func (o *orchestrator) snapshotLocked() types.Snapshot {
	version, items := o.catalog.Snapshot()
	return types.Snapshot{
		Version:   version + o.errorSeq,
		Items:     items,
		LastError: o.lastError,
		Timestamp: time.Now(),
	}
}

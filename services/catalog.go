package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"tubedeck/types"
	"tubedeck/validator"
)

// Remote is the collaborator service that resolves, downloads and serves videos
type Remote interface {
	ResolveInfo(ctx context.Context, videoURL string) (types.VideoInfo, error)
	Start(ctx context.Context, videoURL, variantID string) (string, error)
	Poll(ctx context.Context, jobID string) (types.JobUpdate, error)
	FetchArtifact(ctx context.Context, jobID string) (*types.Artifact, error)
}

type entry struct {
	item types.Item
	// handle is held while the job is queued or downloading
	handle   *tracker
	starting bool
}

// Catalog owns the ordered collection of items and their jobs.
// Every read and write of the collection happens under mu.
type Catalog struct {
	remote       Remote
	pollInterval time.Duration
	onChange     func()

	mu      sync.Mutex
	entries []*entry
	index   map[string]*entry
	version uint64
	closed  bool

	ctx      context.Context
	cancel   context.CancelFunc
	trackers sync.WaitGroup
}

// NewCatalog creates an empty catalog. onChange, if set, is called after every
// mutation, outside the catalog lock.
func NewCatalog(remote Remote, pollInterval time.Duration, onChange func()) *Catalog {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Catalog{
		remote:       remote,
		pollInterval: pollInterval,
		onChange:     onChange,
		index:        make(map[string]*entry),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// AddFromURL resolves a video URL and appends it to the catalog.
// The stored variants are ranked for display.
func (c *Catalog) AddFromURL(ctx context.Context, rawURL string) (types.Item, error) {
	videoURL := strings.TrimSpace(rawURL)
	if videoURL == "" {
		return types.Item{}, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if !validator.IsSupportedVideoURL(videoURL) {
		return types.Item{}, fmt.Errorf("%w: unsupported video URL %q", ErrValidation, videoURL)
	}
	if c.isClosed() {
		return types.Item{}, ErrClosed
	}

	info, err := c.remote.ResolveInfo(ctx, videoURL)
	if err != nil {
		return types.Item{}, fmt.Errorf("%w: resolve info: %w", ErrRemoteRequest, err)
	}
	if info.ID == "" {
		return types.Item{}, fmt.Errorf("%w: resolve info: malformed metadata: missing id", ErrRemoteRequest)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.Item{}, ErrClosed
	}
	if _, exists := c.index[info.ID]; exists {
		c.mu.Unlock()
		return types.Item{}, fmt.Errorf("%w: %s", ErrDuplicate, info.ID)
	}
	info.Variants = RankVariants(info.Variants)
	e := &entry{item: types.Item{VideoInfo: info, SourceURL: videoURL}.Clone()}
	c.entries = append(c.entries, e)
	c.index[info.ID] = e
	c.version++
	item := e.item.Clone()
	c.mu.Unlock()

	c.changed()
	return item, nil
}

// RemoveItem drops an item. If it has an active job, polling is stopped and
// RemoveItem returns only after the polling goroutine exited.
func (c *Catalog) RemoveItem(id string) error {
	c.mu.Lock()
	e, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	delete(c.index, id)
	c.entries = slices.DeleteFunc(c.entries, func(other *entry) bool { return other == e })
	handle := e.handle
	e.handle = nil
	if handle != nil {
		handle.stop()
	}
	c.version++
	c.mu.Unlock()

	if handle != nil {
		handle.wait()
	}
	c.changed()
	return nil
}

// SelectVariant records the user's variant choice. An empty variantID clears it.
// Selection is rejected once a download has been started.
func (c *Catalog) SelectVariant(id, variantID string) error {
	c.mu.Lock()
	e, err := c.lookup(id)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if e.item.Job != nil || e.starting {
		c.mu.Unlock()
		return fmt.Errorf("%w: download already started for %s", ErrValidation, id)
	}
	e.item.SelectedVariantID = strings.TrimSpace(variantID)
	c.version++
	c.mu.Unlock()

	c.changed()
	return nil
}

// StartDownload submits the selected variant to the collaborator and begins polling
func (c *Catalog) StartDownload(ctx context.Context, id string) (types.JobState, error) {
	c.mu.Lock()
	e, err := c.lookup(id)
	if err != nil {
		c.mu.Unlock()
		return types.JobState{}, err
	}
	switch {
	case e.item.Job != nil:
		c.mu.Unlock()
		return types.JobState{}, fmt.Errorf("%w: download already started for %s", ErrValidation, id)
	case e.starting:
		c.mu.Unlock()
		return types.JobState{}, fmt.Errorf("%w: download for %s is already starting", ErrValidation, id)
	case e.item.SelectedVariantID == "":
		c.mu.Unlock()
		return types.JobState{}, fmt.Errorf("%w: no variant selected for %s", ErrValidation, id)
	}
	e.starting = true
	sourceURL, variantID := e.item.SourceURL, e.item.SelectedVariantID
	c.mu.Unlock()

	jobID, startErr := c.remote.Start(ctx, sourceURL, variantID)

	c.mu.Lock()
	e.starting = false
	if c.index[id] != e {
		// removed while the request was in flight; the remote job is abandoned
		c.mu.Unlock()
		return types.JobState{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if startErr != nil {
		c.mu.Unlock()
		return types.JobState{}, fmt.Errorf("%w: start download: %w", ErrRemoteRequest, startErr)
	}
	if c.closed {
		c.mu.Unlock()
		return types.JobState{}, ErrClosed
	}

	e.item.Job = &types.JobState{
		JobID:   jobID,
		Status:  types.JobStatusQueued,
		Polling: true,
	}
	e.handle = c.startTracker(e, jobID)
	c.version++
	job := e.item.Job.Clone()
	c.mu.Unlock()

	c.changed()
	return job, nil
}

// FetchArtifact opens the finished file for an item. The caller must close the body.
func (c *Catalog) FetchArtifact(ctx context.Context, id string) (*types.Artifact, error) {
	c.mu.Lock()
	e, err := c.lookup(id)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	job := e.item.Job
	if job == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no download started for %s", ErrArtifactNotReady, id)
	}
	if job.Status != types.JobStatusFinished {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: job %s is %s", ErrArtifactNotReady, job.JobID, job.Status)
	}
	jobID := job.JobID
	fileName := SuggestedFileName(job.Title, e.item.Title)
	c.mu.Unlock()

	artifact, err := c.remote.FetchArtifact(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch artifact: %w", ErrRemoteRequest, err)
	}
	artifact.FileName = fileName
	return artifact, nil
}

// Get returns a copy of one item
func (c *Catalog) Get(id string) (types.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[id]
	if !ok {
		return types.Item{}, false
	}
	return e.item.Clone(), true
}

// Items returns copies of all items in insertion order
func (c *Catalog) Items() []types.Item {
	_, items := c.Snapshot()
	return items
}

// Snapshot returns the current version and copies of all items in insertion order
func (c *Catalog) Snapshot() (uint64, []types.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]types.Item, len(c.entries))
	for i, e := range c.entries {
		items[i] = e.item.Clone()
	}
	return c.version, items
}

// ActivePolls returns the number of jobs currently holding a poll handle
func (c *Catalog) ActivePolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.handle != nil {
			n++
		}
	}
	return n
}

// Close stops every polling goroutine and waits for them to exit.
// Mutating calls fail with ErrClosed afterwards.
func (c *Catalog) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		if e.handle != nil {
			e.handle.stop()
			e.handle = nil
			e.item.Job.Polling = false
		}
	}
	c.version++
	c.mu.Unlock()

	c.cancel()
	c.trackers.Wait()
	c.changed()
}

func (c *Catalog) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// lookup must be called with mu held
func (c *Catalog) lookup(id string) (*entry, error) {
	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return e, nil
}

// startTracker must be called with mu held
func (c *Catalog) startTracker(e *entry, jobID string) *tracker {
	t, ctx := newTracker(c.ctx, jobID, c.pollInterval, c.remote.Poll, func(t *tracker, update types.JobUpdate) bool {
		return c.merge(e, t, update)
	})
	c.trackers.Add(1)
	go func() {
		defer c.trackers.Done()
		t.run(ctx)
	}()
	return t
}

// merge applies a poll result to the entry if t still holds its poll handle.
// Results from a revoked handle (item removed, catalog closed) are discarded.
func (c *Catalog) merge(e *entry, t *tracker, update types.JobUpdate) bool {
	c.mu.Lock()
	if c.closed || e.handle != t || c.index[e.item.ID] != e {
		c.mu.Unlock()
		return false
	}

	changed := applyUpdate(e.item.Job, update)
	if e.item.Job.Status.IsTerminal() {
		e.handle = nil
	}
	keepPolling := e.handle != nil
	if changed {
		c.version++
	}
	c.mu.Unlock()

	if changed {
		c.changed()
	}
	return keepPolling
}

func (c *Catalog) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

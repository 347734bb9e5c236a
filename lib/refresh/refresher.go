package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/GianlucaGuarini/go-observable"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"boscoin.io/pollwatch/lib/cache"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/common/observer"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/metrics"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/storage"
)

// Refresher reads all polls from the ledger and publishes reconciled views.
//
// Every call to `Refresh` takes the next sequence number and cancels the
// refresh still in flight, if any. A view is published only when its
// sequence is newer than the last published one, so a slow, older refresh
// can never overwrite a newer view.
type Refresher struct {
	sync.RWMutex

	id          string
	ledger      Ledger
	clock       common.Clock
	voter       string
	interval    time.Duration
	concurrency int
	maxPolls    uint64

	redialer  Redialer
	redialing bool

	cache     *cache.VoterCache
	snapshots *storage.SnapshotStore
	observer  *observable.Observable
	metrics   *metrics.RefreshMetrics

	issued    uint64
	published uint64
	inflight  context.CancelFunc
	current   *View

	trigger chan struct{}
}

// NewRefresher watches polls for voter; voter may be empty, then nobody can
// vote in the published views.
func NewRefresher(l Ledger, clock common.Clock, voter string, config common.Config) *Refresher {
	interval := config.RefreshInterval
	if interval <= 0 {
		interval = common.DefaultRefreshInterval
	}
	concurrency := config.RefreshConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	maxPolls := config.MaxPolls
	if maxPolls < 1 {
		maxPolls = common.DefaultMaxPolls
	}

	return &Refresher{
		id:          uuid.New().String(),
		ledger:      l,
		clock:       clock,
		voter:       voter,
		interval:    interval,
		concurrency: concurrency,
		maxPolls:    maxPolls,
		observer:    observer.RefreshObserver,
		metrics:     metrics.Refresh,
		trigger:     make(chan struct{}, 1),
	}
}

// Redialer opens a new connection to the ledger. It is called after a
// refresh failed because of the network or the endpoint moved to another
// chain.
type Redialer func(ctx context.Context) (Ledger, error)

func (r *Refresher) SetRedialer(fn Redialer) *Refresher {
	r.redialer = fn
	return r
}

func (r *Refresher) currentLedger() Ledger {
	r.RLock()
	defer r.RUnlock()

	return r.ledger
}

// redial replaces the ledger. Only one redial runs at a time; concurrent
// failures are served by the one in progress.
func (r *Refresher) redial(ctx context.Context) {
	if r.redialer == nil {
		return
	}

	r.Lock()
	if r.redialing {
		r.Unlock()
		return
	}
	r.redialing = true
	r.Unlock()

	defer func() {
		r.Lock()
		r.redialing = false
		r.Unlock()
	}()

	l, err := r.redialer(ctx)
	if err != nil {
		log.Error("failed to redial", "watcher", r.id, "error", err)
		return
	}

	r.Lock()
	r.ledger = l
	r.Unlock()

	log.Info("redialed", "watcher", r.id)
}

func (r *Refresher) SetCache(c *cache.VoterCache) *Refresher {
	r.cache = c
	return r
}

func (r *Refresher) SetSnapshotStore(s *storage.SnapshotStore) *Refresher {
	r.snapshots = s
	return r
}

func (r *Refresher) SetObserver(ob *observable.Observable) *Refresher {
	r.observer = ob
	return r
}

// ID identifies this watcher in logs and views.
func (r *Refresher) ID() string {
	return r.id
}

func (r *Refresher) Voter() string {
	return r.voter
}

// Current is the last published view.
func (r *Refresher) Current() (*View, bool) {
	r.RLock()
	defer r.RUnlock()

	return r.current, r.current != nil
}

// Sequence is the sequence number of the last published view.
func (r *Refresher) Sequence() uint64 {
	r.RLock()
	defer r.RUnlock()

	return r.published
}

// Trigger asks `Run` for a refresh now. It never blocks; triggers arriving
// while one is pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes right away, then on every tick and trigger until ctx is
// done. A failed refresh is logged and never stops the loop.
func (r *Refresher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.refreshAndLog(ctx)
		}()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Debug("refresher started", "watcher", r.id, "interval", r.interval, "voter", r.voter)

	start()
	for {
		select {
		case <-ctx.Done():
			log.Debug("refresher stopped", "watcher", r.id)
			return nil
		case <-ticker.C:
			start()
		case <-r.trigger:
			start()
		}
	}
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	view, err := r.Refresh(ctx)
	if err != nil {
		if errors.Is(err, errors.RefreshSuperseded) {
			log.Debug("refresh superseded", "watcher", r.id, "error", err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		kind, _ := ledger.Classify(err)
		log.Error("failed to refresh", "watcher", r.id, "kind", kind, "error", err)
		if kind == ledger.KindNetwork {
			r.redial(ctx)
		}
		return
	}
	if view.Offline {
		r.redial(ctx)
	}

	log.Info(
		"refreshed",
		"watcher", r.id,
		"sequence", view.Sequence,
		"ongoing", len(view.Ongoing),
		"archived", len(view.Archived),
		"pending", len(view.Pending),
		"failed", len(view.Failed),
		"offline", view.Offline,
		"elapsed", view.Duration,
	)
}

// Refresh fetches every poll and publishes the result. It returns
// `errors.RefreshSuperseded` when a newer refresh started or was published
// in the meantime.
func (r *Refresher) Refresh(ctx context.Context) (*View, error) {
	begin := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.Lock()
	r.issued++
	seq := r.issued
	if r.inflight != nil {
		r.inflight()
	}
	r.inflight = cancel
	r.Unlock()

	defer func() {
		r.Lock()
		if r.issued == seq {
			r.inflight = nil
		}
		r.Unlock()
	}()

	view, err := r.fetch(ctx, seq)
	if err != nil {
		if r.superseded(seq) {
			r.metrics.ObserveDurationSeconds(begin, metrics.RefreshStatusSuperseded)
			return nil, errors.RefreshSuperseded.Clone().SetData("sequence", seq)
		}

		r.metrics.ObserveDurationSeconds(begin, metrics.RefreshStatusFailed)
		return nil, err
	}
	view.Duration = time.Since(begin)

	if !r.publish(view) {
		r.metrics.ObserveDurationSeconds(begin, metrics.RefreshStatusSuperseded)
		return nil, errors.RefreshSuperseded.Clone().SetData("sequence", seq)
	}

	r.metrics.ObserveDurationSeconds(begin, metrics.RefreshStatusOK)
	return view, nil
}

func (r *Refresher) superseded(seq uint64) bool {
	r.RLock()
	defer r.RUnlock()

	return seq < r.issued || seq <= r.published
}

func (r *Refresher) publish(view *View) bool {
	r.Lock()
	if view.Sequence <= r.published {
		r.Unlock()
		log.Debug("discard older view", "sequence", view.Sequence, "published", r.published)
		return false
	}
	r.published = view.Sequence
	r.current = view
	r.Unlock()

	r.metrics.SetSequence(view.Sequence)
	r.metrics.SetPolls(string(poll.ACTIVE), len(view.Ongoing))
	r.metrics.SetPolls(string(poll.ARCHIVED), len(view.Archived))
	r.metrics.SetPolls(string(poll.PENDING), len(view.Pending))
	r.metrics.SetPolls(string(poll.SKIP), len(view.Skipped))
	r.metrics.SetStaleRecords(view.StaleCount())

	r.observer.Trigger(observer.All(observer.EventRefresh).String(), view)
	for _, l := range [][]poll.Entry{view.Ongoing, view.Archived, view.Pending} {
		for _, e := range l {
			r.observer.Trigger(observer.NewPollEvent(observer.EventRefresh, e.ID).String(), e)
		}
	}

	return true
}

func (r *Refresher) fetch(ctx context.Context, seq uint64) (*View, error) {
	fetchedAt := r.clock.Now()
	now := fetchedAt.Unix()

	l := r.currentLedger()

	count, err := l.SessionCount(ctx)
	if err == nil && count > r.maxPolls {
		// a count this large is not trusted; no record is read
		err = errors.TooManyPolls.Clone().SetData("count", count).SetData("max", r.maxPolls)
	}
	if err != nil {
		if ctx.Err() == nil && r.snapshots != nil {
			if view, ok := r.offlineView(seq, fetchedAt); ok {
				log.Warn("failed to get poll count; showing stored polls", "sequence", seq, "error", err)
				return view, nil
			}
		}
		return nil, err
	}

	records := make([]poll.Record, count)
	failures := make([]error, count)

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for id := uint64(0); id < count; id++ {
		id := id
		g.Go(func() error {
			records[id], failures[id] = l.GetSession(ctx, id)
			records[id].ID = id
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view := &View{
		Sequence:  seq,
		Watcher:   r.id,
		FetchedAt: fetchedAt,
		Count:     count,
		Failed:    []uint64{},
	}

	var input, fresh []poll.Record
	stale := map[uint64]bool{}
	for i := range records {
		id := uint64(i)
		if failures[i] == nil {
			input = append(input, records[i])
			fresh = append(fresh, records[i])
			continue
		}

		r.metrics.AddRecordError()
		if snapshot, found := r.snapshot(id); found {
			log.Warn("failed to get poll; using stored snapshot", "poll", id, "fetched-at", snapshot.FetchedAt, "error", failures[i])
			input = append(input, snapshot.Record)
			stale[id] = true
			continue
		}

		log.Error("failed to get poll; skipped", "poll", id, "error", failures[i])
		view.Failed = append(view.Failed, id)
	}

	if r.snapshots != nil && len(fresh) > 0 {
		if err := r.snapshots.Save(fetchedAt, fresh...); err != nil {
			log.Warn("failed to store snapshots", "error", err)
		}
	}

	hasVoted := r.lookupVoted(ctx, input, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view.Reconciliation = poll.Reconcile(input, now, r.voter, hasVoted, stale)

	return view, nil
}

func (r *Refresher) snapshot(id uint64) (storage.Snapshot, bool) {
	if r.snapshots == nil {
		return storage.Snapshot{}, false
	}

	snapshot, err := r.snapshots.Get(id)
	if err != nil {
		if !errors.Is(err, errors.StorageRecordDoesNotExist) {
			log.Warn("failed to read snapshot", "poll", id, "error", err)
		}
		return storage.Snapshot{}, false
	}

	return snapshot, true
}

// offlineView builds a view only from stored snapshots. Voting status comes
// from the cache alone, so nothing unknown is offered for voting.
func (r *Refresher) offlineView(seq uint64, fetchedAt time.Time) (*View, bool) {
	snapshots, err := r.snapshots.All()
	if err != nil || len(snapshots) < 1 {
		return nil, false
	}

	var records []poll.Record
	stale := map[uint64]bool{}
	for _, s := range snapshots {
		records = append(records, s.Record)
		stale[s.Record.ID] = true
	}

	hasVoted := func(voter string, pollID uint64) (bool, error) {
		if r.cache != nil && r.cache.HasVoted(pollID, voter) {
			return true, nil
		}
		return false, errors.NetworkError
	}

	return &View{
		Reconciliation: poll.Reconcile(records, fetchedAt.Unix(), r.voter, hasVoted, stale),
		Sequence:       seq,
		Watcher:        r.id,
		FetchedAt:      fetchedAt,
		Failed:         []uint64{},
		Offline:        true,
	}, true
}

type voterStatus struct {
	voted bool
	err   error
}

// lookupVoted asks the ledger, concurrently, whether the voter already voted
// in each ACTIVE poll.
func (r *Refresher) lookupVoted(ctx context.Context, records []poll.Record, now int64) poll.HasVotedFunc {
	if len(r.voter) < 1 {
		return nil
	}

	statuses := map[uint64]*voterStatus{}
	for _, record := range records {
		if poll.Classify(record, now) == poll.ACTIVE {
			statuses[record.ID] = &voterStatus{}
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for id, status := range statuses {
		id, status := id, status
		g.Go(func() error {
			status.voted, status.err = r.HasVoted(ctx, id, r.voter)
			if status.err != nil {
				log.Warn("failed to get voter status", "poll", id, "voter", r.voter, "error", status.err)
			}
			return nil
		})
	}
	g.Wait()

	return func(voter string, pollID uint64) (bool, error) {
		status, found := statuses[pollID]
		if !found || !poll.SameAddress(voter, r.voter) {
			return false, errors.PollNotFound
		}
		return status.voted, status.err
	}
}

// HasVoted answers from the cache when the voter is known to have voted,
// otherwise asks the ledger and remembers a positive answer.
func (r *Refresher) HasVoted(ctx context.Context, id uint64, voter string) (bool, error) {
	if r.cache != nil && r.cache.HasVoted(id, voter) {
		return true, nil
	}

	voted, err := r.currentLedger().HasVotedInSession(ctx, id, voter)
	if err != nil {
		return false, err
	}
	if voted && r.cache != nil {
		r.cache.SetVoted(id, voter)
	}

	return voted, nil
}

// Admin returns the contract admin, cached for a while.
func (r *Refresher) Admin(ctx context.Context) (string, error) {
	if r.cache != nil {
		if admin, found := r.cache.Admin(); found {
			return admin, nil
		}
	}

	admin, err := r.currentLedger().Admin(ctx)
	if err != nil {
		return "", err
	}
	if r.cache != nil {
		r.cache.SetAdmin(admin)
	}

	return admin, nil
}

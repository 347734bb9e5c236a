package refresh

import (
	"context"
	stderrors "errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/GianlucaGuarini/go-observable"
	"github.com/stretchr/testify/require"

	"boscoin.io/pollwatch/lib/cache"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/common/observer"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/storage"
)

const (
	testVoter    = "0x8Ba1f109551bD432803012645Ac136ddd64DBA72"
	testContract = "0x2F736650ef8c2f305BFd3dd74EF8EC57284C6b38"
)

var testNow = time.Unix(1500, 0)

func testRecords() []poll.Record {
	return []poll.Record{
		{StartTime: 1000, EndTime: 2000, VotesForA: 3, VotesForB: 5}, // active
		{},                                          // placeholder
		{StartTime: 100, EndTime: 200, Ended: true}, // archived
		{StartTime: 1600, EndTime: 1700},            // pending
		{StartTime: 1200, EndTime: 1400},            // active, overdue
	}
}

func newTestRefresher(l *TestLedger, voter string) *Refresher {
	return NewRefresher(l, common.FixedClock{T: testNow}, voter, common.NewConfig()).
		SetObserver(observable.New())
}

func ids(entries []poll.Entry) (l []uint64) {
	for _, e := range entries {
		l = append(l, e.ID)
	}
	return
}

func TestRefresh(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.SetVoted(4, testVoter)

	r := newTestRefresher(l, testVoter)

	view, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, uint64(1), view.Sequence)
	require.Equal(t, uint64(5), view.Count)
	require.Equal(t, r.ID(), view.Watcher)
	require.Equal(t, int64(1500), view.Now)

	require.Equal(t, []uint64{0, 4}, ids(view.Ongoing))
	require.Equal(t, []uint64{2}, ids(view.Archived))
	require.Equal(t, []uint64{3}, ids(view.Pending))
	require.Equal(t, []uint64{1}, view.Skipped)
	require.Empty(t, view.Failed)

	{
		e, _ := view.Find(0)
		require.True(t, e.CanVote)
		require.Equal(t, "0d 0h 8m", e.Timer)
	}

	{
		e, _ := view.Find(4)
		require.True(t, e.Voted)
		require.False(t, e.CanVote)
		require.True(t, e.Overdue)
	}

	current, found := r.Current()
	require.True(t, found)
	require.Equal(t, view, current)
	require.Equal(t, uint64(1), r.Sequence())
}

func TestRefreshWithoutVoter(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	r := newTestRefresher(l, "")

	view, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, l.VotedCalls())

	for _, e := range view.Ongoing {
		require.False(t, e.CanVote)
	}
}

func TestRefreshRecordFailure(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.SessionErrs[2] = stderrors.New("connection reset")
	l.VotedErrs[0] = stderrors.New("timeout")

	r := newTestRefresher(l, testVoter)

	view, err := r.Refresh(context.Background())
	require.NoError(t, err)

	// the broken record is skipped, the rest is shown
	require.Equal(t, []uint64{2}, view.Failed)
	require.Empty(t, view.Archived)
	require.Equal(t, []uint64{0, 4}, ids(view.Ongoing))

	// lookup failure never offers a vote
	e, _ := view.Find(0)
	require.False(t, e.CanVote)
	require.False(t, e.LookupOK)
}

func TestRefreshStaleSnapshot(t *testing.T) {
	st, err := storage.NewTestMemoryLevelDBBackend()
	require.NoError(t, err)
	defer st.Close()

	l := NewTestLedger(testRecords()...)
	r := newTestRefresher(l, testVoter).SetSnapshotStore(storage.NewSnapshotStore(st, big.NewInt(common.DefaultChainID), testContract))

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)

	l.SessionErrs[2] = stderrors.New("connection reset")
	view, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.Empty(t, view.Failed)
	require.Equal(t, []uint64{2}, ids(view.Archived))
	require.True(t, view.Archived[0].Stale)
	require.Equal(t, 1, view.StaleCount())

	{ // poll count fails: everything comes from the store
		l.CountHook = func(context.Context, int) error { return stderrors.New("connection refused") }

		view, err := r.Refresh(context.Background())
		require.NoError(t, err)
		require.True(t, view.Offline)
		require.Equal(t, 4, view.Len())
		require.Equal(t, 4, view.StaleCount())
		for _, e := range view.Ongoing {
			require.False(t, e.CanVote)
		}
	}
}

func TestRefreshSnapshotsOfAnotherContract(t *testing.T) {
	st, err := storage.NewTestMemoryLevelDBBackend()
	require.NoError(t, err)
	defer st.Close()

	chainID := big.NewInt(common.DefaultChainID)

	la := NewTestLedger(testRecords()...)
	ra := newTestRefresher(la, testVoter).SetSnapshotStore(storage.NewSnapshotStore(st, chainID, testContract))
	_, err = ra.Refresh(context.Background())
	require.NoError(t, err)

	lb := NewTestLedger(poll.Record{StartTime: 1000, EndTime: 2000}, poll.Record{StartTime: 1000, EndTime: 3000})
	rb := newTestRefresher(lb, testVoter).SetSnapshotStore(storage.NewSnapshotStore(st, chainID, testVoter))

	{ // no snapshot of the other contract is shown as stale
		lb.SessionErrs[0] = stderrors.New("connection reset")

		view, err := rb.Refresh(context.Background())
		require.NoError(t, err)
		require.Equal(t, []uint64{0}, view.Failed)
		require.Equal(t, 0, view.StaleCount())
		require.Equal(t, []uint64{1}, ids(view.Ongoing))
	}

	{ // nor when the poll count fails
		lb.CountHook = func(context.Context, int) error { return stderrors.New("connection refused") }

		view, err := rb.Refresh(context.Background())
		require.NoError(t, err)
		require.True(t, view.Offline)
		require.Equal(t, 1, view.Len())
		require.Equal(t, []uint64{1}, ids(view.Ongoing))
		require.Equal(t, int64(3000), view.Ongoing[0].EndTime)
	}
}

func TestRefreshTooManyPolls(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.ReportedCount = common.DefaultMaxPolls + 1

	r := newTestRefresher(l, testVoter)
	_, err := r.Refresh(context.Background())
	require.True(t, errors.Is(err, errors.TooManyPolls))

	_, found := r.Current()
	require.False(t, found)

	{ // configured limit
		config := common.NewConfig()
		config.MaxPolls = 4

		r := NewRefresher(NewTestLedger(testRecords()...), common.FixedClock{T: testNow}, testVoter, config).
			SetObserver(observable.New())
		_, err := r.Refresh(context.Background())
		require.True(t, errors.Is(err, errors.TooManyPolls))

		config.MaxPolls = 5
		r = NewRefresher(NewTestLedger(testRecords()...), common.FixedClock{T: testNow}, testVoter, config).
			SetObserver(observable.New())
		_, err = r.Refresh(context.Background())
		require.NoError(t, err)
	}
}

func TestRefreshTooManyPollsShowsStored(t *testing.T) {
	st, err := storage.NewTestMemoryLevelDBBackend()
	require.NoError(t, err)
	defer st.Close()

	l := NewTestLedger(testRecords()...)
	r := newTestRefresher(l, testVoter).
		SetSnapshotStore(storage.NewSnapshotStore(st, big.NewInt(common.DefaultChainID), testContract))

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)

	l.ReportedCount = 1 << 40
	view, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, view.Offline)
}

func TestRefreshRedial(t *testing.T) {
	broken := NewTestLedger(testRecords()...)
	broken.CountHook = func(context.Context, int) error { return errors.NetworkError.Clone() }
	healthy := NewTestLedger(testRecords()...)

	var redials int
	r := newTestRefresher(broken, testVoter).SetRedialer(func(context.Context) (Ledger, error) {
		redials++
		return healthy, nil
	})

	r.refreshAndLog(context.Background())
	require.Equal(t, 1, redials)
	_, found := r.Current()
	require.False(t, found)

	// the next refresh reads from the new connection
	r.refreshAndLog(context.Background())
	require.Equal(t, 1, redials)

	view, found := r.Current()
	require.True(t, found)
	require.Equal(t, uint64(5), view.Count)
}

func TestRefreshRedialOnlyOnNetworkError(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.CountHook = func(context.Context, int) error { return stderrors.New("findme") }

	var redials int
	r := newTestRefresher(l, testVoter).SetRedialer(func(context.Context) (Ledger, error) {
		redials++
		return l, nil
	})

	r.refreshAndLog(context.Background())
	require.Equal(t, 0, redials)

	{ // a failed redial keeps the old connection
		l.CountHook = func(context.Context, int) error { return errors.NetworkError.Clone() }
		r.SetRedialer(func(context.Context) (Ledger, error) {
			redials++
			return nil, errors.WrongNetwork.Clone()
		})

		r.refreshAndLog(context.Background())
		require.Equal(t, 1, redials)
		require.True(t, r.currentLedger() == Ledger(l))
	}
}

func TestRefreshRedialWhenOffline(t *testing.T) {
	st, err := storage.NewTestMemoryLevelDBBackend()
	require.NoError(t, err)
	defer st.Close()

	l := NewTestLedger(testRecords()...)
	healthy := NewTestLedger(testRecords()...)

	var redials int
	r := newTestRefresher(l, testVoter).
		SetSnapshotStore(storage.NewSnapshotStore(st, big.NewInt(common.DefaultChainID), testContract)).
		SetRedialer(func(context.Context) (Ledger, error) {
			redials++
			return healthy, nil
		})

	r.refreshAndLog(context.Background())
	require.Equal(t, 0, redials)

	l.CountHook = func(context.Context, int) error { return stderrors.New("connection refused") }
	r.refreshAndLog(context.Background())
	require.Equal(t, 1, redials)

	view, _ := r.Current()
	require.True(t, view.Offline)

	r.refreshAndLog(context.Background())
	view, _ = r.Current()
	require.False(t, view.Offline)
}

func TestRefreshCountFailure(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.CountHook = func(context.Context, int) error { return stderrors.New("connection refused") }

	r := newTestRefresher(l, testVoter)

	_, err := r.Refresh(context.Background())
	require.Error(t, err)

	_, found := r.Current()
	require.False(t, found)
}

func TestRefreshSuperseded(t *testing.T) {
	l := NewTestLedger(testRecords()...)

	started := make(chan struct{})
	l.CountHook = func(ctx context.Context, call int) error {
		if call == 1 {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	r := newTestRefresher(l, testVoter)

	var wg sync.WaitGroup
	var oldErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, oldErr = r.Refresh(context.Background())
	}()

	<-started

	// the newer refresh cancels the older one
	view, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), view.Sequence)

	wg.Wait()
	require.True(t, errors.Is(oldErr, errors.RefreshSuperseded))

	current, _ := r.Current()
	require.Equal(t, uint64(2), current.Sequence)
}

func TestPublishOlderView(t *testing.T) {
	r := newTestRefresher(NewTestLedger(), "")

	require.True(t, r.publish(&View{Sequence: 2}))
	require.False(t, r.publish(&View{Sequence: 1}))
	require.False(t, r.publish(&View{Sequence: 2}))

	current, _ := r.Current()
	require.Equal(t, uint64(2), current.Sequence)
}

func TestRefreshObserver(t *testing.T) {
	ob := observable.New()
	l := NewTestLedger(testRecords()...)
	r := newTestRefresher(l, testVoter).SetObserver(ob)

	var views []*View
	var entries []poll.Entry
	onView := func(args ...interface{}) {
		views = append(views, args[0].(*View))
	}
	onEntry := func(args ...interface{}) {
		entries = append(entries, args[0].(poll.Entry))
	}
	ob.On(observer.All(observer.EventRefresh).String(), onView)
	ob.On(observer.NewPollEvent(observer.EventRefresh, 3).String(), onEntry)

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, len(views))
	require.Equal(t, 1, len(entries))
	require.Equal(t, poll.PENDING, entries[0].Class)
}

func TestRefreshVoterCache(t *testing.T) {
	l := NewTestLedger(testRecords()...)
	l.SetVoted(0, testVoter)

	c := cache.NewVoterCache(cache.NewMemCacheAdapter(10), testContract)
	r := newTestRefresher(l, testVoter).SetCache(c)

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, l.VotedCalls())
	require.True(t, c.HasVoted(0, testVoter))
	require.False(t, c.HasVoted(4, testVoter))

	// positive answer is not asked again
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, l.VotedCalls())
}

func TestRunTrigger(t *testing.T) {
	l := NewTestLedger(testRecords()...)

	config := common.NewConfig()
	config.RefreshInterval = time.Hour

	ob := observable.New()
	r := NewRefresher(l, common.FixedClock{T: testNow}, testVoter, config).SetObserver(ob)

	published := make(chan uint64, 10)
	ob.On(observer.All(observer.EventRefresh).String(), func(args ...interface{}) {
		published <- args[0].(*View).Sequence
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- r.Run(ctx)
	}()

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh was not published")
	}

	r.Trigger()
	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered refresh was not published")
	}

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, uint64(2), r.Sequence())
}

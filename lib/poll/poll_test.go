package poll

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const testVoter = "0x8Ba1f109551bD432803012645Ac136ddd64DBA72"

func votedIn(ids ...uint64) HasVotedFunc {
	voted := map[uint64]bool{}
	for _, id := range ids {
		voted[id] = true
	}

	return func(voter string, pollID uint64) (bool, error) {
		return voted[pollID], nil
	}
}

func makeRandomRecords(n int) []Record {
	var records []Record
	for i := 0; i < n; i++ {
		r := Record{ID: uint64(i)}
		if rand.Intn(5) != 0 {
			r.StartTime = int64(rand.Intn(3000) + 1)
			r.EndTime = r.StartTime + int64(rand.Intn(3000))
			r.Ended = rand.Intn(3) == 0
			r.VotesForA = uint64(rand.Intn(10))
			r.VotesForB = uint64(rand.Intn(10))
		}
		records = append(records, r)
	}

	return records
}

func TestClassify(t *testing.T) {
	{ // ongoing
		r := Record{ID: 0, StartTime: 1000, EndTime: 2000}
		require.Equal(t, ACTIVE, Classify(r, 1500))
		require.Equal(t, ACTIVE, Classify(r, 1000))
	}

	{ // placeholder
		r := Record{ID: 1}
		require.Equal(t, SKIP, Classify(r, 1500))
		require.Equal(t, SKIP, Classify(Record{ID: 1, Ended: true}, 1500))
	}

	{ // ended flag dominates the clock
		r := Record{ID: 2, StartTime: 100, EndTime: 200, Ended: true}
		require.Equal(t, ARCHIVED, Classify(r, 50))
		require.Equal(t, ARCHIVED, Classify(r, 150))
		require.Equal(t, ARCHIVED, Classify(r, 250))
	}

	{ // not started yet
		r := Record{ID: 3, StartTime: 1000, EndTime: 2000}
		require.Equal(t, PENDING, Classify(r, 999))
	}

	{ // past its end, but not closed by the contract
		r := Record{ID: 4, StartTime: 1000, EndTime: 2000}
		require.Equal(t, ACTIVE, Classify(r, 2500))
		require.True(t, IsOverdue(r, 2500))
		require.False(t, IsOverdue(r, 2000))
	}
}

func TestClassifyDeterministic(t *testing.T) {
	records := makeRandomRecords(200)
	for _, r := range records {
		for _, now := range []int64{0, 1, 1500, 3000, 7000} {
			require.Equal(t, Classify(r, now), Classify(r, now))
		}
	}
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "0d 0h 0m", FormatDuration(0))
	require.Equal(t, "0d 0h 8m", FormatDuration(500))
	require.Equal(t, "0d 1h 1m", FormatDuration(3661))
	require.Equal(t, "7d 0h 0m", FormatDuration(604800))
	require.Equal(t, "1d 23h 59m", FormatDuration(86400*2-1))
	require.Equal(t, "0d 0h 0m", FormatDuration(-500))
}

func TestRemainingOrElapsed(t *testing.T) {
	{ // remaining
		r := Record{StartTime: 1000, EndTime: 2000}
		require.Equal(t, "0d 0h 8m", RemainingOrElapsed(r, 1500))
	}

	{ // elapsed since the end
		r := Record{StartTime: 1000, EndTime: 2000, Ended: true}
		require.Equal(t, "0d 1h 0m", RemainingOrElapsed(r, 2000+3600))
	}

	{ // overdue is clamped
		r := Record{StartTime: 1000, EndTime: 2000}
		require.Equal(t, "0d 0h 0m", RemainingOrElapsed(r, 5000))
	}

	{ // until the start
		r := Record{StartTime: 1000 + 86400, EndTime: 2000 + 86400}
		require.Equal(t, "1d 0h 0m", RemainingOrElapsed(r, 1000))
	}

	require.Equal(t, "", RemainingOrElapsed(Record{}, 1000))
}

func TestCanVote(t *testing.T) {
	active := Record{ID: 3, StartTime: 1000, EndTime: 2000}

	require.True(t, CanVote(active, 1500, testVoter, votedIn()))
	require.False(t, CanVote(active, 1500, testVoter, votedIn(3)))
	require.True(t, CanVote(active, 1500, testVoter, votedIn(2)))

	{ // without voter or lookup
		require.False(t, CanVote(active, 1500, "", votedIn()))
		require.False(t, CanVote(active, 1500, testVoter, nil))
	}

	{ // failed lookup
		failed := func(string, uint64) (bool, error) {
			return false, errors.New("connection refused")
		}
		require.False(t, CanVote(active, 1500, testVoter, failed))
	}

	{ // not ACTIVE
		require.False(t, CanVote(active, 999, testVoter, votedIn()))
		require.False(t, CanVote(Record{ID: 3, StartTime: 100, EndTime: 200, Ended: true}, 150, testVoter, votedIn()))
		require.False(t, CanVote(Record{ID: 3}, 150, testVoter, votedIn()))
	}
}

func TestCanVoteFalseWhenVoted(t *testing.T) {
	records := makeRandomRecords(200)
	lookup := func(string, uint64) (bool, error) {
		return true, nil
	}

	for _, r := range records {
		for _, now := range []int64{0, 1500, 7000} {
			require.False(t, CanVote(r, now, testVoter, lookup))
		}
	}
}

func TestPartition(t *testing.T) {
	records := []Record{
		{ID: 0, StartTime: 1000, EndTime: 2000},
		{ID: 1},
		{ID: 2, StartTime: 100, EndTime: 200, Ended: true},
		{ID: 3, StartTime: 1200, EndTime: 3000},
		{ID: 4, StartTime: 1600, EndTime: 3000},
		{ID: 5, StartTime: 500, EndTime: 900},
	}

	ongoing, archived := Partition(records, 1500)

	var ongoingIDs, archivedIDs []uint64
	for _, r := range ongoing {
		ongoingIDs = append(ongoingIDs, r.ID)
	}
	for _, r := range archived {
		archivedIDs = append(archivedIDs, r.ID)
	}

	require.Equal(t, []uint64{0, 3, 5}, ongoingIDs)
	require.Equal(t, []uint64{2}, archivedIDs)
}

func TestPartitionOrderAndCoverage(t *testing.T) {
	records := makeRandomRecords(300)
	rand.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	shuffled := make([]Record, len(records))
	copy(shuffled, records)

	var now int64 = 1500
	ongoing, archived := Partition(records, now)

	// input is not reordered
	require.Equal(t, shuffled, records)

	seen := map[uint64]int{}
	for _, l := range [][]Record{ongoing, archived} {
		for i, r := range l {
			seen[r.ID]++
			if i > 0 {
				require.True(t, l[i-1].ID < r.ID)
			}
		}
	}

	for _, r := range records {
		class := Classify(r, now)
		if class == SKIP || class == PENDING {
			require.Equal(t, 0, seen[r.ID])
			continue
		}
		require.Equal(t, 1, seen[r.ID], "record %d", r.ID)
	}
}

func TestPartitionIdempotent(t *testing.T) {
	records := makeRandomRecords(100)

	o0, a0 := Partition(records, 1500)
	o1, a1 := Partition(records, 1500)
	require.Equal(t, o0, o1)
	require.Equal(t, a0, a1)
}

func TestReconcile(t *testing.T) {
	records := []Record{
		{ID: 0, StartTime: 1000, EndTime: 2000, VotesForA: 2, VotesForB: 1},
		{ID: 1},
		{ID: 2, StartTime: 100, EndTime: 200, Ended: true},
		{ID: 3, StartTime: 1200, EndTime: 3000},
		{ID: 4, StartTime: 1600, EndTime: 3000},
	}

	rc := Reconcile(records, 1500, testVoter, votedIn(3), map[uint64]bool{2: true})

	require.Equal(t, 4, rc.Len())
	require.Equal(t, []uint64{1}, rc.Skipped)
	require.Equal(t, 2, len(rc.Ongoing))
	require.Equal(t, 1, len(rc.Archived))
	require.Equal(t, 1, len(rc.Pending))

	{
		e, found := rc.Find(0)
		require.True(t, found)
		require.Equal(t, ACTIVE, e.Class)
		require.Equal(t, "0d 0h 8m", e.Timer)
		require.True(t, e.CanVote)
		require.False(t, e.Voted)
	}

	{
		e, _ := rc.Find(3)
		require.False(t, e.CanVote)
		require.True(t, e.Voted)
	}

	{
		e, _ := rc.Find(2)
		require.Equal(t, ARCHIVED, e.Class)
		require.True(t, e.Stale)
		require.False(t, e.CanVote)
	}

	{
		e, _ := rc.Find(4)
		require.Equal(t, PENDING, e.Class)
		require.Equal(t, "0d 0h 1m", e.Timer)
	}

	_, found := rc.Find(1)
	require.False(t, found)
}

func TestReconcileLookupOnlyForActive(t *testing.T) {
	records := makeRandomRecords(100)

	var asked []uint64
	lookup := func(voter string, pollID uint64) (bool, error) {
		asked = append(asked, pollID)
		return false, nil
	}

	var now int64 = 1500
	Reconcile(records, now, testVoter, lookup, nil)

	for _, id := range asked {
		require.Equal(t, ACTIVE, Classify(records[id], now))
	}

	{ // without voter nothing is asked
		asked = nil
		rc := Reconcile(records, now, "", lookup, nil)
		require.Empty(t, asked)
		for _, e := range rc.Ongoing {
			require.False(t, e.CanVote)
		}
	}
}

func TestReconcileLookupError(t *testing.T) {
	records := []Record{
		{ID: 0, StartTime: 1000, EndTime: 2000},
		{ID: 1, StartTime: 1000, EndTime: 2000},
	}
	lookup := func(voter string, pollID uint64) (bool, error) {
		if pollID == 0 {
			return false, errors.New("timeout")
		}
		return false, nil
	}

	rc := Reconcile(records, 1500, testVoter, lookup, nil)
	require.Equal(t, 2, len(rc.Ongoing))
	require.False(t, rc.Ongoing[0].CanVote)
	require.False(t, rc.Ongoing[0].LookupOK)
	require.True(t, rc.Ongoing[1].CanVote)
}

func TestRecordLeader(t *testing.T) {
	c, ok := Record{VotesForA: 3, VotesForB: 1}.Leader()
	require.True(t, ok)
	require.Equal(t, ChoiceA, c)

	c, ok = Record{VotesForA: 1, VotesForB: 3}.Leader()
	require.True(t, ok)
	require.Equal(t, ChoiceB, c)

	_, ok = Record{VotesForA: 2, VotesForB: 2}.Leader()
	require.False(t, ok)
}

func TestParseChoice(t *testing.T) {
	for _, s := range []string{"a", "A", "alice", " Alice "} {
		c, ok := ParseChoice(s)
		require.True(t, ok, s)
		require.Equal(t, ChoiceA, c)
		require.True(t, c.VoteForA())
	}
	for _, s := range []string{"b", "BOB"} {
		c, ok := ParseChoice(s)
		require.True(t, ok, s)
		require.Equal(t, ChoiceB, c)
	}

	_, ok := ParseChoice("carol")
	require.False(t, ok)
}

func TestAddress(t *testing.T) {
	require.Equal(t, "0x8Ba1...BA72", TruncateAddress(testVoter))
	require.Equal(t, "0x12", TruncateAddress("0x12"))

	require.True(t, SameAddress(testVoter, "0x8ba1f109551bd432803012645ac136ddd64dba72"))
	require.False(t, SameAddress(testVoter, "0x0000000000000000000000000000000000000000"))
	require.False(t, SameAddress("", ""))
}

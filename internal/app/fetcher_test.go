package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAll_CollectsSuccessesDropsFailures(t *testing.T) {
	portal := &fakePortal{
		subjects: map[string][]rating.Subject{
			"alice": {{Name: "Math", Attendance: 1}},
			"carol": {{Name: "Math", Attendance: 3}},
		},
		errs: map[string]error{"bob": errors.New("портал лежит")},
	}
	fetcher := NewFetcher(portal, 2, testLogger())

	snapshots := fetcher.FetchAll(context.Background(), []*student.Student{
		eligibleStudent(1, 100, "alice"),
		eligibleStudent(2, 200, "bob"),
		eligibleStudent(3, 300, "carol"),
	})

	require.Len(t, snapshots, 2)
	ids := []int64{snapshots[0].Student.ID, snapshots[1].Student.ID}
	assert.ElementsMatch(t, []int64{1, 3}, ids)
	assert.Equal(t, 3, portal.calls)
}

func TestFetchAll_NoStudents(t *testing.T) {
	fetcher := NewFetcher(&fakePortal{}, 2, testLogger())
	assert.Empty(t, fetcher.FetchAll(context.Background(), nil))
}

// countingPortal tracks how many fetches run at the same time.
type countingPortal struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (p *countingPortal) Fetch(_ context.Context, _ student.Credential) ([]rating.Subject, error) {
	n := p.current.Add(1)
	defer p.current.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []rating.Subject{{Name: "Math"}}, nil
}

func TestFetchAll_BoundsConcurrency(t *testing.T) {
	portal := &countingPortal{}
	fetcher := NewFetcher(portal, 2, testLogger())

	students := make([]*student.Student, 8)
	for i := range students {
		students[i] = eligibleStudent(int64(i+1), int64(100+i), "u")
	}

	snapshots := fetcher.FetchAll(context.Background(), students)
	require.Len(t, snapshots, 8)
	assert.LessOrEqual(t, portal.peak.Load(), int32(2))
}

// blockingPortal holds every fetch until released, to prove the fetch
// stage is a join-all barrier.
type blockingPortal struct {
	release chan struct{}
	started sync.WaitGroup
}

func (p *blockingPortal) Fetch(_ context.Context, _ student.Credential) ([]rating.Subject, error) {
	p.started.Done()
	<-p.release
	return []rating.Subject{{Name: "Math"}}, nil
}

func TestFetchAll_WaitsForAllFetches(t *testing.T) {
	portal := &blockingPortal{release: make(chan struct{})}
	portal.started.Add(2)
	fetcher := NewFetcher(portal, 4, testLogger())

	done := make(chan []rating.Snapshot)
	go func() {
		done <- fetcher.FetchAll(context.Background(), []*student.Student{
			eligibleStudent(1, 100, "alice"),
			eligibleStudent(2, 200, "bob"),
		})
	}()

	portal.started.Wait()
	select {
	case <-done:
		t.Fatal("FetchAll returned before all fetches completed")
	case <-time.After(20 * time.Millisecond):
	}

	close(portal.release)
	snapshots := <-done
	assert.Len(t, snapshots, 2)
}

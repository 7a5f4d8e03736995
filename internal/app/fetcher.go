package app

import (
	"context"
	"sync"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PortalClient is the scrape capability the fetcher fans out over.
type PortalClient interface {
	Fetch(ctx context.Context, cred student.Credential) ([]rating.Subject, error)
}

// Fetcher runs one portal fetch per eligible student, bounded by a
// concurrency cap so a large user base cannot overwhelm the portal or
// local sockets.
type Fetcher struct {
	portal PortalClient
	limit  int
	logger *logrus.Entry
}

func NewFetcher(portal PortalClient, limit int, logger *logrus.Entry) *Fetcher {
	return &Fetcher{portal: portal, limit: limit, logger: logger}
}

// FetchAll collects the snapshots of every student whose fetch succeeded.
// A failed fetch contributes nothing: it is logged with the student's id
// (never the credentials) and the student is retried next cycle. Output
// order is not significant.
func (f *Fetcher) FetchAll(ctx context.Context, students []*student.Student) []rating.Snapshot {
	var (
		mu        sync.Mutex
		snapshots []rating.Snapshot
	)

	g := new(errgroup.Group)
	g.SetLimit(f.limit)
	for _, st := range students {
		st := st
		g.Go(func() error {
			subjects, err := f.portal.Fetch(ctx, st.Credential())
			if err != nil {
				f.logger.WithFields(logrus.Fields{
					"student_id": st.ID,
					"stage":      "fetch",
				}).WithError(err).Warn("Rating fetch failed; student will be retried next cycle")
				return nil
			}
			mu.Lock()
			snapshots = append(snapshots, rating.Snapshot{Student: st, Subjects: subjects})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; failures are logged above.

	return snapshots
}

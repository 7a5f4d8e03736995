package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"
	domainTelegram "rea_rating_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ErrNoSnapshots marks a cycle in which not a single student's rating
// could be fetched. The scheduler reacts by retrying sooner.
var ErrNoSnapshots = errors.New("no rating snapshots fetched this cycle")

// initializedMessage confirms a freshly created baseline. It is sent even
// though nothing has "changed" yet: after a semester switch the student
// asked for a reset and needs to know it took effect.
const initializedMessage = "Рейтинг обновился (вероятно это уведомление из-за смены семестра)"

// ReconcileService runs the fetch-all, diff-all, dispatch-all cycle and
// owns the change-detection logic between a fresh snapshot and the
// persisted baseline.
type ReconcileService struct {
	studentRepo student.Repository
	ratingRepo  rating.Repository
	fetcher     *Fetcher
	dispatcher  *Dispatcher
	logger      *logrus.Entry
}

func NewReconcileService(
	studentRepo student.Repository,
	ratingRepo rating.Repository,
	fetcher *Fetcher,
	dispatcher *Dispatcher,
	logger *logrus.Entry,
) *ReconcileService {
	return &ReconcileService{
		studentRepo: studentRepo,
		ratingRepo:  ratingRepo,
		fetcher:     fetcher,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// RunCycle performs one full reconciliation pass. A returned error means
// the whole cycle failed and should be retried on the shorter interval;
// per-student failures are contained and logged instead.
func (s *ReconcileService) RunCycle(ctx context.Context) error {
	students, err := s.studentRepo.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("listing eligible students: %w", err)
	}

	snapshots := s.fetcher.FetchAll(ctx, students)
	if len(snapshots) == 0 {
		return ErrNoSnapshots
	}
	s.logger.WithFields(logrus.Fields{
		"eligible": len(students),
		"fetched":  len(snapshots),
	}).Info("Rating fetch stage complete")

	notifications := make([]Notification, 0, len(snapshots))
	for _, snapshot := range snapshots {
		notification, err := s.reconcile(ctx, snapshot)
		if err != nil {
			// One student's persistence failure must not affect the others.
			s.logger.WithFields(logrus.Fields{
				"student_id": snapshot.Student.ID,
				"stage":      "diff",
			}).WithError(err).Error("Reconciliation failed for student")
			continue
		}
		if notification != nil {
			notifications = append(notifications, *notification)
		}
	}

	s.dispatcher.DispatchAll(ctx, notifications)
	return nil
}

// reconcile diffs one snapshot against the student's baseline, applies the
// necessary persistence writes and builds the delta notification, if any.
func (s *ReconcileService) reconcile(ctx context.Context, snapshot rating.Snapshot) (*Notification, error) {
	baseline, err := s.ratingRepo.MapByStudent(ctx, snapshot.Student.ID)
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}

	if len(baseline) == 0 {
		return s.initializeBaseline(ctx, snapshot)
	}

	var lines []string
	for _, subject := range snapshot.Subjects {
		known, ok := baseline[subject.Name]
		if !ok {
			// Subjects appearing mid-semester are picked up only after the
			// next baseline reset; disappearing ones are left in place.
			continue
		}

		deltas := componentDeltas(subject, known)
		if len(deltas) == 0 {
			continue
		}

		// Overwrite the full row even for unchanged components, so the
		// stored baseline always matches one observed snapshot.
		if err := s.ratingRepo.Update(ctx, snapshot.Student.ID, subject); err != nil {
			return nil, fmt.Errorf("updating baseline for %q: %w", subject.Name, err)
		}
		lines = append(lines, deltas...)
		lines = append(lines, fmt.Sprintf("По %s\n", domainTelegram.EscapeMarkdownV2(subject.Name)))
	}

	if len(lines) == 0 {
		return nil, nil
	}
	return &Notification{
		ChatID:  snapshot.Student.ChatID,
		Message: strings.Join(lines, "\n"),
	}, nil
}

// initializeBaseline records every fetched subject as the new comparison
// point. The confirmation is suppressed if any insert fails, so the
// student is never told the update happened when it didn't.
func (s *ReconcileService) initializeBaseline(ctx context.Context, snapshot rating.Snapshot) (*Notification, error) {
	for _, subject := range snapshot.Subjects {
		if err := s.ratingRepo.Insert(ctx, snapshot.Student.ID, subject); err != nil {
			return nil, fmt.Errorf("inserting baseline for %q: %w", subject.Name, err)
		}
	}
	return &Notification{
		ChatID:  snapshot.Student.ChatID,
		Message: domainTelegram.EscapeMarkdownV2(initializedMessage),
	}, nil
}

// componentDeltas compares the four components with exact equality and
// renders one spoiler line per changed component, signed new minus old.
func componentDeltas(fetched, known rating.Subject) []string {
	var deltas []string
	if fetched.Attendance != known.Attendance {
		deltas = append(deltas, deltaLine(fetched.Attendance-known.Attendance, "за посещение"))
	}
	if fetched.Creative != known.Creative {
		deltas = append(deltas, deltaLine(fetched.Creative-known.Creative, "по творческому"))
	}
	if fetched.Control != known.Control {
		deltas = append(deltas, deltaLine(fetched.Control-known.Control, "за контрольный"))
	}
	if fetched.Test != known.Test {
		deltas = append(deltas, deltaLine(fetched.Test-known.Test, "за экз/тест"))
	}
	return deltas
}

func deltaLine(delta float64, label string) string {
	rendered := rating.FormatScore(delta)
	if delta > 0 {
		rendered = "+" + rendered
	}
	return fmt.Sprintf("||%s|| %s", domainTelegram.EscapeMarkdownV2(rendered), label)
}

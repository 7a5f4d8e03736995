package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner runs one full reconciliation cycle. A non-nil error
// classifies the cycle as failed.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// tickSpec is how often the cron engine wakes the scheduler up to check
// whether a cycle is due. The actual pacing between cycles is the
// configured poll interval, or the retry interval after a failed cycle.
const tickSpec = "@every 30s"

// ReconciliationScheduler drives the poll, diff, notify loop. It has two
// states, idle and running a cycle, and keeps running until Stop.
type ReconciliationScheduler struct {
	cronEngine     *cron.Cron
	runner         CycleRunner
	logger         *logrus.Entry
	normalInterval time.Duration
	retryInterval  time.Duration
	cycleTimeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	running   bool
	nextRunAt time.Time
}

func NewReconciliationScheduler(
	runner CycleRunner,
	logger *logrus.Entry,
	normalInterval time.Duration,
	retryInterval time.Duration,
	cycleTimeout time.Duration,
) *ReconciliationScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReconciliationScheduler{
		cronEngine:     cron.New(),
		runner:         runner,
		logger:         logger,
		normalInterval: normalInterval,
		retryInterval:  retryInterval,
		cycleTimeout:   cycleTimeout,
		ctx:            ctx,
		cancel:         cancel,
		nextRunAt:      time.Now(), // First cycle is due immediately.
	}
}

func (s *ReconciliationScheduler) Start() {
	s.logger.Info("Starting reconciliation scheduler")

	if _, err := s.cronEngine.AddFunc(tickSpec, s.tick); err != nil {
		s.logger.WithError(err).Fatal("Could not register reconciliation tick")
	}
	s.cronEngine.Start()
}

// tick runs a cycle if one is due and none is in flight, then arms the
// next due time from the cycle outcome.
func (s *ReconciliationScheduler) tick() {
	s.mu.Lock()
	if s.running || time.Now().Before(s.nextRunAt) {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	// Bound the whole cycle so a hung portal cannot stall the loop forever.
	ctx, cancel := context.WithTimeout(s.ctx, s.cycleTimeout)
	defer cancel()

	started := time.Now()
	err := s.runner.RunCycle(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Reconciliation cycle failed; retrying on the short interval")
	} else {
		s.logger.WithField("duration", time.Since(started).String()).Info("Reconciliation cycle complete")
	}
	delay := nextDelay(err, s.normalInterval, s.retryInterval)

	s.mu.Lock()
	s.nextRunAt = time.Now().Add(delay)
	s.running = false
	s.mu.Unlock()
}

// nextDelay selects the pause before the next cycle: the normal poll
// interval after any cycle that produced at least one snapshot, the
// shorter retry interval after a failed one.
func nextDelay(cycleErr error, normal, retry time.Duration) time.Duration {
	if cycleErr != nil {
		return retry
	}
	return normal
}

// Stop cancels the in-flight cycle, if any, and drains the cron engine.
func (s *ReconciliationScheduler) Stop() {
	s.logger.Info("Stopping reconciliation scheduler")
	s.cancel()
	ctx := s.cronEngine.Stop()
	<-ctx.Done() // Wait for a running tick to finish.
	s.logger.Info("Reconciliation scheduler stopped")
}

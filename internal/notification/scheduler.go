package notification

import (
	"context"
	"strings"
	"time"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/directory"
	"CampusNotify/pkg/monitoring"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ScheduleThreshold is how far in the future a schedule time must be before
// the message is deferred instead of sent right away.
const ScheduleThreshold = 30 * time.Second

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseScheduleAt accepts an RFC 3339 instant or a local date-time read in
// loc. Blank input yields nil.
func ParseScheduleAt(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid("invalid schedule date")
}

// SchoolFinder loads branding for a tenant.
type SchoolFinder interface {
	FindSchool(ctx context.Context, id string) (*directory.School, error)
}

// Scheduler defers messages and sweeps the ones that fell due.
type Scheduler struct {
	store       Store
	attachments Attachments
	schools     SchoolFinder
	dispatcher  *Dispatcher
	lock        SweepLock
	interval    time.Duration
	logger      *zap.Logger
	metrics     *monitoring.Metrics
	now         func() time.Time
}

func NewScheduler(
	store Store,
	attachments Attachments,
	schools SchoolFinder,
	dispatcher *Dispatcher,
	lock SweepLock,
	interval time.Duration,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Scheduler {
	return &Scheduler{
		store:       store,
		attachments: attachments,
		schools:     schools,
		dispatcher:  dispatcher,
		lock:        lock,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// ShouldDefer reports whether at is far enough ahead to schedule.
func (s *Scheduler) ShouldDefer(at *time.Time) bool {
	return at != nil && at.Sub(s.now()) > ScheduleThreshold
}

// ProcessScheduled dispatches every due message across all tenants and
// returns how many it handled. A message is only dispatched by the caller
// that moves it out of Scheduled.
func (s *Scheduler) ProcessScheduled(ctx context.Context) (int, error) {
	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		switch {
		case err != nil:
			s.logger.Warn("sweep lock unavailable, relying on claims", zap.Error(err))
		case !ok:
			s.logger.Debug("sweep already running elsewhere")
			return 0, nil
		default:
			defer release()
		}
	}

	start := s.now()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	due, err := s.store.FindDue(ctx, s.now())
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err, "could not load scheduled messages")
	}

	processed := 0
	for _, m := range due {
		won, err := s.store.ClaimScheduled(ctx, m.ID)
		if err != nil {
			s.logger.Error("claim failed", zap.String("message", m.ID), zap.Error(err))
			continue
		}
		if !won {
			continue
		}
		m.Status = StatusDispatching
		m.ScheduledAt = nil

		files := s.attachments.Load(ctx, m.Attachments)
		school := s.school(ctx, m.TenantID)
		if err := s.dispatcher.Dispatch(ctx, m, files, school); err != nil {
			s.logger.Error("scheduled dispatch failed", zap.String("message", m.ID), zap.Error(err))
			s.dispatcher.MarkFailed(ctx, m, err)
			continue
		}
		processed++
		s.metrics.SweepProcessed.Inc()
	}
	if processed > 0 {
		s.logger.Info("scheduled messages dispatched", zap.Int("count", processed))
	}
	return processed, nil
}

func (s *Scheduler) school(ctx context.Context, tenantID string) *directory.School {
	if s.schools == nil {
		return nil
	}
	school, err := s.schools.FindSchool(ctx, tenantID)
	if err != nil {
		s.logger.Warn("school lookup failed", zap.String("tenant", tenantID), zap.Error(err))
		return nil
	}
	return school
}

// StartScheduler runs the sweep on a ticker for the lifetime of the app.
func (s *Scheduler) StartScheduler(lc fx.Lifecycle) {
	if s.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(s.interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := s.ProcessScheduled(ctx); err != nil {
							s.logger.Error("scheduled sweep failed", zap.Error(err))
						}
					}
				}
			}()
			s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stop.Done():
			}
			return nil
		},
	})
}
